package main

import (
    "context"
    "errors"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/park285/Cheese-chess-arena/internal/chessbuilder"
    appcfg "github.com/park285/Cheese-chess-arena/internal/config"
    "github.com/park285/Cheese-chess-arena/internal/obslog"
    "go.uber.org/zap"
)

func main() {
    cfg, err := appcfg.Load()
    if err != nil {
        log.Fatalf("config error: %v", err)
    }
    if err := obslog.InitFromEnv(); err != nil {
        log.Fatalf("logger init error: %v", err)
    }
    defer obslog.Sync()
    logger := obslog.Named("chess-server")

    deps, err := chessbuilder.New(cfg, logger)
    if err != nil {
        logger.Fatal("init_failed", zap.Error(err))
    }

    errCh := make(chan error, 1)
    go func() { errCh <- deps.Server.Listen(cfg.HTTPAddr) }()

    // Wait for termination signal or a listener failure
    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
    select {
    case sig := <-sigCh:
        logger.Info("shutdown_signal", zap.String("signal", sig.String()))
    case err := <-errCh:
        if err != nil {
            logger.Error("listen_failed", zap.Error(err))
        }
    }

    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := deps.Server.Close(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
        logger.Warn("http_close_error", zap.Error(err))
    }
    if err := deps.Close(); err != nil {
        logger.Warn("deps_close_error", zap.Error(err))
    }
    logger.Info("shutdown_complete")
}
