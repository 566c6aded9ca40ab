package chessbuilder

import (
    "errors"
    "fmt"
    "strings"

    "github.com/park285/Cheese-chess-arena/internal/adapter/chesspresenter"
    "github.com/park285/Cheese-chess-arena/internal/config"
    "github.com/park285/Cheese-chess-arena/internal/httpapi"
    "github.com/park285/Cheese-chess-arena/internal/msgcat"
    "github.com/park285/Cheese-chess-arena/internal/opponent"
    "github.com/park285/Cheese-chess-arena/internal/pvpchan"
    "github.com/park285/Cheese-chess-arena/internal/pvpchess"
    "go.uber.org/zap"
)

// Deps is the wired server graph.
type Deps struct {
    Manager   *pvpchess.Manager
    Channel   pvpchan.Channel
    Archive   *pvpchess.Repository // nil without DATABASE_URL
    Formatter *chesspresenter.Formatter
    Server    *httpapi.Server

    closers []func() error
}

// Close releases everything in reverse construction order.
func (d *Deps) Close() error {
    var errs []error
    for i := len(d.closers) - 1; i >= 0; i-- {
        if err := d.closers[i](); err != nil { errs = append(errs, err) }
    }
    d.closers = nil
    return errors.Join(errs...)
}

func New(cfg *config.AppConfig, logger *zap.Logger) (deps *Deps, err error) {
    if cfg == nil {
        return nil, fmt.Errorf("nil config")
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    d := &Deps{}
    defer func() {
        if err != nil { _ = d.Close() }
    }()

    cat, err := msgcat.New(cfg.MessagesDir)
    if err != nil {
        return nil, fmt.Errorf("load messages: %w", err)
    }
    d.Formatter = chesspresenter.NewFormatter(cat)

    // Store and channel: redis shares one client; badger runs single-node with in-process fan-out
    var store pvpchess.Store
    switch cfg.StoreBackend {
    case config.StoreBadger:
        bs, err := pvpchess.OpenBadgerStore(cfg.BadgerDir, cfg.GameTTL())
        if err != nil {
            return nil, err
        }
        local := pvpchan.NewLocalChannel()
        d.closers = append(d.closers, local.Close)
        store, d.Channel = bs, local
    default:
        rs, err := pvpchess.NewRedisStore(cfg.RedisURL, cfg.GameTTL())
        if err != nil {
            return nil, err
        }
        store, d.Channel = rs, pvpchan.NewRedisChannel(rs.Client(), cfg.GameTTL())
    }

    opts := []pvpchess.ManagerOption{
        pvpchess.WithPublisher(d.Channel),
        pvpchess.WithLogger(logger),
        pvpchess.WithPolicyLookup(policyLookup(cfg.DefaultPolicy)),
    }

    // Archive (optional)
    if strings.TrimSpace(cfg.DatabaseURL) != "" {
        repo, err := pvpchess.NewRepository(cfg.DatabaseURL)
        if err != nil {
            _ = store.Close()
            return nil, fmt.Errorf("open archive: %w", err)
        }
        d.Archive = repo
        d.closers = append(d.closers, repo.Close)
        opts = append(opts, pvpchess.WithArchive(repo))
    } else {
        logger.Info("archive_disabled", zap.String("reason", "DATABASE_URL not set"))
    }

    m, err := pvpchess.NewManager(store, opts...)
    if err != nil {
        _ = store.Close()
        return nil, err
    }
    d.Manager = m
    d.closers = append(d.closers, m.Close)

    d.Server = httpapi.NewServer(m, d.Channel, d.Formatter,
        httpapi.WithLogger(logger),
        httpapi.WithOriginPatterns(cfg.AllowedOrigins...),
    )
    logger.Info("builder_ready",
        zap.String("store", cfg.StoreBackend),
        zap.Bool("archive", d.Archive != nil),
        zap.String("default_policy", cfg.DefaultPolicy),
    )
    return d, nil
}

// policyLookup resolves an empty policy name to def.
func policyLookup(def string) func(string) (opponent.Policy, error) {
    return func(name string) (opponent.Policy, error) {
        if strings.TrimSpace(name) == "" { name = def }
        return opponent.ByName(name)
    }
}
