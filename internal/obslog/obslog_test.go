package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSettingsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("LOG_FORMAT", "yaml")
	t.Setenv("LOG_TO_FILE", "false")
	s := SettingsFromEnv()
	if s.Level != zapcore.WarnLevel || s.Format != "legacy" || s.File != "" || !s.Console {
		t.Fatalf("settings = %+v", s)
	}
}

func TestBuild_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "arena.log")
	l, err := Build(Settings{Level: zapcore.InfoLevel, Format: "json", File: path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	l.Debug("hidden")
	l.Info("game_create", zap.String("game_id", "g1"))
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(raw)
	if !strings.Contains(out, `"msg":"game_create"`) || !strings.Contains(out, `"game_id":"g1"`) {
		t.Fatalf("log = %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug entry written at info level")
	}
}

func TestSet_Restores(t *testing.T) {
	dev := zap.NewExample()
	restore := Set(dev)
	if L() != dev {
		t.Fatalf("Set did not install logger")
	}
	restore()
	if L() == dev {
		t.Fatalf("restore did not reinstate previous logger")
	}
}
