package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"sessionreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a valid local-backend, CSV-source config seeded with
// unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.AssetDir = filepath.Join(base, "assets")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Source.Kind = config.SourceCSV
	cfgVal.Source.CSVPath = filepath.Join(base, "sessions.csv")
	cfgVal.Publish.Backend = config.BackendLocal
	cfgVal.Publish.LocalRoot = filepath.Join(base, "published")
	cfgVal.Publish.DefaultDestination = "unsorted"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRoutes sets the publish routing table.
func WithRoutes(routes map[string]string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publish.Routes = routes
	}
}

// WithSchedule writes contents as the CSV schedule the config points at.
func WithSchedule(contents string) ConfigOption {
	return func(b *configBuilder) {
		if err := os.WriteFile(b.cfg.Source.CSVPath, []byte(contents), 0o644); err != nil {
			b.t.Fatalf("write schedule: %v", err)
		}
	}
}

// WithRenderer points the renderer at binary with the given prefix args.
func WithRenderer(binary string, args ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Renderer.Binary = binary
		b.cfg.Renderer.Args = args
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default renderer launcher
// and Node.js runtime are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"npx", "node"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.AssetDir)
}
