package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"slate/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Directories exist on return and the preflight floors are disabled so a
// full run can execute inside CI.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RunsDir = filepath.Join(base, "runs")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.WorkflowDir = filepath.Join(base, "workflows")
	cfgVal.Paths.LedgerPath = filepath.Join(base, "slate.db")
	cfgVal.Preflight.MinFreeDiskGB = 0
	cfgVal.Preflight.MinFreeVRAMMB = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithBackend selects the generation backend on the test config. Choosing
// fastvideo also enables it.
func WithBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Generation.Backend = backend
		if backend == "fastvideo" {
			b.cfg.FastVideo.Enabled = true
		}
	}
}

// WithFlag sets one guard flag policy on the test config.
func WithFlag(name, state string) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Flags == nil {
			b.cfg.Flags = map[string]string{}
		}
		b.cfg.Flags[name] = state
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
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
	return filepath.Dir(cfg.Paths.RunsDir)
}
