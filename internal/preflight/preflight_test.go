package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sessionreel/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckDirectoryAccess("test", f).Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "index.ts")
	if err := os.WriteFile(f, []byte("export {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckFile("entry", f); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if CheckFile("entry", filepath.Dir(f)).Passed {
		t.Fatal("expected failure for directory")
	}
	if CheckFile("entry", "").Passed {
		t.Fatal("expected failure for empty path")
	}
}

func TestCheckRemote(t *testing.T) {
	ok := CheckRemote(context.Background(), "svc", time.Second, func(context.Context) error { return nil })
	if !ok.Passed {
		t.Fatalf("expected pass, got %s", ok.Detail)
	}
	failed := CheckRemote(context.Background(), "svc", time.Second, func(context.Context) error { return errors.New("401 unauthorized") })
	if failed.Passed || failed.Detail != "401 unauthorized" {
		t.Fatalf("unexpected failure result %+v", failed)
	}
	slow := CheckRemote(context.Background(), "svc", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if slow.Passed || slow.Detail != "check timed out (service unresponsive)" {
		t.Fatalf("unexpected timeout result %+v", slow)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, Remotes{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_LocalBackend(t *testing.T) {
	binDir := t.TempDir()
	renderer := filepath.Join(binDir, "remotion-render")
	if err := os.WriteFile(renderer, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	entry := filepath.Join(t.TempDir(), "index.ts")
	if err := os.WriteFile(entry, []byte("export {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Paths.AssetDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Publish.Backend = config.BackendLocal
	cfg.Publish.LocalRoot = t.TempDir()
	cfg.Renderer.Binary = renderer
	cfg.Renderer.EntryPoint = entry

	sourceCalled := false
	results := RunAll(context.Background(), &cfg, Remotes{
		Source: func(context.Context) error { sourceCalled = true; return nil },
	})
	// asset, state, publish root, entry point, renderer, source check
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d: %+v", len(results), results)
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if !sourceCalled {
		t.Fatal("expected source check to run")
	}
	if Failed(results) {
		t.Fatal("expected no failures")
	}
}

func TestRunAll_NodeLauncherAddsRuntimeCheck(t *testing.T) {
	t.Setenv("PATH", "")
	cfg := config.Default()
	cfg.Paths.AssetDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Publish.Backend = config.BackendDrive
	cfg.Renderer.Binary = "npx"

	results := RunAll(context.Background(), &cfg, Remotes{
		Publisher: func(context.Context) error { return errors.New("invalid token") },
	})
	names := map[string]Result{}
	for _, r := range results {
		names[r.Name] = r
	}
	if _, ok := names["Node.js"]; !ok {
		t.Fatalf("expected Node.js check, got %+v", results)
	}
	if r := names["Publisher (drive)"]; r.Passed || r.Detail != "invalid token" {
		t.Fatalf("unexpected publisher result %+v", r)
	}
	if !Failed(results) {
		t.Fatal("expected failures to be reported")
	}
}
