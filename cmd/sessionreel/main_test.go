package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"sessionreel/internal/batch"
	"sessionreel/internal/config"
	"sessionreel/internal/testsupport"
)

const rendererScript = `#!/bin/sh
[ "$1" = "remotion" ] && shift
case "$1" in
compositions)
  if [ -n "$SESSIONREEL_STUB_EMPTY" ]; then exit 0; fi
  echo '[{"id":"MainComposition","durationInFrames":1,"fps":30,"width":1920,"height":1080}]'
  ;;
still|render)
  printf 'rendered' > "$4"
  ;;
*)
  echo "unexpected subcommand $1" >&2
  exit 2
  ;;
esac
`

const schedule = "Title of the session,Day,Start,Speaker 1,Stage\n" +
	"Keynote,2024-07-20,10:00,Ada Lovelace,Main Stage\n" +
	",2024-07-20,11:00,,Main Stage\n" +
	"Hallway Track,,,,Lobby\n"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GOOGLE_ACCESS_TOKEN", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	tools := t.TempDir()
	script := filepath.Join(tools, "renderer")
	if err := os.WriteFile(script, []byte(rendererScript), 0o755); err != nil {
		t.Fatalf("write renderer stub: %v", err)
	}
	entry := filepath.Join(tools, "project", "src", "index.ts")
	if err := os.MkdirAll(filepath.Dir(entry), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(entry, []byte("export {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testsupport.NewConfig(t,
		testsupport.WithSchedule(schedule),
		testsupport.WithRoutes(map[string]string{"Main Stage": "main"}),
		testsupport.WithRenderer(script, "remotion"),
	)
	cfg.Renderer.EntryPoint = entry
	base := testsupport.BaseDir(cfg)

	configPath := filepath.Join(base, "sessionreel.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestRunPublishesAndRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	requireContains(t, out, "Published:")
	requireContains(t, out, "Rejected rows:")

	keynote := filepath.Join(env.cfg.Publish.LocalRoot, "main", "keynote.png")
	if _, err := os.Stat(keynote); err != nil {
		t.Fatalf("expected keynote published to main: %v", err)
	}
	hallway := filepath.Join(env.cfg.Publish.LocalRoot, "unsorted", "hallway-track.png")
	if _, err := os.Stat(hallway); err != nil {
		t.Fatalf("expected unmapped stage to use default destination: %v", err)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "MainComposition")

	out, _, err = runCLI(t, []string{"run", "--skip-published"}, env.configPath)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	requireContains(t, out, "Already published:")
}

func TestRunFailsWhenNoTargets(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("SESSIONREEL_STUB_EMPTY", "1")

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if !errors.Is(err, batch.ErrSetup) {
		t.Fatalf("expected setup error, got %v", err)
	}
	requireContains(t, out, "Setup:")
	if _, statErr := os.Stat(filepath.Join(env.cfg.Publish.LocalRoot, "main")); !os.IsNotExist(statErr) {
		t.Fatal("no artifact should be published after a setup failure")
	}
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatal(err)
	}
	lock := flock.New(env.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("take lock: ok=%v err=%v", ok, err)
	}
	defer func() { _ = lock.Unlock() }()

	_, _, err = runCLI(t, []string{"run"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "another sessionreel run") {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}

func TestPlanAndTargets(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"plan"}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "keynote")
	requireContains(t, out, "single_frame_target")
	requireContains(t, out, "unsorted (default)")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.AssetDir, "keynote.png")); !os.IsNotExist(err) {
		t.Fatal("plan must not render")
	}

	out, _, err = runCLI(t, []string{"targets"}, env.configPath)
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	requireContains(t, out, "MainComposition")
	requireContains(t, out, "1920x1080")
}

func TestCheckPassesWithLocalBackend(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Renderer:")
	requireContains(t, out, "[OK]")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}
}

func TestLogsAndCleanAfterRun(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"run"}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "0"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "batch finished")

	out, _, err = runCLI(t, []string{"logs", "--level", "error"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --level: %v", err)
	}
	if strings.Contains(out, "batch finished") {
		t.Fatalf("level filter let info lines through: %s", out)
	}

	out, _, err = runCLI(t, []string{"clean", "--list"}, env.configPath)
	if err != nil {
		t.Fatalf("clean --list: %v", err)
	}
	requireContains(t, out, "keynote.png")

	out, _, err = runCLI(t, []string{"clean", "--older-than", "1ns", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("clean --dry-run: %v", err)
	}
	requireContains(t, out, "Would remove 2 file(s)")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.AssetDir, "keynote.png")); err != nil {
		t.Fatalf("dry run removed asset: %v", err)
	}

	out, _, err = runCLI(t, []string{"clean", "--older-than", "1ns"}, env.configPath)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	requireContains(t, out, "Removed 2 file(s)")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.AssetDir, "keynote.png")); !os.IsNotExist(err) {
		t.Fatalf("expected keynote.png removed, stat err=%v", err)
	}
}
