package remotion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sessionreel/internal/render"
)

var commandContext = exec.CommandContext

const tailLimit = 2048

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithPrefixArgs overrides the arguments placed before the subcommand.
func WithPrefixArgs(args []string) Option {
	return func(c *CLI) {
		if args != nil {
			c.prefix = append([]string(nil), args...)
		}
	}
}

// WithEntryPoint sets the bundle entry point passed to every subcommand.
func WithEntryPoint(entry string) Option {
	return func(c *CLI) {
		if entry != "" {
			c.entry = entry
		}
	}
}

// WithWorkDir sets the directory the CLI runs in.
func WithWorkDir(dir string) Option {
	return func(c *CLI) { c.workDir = dir }
}

// WithDiscoverTimeout bounds composition discovery, which bundles the
// project before listing.
func WithDiscoverTimeout(d time.Duration) Option {
	return func(c *CLI) { c.discoverTimeout = d }
}

// CLI implements render.Engine using the Remotion CLI.
type CLI struct {
	binary          string
	prefix          []string
	entry           string
	workDir         string
	discoverTimeout time.Duration
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "npx", prefix: []string{"remotion"}, entry: "src/index.ts"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Binary returns the executable the client invokes.
func (c *CLI) Binary() string { return c.binary }

// Compositions lists the compositions exported by the bundle.
func (c *CLI) Compositions(ctx context.Context) ([]render.Target, error) {
	if c.discoverTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.discoverTimeout)
		defer cancel()
	}
	out, err := c.run(ctx, "compositions", c.entry)
	if err != nil {
		return nil, err
	}
	return ParseCompositions(out)
}

// RenderStill renders the first frame of target to output.
func (c *CLI) RenderStill(ctx context.Context, target render.Target, output string, props map[string]any) error {
	propsPath, cleanup, err := writeProps(props)
	if err != nil {
		return err
	}
	defer cleanup()
	_, err = c.run(ctx, "still", c.entry, target.ID, output, "--props="+propsPath)
	return err
}

// RenderAnimated renders target as a video encoded with codec.
func (c *CLI) RenderAnimated(ctx context.Context, target render.Target, output string, props map[string]any, codec string) error {
	propsPath, cleanup, err := writeProps(props)
	if err != nil {
		return err
	}
	defer cleanup()
	_, err = c.run(ctx, "render", c.entry, target.ID, output, "--codec="+codec, "--props="+propsPath)
	return err
}

func (c *CLI) run(ctx context.Context, sub string, args ...string) ([]byte, error) {
	full := append(append([]string{}, c.prefix...), sub)
	full = append(full, args...)
	cmd := commandContext(ctx, c.binary, full...) //nolint:gosec
	if c.workDir != "" {
		cmd.Dir = c.workDir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("remotion %s: %w", sub, ctxErr)
		}
		detail := tail(stderr.Bytes())
		if detail == "" {
			detail = tail(stdout.Bytes())
		}
		if detail != "" {
			return nil, fmt.Errorf("remotion %s failed: %w: %s", sub, err, detail)
		}
		return nil, fmt.Errorf("remotion %s failed: %w", sub, err)
	}
	return stdout.Bytes(), nil
}

func writeProps(props map[string]any) (string, func(), error) {
	if props == nil {
		props = map[string]any{}
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", nil, fmt.Errorf("encode props: %w", err)
	}
	file, err := os.CreateTemp("", "sessionreel-props-*.json")
	if err != nil {
		return "", nil, fmt.Errorf("create props file: %w", err)
	}
	cleanup := func() { _ = os.Remove(file.Name()) }
	if _, err := file.Write(data); err != nil {
		file.Close()
		cleanup()
		return "", nil, fmt.Errorf("write props file: %w", err)
	}
	if err := file.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close props file: %w", err)
	}
	return file.Name(), cleanup, nil
}

func tail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > tailLimit {
		s = "..." + s[len(s)-tailLimit:]
	}
	return s
}

// compositionLine matches rows like "MainComposition  25  1920x1080  175 (7.00 sec)".
var compositionLine = regexp.MustCompile(`^(\S+)\s+(\d+(?:\.\d+)?)\s+(\d+)x(\d+)\s+(\d+)`)

// ParseCompositions reads `remotion compositions` output, either the JSON
// array produced with --json or the human-readable table.
func ParseCompositions(out []byte) ([]render.Target, error) {
	trimmed := bytes.TrimSpace(out)
	if idx := bytes.IndexByte(trimmed, '['); idx >= 0 && bytes.HasSuffix(trimmed, []byte("]")) {
		var targets []render.Target
		if err := json.Unmarshal(trimmed[idx:], &targets); err == nil {
			return targets, nil
		}
	}

	var targets []render.Target
	for _, line := range strings.Split(string(trimmed), "\n") {
		m := compositionLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		fps, _ := strconv.ParseFloat(m[2], 64)
		width, _ := strconv.Atoi(m[3])
		height, _ := strconv.Atoi(m[4])
		frames, _ := strconv.Atoi(m[5])
		targets = append(targets, render.Target{ID: m[1], FPS: fps, Width: width, Height: height, DurationInFrames: frames})
	}
	if targets == nil && len(trimmed) > 0 && !bytes.Contains(trimmed, []byte("No compositions")) {
		return nil, errors.New("remotion compositions: unrecognized output: " + tail(trimmed))
	}
	return targets, nil
}

var _ render.Engine = (*CLI)(nil)
