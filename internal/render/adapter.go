package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sessionreel/internal/services"
)

// Engine is implemented by composition renderer backends.
type Engine interface {
	Compositions(ctx context.Context) ([]Target, error)
	RenderStill(ctx context.Context, target Target, output string, props map[string]any) error
	RenderAnimated(ctx context.Context, target Target, output string, props map[string]any, codec string) error
}

// Failure reports a job the renderer could not produce.
type Failure struct {
	JobID string
	Cause error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("render %s: %v", f.JobID, f.Cause)
}

func (f *Failure) Unwrap() error { return f.Cause }

// Adapter renders jobs into AssetDir with a single attempt each.
type Adapter struct {
	Engine   Engine
	AssetDir string
	Codec    string
	Timeout  time.Duration
}

// OutputPath returns where job's artifact is written.
func (a *Adapter) OutputPath(job Job) string {
	return filepath.Join(a.AssetDir, job.ID+job.Mode.Extension())
}

// Render produces the artifact for job. Any error is a *Failure.
func (a *Adapter) Render(ctx context.Context, job Job, target Target) (Result, error) {
	if a.Engine == nil {
		return Result{}, a.fail(job, services.ErrConfiguration, "no render engine configured", nil)
	}
	if err := os.MkdirAll(a.AssetDir, 0o755); err != nil {
		return Result{}, a.fail(job, services.ErrConfiguration, "ensure asset directory", err)
	}

	renderCtx := ctx
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	output := a.OutputPath(job)
	var err error
	switch job.Mode {
	case ModeStill:
		err = a.Engine.RenderStill(renderCtx, target, output, job.Props)
	default:
		codec := a.Codec
		if codec == "" {
			codec = "h264"
		}
		err = a.Engine.RenderAnimated(renderCtx, target, output, job.Props, codec)
	}
	if err == nil && renderCtx.Err() != nil {
		err = renderCtx.Err()
	}
	if err != nil {
		if errors.Is(renderCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		return Result{}, a.fail(job, services.MarkerFor(err, services.ErrExternalTool), "renderer failed", err)
	}
	if _, statErr := os.Stat(output); statErr != nil {
		return Result{}, a.fail(job, services.ErrExternalTool, "renderer reported success without output", statErr)
	}
	return Result{JobID: job.ID, OutputPath: output, Mode: job.Mode}, nil
}

func (a *Adapter) fail(job Job, marker error, msg string, err error) error {
	return &Failure{JobID: job.ID, Cause: services.Wrap(marker, "render", string(job.Mode), msg, err)}
}
