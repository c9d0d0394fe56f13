// Package publish routes rendered artifacts to upload destinations.
//
// Router resolves a job's routing key against the configured table, falls
// back to the default destination with a warning, and hands the file to an
// Uploader backend (Google Drive, SFTP, or a local directory). Failures are
// returned inside the Outcome; the local file is never touched here.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"sessionreel/internal/logging"
	"sessionreel/internal/render"
	"sessionreel/internal/services"
)

// Remote is the durable reference returned by an upload.
type Remote struct {
	ID   string
	Name string
	Link string
}

// Uploader transfers a local file to destination under displayName.
type Uploader interface {
	Upload(ctx context.Context, localPath, displayName, destination string) (Remote, error)
}

// Checker is implemented by uploaders that can verify credentials or
// connectivity before the batch starts.
type Checker interface {
	Check(ctx context.Context) error
}

// Outcome is the result of one publish attempt.
type Outcome struct {
	Destination string
	Remote      Remote
	Fallback    bool
	Err         error
}

// OK reports whether the publish succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Router maps routing keys to destinations and drives the Uploader.
type Router struct {
	Routes   map[string]string
	Default  string
	Uploader Uploader
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Resolve returns the destination for key. An exact match wins, then a
// case-insensitive match on the trimmed key, then Default with fallback set.
// Keys that fold to the same value resolve to the lexically smallest one.
func (r *Router) Resolve(key string) (string, bool) {
	if dest, ok := r.Routes[key]; ok && dest != "" {
		return dest, false
	}
	normalized := strings.ToLower(strings.TrimSpace(key))
	if normalized != "" {
		for _, candidate := range slices.Sorted(maps.Keys(r.Routes)) {
			dest := r.Routes[candidate]
			if dest != "" && strings.ToLower(strings.TrimSpace(candidate)) == normalized {
				return dest, false
			}
		}
	}
	return r.Default, true
}

// Publish uploads result to the destination resolved from routingKey.
func (r *Router) Publish(ctx context.Context, result render.Result, routingKey string) Outcome {
	dest, fallback := r.Resolve(routingKey)
	outcome := Outcome{Destination: dest, Fallback: fallback}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.Logger, "publish"))

	if fallback {
		logging.WarnWithContext(logger, "routing key unmapped; using default destination", "routing_fallback",
			logging.String("routing_key", routingKey),
			logging.String("destination", dest),
			logging.String(logging.FieldErrorHint, "add the key under [publish.routes] to route it explicitly"),
			logging.String(logging.FieldImpact, "artifact published to the default destination"),
		)
	}
	if dest == "" {
		outcome.Err = services.Wrap(services.ErrConfiguration, "publish", "resolve", "no destination and no default configured", nil)
		return outcome
	}
	if r.Uploader == nil {
		outcome.Err = services.Wrap(services.ErrConfiguration, "publish", "upload", "no uploader configured", nil)
		return outcome
	}

	uploadCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	name := filepath.Base(result.OutputPath)
	remote, err := r.Uploader.Upload(uploadCtx, result.OutputPath, name, dest)
	if err != nil {
		if errors.Is(uploadCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		outcome.Err = services.Wrap(services.MarkerFor(err, services.ErrExternalTool), "publish", "upload", name, err)
		return outcome
	}
	outcome.Remote = remote
	logger.Info("artifact published",
		logging.String("destination", dest),
		logging.String("remote_id", remote.ID),
		logging.String("remote_link", remote.Link),
	)
	return outcome
}
