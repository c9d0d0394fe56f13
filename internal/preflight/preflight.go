package preflight

import (
	"context"

	"sessionreel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Detail   string
	Optional bool
}

// RemoteCheck verifies a remote collaborator, typically with a cheap
// authenticated request.
type RemoteCheck func(ctx context.Context) error

// Remotes are the remote checks RunAll performs. Nil checks are skipped.
type Remotes struct {
	Source    RemoteCheck
	Publisher RemoteCheck
}

// RunAll executes every applicable preflight check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, remotes Remotes) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Asset directory", cfg.Paths.AssetDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	if cfg.Publish.Backend == config.BackendLocal {
		results = append(results, CheckDirectoryAccess("Publish root", cfg.Publish.LocalRoot))
	}
	if cfg.Source.Kind == config.SourceCSV {
		results = append(results, CheckFile("Schedule CSV", cfg.Source.CSVPath))
	}
	results = append(results, CheckFile("Composition entry point", cfg.Renderer.EntryPoint))

	for _, status := range CheckRendererDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Command, Optional: status.Optional}
		if !status.Available {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}

	if remotes.Source != nil {
		results = append(results, CheckRemote(ctx, "Schedule source", cfg.SourceTimeout(), remotes.Source))
	}
	if remotes.Publisher != nil {
		results = append(results, CheckRemote(ctx, "Publisher ("+cfg.Publish.Backend+")", cfg.PublishTimeout(), remotes.Publisher))
	}
	return results
}

// Failed reports whether any required check did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
