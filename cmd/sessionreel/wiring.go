package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"sessionreel/internal/batch"
	"sessionreel/internal/config"
	"sessionreel/internal/planner"
	"sessionreel/internal/publish"
	"sessionreel/internal/render"
	"sessionreel/internal/services/drive"
	"sessionreel/internal/services/googleauth"
	"sessionreel/internal/services/remotion"
	"sessionreel/internal/services/sftpclient"
	"sessionreel/internal/services/sheets"
	"sessionreel/internal/session"
	"sessionreel/internal/source"
)

func buildSource(cfg *config.Config) (source.Source, error) {
	if cfg.Source.Kind == config.SourceCSV {
		return &source.CSVFile{Path: cfg.Source.CSVPath, HeaderRow: cfg.Source.HeaderRow}, nil
	}
	var opts []sheets.Option
	if cfg.Source.CredentialsFile != "" {
		ts, err := googleauth.TokenSource(context.Background(), cfg.Source.CredentialsFile, googleauth.ScopeSheetsReadOnly)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sheets.WithTokenSource(ts))
	}
	client := sheets.New(sheets.Config{
		BaseURL:     cfg.Source.BaseURL,
		APIKey:      cfg.Source.APIKey,
		AccessToken: cfg.Source.AccessToken,
		Timeout:     cfg.SourceTimeout(),
	}, opts...)
	return &source.Sheets{
		Client:        client,
		SpreadsheetID: cfg.Source.SpreadsheetID,
		Range:         cfg.SheetRange(),
		HeaderRow:     cfg.Source.HeaderRow,
	}, nil
}

func buildEngine(cfg *config.Config) *remotion.CLI {
	return remotion.NewCLI(
		remotion.WithBinary(cfg.Renderer.Binary),
		remotion.WithPrefixArgs(cfg.Renderer.Args),
		remotion.WithEntryPoint(cfg.Renderer.EntryPoint),
		remotion.WithWorkDir(projectDir(cfg.Renderer.EntryPoint)),
		remotion.WithDiscoverTimeout(cfg.DiscoverTimeout()),
	)
}

// projectDir guesses the renderer project root from an absolute entry point
// such as /srv/cards/src/index.ts. Relative entry points run in the current
// directory.
func projectDir(entry string) string {
	if !filepath.IsAbs(entry) {
		return ""
	}
	dir := filepath.Dir(entry)
	if filepath.Base(dir) == "src" {
		return filepath.Dir(dir)
	}
	return dir
}

func buildUploader(cfg *config.Config) (publish.Uploader, error) {
	switch cfg.Publish.Backend {
	case config.BackendLocal:
		return &publish.LocalUploader{Root: cfg.Publish.LocalRoot}, nil
	case config.BackendDrive:
		var opts []drive.Option
		if cfg.Publish.Drive.CredentialsFile != "" {
			ts, err := googleauth.TokenSource(context.Background(), cfg.Publish.Drive.CredentialsFile, googleauth.ScopeDriveFile)
			if err != nil {
				return nil, err
			}
			opts = append(opts, drive.WithTokenSource(ts))
		}
		return drive.New(drive.Config{
			AccessToken: cfg.Publish.Drive.AccessToken,
			BaseURL:     cfg.Publish.Drive.BaseURL,
			UploadURL:   cfg.Publish.Drive.UploadURL,
			Timeout:     cfg.PublishTimeout(),
		}, opts...), nil
	case config.BackendSFTP:
		sftp := cfg.Publish.SFTP
		return sftpclient.New(sftpclient.Config{
			Host:       sftp.Host,
			Port:       sftp.Port,
			User:       sftp.User,
			Password:   sftp.Password,
			KeyFile:    sftp.KeyFile,
			KnownHosts: sftp.KnownHosts,
			RemoteRoot: sftp.RemoteRoot,
		}), nil
	default:
		return nil, fmt.Errorf("publish.backend: unsupported value %q", cfg.Publish.Backend)
	}
}

func buildNormalizer(cfg *config.Config) (*session.Normalizer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	cols := cfg.Columns
	return &session.Normalizer{
		Columns: session.Columns{
			Title:             cols.Title,
			Description:       cols.Description,
			Stage:             cols.Stage,
			Day:               cols.Day,
			StartTime:         cols.StartTime,
			SessionType:       cols.SessionType,
			PlaceholderURL:    cols.PlaceholderURL,
			ParticipantPrefix: cols.ParticipantPrefix,
			ParticipantSlots:  cols.ParticipantSlots,
			ParticipantsList:  cols.ParticipantsList,
		},
		Location: loc,
		Now:      time.Now,
	}, nil
}

// runnerParams are per-invocation overrides layered on top of config.
type runnerParams struct {
	workers       int
	skipPublished bool
	dryRun        bool
	ledger        batch.Ledger
}

func buildRunner(cfg *config.Config, logger *slog.Logger, params runnerParams) (*batch.Runner, error) {
	normalizer, err := buildNormalizer(cfg)
	if err != nil {
		return nil, err
	}
	uploader, err := buildUploader(cfg)
	if err != nil {
		return nil, err
	}
	src, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}
	engine := buildEngine(cfg)

	workers := cfg.Workflow.Workers
	if params.workers > 0 {
		workers = params.workers
	}

	return batch.New(batch.Options{
		Source:     src,
		Engine:     engine,
		Normalizer: normalizer,
		Planner:    &planner.Planner{Now: time.Now},
		Renderer: &render.Adapter{
			Engine:   engine,
			AssetDir: cfg.Paths.AssetDir,
			Codec:    cfg.Renderer.Codec,
			Timeout:  cfg.RenderTimeout(),
		},
		Router: &publish.Router{
			Routes:   cfg.Publish.Routes,
			Default:  cfg.Publish.DefaultDestination,
			Uploader: uploader,
			Timeout:  cfg.PublishTimeout(),
			Logger:   logger,
		},
		Ledger:             params.ledger,
		Logger:             logger,
		TargetID:           cfg.Renderer.CompositionID,
		Workers:            workers,
		SkipPublished:      params.skipPublished,
		DeleteAfterPublish: cfg.Publish.DeleteAfterPublish,
		DryRun:             params.dryRun,
	})
}
