package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateColumns(); err != nil {
		return err
	}
	if err := c.validateRenderer(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSource() error {
	switch c.Source.Kind {
	case SourceSheets:
		if c.Source.SpreadsheetID == "" {
			return fmt.Errorf("source.spreadsheet_id is required when source.kind is %q. Edit %s (create with 'sessionreel config init')", SourceSheets, configHint())
		}
		if c.Source.CredentialsFile == "" && c.Source.APIKey == "" && c.Source.AccessToken == "" {
			return errors.New("source.credentials_file, source.api_key, or source.access_token is required for sheets (or set GOOGLE_APPLICATION_CREDENTIALS / GOOGLE_API_KEY)")
		}
	case SourceCSV:
		if strings.TrimSpace(c.Source.CSVPath) == "" {
			return errors.New("source.csv_path must be set when source.kind is \"csv\"")
		}
	default:
		return fmt.Errorf("source.kind: unsupported value %q (expected sheets or csv)", c.Source.Kind)
	}
	if c.Source.RequestTimeout <= 0 {
		return errors.New("source.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateColumns() error {
	if c.Columns.Title == "" {
		return errors.New("columns.title must be set")
	}
	if c.Columns.ParticipantSlots > 0 && strings.TrimSpace(c.Columns.ParticipantPrefix) == "" {
		return errors.New("columns.participant_prefix must be set when columns.participant_slots is positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRenderer() error {
	if c.Renderer.CompositionID == "" {
		return errors.New("renderer.composition_id must be set")
	}
	switch c.Renderer.Codec {
	case "h264", "h265", "vp8", "vp9", "prores", "gif":
	default:
		return fmt.Errorf("renderer.codec: unsupported value %q", c.Renderer.Codec)
	}
	return ensurePositiveMap(map[string]int{
		"renderer.render_timeout":   c.Renderer.RenderTimeout,
		"renderer.discover_timeout": c.Renderer.DiscoverTimeout,
	})
}

func (c *Config) validatePublish() error {
	if c.Publish.DefaultDestination == "" {
		return errors.New("publish.default_destination must be set; unmapped routing keys fall back to it")
	}
	if err := validateRoutes(c.Publish.Routes); err != nil {
		return err
	}
	if c.Publish.PublishTimeout <= 0 {
		return errors.New("publish.publish_timeout must be positive (seconds)")
	}
	switch c.Publish.Backend {
	case BackendLocal:
		if strings.TrimSpace(c.Publish.LocalRoot) == "" {
			return errors.New("publish.local_root must be set when publish.backend is \"local\"")
		}
	case BackendDrive:
		if c.Publish.Drive.CredentialsFile == "" && c.Publish.Drive.AccessToken == "" {
			return errors.New("publish.drive.credentials_file or publish.drive.access_token is required when publish.backend is \"drive\" (or set GOOGLE_APPLICATION_CREDENTIALS)")
		}
	case BackendSFTP:
		if c.Publish.SFTP.Host == "" || c.Publish.SFTP.User == "" {
			return errors.New("publish.sftp.host and publish.sftp.user must be set when publish.backend is \"sftp\"")
		}
		if c.Publish.SFTP.Password == "" && strings.TrimSpace(c.Publish.SFTP.KeyFile) == "" {
			return errors.New("publish.sftp.password or publish.sftp.key_file is required (or set SFTP_PASSWORD)")
		}
	default:
		return fmt.Errorf("publish.backend: unsupported value %q (expected local, drive, or sftp)", c.Publish.Backend)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers > maxWorkers {
		return fmt.Errorf("workflow.workers must be between 1 and %d", maxWorkers)
	}
	return nil
}

func configHint() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return defaultConfigPath
	}
	return path
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

// validateRoutes rejects keys that differ only by case, since lookups fall
// back to case-insensitive matching.
func validateRoutes(routes map[string]string) error {
	keys := make([]string, 0, len(routes))
	for key := range routes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	seen := make(map[string]string, len(keys))
	for _, key := range keys {
		folded := strings.ToLower(strings.TrimSpace(key))
		if prior, ok := seen[folded]; ok {
			return fmt.Errorf("publish.routes: keys %q and %q differ only by case", prior, key)
		}
		seen[folded] = key
	}
	return nil
}
