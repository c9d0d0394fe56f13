package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSource(); err != nil {
		return err
	}
	c.normalizeColumns()
	if err := c.normalizeRenderer(); err != nil {
		return err
	}
	if err := c.normalizePublish(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.AssetDir) == "" {
		c.Paths.AssetDir = defaultAssetDir
	}
	if c.Paths.AssetDir, err = expandPath(c.Paths.AssetDir); err != nil {
		return fmt.Errorf("paths.asset_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSource() error {
	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	if c.Source.Kind == "" {
		c.Source.Kind = SourceSheets
	}
	c.Source.SpreadsheetID = strings.TrimSpace(c.Source.SpreadsheetID)
	c.Source.SheetName = strings.TrimSpace(c.Source.SheetName)
	if c.Source.SheetName == "" {
		c.Source.SheetName = defaultSheetName
	}
	c.Source.Range = strings.TrimSpace(c.Source.Range)
	if c.Source.HeaderRow <= 0 {
		c.Source.HeaderRow = 1
	}
	c.Source.BaseURL = strings.TrimRight(strings.TrimSpace(c.Source.BaseURL), "/")
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = defaultSheetsBaseURL
	}
	if c.Source.RequestTimeout <= 0 {
		c.Source.RequestTimeout = defaultRequestTimeout
	}
	c.Source.APIKey = strings.TrimSpace(c.Source.APIKey)
	if value, ok := os.LookupEnv("GOOGLE_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Source.APIKey = strings.TrimSpace(value)
	}
	c.Source.AccessToken = strings.TrimSpace(c.Source.AccessToken)
	if value, ok := os.LookupEnv("GOOGLE_ACCESS_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Source.AccessToken = strings.TrimSpace(value)
	}
	var err error
	if c.Source.CredentialsFile, err = credentialsFile(c.Source.CredentialsFile); err != nil {
		return fmt.Errorf("source.credentials_file: %w", err)
	}
	if strings.TrimSpace(c.Source.CSVPath) != "" {
		if c.Source.CSVPath, err = expandPath(c.Source.CSVPath); err != nil {
			return fmt.Errorf("source.csv_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeColumns() {
	c.Columns.Title = strings.TrimSpace(c.Columns.Title)
	c.Columns.Description = strings.TrimSpace(c.Columns.Description)
	c.Columns.Stage = strings.TrimSpace(c.Columns.Stage)
	c.Columns.Day = strings.TrimSpace(c.Columns.Day)
	c.Columns.StartTime = strings.TrimSpace(c.Columns.StartTime)
	c.Columns.SessionType = strings.TrimSpace(c.Columns.SessionType)
	c.Columns.PlaceholderURL = strings.TrimSpace(c.Columns.PlaceholderURL)
	c.Columns.ParticipantsList = strings.TrimSpace(c.Columns.ParticipantsList)
	c.Columns.Timezone = strings.TrimSpace(c.Columns.Timezone)
	// The prefix keeps its trailing space ("Speaker " + "1").
	c.Columns.ParticipantPrefix = strings.TrimLeft(c.Columns.ParticipantPrefix, " \t")
	if c.Columns.ParticipantSlots < 0 {
		c.Columns.ParticipantSlots = 0
	}
}

func (c *Config) normalizeRenderer() error {
	c.Renderer.Binary = strings.TrimSpace(c.Renderer.Binary)
	if c.Renderer.Binary == "" {
		c.Renderer.Binary = defaultRendererBinary
	}
	args := make([]string, 0, len(c.Renderer.Args))
	for _, arg := range c.Renderer.Args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Renderer.Args = args
	if strings.TrimSpace(c.Renderer.EntryPoint) == "" {
		c.Renderer.EntryPoint = defaultEntryPoint
	}
	var err error
	if c.Renderer.EntryPoint, err = expandPath(strings.TrimSpace(c.Renderer.EntryPoint)); err != nil {
		return fmt.Errorf("renderer.entry_point: %w", err)
	}
	c.Renderer.CompositionID = strings.TrimSpace(c.Renderer.CompositionID)
	c.Renderer.Codec = strings.ToLower(strings.TrimSpace(c.Renderer.Codec))
	if c.Renderer.Codec == "" {
		c.Renderer.Codec = defaultCodec
	}
	if c.Renderer.RenderTimeout == 0 {
		c.Renderer.RenderTimeout = defaultRenderTimeout
	}
	if c.Renderer.DiscoverTimeout == 0 {
		c.Renderer.DiscoverTimeout = defaultDiscoverTimeout
	}
	return nil
}

func (c *Config) normalizePublish() error {
	c.Publish.Backend = strings.ToLower(strings.TrimSpace(c.Publish.Backend))
	if c.Publish.Backend == "" {
		c.Publish.Backend = BackendLocal
	}
	c.Publish.DefaultDestination = strings.TrimSpace(c.Publish.DefaultDestination)
	routes := make(map[string]string, len(c.Publish.Routes))
	for key, value := range c.Publish.Routes {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		routes[key] = value
	}
	c.Publish.Routes = routes
	if c.Publish.PublishTimeout == 0 {
		c.Publish.PublishTimeout = defaultPublishTimeout
	}

	if strings.TrimSpace(c.Publish.LocalRoot) == "" {
		c.Publish.LocalRoot = defaultLocalRoot
	}
	var err error
	if c.Publish.LocalRoot, err = expandPath(c.Publish.LocalRoot); err != nil {
		return fmt.Errorf("publish.local_root: %w", err)
	}

	drive := &c.Publish.Drive
	if drive.CredentialsFile, err = credentialsFile(drive.CredentialsFile); err != nil {
		return fmt.Errorf("publish.drive.credentials_file: %w", err)
	}
	drive.AccessToken = strings.TrimSpace(drive.AccessToken)
	if value, ok := os.LookupEnv("GOOGLE_ACCESS_TOKEN"); ok && strings.TrimSpace(value) != "" {
		drive.AccessToken = strings.TrimSpace(value)
	}
	drive.BaseURL = strings.TrimRight(strings.TrimSpace(drive.BaseURL), "/")
	if drive.BaseURL == "" {
		drive.BaseURL = defaultDriveBaseURL
	}
	drive.UploadURL = strings.TrimRight(strings.TrimSpace(drive.UploadURL), "/")
	if drive.UploadURL == "" {
		drive.UploadURL = defaultDriveUploadURL
	}

	sftp := &c.Publish.SFTP
	sftp.Host = strings.TrimSpace(sftp.Host)
	sftp.User = strings.TrimSpace(sftp.User)
	if sftp.Port <= 0 {
		sftp.Port = defaultSFTPPort
	}
	if value, ok := os.LookupEnv("SFTP_PASSWORD"); ok && value != "" {
		sftp.Password = value
	}
	if strings.TrimSpace(sftp.KeyFile) != "" {
		if sftp.KeyFile, err = expandPath(strings.TrimSpace(sftp.KeyFile)); err != nil {
			return fmt.Errorf("publish.sftp.key_file: %w", err)
		}
	}
	if strings.TrimSpace(sftp.KnownHosts) != "" {
		if sftp.KnownHosts, err = expandPath(strings.TrimSpace(sftp.KnownHosts)); err != nil {
			return fmt.Errorf("publish.sftp.known_hosts: %w", err)
		}
	}
	sftp.RemoteRoot = strings.TrimSpace(sftp.RemoteRoot)
	if sftp.RemoteRoot == "" {
		sftp.RemoteRoot = defaultSFTPRemoteRoot
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// credentialsFile falls back to GOOGLE_APPLICATION_CREDENTIALS when the
// configured value is blank and expands the result.
func credentialsFile(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return expandPath(value)
}
