package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directory configuration.
type Paths struct {
	AssetDir string `toml:"asset_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Source describes where the session schedule is read from.
type Source struct {
	Kind            string `toml:"kind"`
	SpreadsheetID   string `toml:"spreadsheet_id"`
	SheetName       string `toml:"sheet_name"`
	Range           string `toml:"range"`
	HeaderRow       int    `toml:"header_row"`
	CSVPath         string `toml:"csv_path"`
	CredentialsFile string `toml:"credentials_file"`
	APIKey          string `toml:"api_key"`
	AccessToken     string `toml:"access_token"`
	BaseURL         string `toml:"base_url"`
	RequestTimeout  int    `toml:"request_timeout"`
}

// Columns maps schedule column labels to session fields.
type Columns struct {
	Title             string `toml:"title"`
	Description       string `toml:"description"`
	Stage             string `toml:"stage"`
	Day               string `toml:"day"`
	StartTime         string `toml:"start_time"`
	SessionType       string `toml:"session_type"`
	PlaceholderURL    string `toml:"placeholder_url"`
	ParticipantPrefix string `toml:"participant_prefix"`
	ParticipantSlots  int    `toml:"participant_slots"`
	ParticipantsList  string `toml:"participants_list"`
	Timezone          string `toml:"timezone"`
}

// Renderer contains settings for the composition renderer CLI.
type Renderer struct {
	Binary          string   `toml:"binary"`
	Args            []string `toml:"args"`
	EntryPoint      string   `toml:"entry_point"`
	CompositionID   string   `toml:"composition_id"`
	Codec           string   `toml:"codec"`
	RenderTimeout   int      `toml:"render_timeout"`
	DiscoverTimeout int      `toml:"discover_timeout"`
}

// SFTP contains connection settings for the sftp publish backend.
type SFTP struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	User       string `toml:"user"`
	Password   string `toml:"password"`
	KeyFile    string `toml:"key_file"`
	KnownHosts string `toml:"known_hosts"`
	RemoteRoot string `toml:"remote_root"`
}

// Drive contains settings for the Google Drive publish backend.
type Drive struct {
	CredentialsFile string `toml:"credentials_file"`
	AccessToken     string `toml:"access_token"`
	BaseURL         string `toml:"base_url"`
	UploadURL       string `toml:"upload_url"`
}

// Publish controls destination routing and the upload backend.
type Publish struct {
	Backend            string            `toml:"backend"`
	DefaultDestination string            `toml:"default_destination"`
	Routes             map[string]string `toml:"routes"`
	PublishTimeout     int               `toml:"publish_timeout"`
	DeleteAfterPublish bool              `toml:"delete_after_publish"`
	LocalRoot          string            `toml:"local_root"`
	Drive              Drive             `toml:"drive"`
	SFTP               SFTP              `toml:"sftp"`
}

// Workflow contains batch execution settings.
type Workflow struct {
	Workers       int  `toml:"workers"`
	SkipPublished bool `toml:"skip_published"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sessionreel.
//
// Configuration sections by subsystem:
//   - Paths: rendered asset, state (ledger, lock), and log directories
//   - Source: Google Sheets or CSV schedule input
//   - Columns: column labels for each session field
//   - Renderer: composition renderer CLI and target composition
//   - Publish: upload backend, routing table, and fallback destination
//   - Workflow: worker count and ledger dedup
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Source   Source   `toml:"source"`
	Columns  Columns  `toml:"columns"`
	Renderer Renderer `toml:"renderer"`
	Publish  Publish  `toml:"publish"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sessionreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the asset, state, and log directories.
// The local publish root is created on a best-effort basis.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.AssetDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Publish.Backend == BackendLocal && strings.TrimSpace(c.Publish.LocalRoot) != "" {
		_ = os.MkdirAll(c.Publish.LocalRoot, 0o755)
	}
	return nil
}

// LedgerPath returns the location of the publish ledger database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LockPath returns the location of the single-run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "sessionreel.lock")
}

// LogPath returns the log file written by every command.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "sessionreel.log")
}

// RenderTimeout returns the per-render deadline.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Renderer.RenderTimeout) * time.Second
}

// DiscoverTimeout returns the deadline for composition discovery.
func (c *Config) DiscoverTimeout() time.Duration {
	return time.Duration(c.Renderer.DiscoverTimeout) * time.Second
}

// PublishTimeout returns the per-upload deadline.
func (c *Config) PublishTimeout() time.Duration {
	return time.Duration(c.Publish.PublishTimeout) * time.Second
}

// SourceTimeout returns the HTTP timeout used by the sheets client.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.RequestTimeout) * time.Second
}

// SheetRange returns the A1 range to fetch, defaulting to the whole sheet.
func (c *Config) SheetRange() string {
	if r := strings.TrimSpace(c.Source.Range); r != "" {
		return r
	}
	return c.Source.SheetName + "!" + defaultSheetColumns
}

// Location resolves the configured timezone used for session start times.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Columns.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("columns.timezone: %w", err)
	}
	return loc, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
