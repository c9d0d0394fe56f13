package config

const (
	defaultConfigPath        = "~/.config/sessionreel/config.toml"
	defaultAssetDir          = "~/.local/share/sessionreel/assets"
	defaultStateDir          = "~/.local/share/sessionreel/state"
	defaultLogDir            = "~/.local/share/sessionreel/logs"
	defaultLocalRoot         = "~/.local/share/sessionreel/published"
	defaultSheetName         = "Sessions"
	defaultSheetColumns      = "A:Z"
	defaultSheetsBaseURL     = "https://sheets.googleapis.com/v4"
	defaultDriveBaseURL      = "https://www.googleapis.com/drive/v3"
	defaultDriveUploadURL    = "https://www.googleapis.com/upload/drive/v3"
	defaultRequestTimeout    = 30
	defaultRendererBinary    = "npx"
	defaultEntryPoint        = "src/index.ts"
	defaultCompositionID     = "MainComposition"
	defaultCodec             = "h264"
	defaultRenderTimeout     = 900
	defaultDiscoverTimeout   = 300
	defaultPublishTimeout    = 600
	defaultSFTPPort          = 22
	defaultSFTPRemoteRoot    = "/"
	defaultParticipantPrefix = "Speaker "
	defaultParticipantSlots  = 6
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultWorkers           = 1
	maxWorkers               = 16
)

// Source kinds.
const (
	SourceSheets = "sheets"
	SourceCSV    = "csv"
)

// Publish backends.
const (
	BackendDrive = "drive"
	BackendSFTP  = "sftp"
	BackendLocal = "local"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			AssetDir: defaultAssetDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Source: Source{
			Kind:           SourceSheets,
			SheetName:      defaultSheetName,
			HeaderRow:      1,
			BaseURL:        defaultSheetsBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Columns: Columns{
			Title:             "Title of the session",
			Description:       "Description",
			Stage:             "Stage",
			Day:               "Day",
			StartTime:         "Start",
			SessionType:       "Render Type",
			PlaceholderURL:    "Placeholder URL",
			ParticipantPrefix: defaultParticipantPrefix,
			ParticipantSlots:  defaultParticipantSlots,
			ParticipantsList:  "Speakers",
			Timezone:          "UTC",
		},
		Renderer: Renderer{
			Binary:          defaultRendererBinary,
			Args:            []string{"remotion"},
			EntryPoint:      defaultEntryPoint,
			CompositionID:   defaultCompositionID,
			Codec:           defaultCodec,
			RenderTimeout:   defaultRenderTimeout,
			DiscoverTimeout: defaultDiscoverTimeout,
		},
		Publish: Publish{
			Backend:        BackendLocal,
			Routes:         map[string]string{},
			PublishTimeout: defaultPublishTimeout,
			LocalRoot:      defaultLocalRoot,
			Drive: Drive{
				BaseURL:   defaultDriveBaseURL,
				UploadURL: defaultDriveUploadURL,
			},
			SFTP: SFTP{
				Port:       defaultSFTPPort,
				RemoteRoot: defaultSFTPRemoteRoot,
			},
		},
		Workflow: Workflow{
			Workers: defaultWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
