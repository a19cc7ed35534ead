package config

const (
	defaultDataDir             = "~/.local/share/conveyor"
	defaultLogDir              = "~/.local/share/conveyor/logs"
	defaultAPIBind             = "127.0.0.1:7519"
	defaultSocketPath          = "~/.local/share/conveyor/conveyord.sock"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultWorkerPollInterval  = 5
	defaultMinConfidence       = 0.6
	defaultProgressPoll        = 5
	defaultReconnectMaxElapsed = 30
	defaultEventBuffer         = 512
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			APIBind:    defaultAPIBind,
			SocketPath: defaultSocketPath,
		},
		Consolidation: Consolidation{
			WorkerPollInterval: defaultWorkerPollInterval,
			MinConfidence:      defaultMinConfidence,
		},
		Progress: Progress{
			PollInterval:        defaultProgressPoll,
			ReconnectMaxElapsed: defaultReconnectMaxElapsed,
			EventBuffer:         defaultEventBuffer,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
