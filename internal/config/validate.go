package config

import "fmt"

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateConsolidation(); err != nil {
		return err
	}
	if err := c.validateProgress(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}
	if c.Paths.LogDir == "" {
		return fmt.Errorf("paths.log_dir must not be empty")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.APIBind == "" {
		return fmt.Errorf("server.api_bind must not be empty")
	}
	if c.Server.SocketPath == "" {
		return fmt.Errorf("server.socket_path must not be empty")
	}
	return nil
}

func (c *Config) validateConsolidation() error {
	if c.Consolidation.WorkerPollInterval <= 0 {
		return fmt.Errorf("consolidation.worker_poll_interval must be positive, got %d", c.Consolidation.WorkerPollInterval)
	}
	if c.Consolidation.MinConfidence < 0 || c.Consolidation.MinConfidence > 1 {
		return fmt.Errorf("consolidation.min_confidence must be between 0 and 1, got %g", c.Consolidation.MinConfidence)
	}
	seen := make(map[string]struct{}, len(c.Consolidation.SourcePriority))
	for _, source := range c.Consolidation.SourcePriority {
		if _, dup := seen[source]; dup {
			return fmt.Errorf("consolidation.source_priority lists %q more than once", source)
		}
		seen[source] = struct{}{}
	}
	return nil
}

func (c *Config) validateProgress() error {
	if c.Progress.PollInterval <= 0 {
		return fmt.Errorf("progress.poll_interval must be positive, got %d", c.Progress.PollInterval)
	}
	if c.Progress.ReconnectMaxElapsed <= 0 {
		return fmt.Errorf("progress.reconnect_max_elapsed must be positive, got %d", c.Progress.ReconnectMaxElapsed)
	}
	if c.Progress.EventBuffer <= 0 {
		return fmt.Errorf("progress.event_buffer must be positive, got %d", c.Progress.EventBuffer)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
