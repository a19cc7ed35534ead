package config

import "strings"

// normalize expands path fields, fills derived defaults, and trims string
// values so validation sees canonical input.
func (c *Config) normalize() error {
	var err error

	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}
	if c.Server.SocketPath, err = expandPath(strings.TrimSpace(c.Server.SocketPath)); err != nil {
		return err
	}

	c.Server.APIBind = strings.TrimSpace(c.Server.APIBind)
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	priorities := make([]string, 0, len(c.Consolidation.SourcePriority))
	for _, source := range c.Consolidation.SourcePriority {
		source = strings.ToLower(strings.TrimSpace(source))
		if source != "" {
			priorities = append(priorities, source)
		}
	}
	c.Consolidation.SourcePriority = priorities

	return nil
}
