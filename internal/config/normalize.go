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
	c.normalizeConversion()
	c.normalizeCounts()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeConversion() {
	c.Conversion.Binary = strings.TrimSpace(c.Conversion.Binary)
	if value, ok := os.LookupEnv("SPIKENORM_BAMCOVERAGE"); ok && strings.TrimSpace(value) != "" {
		c.Conversion.Binary = strings.TrimSpace(value)
	}
	if c.Conversion.Binary == "" {
		c.Conversion.Binary = defaultBinary
	}
	c.Conversion.OutputFormat = strings.ToLower(strings.TrimSpace(c.Conversion.OutputFormat))
	if c.Conversion.OutputFormat == "" {
		c.Conversion.OutputFormat = defaultOutputFormat
	}
	if len(c.Conversion.ExtraArgs) > 0 {
		args := make([]string, 0, len(c.Conversion.ExtraArgs))
		for _, arg := range c.Conversion.ExtraArgs {
			if trimmed := strings.TrimSpace(arg); trimmed != "" {
				args = append(args, trimmed)
			}
		}
		c.Conversion.ExtraArgs = args
	}
}

func (c *Config) normalizeCounts() {
	switch strings.ToLower(c.Counts.Delimiter) {
	case "":
		c.Counts.Delimiter = defaultDelimiter
	case "tab", `\t`:
		c.Counts.Delimiter = "\t"
	case "comma":
		c.Counts.Delimiter = ","
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
