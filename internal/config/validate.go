package config

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const commentRune = '#'

var supportedOutputFormats = map[string]struct{}{
	"bigwig":   {},
	"bedgraph": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateCounts(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateConversion() error {
	if c.Conversion.Binary == "" {
		return errors.New("conversion.binary must be set")
	}
	if c.Conversion.BinSize <= 0 {
		return errors.New("conversion.bin_size must be positive")
	}
	if _, ok := supportedOutputFormats[c.Conversion.OutputFormat]; !ok {
		return fmt.Errorf("conversion.output_format: unsupported value %q (want bigwig or bedgraph)", c.Conversion.OutputFormat)
	}
	if c.Conversion.Threads < 0 {
		return errors.New("conversion.threads must be >= 0 (0 detects available CPUs)")
	}
	if c.Conversion.TimeoutMinutes < 0 {
		return errors.New("conversion.timeout_minutes must be >= 0")
	}
	return nil
}

func (c *Config) validateCounts() error {
	if utf8.RuneCountInString(c.Counts.Delimiter) != 1 {
		return fmt.Errorf("counts.delimiter must be a single character, got %q", c.Counts.Delimiter)
	}
	// Counts files are read with encoding/csv and '#' comments.
	switch r, _ := utf8.DecodeRuneInString(c.Counts.Delimiter); {
	case r == utf8.RuneError, !utf8.ValidRune(r):
		return fmt.Errorf("counts.delimiter %q is not a valid character", c.Counts.Delimiter)
	case r == commentRune, r == '"', r == '\r', r == '\n':
		return fmt.Errorf("counts.delimiter %q is reserved in counts files", c.Counts.Delimiter)
	}
	if c.Counts.Column < 0 {
		return errors.New("counts.column must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q (want debug, info, warn or error)", c.Logging.Level)
	}
}
