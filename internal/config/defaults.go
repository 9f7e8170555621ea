package config

const (
	defaultConfigPath   = "~/.config/spikenorm/config.toml"
	defaultLogDir       = "~/.local/share/spikenorm/logs"
	defaultStateDir     = "~/.local/share/spikenorm"
	defaultBinary       = "bamCoverage"
	defaultBinSize      = 10
	defaultOutputFormat = "bigwig"
	defaultDelimiter    = ","
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Conversion: Conversion{
			Binary:       defaultBinary,
			BinSize:      defaultBinSize,
			OutputFormat: defaultOutputFormat,
		},
		Counts: Counts{
			Delimiter: defaultDelimiter,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
