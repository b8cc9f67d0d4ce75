package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultInputDirectory is used when no input directory is given.
	DefaultInputDirectory = "images"
	// DefaultOutputDirectory is used when no output directory is given.
	DefaultOutputDirectory = "images-webp"
	// DefaultQuality is the WebP quality used for missing or invalid input.
	DefaultQuality = 80
	// DefaultMaxWidth is the widest output image, in pixels.
	DefaultMaxWidth = 1200
	// MaxMethod is the slowest, best-compressing WebP encoder effort.
	MaxMethod = 6
)

// Config represents the main configuration structure
type Config struct {
	InputDirectory      string           `mapstructure:"input_directory"`
	OutputDirectory     string           `mapstructure:"output_directory"`
	SupportedExtensions []string         `mapstructure:"supported_extensions"`
	Conversion          ConversionConfig `mapstructure:"conversion"`
	Security            SecurityConfig   `mapstructure:"security"`
	Logging             LoggingConfig    `mapstructure:"logging"`
}

// ConversionConfig contains encoder and batch settings
type ConversionConfig struct {
	Quality  int `mapstructure:"quality"`
	MaxWidth int `mapstructure:"max_width"`
	Method   int `mapstructure:"method"`
	Workers  int `mapstructure:"workers"`
}

// SecurityConfig contains safety settings
type SecurityConfig struct {
	ConfirmBeforeStart bool `mapstructure:"confirm_before_start"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// RunConfiguration holds the effective parameters of one conversion session.
// Values built through NewRunConfiguration are always valid.
type RunConfiguration struct {
	InputDir  string
	OutputDir string
	MaxWidth  int
	Quality   int
}

// NewRunConfiguration fills empty directories with their defaults and coerces
// quality into [0,100].
func NewRunConfiguration(inputDir, outputDir string, quality, maxWidth int) RunConfiguration {
	inputDir = strings.TrimSpace(inputDir)
	if inputDir == "" {
		inputDir = DefaultInputDirectory
	}
	outputDir = strings.TrimSpace(outputDir)
	if outputDir == "" {
		outputDir = DefaultOutputDirectory
	}
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	return RunConfiguration{
		InputDir:  inputDir,
		OutputDir: outputDir,
		MaxWidth:  maxWidth,
		Quality:   NormalizeQuality(quality),
	}
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		InputDirectory:      DefaultInputDirectory,
		OutputDirectory:     DefaultOutputDirectory,
		SupportedExtensions: []string{".heic", ".jpg", ".jpeg", ".png"},
		Conversion: ConversionConfig{
			Quality:  DefaultQuality,
			MaxWidth: DefaultMaxWidth,
			Method:   MaxMethod,
			Workers:  1,
		},
		Security: SecurityConfig{
			ConfirmBeforeStart: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "webp-converter.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config file in current directory and home directory
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.webp-converter")
		v.AddConfigPath("/etc/webp-converter")
	}

	// Environment variables only resolve for keys viper already knows about.
	setDefaults(v, config)
	v.SetEnvPrefix("WEBP_CONVERTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate normalizes the configuration. Out-of-range numbers fall back to
// their defaults; only an unknown log level is rejected.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InputDirectory) == "" {
		c.InputDirectory = DefaultInputDirectory
	}
	if strings.TrimSpace(c.OutputDirectory) == "" {
		c.OutputDirectory = DefaultOutputDirectory
	}

	if len(c.SupportedExtensions) == 0 {
		c.SupportedExtensions = DefaultConfig().SupportedExtensions
	}
	c.SupportedExtensions = normalizeExtensions(c.SupportedExtensions)

	c.Conversion.Quality = NormalizeQuality(c.Conversion.Quality)
	if c.Conversion.MaxWidth <= 0 {
		c.Conversion.MaxWidth = DefaultMaxWidth
	}
	if c.Conversion.Method < 0 || c.Conversion.Method > MaxMethod {
		c.Conversion.Method = MaxMethod
	}
	if c.Conversion.Workers <= 0 {
		c.Conversion.Workers = 1
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

// RunConfiguration returns the session parameters described by the config.
func (c *Config) RunConfiguration() RunConfiguration {
	return NewRunConfiguration(c.InputDirectory, c.OutputDirectory, c.Conversion.Quality, c.Conversion.MaxWidth)
}

// NormalizeQuality returns q when it lies in [0,100] and DefaultQuality otherwise.
func NormalizeQuality(q int) int {
	if q < 0 || q > 100 {
		return DefaultQuality
	}
	return q
}

// ParseQuality parses user input for the quality setting. Empty, non-numeric
// and out-of-range input yields DefaultQuality; ok is false when the input was
// present but unusable.
func ParseQuality(s string) (quality int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultQuality, true
	}
	q, err := strconv.Atoi(s)
	if err != nil || q < 0 || q > 100 {
		return DefaultQuality, false
	}
	return q, true
}

// IsSupportedExtension checks if the extension is one the scanner picks up
func (c *Config) IsSupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, supportedExt := range c.SupportedExtensions {
		if ext == supportedExt {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("input_directory", c.InputDirectory)
	v.SetDefault("output_directory", c.OutputDirectory)
	v.SetDefault("supported_extensions", c.SupportedExtensions)
	v.SetDefault("conversion.quality", c.Conversion.Quality)
	v.SetDefault("conversion.max_width", c.Conversion.MaxWidth)
	v.SetDefault("conversion.method", c.Conversion.Method)
	v.SetDefault("conversion.workers", c.Conversion.Workers)
	v.SetDefault("security.confirm_before_start", c.Security.ConfirmBeforeStart)
	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.file_path", c.Logging.FilePath)
	v.SetDefault("logging.max_size", c.Logging.MaxSize)
	v.SetDefault("logging.max_backups", c.Logging.MaxBackups)
	v.SetDefault("logging.max_age", c.Logging.MaxAge)
	v.SetDefault("logging.compress", c.Logging.Compress)
}

func normalizeExtensions(extensions []string) []string {
	normalized := make([]string, len(extensions))
	for i, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[i] = ext
	}
	return normalized
}
