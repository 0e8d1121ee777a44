// =============================================================================
// Loyalty Normalizer - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and source profiles.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Profiles (profiles/*.yaml): Per-source parsing settings and column
//      mappings, matched to input files by name
//
// ENVIRONMENT:
//   A .env file is loaded by the CLI before the YAML is read. These variables
//   override the YAML values:
//     PORT, LOG_LEVEL, LOG_FORMAT, NORMALIZER_OUTPUT_DIR, NORMALIZER_UPLOAD_DIR
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
)

// Run modes.
const (
	ModeCombined = "combined"
	ModeContacts = "contacts"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned by batch runs. Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the generated CSV files and logs. Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives input files after a successful batch run.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ProfilesDir holds the per-source profiles. Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir"`

	// UploadDir stores files received by the HTTP server. Default: "./uploads"
	UploadDir string `yaml:"upload_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel: "debug", "info", "warn", "error". Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat: "text" or "json". Default: "text"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat names generated files.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {kind}      - "transactions" or "contacts"
	//   {original}  - Input file name without extension
	// Default: "{kind}_{original}_{uuid}.csv"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the number of files a batch run processes at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// KeepInputs leaves batch inputs in place instead of archiving them.
	KeepInputs bool `yaml:"keep_inputs"`

	// DefaultMode is used when neither a flag nor a profile picks one.
	// Default: "combined"
	DefaultMode string `yaml:"default_mode"`

	// CSVSettings applies to files that match no profile.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// ColumnMapping applies to files that match no profile.
	ColumnMapping types.ColumnMapping `yaml:"column_mapping"`

	// Server configures `normalizer serve`.
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port defaults to 3000.
	Port int `yaml:"port"`

	// MaxUploadBytes caps multipart uploads. Default: 50 MiB
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// UploadRetention removes uploads older than this at startup. Zero keeps
	// everything. Default: 24h
	UploadRetention time.Duration `yaml:"upload_retention"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// =============================================================================
// PROFILE CONFIGURATION STRUCTURE
// =============================================================================

// Profile holds the settings for one family of input files, for example the
// daily export of a single store system.
type Profile struct {
	// Name is used in logs. Defaults to the file name.
	Name string `yaml:"name"`

	// FileMatchingPatterns are glob patterns matched against input file names.
	// Examples:
	//   - "pos_*.csv"
	//   - "*_members.xlsx"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// Mode is "combined" or "contacts". Empty falls back to the main config.
	Mode string `yaml:"mode"`

	CSVSettings   CSVSettings         `yaml:"csv_settings"`
	ColumnMapping types.ColumnMapping `yaml:"column_mapping"`
}

// Matches reports whether fileName matches one of the profile's patterns.
func (p *Profile) Matches(fileName string) bool {
	for _, pattern := range p.FileMatchingPatterns {
		matched, err := filepath.Match(pattern, fileName)
		if err != nil {
			// Invalid pattern, skip it.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for decoding tabular input files.
type CSVSettings struct {
	// Delimiter separates fields in delimited text.
	// Common values: "," (comma), "|" (pipe), "\t" or "tab", ";"
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows. Multi-line headers are merged
	// column by column. Default: 1
	HeaderRows int `yaml:"header_rows"`

	// NoHeader reads every line as data and produces positional rows. A
	// contacts run then treats the first line as the header.
	NoHeader bool `yaml:"no_header"`

	// DataStartRow is the 1-based row where data begins. Default: the row
	// after the header.
	DataStartRow int `yaml:"data_start_row"`

	// Encoding: "UTF-8", "ISO-8859-1", "Windows-1252". Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// SheetName selects the spreadsheet sheet. Default: the first sheet.
	SheetName string `yaml:"sheet_name"`
}

// WithDefaults returns s with every unset option filled in.
func (s CSVSettings) WithDefaults() CSVSettings {
	if s.Delimiter == "" {
		s.Delimiter = ","
	}
	if s.HeaderRows <= 0 {
		s.HeaderRows = 1
	}
	if s.Encoding == "" {
		s.Encoding = "UTF-8"
	}
	return s
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Defaults returns a configuration with every default applied.
func Defaults() *MainConfig {
	cfg := &MainConfig{}
	applyMainConfigDefaults(cfg)
	return cfg
}

// LoadMainConfig loads the main configuration from a YAML file. A missing
// file is not an error; the defaults are used instead. Environment overrides
// are applied on top of the file.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnvOverrides(&config); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides copies the supported environment variables into config.
func applyEnvOverrides(config *MainConfig) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT must be a number, got %q", v)
		}
		config.Server.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		config.LogFormat = v
	}
	if v := os.Getenv("NORMALIZER_OUTPUT_DIR"); v != "" {
		config.OutputDir = v
	}
	if v := os.Getenv("NORMALIZER_UPLOAD_DIR"); v != "" {
		config.UploadDir = v
	}
	return nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./profiles"
	}
	if config.UploadDir == "" {
		config.UploadDir = "./uploads"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{kind}_{original}_{uuid}.csv"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.DefaultMode == "" {
		config.DefaultMode = ModeCombined
	}
	config.CSVSettings = config.CSVSettings.WithDefaults()

	if config.Server.Port == 0 {
		config.Server.Port = 3000
	}
	if config.Server.MaxUploadBytes == 0 {
		config.Server.MaxUploadBytes = 50 << 20
	}
	if config.Server.UploadRetention == 0 {
		config.Server.UploadRetention = 24 * time.Hour
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 2 * time.Minute
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	if config.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", config.MaxConcurrency)
	}
	if err := ValidateMode(config.DefaultMode); err != nil {
		return fmt.Errorf("default_mode: %w", err)
	}
	switch strings.ToLower(config.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", config.LogFormat)
	}
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", config.Server.Port)
	}
	if config.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes must not be negative")
	}
	return nil
}

// ValidateMode checks a run mode name.
func ValidateMode(mode string) error {
	switch mode {
	case ModeCombined, ModeContacts:
		return nil
	default:
		return fmt.Errorf("unknown mode %q (want %s or %s)", mode, ModeCombined, ModeContacts)
	}
}

// LoadProfiles loads every profile in profilesDir, sorted by name. A missing
// directory yields no profiles.
func LoadProfiles(profilesDir string) ([]*Profile, error) {
	if _, err := os.Stat(profilesDir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)

	profiles := make([]*Profile, 0, len(files))
	for _, file := range files {
		profile, err := loadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		profiles = append(profiles, profile)
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

// MatchProfile returns the first profile whose patterns match the file name.
func MatchProfile(filePath string, profiles []*Profile) *Profile {
	fileName := filepath.Base(filePath)
	for _, p := range profiles {
		if p.Matches(fileName) {
			return p
		}
	}
	return nil
}

// loadProfile loads a single profile file.
func loadProfile(filePath string) (*Profile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	if profile.Name == "" {
		profile.Name = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	if profile.Mode != "" {
		if err := ValidateMode(profile.Mode); err != nil {
			return nil, err
		}
	}
	profile.CSVSettings = profile.CSVSettings.WithDefaults()

	return &profile, nil
}
