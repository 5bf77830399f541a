package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"policywrangle/internal/etl"
	_ "policywrangle/internal/etl/sources"
)

// Config holds everything a pipeline run needs.
type Config struct {
	// Where the raw records come from
	Source SourceConfig `yaml:"source"`

	// Mark-style columns and the indicators they become
	Markers []etl.MarkerPair `yaml:"markers"`

	// Free-text summary column and keyword categories
	Policies PolicyConfig `yaml:"policies"`

	// Final columns, in output order
	Columns []string `yaml:"columns"`

	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig selects a registered source and its options.
type SourceConfig struct {
	Type    string         `yaml:"type"` // csv_file, sqlite
	Options map[string]any `yaml:"options"`
}

// PolicyConfig configures the keyword encoder.
type PolicyConfig struct {
	TextColumn string         `yaml:"text_column"`
	Categories []etl.Category `yaml:"categories"`
}

// OutputConfig configures where the final table goes.
type OutputConfig struct {
	Format string `yaml:"format"` // csv, json
	Path   string `yaml:"path"`   // empty for stdout
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultCategories are the policy categories tracked for the prison
// distancing dataset.
func DefaultCategories() []etl.Category {
	return []etl.Category{
		{Name: "no_volunteers", Keywords: []string{"volunteer"}},
		{Name: "limiting_movement", Keywords: []string{"transfer", "travel", "tour"}},
		{Name: "screening", Keywords: []string{"screening", "temperature"}},
		{Name: "healthcare_support", Keywords: []string{"co-pay"}},
	}
}

// DefaultConfig returns the configuration for the prison distancing dataset.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type: "csv_file",
			Options: map[string]any{
				"filePath":  "distancing_policies.csv",
				"delimiter": ",",
			},
		},
		Markers: []etl.MarkerPair{
			{Source: "visitation_suspended", Target: "no_visits"},
			{Source: "legal_visits_allowed", Target: "lawyer_access"},
			{Source: "free_phone_calls", Target: "phone_access"},
			{Source: "free_video_visits", Target: "video_access"},
		},
		Policies: PolicyConfig{
			TextColumn: "additional_policies",
			Categories: DefaultCategories(),
		},
		Columns: []string{
			"state", "effective_date", "no_visits", "lawyer_access",
			"phone_access", "video_access", "no_volunteers",
			"limiting_movement", "screening", "healthcare_support",
		},
		Output: OutputConfig{
			Format: etl.FormatCSV,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. A source section replaces the default source options rather
// than adding to them.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// yaml.v3 merges into existing maps, so a source section must start from
	// empty options or a sqlite source would inherit the csv defaults.
	var sections struct {
		Source *yaml.Node `yaml:"source"`
	}
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if sections.Source != nil {
		cfg.Source.Options = nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ValidLogLevels lists the accepted logging.level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate reports configuration errors. Every error wraps etl.ErrConfig.
func (c *Config) Validate() error {
	var errs []error

	if _, err := etl.GetSource(c.Source.Type); err != nil {
		errs = append(errs, err)
	}
	for i, m := range c.Markers {
		if m.Source == "" || m.Target == "" {
			errs = append(errs, fmt.Errorf("%w: markers[%d] needs both source and target", etl.ErrConfig, i))
		}
	}
	if err := etl.ValidateCategories(c.Policies.Categories); err != nil {
		errs = append(errs, err)
	}
	if len(c.Policies.Categories) > 0 && c.Policies.TextColumn == "" {
		errs = append(errs, fmt.Errorf("%w: policies.text_column is required when categories are set", etl.ErrConfig))
	}
	if len(c.Columns) == 0 {
		errs = append(errs, fmt.Errorf("%w: columns must list at least one output column", etl.ErrConfig))
	}
	if _, err := etl.NewDestination(c.Output.Format, nil); err != nil {
		errs = append(errs, err)
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		errs = append(errs, fmt.Errorf("%w: invalid logging level: %s (valid: %v)", etl.ErrConfig, c.Logging.Level, ValidLogLevels))
	}

	return errors.Join(errs...)
}

// Job builds the pipeline job described by the configuration.
func (c *Config) Job(id string) *etl.Job {
	return &etl.Job{
		ID:         id,
		Name:       id,
		SourceType: c.Source.Type,
		SourceCfg:  etl.SourceConfig(c.Source.Options),
		Markers:    c.Markers,
		TextField:  c.Policies.TextColumn,
		Categories: c.Policies.Categories,
		Columns:    c.Columns,
	}
}

// InputPath returns the file the source reads from, if it has one.
func (c *Config) InputPath() string {
	key := "filePath"
	if c.Source.Type == "sqlite" {
		key = "dbPath"
	}
	p, _ := c.Source.Options[key].(string)
	return p
}
