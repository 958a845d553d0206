package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	// TableStyleConfig describes the cosmetic pass applied to regenerated
	// tables. Styling is optional and separate from data population.
	TableStyleConfig struct {
		Enable        bool   `yaml:"enable"`
		HeaderShading string `yaml:"header_shading"`
		HeaderBold    bool   `yaml:"header_bold"`
		HeaderAlign   string `yaml:"header_align,omitempty" validate:"omitempty,oneof=left center right"`
		Borders       bool   `yaml:"borders"`
	}

	ChartsConfig struct {
		// Width is the embedding width hint in pixels, images wider than this
		// are downscaled before embedding. Zero keeps natural size.
		Width          int    `yaml:"width" validate:"gte=0"`
		CategoryImage  string `yaml:"category_image,omitempty" sanitize:"path_clean" validate:"omitempty,filepath"`
		USAStatusImage string `yaml:"usa_status_image,omitempty" sanitize:"path_clean" validate:"omitempty,filepath"`
	}

	DocumentConfig struct {
		OutputNameTemplate    string           `yaml:"output_name_template"`
		FileNameTransliterate bool             `yaml:"file_name_transliterate"`
		StaleAfterDays        int              `yaml:"stale_after_days" validate:"min=1"`
		TopIssueLimit         int              `yaml:"top_issue_limit" validate:"min=1"`
		USALabel              string           `yaml:"usa_label" validate:"required"`
		SourceEncoding        string           `yaml:"source_encoding,omitempty"`
		Charts                ChartsConfig     `yaml:"charts"`
		Table                 TableStyleConfig `yaml:"table"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to
// provide sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
