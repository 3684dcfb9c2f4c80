package datagen

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ssmgen/internal/canon"
	"github.com/roach88/ssmgen/internal/kde"
	"github.com/roach88/ssmgen/internal/model"
)

// Output formats.
const (
	FormatSQLite  = "sqlite"
	FormatArrow   = "arrow"
	FormatParquet = "parquet"
)

// ValidFormats lists the supported output formats.
var ValidFormats = []string{FormatSQLite, FormatArrow, FormatParquet}

// Config controls a training-data generation run.
type Config struct {
	// OutputFolder receives persisted datasets.
	OutputFolder string `yaml:"output_folder" json:"output_folder"`

	// OutputFormat selects the sink: sqlite, arrow or parquet.
	OutputFormat string `yaml:"output_format" json:"output_format"`

	// Model is a single generative model; merged into Models on load.
	Model string `yaml:"model,omitempty" json:"model,omitempty"`

	// Models lists generative models to produce data for.
	Models []string `yaml:"models,omitempty" json:"models,omitempty"`

	// NBins enables per-choice RT histograms over [0, max_t] when positive.
	NBins int `yaml:"nbins" json:"nbins"`

	// NSamples is the number of simulated trials per parameter set.
	NSamples int `yaml:"n_samples" json:"n_samples"`

	NParameterSets         int `yaml:"n_parameter_sets" json:"n_parameter_sets"`
	NParameterSetsRejected int `yaml:"n_parameter_sets_rejected" json:"n_parameter_sets_rejected"`

	// NTrainingSamplesByParameterSet is the number of labeled rows per set.
	NTrainingSamplesByParameterSet int `yaml:"n_training_samples_by_parameter_set" json:"n_training_samples_by_parameter_set"`

	// KDEDataMixtureProbabilities weights the row sources
	// [kde samples, uniform above zero, uniform below zero].
	KDEDataMixtureProbabilities []float64 `yaml:"kde_data_mixture_probabilities" json:"kde_data_mixture_probabilities"`

	SimulationFilters Filters `yaml:"simulation_filters" json:"simulation_filters"`

	// NegativeRTCutoff labels rows with rt <= 0 and floors all labels.
	NegativeRTCutoff float64 `yaml:"negative_rt_cutoff" json:"negative_rt_cutoff"`

	// NSubruns splits the parameter sets into sequential rounds.
	NSubruns int `yaml:"n_subruns" json:"n_subruns"`

	// BinPointwise replaces rt features with histogram bin indices.
	BinPointwise bool `yaml:"bin_pointwise" json:"bin_pointwise"`

	// SeparateResponseChannels one-hot encodes the choice feature.
	SeparateResponseChannels bool `yaml:"separate_response_channels" json:"separate_response_channels"`

	NCPUs CPUs `yaml:"n_cpus" json:"n_cpus"`

	DeltaT float64 `yaml:"delta_t" json:"delta_t"`
	MaxT   float64 `yaml:"max_t" json:"max_t"`
	Seed   uint64  `yaml:"seed" json:"seed"`

	// MaxAttempts bounds redraws of a parameter set whose simulations
	// fail the filters.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
}

// Filters reject simulations whose per-choice RT distributions are
// degenerate. A simulation is kept only if every possible choice passes.
type Filters struct {
	// Mode is the exclusive upper bound on the modal RT.
	Mode float64 `yaml:"mode" json:"mode"`

	// ChoiceCnt is the exclusive lower bound on decided trials per choice.
	ChoiceCnt int `yaml:"choice_cnt" json:"choice_cnt"`

	// MeanRT is the inclusive upper bound on mean RT.
	MeanRT float64 `yaml:"mean_rt" json:"mean_rt"`

	// Std is the exclusive lower bound on RT standard deviation.
	Std float64 `yaml:"std" json:"std"`

	// ModeCntRel is the exclusive upper bound on the modal RT's share of
	// trials for that choice.
	ModeCntRel float64 `yaml:"mode_cnt_rel" json:"mode_cnt_rel"`
}

// CPUs is a worker count; zero means all available CPUs and is written as
// "all" in YAML.
type CPUs int

// UnmarshalYAML accepts "all" or a non-negative integer.
func (c *CPUs) UnmarshalYAML(node *yaml.Node) error {
	if node.Value == "all" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(node.Value)
	if err != nil {
		return fmt.Errorf("n_cpus: want \"all\" or an integer, got %q", node.Value)
	}
	*c = CPUs(n)
	return nil
}

// MarshalYAML writes zero as "all".
func (c CPUs) MarshalYAML() (any, error) {
	if c == 0 {
		return "all", nil
	}
	return int(c), nil
}

// DefaultConfig returns a configuration with every field set.
func DefaultConfig() *Config {
	return &Config{
		OutputFolder:                   "data/training",
		OutputFormat:                   FormatSQLite,
		Models:                         []string{"ddm"},
		NBins:                          0,
		NSamples:                       20000,
		NParameterSets:                 100,
		NParameterSetsRejected:         100,
		NTrainingSamplesByParameterSet: 1000,
		KDEDataMixtureProbabilities:    []float64{0.8, 0.1, 0.1},
		SimulationFilters: Filters{
			Mode:       20,
			ChoiceCnt:  0,
			MeanRT:     17,
			Std:        0,
			ModeCntRel: 0.95,
		},
		NegativeRTCutoff: kde.DefaultCutoff,
		NSubruns:         10,
		NCPUs:            0,
		DeltaT:           0.001,
		MaxT:             20,
		MaxAttempts:      100,
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Models = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize folds Model into Models and restores the default model list
// when neither is set.
func (c *Config) normalize() {
	if c.Model != "" && !slices.Contains(c.Models, c.Model) {
		c.Models = append([]string{c.Model}, c.Models...)
	}
	c.Model = ""
	if len(c.Models) == 0 {
		c.Models = []string{"ddm"}
	}
}

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate returns all configuration problems, joined.
func (c *Config) Validate() error {
	var errs []error
	bad := func(field, format string, args ...any) {
		errs = append(errs, &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(c.Models) == 0 && c.Model == "" {
		bad("models", "at least one model is required")
	}
	if !slices.Contains(ValidFormats, c.OutputFormat) {
		bad("output_format", "must be one of %v, got %q", ValidFormats, c.OutputFormat)
	}
	if c.NSamples <= 0 {
		bad("n_samples", "must be positive, got %d", c.NSamples)
	}
	if c.NParameterSets <= 0 {
		bad("n_parameter_sets", "must be positive, got %d", c.NParameterSets)
	}
	if c.NParameterSetsRejected < 0 {
		bad("n_parameter_sets_rejected", "must be non-negative, got %d", c.NParameterSetsRejected)
	}
	if c.NTrainingSamplesByParameterSet <= 0 {
		bad("n_training_samples_by_parameter_set", "must be positive, got %d", c.NTrainingSamplesByParameterSet)
	}
	if c.NSubruns <= 0 {
		bad("n_subruns", "must be positive, got %d", c.NSubruns)
	} else if c.NParameterSets > 0 && c.NSubruns > c.NParameterSets {
		bad("n_subruns", "must not exceed n_parameter_sets (%d > %d)", c.NSubruns, c.NParameterSets)
	}

	if len(c.KDEDataMixtureProbabilities) != 3 {
		bad("kde_data_mixture_probabilities", "must have 3 entries, got %d", len(c.KDEDataMixtureProbabilities))
	} else {
		sum := 0.0
		for _, p := range c.KDEDataMixtureProbabilities {
			if p < 0 {
				bad("kde_data_mixture_probabilities", "entries must be non-negative")
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-6 {
			bad("kde_data_mixture_probabilities", "must sum to 1, got %g", sum)
		}
	}

	if c.NBins < 0 {
		bad("nbins", "must be non-negative, got %d", c.NBins)
	}
	if c.BinPointwise && c.NBins <= 0 {
		bad("bin_pointwise", "requires nbins > 0")
	}
	if !(c.NegativeRTCutoff < 0) {
		bad("negative_rt_cutoff", "must be negative, got %g", c.NegativeRTCutoff)
	}
	if c.NCPUs < 0 {
		bad("n_cpus", "must be \"all\" or positive, got %d", c.NCPUs)
	}
	if !(c.DeltaT > 0) {
		bad("delta_t", "must be positive, got %g", c.DeltaT)
	}
	if !(c.MaxT > c.DeltaT) {
		bad("max_t", "must exceed delta_t, got %g", c.MaxT)
	}
	if c.MaxAttempts < 1 {
		bad("max_attempts", "must be at least 1, got %d", c.MaxAttempts)
	}

	return errors.Join(errs...)
}

// Hash identifies the data a run of m would produce under this config. The
// full model definition is part of the identity, so editing a model's
// bounds or kernel starts a new run. Output location, format and worker
// count are excluded: they do not change the generated records.
func (c *Config) Hash(m *model.Config) (string, error) {
	modelHash, err := canon.Hash(canon.DomainModel, m)
	if err != nil {
		return "", err
	}
	id := *c
	id.OutputFolder = ""
	id.OutputFormat = ""
	id.NCPUs = 0
	id.Model = m.Name
	id.Models = nil
	return canon.ConfigHash(map[string]any{
		"config": id,
		"model":  modelHash,
	})
}

// Bytes renders the config as YAML.
func (c *Config) Bytes() ([]byte, error) {
	return yaml.Marshal(c)
}
