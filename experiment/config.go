package experiment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sarchlab/flowsim/sim"
	"gopkg.in/yaml.v3"
)

// Config describes an experiment on a queueing model in seconds of simulated
// time.
type Config struct {
	Name         string          `yaml:"name"`
	Replications int             `yaml:"replications"`
	Parallelism  int             `yaml:"parallelism"`
	Seed         uint64          `yaml:"seed"`
	Start        float64         `yaml:"start"`
	Warmup       float64         `yaml:"warmup"`
	RunLength    float64         `yaml:"run_length"`
	Model        ModelConfig     `yaml:"model"`
	Recording    RecordingConfig `yaml:"recording"`
}

// ModelConfig holds the parameters of a multi-server queue.
type ModelConfig struct {
	ArrivalMean float64 `yaml:"arrival_mean"`
	ServiceMean float64 `yaml:"service_mean"`
	Servers     float64 `yaml:"servers"`
	MaxEntities int     `yaml:"max_entities"`
}

// RecordingConfig tells where to record results. An empty database disables
// recording. For SQLite the database is a file name without extension; for
// ClickHouse it is a DSN.
type RecordingConfig struct {
	Database string `yaml:"database"`
	Driver   string `yaml:"driver"`
	Trace    bool   `yaml:"trace"`
}

// DefaultConfig returns the configuration used for missing settings.
func DefaultConfig() Config {
	return Config{
		Name:         "experiment",
		Replications: 10,
		Parallelism:  4,
		Seed:         1,
		Start:        0,
		Warmup:       100,
		RunLength:    1100,
		Model: ModelConfig{
			ArrivalMean: 1,
			ServiceMean: 0.8,
			Servers:     1,
			MaxEntities: -1,
		},
		Recording: RecordingConfig{
			Driver: "sqlite",
		},
	}
}

// LoadConfig reads a YAML configuration on top of the defaults. Unknown keys
// are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration on top of the defaults and
// validates it.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	err := decoder.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: parsing config: %w", ErrConfiguration, err)
	}

	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error

	if c.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}

	if c.Replications <= 0 {
		errs = append(errs,
			fmt.Errorf("replications must be positive, got %d", c.Replications))
	}

	if c.Parallelism <= 0 {
		errs = append(errs,
			fmt.Errorf("parallelism must be positive, got %d", c.Parallelism))
	}

	if err := finitePositive("model.arrival_mean", c.Model.ArrivalMean); err != nil {
		errs = append(errs, err)
	}

	if err := finitePositive("model.service_mean", c.Model.ServiceMean); err != nil {
		errs = append(errs, err)
	}

	if err := finitePositive("model.servers", c.Model.Servers); err != nil {
		errs = append(errs, err)
	}

	switch c.Recording.Driver {
	case "sqlite", "sqlite3", "clickhouse":
	default:
		errs = append(errs, fmt.Errorf(
			"recording.driver must be sqlite, sqlite3 or clickhouse, got %q",
			c.Recording.Driver))
	}

	if _, err := c.RunControl(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
}

// RunControl creates the run boundaries the configuration describes.
func (c Config) RunControl() (*RunControl[sim.VTimeInSec], error) {
	rc, err := MakeRunControl(c.Name,
		sim.VTimeInSec(c.Start),
		sim.VTimeInSec(c.Warmup),
		sim.VTimeInSec(c.RunLength))
	if err != nil {
		return nil, err
	}

	return rc, nil
}

func finitePositive(name string, v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a positive number, got %v", name, v)
	}

	return nil
}
