package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	vferrors "github.com/voxflow/voxflow/pkg/common/errors"
	"github.com/voxflow/voxflow/pkg/common/validation"
)

// Sweep describes one preprocessing sweep: which images to process, which
// parameters to iterate over, and how to run the resulting workflow.
type Sweep struct {
	// Name of the workflow; also the top-level output directory name.
	Name string `yaml:"name"`

	// Workdir is the root of the on-disk output tree.
	Workdir string `yaml:"workdir"`

	// Inputs maps subject identifiers to anatomical image paths. With more
	// than one entry the sweep iterates over subjects.
	Inputs map[string]string `yaml:"inputs"`

	// Frac is the skull-strip fractional intensity threshold. A single
	// value configures the node; multiple values sweep it.
	Frac []float64 `yaml:"frac"`

	// FWHM lists smoothing kernel widths in millimeters to sweep over.
	FWHM []float64 `yaml:"fwhm"`

	// Mosaic renders a PNG mosaic of each smoothed image when true.
	Mosaic bool `yaml:"mosaic"`

	// Plugin selects the executor: "linear" or "multiproc".
	Plugin string `yaml:"plugin"`

	// Procs is the multiproc worker count. Defaults to the CPU count.
	Procs int `yaml:"procs"`

	// Lock optionally fences the workdir through Redis.
	Lock LockConfig `yaml:"lock"`

	// TracePath optionally records run events as JSON lines.
	TracePath string `yaml:"trace_path"`
}

// LockConfig configures the optional shared-workdir Redis lock.
type LockConfig struct {
	// Addr is the Redis address (host:port). Empty disables locking.
	Addr string `yaml:"addr"`

	// TTL is the lock expiry when the holder crashes. Optional.
	TTL Duration `yaml:"ttl"`
}

// Duration wraps time.Duration so YAML accepts "30s"-style strings.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns a sweep configuration with engine defaults applied.
func Default() Sweep {
	return Sweep{
		Name:   "preproc",
		Frac:   []float64{0.5},
		FWHM:   []float64{4, 8},
		Plugin: "multiproc",
		Procs:  runtime.NumCPU(),
	}
}

// Load reads and validates a sweep configuration from a YAML file. Missing
// fields take their defaults.
func Load(path string) (Sweep, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Sweep{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML sweep configuration.
func Parse(raw []byte) (Sweep, error) {
	s := Default()
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Sweep{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Sweep{}, err
	}
	return s, nil
}

// Validate checks the configuration for values the engine would reject later.
func (s *Sweep) Validate() error {
	if err := validation.ValidateIdentifier("config", "name", s.Name); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty("config", "workdir", s.Workdir); err != nil {
		return err
	}
	if len(s.Inputs) == 0 {
		return vferrors.NewValidationError("config", "inputs", s.Inputs, "cannot be empty").
			WithHint("map at least one subject id to an image path")
	}
	for subject, path := range s.Inputs {
		if err := validation.ValidateIdentifier("config", "inputs", subject); err != nil {
			return err
		}
		if path == "" {
			return vferrors.NewValidationError("config", "inputs", subject, "image path cannot be empty")
		}
	}
	for _, f := range s.Frac {
		if err := validation.ValidatePositiveFloat("config", "frac", f); err != nil {
			return err
		}
		if f >= 1 {
			return vferrors.NewValidationError("config", "frac", f, "must lie strictly below 1")
		}
	}
	if len(s.FWHM) == 0 {
		return vferrors.NewValidationError("config", "fwhm", s.FWHM, "cannot be empty").
			WithHint("list at least one kernel width; 0 keeps an unsmoothed branch")
	}
	for _, f := range s.FWHM {
		if f < 0 {
			return vferrors.NewValidationError("config", "fwhm", f, "must not be negative")
		}
	}
	switch s.Plugin {
	case "linear", "multiproc":
	default:
		return vferrors.NewValidationError("config", "plugin", s.Plugin, "unknown executor plugin").
			WithHint(`use "linear" or "multiproc"`)
	}
	if err := validation.ValidatePositive("config", "procs", s.Procs); err != nil {
		return err
	}
	return nil
}
