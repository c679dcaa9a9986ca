package vmap

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// SummaryFile is the report written to the output directory after a run.
const SummaryFile = "summary.yaml"

// Failure is one failed model path.
type Failure struct {
	Path  string `yaml:"path"`
	Kind  string `yaml:"kind"`
	Error string `yaml:"error"`
}

// TileFailure is one failed tile.
type TileFailure struct {
	Tile  string `yaml:"tile"`
	Kind  string `yaml:"kind"`
	Error string `yaml:"error"`
}

// Summary aggregates the results of a run. It is safe for concurrent use
// while the run is in progress.
type Summary struct {
	RunID    string        `yaml:"run_id"`
	OutDir   string        `yaml:"out_dir"`
	Started  time.Time     `yaml:"started"`
	Duration time.Duration `yaml:"duration"`

	TilesOK           int `yaml:"tiles_ok"`
	TilesFailed       int `yaml:"tiles_failed"`
	ModelsCompiled    int `yaml:"models_compiled"`
	ModelsFailed      int `yaml:"models_failed"`
	PlacementsWritten int `yaml:"placements_written"`
	PlacementsSkipped int `yaml:"placements_skipped"`

	Canceled     bool          `yaml:"canceled,omitempty"`
	Failures     []Failure     `yaml:"model_failures,omitempty"`
	TileFailures []TileFailure `yaml:"tile_failures,omitempty"`

	mu  sync.Mutex
	err error
}

// NewSummary starts a summary with a fresh run id.
func NewSummary(outDir string) *Summary {
	return &Summary{
		RunID:   uuid.NewString(),
		OutDir:  outDir,
		Started: time.Now(),
	}
}

// AddTile records the outcome of one tile.
func (s *Summary) AddTile(res TileResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.PlacementsSkipped += res.Skipped
	if err != nil {
		s.TilesFailed++
		s.TileFailures = append(s.TileFailures, TileFailure{
			Tile:  res.Key.String(),
			Kind:  Kind(err).String(),
			Error: err.Error(),
		})
		s.err = multierr.Append(s.err, errors.WithMessage(err, res.Key.String()))
		return
	}
	s.TilesOK++
	s.PlacementsWritten += res.Placements
}

// finish copies the registry state into the summary.
func (s *Summary) finish(reg *Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ModelsCompiled = len(reg.Compiled())
	s.Failures = reg.Failures()
	s.ModelsFailed = len(s.Failures)
	s.Duration = time.Since(s.Started).Round(time.Millisecond)
}

// Err returns every tile error combined, or nil.
func (s *Summary) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Errors returns the individual tile errors.
func (s *Summary) Errors() []error {
	return multierr.Errors(s.Err())
}

// WriteReport writes the summary as YAML to path.
func (s *Summary) WriteReport(path string) error {
	s.mu.Lock()
	data, err := yaml.Marshal(s)
	s.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "encoding summary")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating report directory")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "writing summary")
}

// ReadReport loads a summary written by WriteReport.
func ReadReport(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading summary")
	}
	s := &Summary{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(err, "parsing summary")
	}
	return s, nil
}
