package datagen

import (
	"context"

	"github.com/roach88/ssmgen/internal/model"
)

// RunInfo describes a generation run for one model.
type RunInfo struct {
	RunID        string        `json:"run_id"`
	Model        string        `json:"model"`
	ConfigHash   string        `json:"config_hash"`
	Config       *Config       `json:"config"`
	ModelConfig  *model.Config `json:"model_config"`
	FeatureNames []string      `json:"feature_names"`
	NRounds      int           `json:"n_rounds"`
}

// Round is the output of one completed round.
type Round struct {
	RunID        string
	Model        string
	Index        int
	FeatureNames []string
	Records      []*Record
	Rejected     []Rejected
}

// Sink persists generated data. WriteRun is called once per run before any
// of its rounds; WriteRound once per completed round, in round order.
type Sink interface {
	WriteRun(ctx context.Context, run RunInfo) error
	WriteRound(ctx context.Context, round Round) error
}

// Resumer is implemented by sinks that can continue an earlier run with the
// same config hash.
type Resumer interface {
	// FindRun returns the run id of an earlier run with configHash and the
	// indices of its completed rounds. ok is false when there is none.
	FindRun(ctx context.Context, configHash string) (runID string, completed []int, ok bool, err error)
}

// MultiSink fans writes out to several sinks in order. The first sink that
// implements Resumer answers FindRun.
type MultiSink []Sink

func (m MultiSink) WriteRun(ctx context.Context, run RunInfo) error {
	for _, s := range m {
		if err := s.WriteRun(ctx, run); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) WriteRound(ctx context.Context, round Round) error {
	for _, s := range m {
		if err := s.WriteRound(ctx, round); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) FindRun(ctx context.Context, configHash string) (string, []int, bool, error) {
	for _, s := range m {
		if r, ok := s.(Resumer); ok {
			return r.FindRun(ctx, configHash)
		}
	}
	return "", nil, false, nil
}
