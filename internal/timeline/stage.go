// Package timeline reconstructs how long issues spend between lifecycle
// stages from unordered state-change histories.
package timeline

import (
	"github.com/cockroachdb/errors"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

// StageOrder is the immutable, explicitly enumerated lifecycle with a
// strict total order: earlier index means earlier in the lifecycle.
// Comparisons between stages use only this index.
type StageOrder struct {
	names []string
	index map[string]int
}

// NewStageOrder validates and freezes the stage enumeration.
func NewStageOrder(names []string) (*StageOrder, error) {
	if len(names) == 0 {
		return nil, errors.Mark(errors.New("stage order is empty"), entities.ErrConfiguration)
	}
	idx := make(map[string]int, len(names))
	for i, n := range names {
		if n == "" {
			return nil, errors.Mark(errors.Newf("stage %d is blank", i), entities.ErrConfiguration)
		}
		if _, dup := idx[n]; dup {
			return nil, errors.Mark(errors.Newf("duplicate stage %q", n), entities.ErrConfiguration)
		}
		idx[n] = i
	}
	return &StageOrder{names: names, index: idx}, nil
}

// Index returns the position of a stage. An unknown stage name is a fatal
// configuration error, not a skip: it means the order enumeration is out of
// date with the tracker.
func (s *StageOrder) Index(stage string) (int, error) {
	i, ok := s.index[stage]
	if !ok {
		return 0, errors.Mark(errors.Newf("stage %q not in stage order", stage), entities.ErrConfiguration)
	}
	return i, nil
}

// Contains reports whether stage is part of the lifecycle.
func (s *StageOrder) Contains(stage string) bool {
	_, ok := s.index[stage]
	return ok
}

// Stages returns the ordered stage names.
func (s *StageOrder) Stages() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
