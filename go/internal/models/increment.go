package models

import (
	"errors"
	"fmt"
)

var (
	ErrSlabInverted      = errors.New("increment slab has from greater than to")
	ErrSlabUnsorted      = errors.New("increment slabs are not sorted by from")
	ErrSlabOverlap       = errors.New("increment slabs overlap")
	ErrNegativeIncrement = errors.New("increment must not be negative")
)

// IncrementSlab applies Increment to bids in the inclusive range [From, To].
type IncrementSlab struct {
	From      int64 `json:"from" yaml:"from"`
	To        int64 `json:"to" yaml:"to"`
	Increment int64 `json:"increment" yaml:"increment"`
}

// IncrementRule is either a fixed increment, a slab table, or both. Slabs win
// when one contains the amount; Fixed is the fallback.
type IncrementRule struct {
	Fixed int64           `json:"fixed,omitempty" yaml:"fixed"`
	Slabs []IncrementSlab `json:"slabs,omitempty" yaml:"slabs"`
}

// Validate checks that slabs are ascending, well formed and non-overlapping.
func (r IncrementRule) Validate() error {
	if r.Fixed < 0 {
		return ErrNegativeIncrement
	}
	for i, s := range r.Slabs {
		if s.From > s.To {
			return fmt.Errorf("slab %d [%d,%d]: %w", i, s.From, s.To, ErrSlabInverted)
		}
		if s.Increment < 0 {
			return fmt.Errorf("slab %d: %w", i, ErrNegativeIncrement)
		}
		if i == 0 {
			continue
		}
		prev := r.Slabs[i-1]
		if s.From < prev.From {
			return fmt.Errorf("slab %d: %w", i, ErrSlabUnsorted)
		}
		if s.From <= prev.To {
			return fmt.Errorf("slab %d [%d,%d] overlaps [%d,%d]: %w", i, s.From, s.To, prev.From, prev.To, ErrSlabOverlap)
		}
	}
	return nil
}

// Clone returns a copy that shares no slab storage with r.
func (r IncrementRule) Clone() IncrementRule {
	out := IncrementRule{Fixed: r.Fixed}
	if r.Slabs != nil {
		out.Slabs = append([]IncrementSlab(nil), r.Slabs...)
	}
	return out
}
