// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/account-research/internal/sections"
	"github.com/pdiddy/account-research/pkg/types"
)

// ErrDuplicateResult is returned when a second result is added for a section.
var ErrDuplicateResult = errors.New("section already has a result")

// Results is the append-only collection of section results, keyed by
// section id. Content may be replaced in place; entries are never removed.
type Results struct {
	items []types.SectionResult
	index map[types.SectionID]int
}

// NewResults returns an empty collection sized for n sections.
func NewResults(n int) *Results {
	return &Results{
		items: make([]types.SectionResult, 0, n),
		index: make(map[types.SectionID]int, n),
	}
}

// Add appends r. At most one result may exist per section.
func (rs *Results) Add(r types.SectionResult) error {
	if _, ok := rs.index[r.Section]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateResult, r.Section)
	}
	rs.index[r.Section] = len(rs.items)
	rs.items = append(rs.items, r)
	return nil
}

// ReplaceContent overwrites the content of the result for id and marks it audited.
func (rs *Results) ReplaceContent(id types.SectionID, content string) error {
	i, ok := rs.index[id]
	if !ok {
		return fmt.Errorf("%w: no result for %q", ErrUnknownSection, id)
	}
	rs.items[i].Content = content
	rs.items[i].Audited = true
	return nil
}

// Get returns the result for id.
func (rs *Results) Get(id types.SectionID) (types.SectionResult, bool) {
	i, ok := rs.index[id]
	if !ok {
		return types.SectionResult{}, false
	}
	return rs.items[i], true
}

// Has reports whether a result exists for id.
func (rs *Results) Has(id types.SectionID) bool {
	_, ok := rs.index[id]
	return ok
}

// Len returns the number of results.
func (rs *Results) Len() int { return len(rs.items) }

// All returns the results in insertion order.
func (rs *Results) All() []types.SectionResult {
	out := make([]types.SectionResult, len(rs.items))
	copy(out, rs.items)
	return out
}

// Sorted returns the results in the declaration order of set.
func (rs *Results) Sorted(set *sections.Set) []types.SectionResult {
	out := rs.All()
	sort.SliceStable(out, func(i, j int) bool {
		return set.Position(out[i].Section) < set.Position(out[j].Section)
	})
	return out
}

// RunState is the state threaded through one run. It is owned by the
// controller goroutine and never shared with section tasks.
type RunState struct {
	ID          string
	Target      string
	GroundTruth string

	// Pending holds the sections without a result, in declaration order.
	Pending []types.SectionSpec
	Results *Results

	// URLs accumulates every consulted URL; duplicates are removed at assembly.
	URLs []string

	// Document is the assembled markdown, empty until ASSEMBLE.
	Document string

	State     State
	StartedAt time.Time

	// ResearchTransitions counts entries into RESEARCH.
	ResearchTransitions int
}

// NewRunState returns a state in INIT with every section of set pending.
func NewRunState(set *sections.Set, target, groundTruth string) *RunState {
	pending := set.Specs()
	return &RunState{
		ID:          uuid.NewString(),
		Target:      target,
		GroundTruth: groundTruth,
		Pending:     pending,
		Results:     NewResults(len(pending)),
		State:       StateInit,
		StartedAt:   time.Now().UTC(),
	}
}

// complete folds r into the state and removes its section from Pending.
func (s *RunState) complete(r types.SectionResult, urls []string) error {
	at := -1
	for i, spec := range s.Pending {
		if spec.ID == r.Section {
			at = i
			break
		}
	}
	if at < 0 {
		return fmt.Errorf("%w: %q is not pending", ErrUnknownSection, r.Section)
	}
	if err := s.Results.Add(r); err != nil {
		return err
	}
	s.Pending = append(s.Pending[:at:at], s.Pending[at+1:]...)
	s.URLs = append(s.URLs, urls...)
	return nil
}
