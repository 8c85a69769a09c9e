// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
)

// State is a pipeline controller state.
type State int

const (
	StateInit State = iota
	StateDispatch
	StateResearch
	StateAudit
	StateAssemble
	StateDone
)

var stateNames = [...]string{"INIT", "DISPATCH", "RESEARCH", "AUDIT", "ASSEMBLE", "DONE"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Event drives a transition.
type Event int

const (
	// EventInitialized fires once pending sections are populated.
	EventInitialized Event = iota
	// EventSectionPending fires when the router finds work left.
	EventSectionPending
	// EventSectionsDrained fires when the router finds no work left.
	EventSectionsDrained
	// EventResearched fires after a section result is folded in and no audit runs.
	EventResearched
	// EventAuditRequested fires after a section result is folded in and audit is enabled.
	EventAuditRequested
	// EventAudited fires once the audit outcome is folded in.
	EventAudited
	// EventAssembled fires once the final document is stored.
	EventAssembled
)

var eventNames = [...]string{"initialized", "section_pending", "sections_drained", "researched", "audit_requested", "audited", "assembled"}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return fmt.Sprintf("Event(%d)", int(e))
	}
	return eventNames[e]
}

// ErrInvalidTransition is returned by Transition for an event the state does not accept.
var ErrInvalidTransition = errors.New("invalid pipeline transition")

type edge struct {
	from State
	on   Event
}

var transitions = map[edge]State{
	{StateInit, EventInitialized}:        StateDispatch,
	{StateDispatch, EventSectionPending}:  StateResearch,
	{StateDispatch, EventSectionsDrained}: StateAssemble,
	{StateResearch, EventResearched}:      StateDispatch,
	{StateResearch, EventAuditRequested}:  StateAudit,
	{StateAudit, EventAudited}:            StateDispatch,
	{StateAssemble, EventAssembled}:       StateDone,
}

// Transition returns the state reached from s on e.
func Transition(s State, e Event) (State, error) {
	next, ok := transitions[edge{s, e}]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, s, e)
	}
	return next, nil
}

// Route is the dispatch decision. It depends only on whether sections remain.
func Route(pending int) Event {
	if pending > 0 {
		return EventSectionPending
	}
	return EventSectionsDrained
}
