// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from State
		on   Event
		want State
	}{
		{StateInit, EventInitialized, StateDispatch},
		{StateDispatch, EventSectionPending, StateResearch},
		{StateDispatch, EventSectionsDrained, StateAssemble},
		{StateResearch, EventResearched, StateDispatch},
		{StateResearch, EventAuditRequested, StateAudit},
		{StateAudit, EventAudited, StateDispatch},
		{StateAssemble, EventAssembled, StateDone},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.on.String(), func(t *testing.T) {
			got, err := Transition(tt.from, tt.on)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransitionInvalid(t *testing.T) {
	tests := []struct {
		from State
		on   Event
	}{
		{StateInit, EventSectionPending},
		{StateDispatch, EventAssembled},
		{StateResearch, EventAudited},
		{StateAudit, EventResearched},
		{StateDone, EventInitialized},
		{StateAssemble, EventSectionsDrained},
	}
	for _, tt := range tests {
		got, err := Transition(tt.from, tt.on)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s on %s", tt.from, tt.on)
		assert.Equal(t, tt.from, got, "state must not change on an invalid event")
	}
}

func TestDoneIsTerminal(t *testing.T) {
	for e := EventInitialized; e <= EventAssembled; e++ {
		_, err := Transition(StateDone, e)
		assert.Error(t, err, "DONE accepted %s", e)
	}
}

func TestRoute(t *testing.T) {
	assert.Equal(t, EventSectionPending, Route(3))
	assert.Equal(t, EventSectionPending, Route(1))
	assert.Equal(t, EventSectionsDrained, Route(0))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "RESEARCH", StateResearch.String())
	assert.Equal(t, "State(42)", State(42).String())
	assert.Equal(t, "audit_requested", EventAuditRequested.String())
}
