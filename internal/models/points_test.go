package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHoldStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, HoldActive.CanTransitionTo(HoldCommitted))
	assert.True(t, HoldActive.CanTransitionTo(HoldReleased))
	assert.True(t, HoldActive.CanTransitionTo(HoldExpired))
	assert.False(t, HoldActive.CanTransitionTo(HoldActive))

	for _, terminal := range []HoldStatus{HoldCommitted, HoldReleased, HoldExpired} {
		assert.True(t, terminal.IsTerminal())
		assert.False(t, terminal.CanTransitionTo(HoldReleased), "%s must be terminal", terminal)
	}
}

func TestEntryType(t *testing.T) {
	assert.True(t, EntryReversal.Valid())
	assert.False(t, EntryType("TRANSFER").Valid())

	assert.True(t, EntryDebit.Reversible())
	assert.True(t, EntryCommit.Reversible())
	assert.False(t, EntryCredit.Reversible())
	assert.False(t, EntryHold.Reversible())
	assert.False(t, EntryReversal.Reversible())
}
