package rollback_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/releasekit/pkg/rollback"
)

func TestParseTrigger(t *testing.T) {
	t.Parallel()

	for _, trigger := range rollback.Triggers {
		parsed, err := rollback.ParseTrigger(string(trigger))
		require.NoError(t, err)
		assert.Equal(t, trigger, parsed)
	}

	_, err := rollback.ParseTrigger("nope")
	require.ErrorIs(t, err, rollback.ErrInvalidTrigger)
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, rollback.StatusPending.Terminal())
	assert.False(t, rollback.StatusInProgress.Terminal())
	assert.True(t, rollback.StatusCompleted.Terminal())
	assert.True(t, rollback.StatusFailed.Terminal())
	assert.True(t, rollback.StatusCancelled.Terminal())
}

func TestHistory(t *testing.T) {
	t.Parallel()

	history := rollback.NewHistory()
	assert.Zero(t, history.Len())

	history.Append(&rollback.Event{ID: "a", Feature: "x", Status: rollback.StatusCompleted})
	history.Append(&rollback.Event{ID: "b", Feature: "y", Status: rollback.StatusFailed})

	events := history.List()
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "b", events[1].ID)

	// List hands out copies.
	events[0].Feature = "mutated"
	found, err := history.Find("a")
	require.NoError(t, err)
	assert.Equal(t, "x", found.Feature)

	_, err = history.Find("missing")
	require.ErrorIs(t, err, rollback.ErrEventNotFound)
}
