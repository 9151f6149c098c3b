package clockx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClock_New_DefaultCapacity(t *testing.T) {
	c := New(0)
	require.NotNil(t, c)
	require.Equal(t, 1, c.Capacity())
	require.Equal(t, 0, c.Hand())
}

func TestClock_New_HandStartsAtCapacityMinusOne(t *testing.T) {
	c := New(4)
	require.Equal(t, 3, c.Hand())

	// So the first Advance lands on frame 0, matching buf.C's
	// clockHand = bufs - 1 initialization.
	id, _, _, _ := c.Advance()
	require.Equal(t, 0, id)
}

func TestClock_Touch_MakesPresent(t *testing.T) {
	c := New(3)

	// Touch an id -> becomes present, ref=true but not evictable yet.
	c.Touch(1)
	require.True(t, c.present[1])
	require.False(t, c.evictable[1])

	// Setting evictable for present slot should flip it.
	c.SetEvictable(1, true)
	require.True(t, c.evictable[1])

	// Setting again same value is idempotent.
	c.SetEvictable(1, true)
	require.True(t, c.evictable[1])

	// Set back to non-evictable
	c.SetEvictable(1, false)
	require.False(t, c.evictable[1])
}

func TestClock_SetEvictable_UnknownSlotIgnored(t *testing.T) {
	c := New(2)

	// Not touched yet -> not present, SetEvictable should be ignored.
	c.SetEvictable(0, true)
	require.False(t, c.evictable[0])

	// Touch then SetEvictable works.
	c.Touch(0)
	c.SetEvictable(0, true)
	require.True(t, c.evictable[0])
}

func TestClock_Remove_ClearsSlot(t *testing.T) {
	c := New(3)

	c.Touch(0)
	c.Touch(1)
	c.SetEvictable(0, true)
	c.SetEvictable(1, true)

	// Remove evictable slot -> cleared.
	c.Remove(0)
	require.False(t, c.present[0])
	require.False(t, c.evictable[0])
	require.False(t, c.ref[0])

	// Remove again is a no-op, not a panic.
	c.Remove(0)
	require.False(t, c.present[0])

	// Remove a non-evictable present slot clears it too.
	c.Touch(2)
	c.Remove(2)
	require.False(t, c.present[2])
}

func TestClock_AdvanceAndClearRef(t *testing.T) {
	c := New(3)
	c.Touch(0)
	c.SetEvictable(0, true)

	// Hand starts at capacity-1, so the first Advance lands on frame 0.
	id, present, evictable, ref := c.Advance()
	require.Equal(t, 0, id)
	require.True(t, present)
	require.True(t, evictable)
	require.True(t, ref)

	id, present, evictable, ref = c.Advance()
	require.Equal(t, 1, id)
	require.False(t, present)
	require.False(t, evictable)
	require.False(t, ref)

	id, present, evictable, ref = c.Advance()
	require.Equal(t, 2, id)
	require.False(t, present)

	c.ClearRef(0)
	require.False(t, c.ref[0])
}

func TestClock_BoundsChecks(t *testing.T) {
	c := New(2)

	// Out of range should not panic or touch any tracked slot.
	c.Touch(-1)
	c.Touch(2)
	c.SetEvictable(-1, true)
	c.SetEvictable(2, true)
	c.Remove(-1)
	c.Remove(2)
	c.ClearRef(-1)
	c.ClearRef(2)

	require.Equal(t, []bool{false, false}, c.present)
}
