package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServerClock_StrictlyIncreasing(t *testing.T) {
	req := require.New(t)
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewServerClock(func() time.Time { return frozen })

	// Given a wall clock that never moves
	first := clock.Now()
	second := clock.Now()
	third := clock.Now()

	// Then every reading is still after the previous one
	req.Equal(frozen, first)
	req.True(second.After(first))
	req.True(third.After(second))
}

func TestServerClock_WallClockGoingBackwards(t *testing.T) {
	req := require.New(t)
	readings := []time.Time{
		time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	i := 0
	clock := NewServerClock(func() time.Time {
		t := readings[i]
		i++
		return t
	})

	first := clock.Now()
	second := clock.Now()
	req.True(second.After(first))
}

func TestServerClock_Observe(t *testing.T) {
	req := require.New(t)
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewServerClock(func() time.Time { return past })

	// Given documents from a previous run written later than the current wall clock
	clock.Observe(future)

	// Then new timestamps come after them
	req.True(clock.Now().After(future))
}
