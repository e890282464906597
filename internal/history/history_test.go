package history

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 11, 26, 12, 0, 0, 0, time.UTC)

func TestAppendAndWindow(t *testing.T) {
	s := NewStore(DefaultRetention)

	s.Append("u1", Record{Amount: 10, Timestamp: base.Add(-2 * time.Hour), CounterpartyID: "m1"}, base)
	s.Append("u1", Record{Amount: 20, Timestamp: base.Add(-30 * time.Minute), CounterpartyID: "m2"}, base)
	s.Append("u1", Record{Amount: 30, Timestamp: base, CounterpartyID: "m3"}, base)

	oneHour := s.Window("u1", base, time.Hour)
	require.Len(t, oneHour, 2)
	assert.Equal(t, 20.0, oneHour[0].Amount)
	assert.Equal(t, 30.0, oneHour[1].Amount)

	day := s.Window("u1", base, 24*time.Hour)
	assert.Len(t, day, 3)
}

func TestWindowBoundaryInclusive(t *testing.T) {
	s := NewStore(DefaultRetention)

	// Record exactly at now-d must be included.
	s.Append("u1", Record{Amount: 5, Timestamp: base.Add(-time.Hour)}, base)
	got := s.Window("u1", base, time.Hour)
	require.Len(t, got, 1)
	assert.Equal(t, 5.0, got[0].Amount)

	// One nanosecond older falls out.
	s.Append("u2", Record{Amount: 5, Timestamp: base.Add(-time.Hour - time.Nanosecond)}, base)
	assert.Empty(t, s.Window("u2", base, time.Hour))
}

func TestWindowExcludesFutureRecords(t *testing.T) {
	s := NewStore(DefaultRetention)

	// The window is right-closed at now; a future-dated record is not
	// visible until the reference time catches up.
	s.Append("u1", Record{Amount: 5, Timestamp: base.Add(time.Minute)}, base)
	assert.Empty(t, s.Window("u1", base, time.Hour))
	assert.Len(t, s.Window("u1", base.Add(time.Minute), time.Hour), 1)
}

func TestUnknownEntity(t *testing.T) {
	s := NewStore(DefaultRetention)
	assert.Empty(t, s.Window("ghost", base, time.Hour))
	assert.Equal(t, 0, s.EntityCount())
}

func TestEvictionOnAppend(t *testing.T) {
	s := NewStore(DefaultRetention)

	s.Append("u1", Record{Amount: 1, Timestamp: base.Add(-8 * 24 * time.Hour)}, base.Add(-8*24*time.Hour))
	s.Append("u1", Record{Amount: 2, Timestamp: base.Add(-6 * 24 * time.Hour)}, base.Add(-6*24*time.Hour))
	assert.Equal(t, int64(2), s.RecordCount())

	// Appending at base evicts the 8-day-old record.
	s.Append("u1", Record{Amount: 3, Timestamp: base}, base)

	week := s.Window("u1", base, 7*24*time.Hour)
	require.Len(t, week, 2)
	assert.Equal(t, 2.0, week[0].Amount)
	assert.Equal(t, 3.0, week[1].Amount)
	assert.Equal(t, int64(2), s.RecordCount())
}

func TestAppendExpiredRecordNotRetained(t *testing.T) {
	s := NewStore(DefaultRetention)

	// A record already older than the retention window at append time
	// must not become retrievable, not even through a wider query.
	s.Append("u1", Record{Amount: 1, Timestamp: base.Add(-8 * 24 * time.Hour)}, base)
	assert.Empty(t, s.Window("u1", base, 30*24*time.Hour))
	assert.Equal(t, int64(0), s.RecordCount())

	// A fresh record for the same entity is unaffected.
	s.Append("u1", Record{Amount: 2, Timestamp: base}, base)
	assert.Len(t, s.Window("u1", base, time.Hour), 1)
	assert.Equal(t, int64(1), s.RecordCount())
}

func TestOutOfOrderTimestamps(t *testing.T) {
	s := NewStore(DefaultRetention)

	// Arrival order does not match timestamp order; filtering must
	// still pick up the in-window records.
	s.Append("u1", Record{Amount: 1, Timestamp: base.Add(-10 * time.Minute)}, base)
	s.Append("u1", Record{Amount: 2, Timestamp: base.Add(-3 * time.Hour)}, base)
	s.Append("u1", Record{Amount: 3, Timestamp: base.Add(-5 * time.Minute)}, base)

	got := s.Window("u1", base, time.Hour)
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Amount)
	assert.Equal(t, 3.0, got[1].Amount)
}

func TestRecordExcludedAfterWindowPasses(t *testing.T) {
	s := NewStore(DefaultRetention)

	t1 := base
	s.Append("u1", Record{Amount: 42, Timestamp: t1}, t1)

	t2 := t1.Add(2 * time.Hour)
	assert.Empty(t, s.Window("u1", t2, time.Hour), "t2-t1 > d, record must be excluded")
	assert.Len(t, s.Window("u1", t2, 3*time.Hour), 1)
}

func TestConcurrentAppends(t *testing.T) {
	s := NewStore(DefaultRetention)

	const perEntity = 200
	var wg sync.WaitGroup
	for e := 0; e < 8; e++ {
		entityID := fmt.Sprintf("u%d", e)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perEntity; i++ {
				s.Append(entityID, Record{Amount: 1, Timestamp: base}, base)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, s.EntityCount())
	assert.Equal(t, int64(8*perEntity), s.RecordCount())
	for e := 0; e < 8; e++ {
		assert.Len(t, s.Window(fmt.Sprintf("u%d", e), base, time.Hour), perEntity)
	}
}
