package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtendOrdersByTimestamp(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Extend("test",
		Point{Timestamp: 3, Value: "v3"},
		Point{Timestamp: 1, Value: "v1"},
		Point{Timestamp: 2, Value: "v2"},
	))

	points, err := s.Range("test", 1, 3)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, Point{Timestamp: 1, Value: "v1"}, points[0])
	assert.Equal(t, Point{Timestamp: 2, Value: "v2"}, points[1])
	assert.Equal(t, Point{Timestamp: 3, Value: "v3"}, points[2])
}

func TestExtendLastWriteWins(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Extend("test",
		Point{Timestamp: 1, Value: "v1"},
		Point{Timestamp: 2, Value: "old"},
	))
	require.NoError(t, s.Extend("test", Point{Timestamp: 2, Value: "new"}))

	points, err := s.Range("test", 1, 3)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "new", points[1].Value)
}

func TestRangeBounds(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Extend("test",
		Point{Timestamp: 100, Value: "0"},
		Point{Timestamp: 110, Value: "1"},
		Point{Timestamp: 120, Value: "2"},
		Point{Timestamp: 130, Value: "3"},
		Point{Timestamp: 140, Value: "4"},
		Point{Timestamp: 150, Value: "5"},
	))

	// Inclusive bounds.
	points, err := s.Range("test", 125, 145)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(130), points[0].Timestamp)
	assert.Equal(t, int64(140), points[1].Timestamp)

	// Inverted bounds yield nothing.
	points, err = s.Range("test", 150, 100)
	require.NoError(t, err)
	assert.Empty(t, points)

	// Absent series yields nothing, not an error.
	points, err = s.Range("absent", 0, 100)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestRangeN(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Extend("test",
		Point{Timestamp: 100, Value: "0"},
		Point{Timestamp: 110, Value: "1"},
		Point{Timestamp: 115, Value: "x"},
		Point{Timestamp: 120, Value: "2"},
	))

	// Count cap.
	points, err := s.RangeN("test", 100, 120, 2, 0)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(110), points[1].Timestamp)

	// Frequency subsampling skips points closer than freq.
	points, err = s.RangeN("test", 100, 120, 0, 10)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, int64(100), points[0].Timestamp)
	assert.Equal(t, int64(110), points[1].Timestamp)
	assert.Equal(t, int64(120), points[2].Timestamp)
}

func TestFirstLast(t *testing.T) {
	s := newTestStore(t)

	_, err := s.First("test")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Last("test")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Extend("test", Point{Timestamp: 100, Value: "0"}))

	first, err := s.First("test")
	require.NoError(t, err)
	last, err := s.Last("test")
	require.NoError(t, err)
	assert.Equal(t, first, last)

	require.NoError(t, s.Extend("test", Point{Timestamp: 150, Value: "5"}))

	first, err = s.First("test")
	require.NoError(t, err)
	assert.Equal(t, int64(100), first.Timestamp)

	last, err = s.Last("test")
	require.NoError(t, err)
	assert.Equal(t, int64(150), last.Timestamp)
	assert.Equal(t, "5", last.Value)
}

func TestMissingAndIsComplete(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Extend("test",
		Point{Timestamp: 0, Value: "a"},
		Point{Timestamp: 10, Value: "b"},
		Point{Timestamp: 30, Value: "c"},
	))

	missing, err := s.Missing("test", 10, 0, 30)
	require.NoError(t, err)
	assert.Equal(t, []int64{20}, missing)

	complete, err := s.IsComplete("test", 10, 0, 30)
	require.NoError(t, err)
	assert.False(t, complete)

	require.NoError(t, s.Extend("test", Point{Timestamp: 20, Value: "d"}))

	complete, err = s.IsComplete("test", 10, 0, 30)
	require.NoError(t, err)
	assert.True(t, complete)

	// Without a frequency there is no expectation to violate.
	missing, err = s.Missing("test", 0, 0, 30)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)

	assert.ErrorIs(t, s.Remove("test"), ErrNotFound)

	require.NoError(t, s.Extend("test", Point{Timestamp: 1, Value: "v"}))
	require.NoError(t, s.Remove("test"))

	series, err := s.Timeseries()
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestRemoveRange(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Extend("test",
		Point{Timestamp: 100, Value: "0"},
		Point{Timestamp: 110, Value: "1"},
		Point{Timestamp: 120, Value: "2"},
	))

	require.NoError(t, s.RemoveRange("test", 110, 110))

	missing, err := s.Missing("test", 10, 100, 120)
	require.NoError(t, err)
	assert.Equal(t, []int64{110}, missing)

	// Removing every remaining point drops the series.
	require.NoError(t, s.RemoveRange("test", 0, 200))
	series, err := s.Timeseries()
	require.NoError(t, err)
	assert.Empty(t, series)

	// Absent series is a no-op.
	require.NoError(t, s.RemoveRange("absent", 0, 1))
}

func TestTimeseriesList(t *testing.T) {
	s := newTestStore(t)

	series, err := s.Timeseries()
	require.NoError(t, err)
	assert.Empty(t, series)

	require.NoError(t, s.Extend("b", Point{Timestamp: 1, Value: 1}))
	require.NoError(t, s.Extend("a", Point{Timestamp: 1, Value: 1}))

	series, err = s.Timeseries()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, series)
}
