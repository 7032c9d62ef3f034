package timerange

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name         string
		aStart, aEnd Clock
		bStart, bEnd Clock
		want         bool
	}{
		{"disjoint", MustClock(9, 0), MustClock(10, 0), MustClock(11, 0), MustClock(12, 0), false},
		{"touching end to start", MustClock(9, 0), MustClock(10, 0), MustClock(10, 0), MustClock(11, 0), false},
		{"touching start to end", MustClock(10, 0), MustClock(11, 0), MustClock(9, 0), MustClock(10, 0), false},
		{"partial overlap", MustClock(9, 0), MustClock(10, 30), MustClock(10, 0), MustClock(11, 0), true},
		{"contained", MustClock(9, 0), MustClock(12, 0), MustClock(10, 0), MustClock(11, 0), true},
		{"identical", MustClock(9, 0), MustClock(10, 0), MustClock(9, 0), MustClock(10, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd), "overlap must be symmetric")
		})
	}
}

func TestIsValidRange(t *testing.T) {
	assert.True(t, IsValidRange(MustClock(9, 0), MustClock(9, 1)))
	assert.False(t, IsValidRange(MustClock(9, 0), MustClock(9, 0)))
	assert.False(t, IsValidRange(MustClock(10, 0), MustClock(9, 0)))
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, c.Hour())
	assert.Equal(t, 30, c.Minute())
	assert.Equal(t, "09:30", c.String())

	_, err = ParseClock("25:00")
	assert.Error(t, err)
}

func TestClockJSON(t *testing.T) {
	data, err := json.Marshal(MustClock(14, 5))
	require.NoError(t, err)
	assert.JSONEq(t, `"14:05"`, string(data))

	var c Clock
	require.NoError(t, json.Unmarshal([]byte(`"07:45"`), &c))
	assert.Equal(t, MustClock(7, 45), c)

	assert.Error(t, json.Unmarshal([]byte(`465`), &c))
}

func TestRangeValidate(t *testing.T) {
	ok := Range{Date: MustDate("2025-10-20"), Start: MustClock(9, 0), End: MustClock(10, 0)}
	assert.NoError(t, ok.Validate())

	inverted := Range{Date: ok.Date, Start: MustClock(10, 0), End: MustClock(9, 0)}
	assert.Error(t, inverted.Validate())

	badDate := Range{Date: "2025-13-01", Start: MustClock(9, 0), End: MustClock(10, 0)}
	assert.Error(t, badDate.Validate())
}

func TestRangeOverlapsRequiresSameDate(t *testing.T) {
	a := Range{Date: MustDate("2025-10-20"), Start: MustClock(9, 0), End: MustClock(10, 0)}
	b := Range{Date: MustDate("2025-10-21"), Start: MustClock(9, 0), End: MustClock(10, 0)}
	assert.False(t, a.Overlaps(b))

	b.Date = a.Date
	assert.True(t, a.Overlaps(b))
}

func TestSortAndFormat(t *testing.T) {
	ranges := []Range{
		{Date: MustDate("2025-10-21"), Start: MustClock(8, 0), End: MustClock(9, 0)},
		{Date: MustDate("2025-10-20"), Start: MustClock(13, 0), End: MustClock(14, 0)},
		{Date: MustDate("2025-10-20"), Start: MustClock(9, 0), End: MustClock(10, 0)},
	}
	Sort(ranges)

	assert.Equal(t, "20.10.2025 09:00-10:00", ranges[0].Format())
	assert.Equal(t, "20.10.2025 13:00-14:00", ranges[1].Format())
	assert.Equal(t, "21.10.2025 08:00-09:00", ranges[2].Format())
}

func TestDateIn(t *testing.T) {
	loc := time.FixedZone("ICT", 7*60*60)
	got, err := MustDate("2025-10-20").In(loc, MustClock(9, 15))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 20, 9, 15, 0, 0, loc), got)
	assert.Equal(t, MustDate("2025-10-20"), DateOf(got))
}

func TestDateIn_DSTDay(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 30.03.2025 часы переводятся с 02:00 на 03:00
	got, err := MustDate("2025-03-30").In(loc, MustClock(9, 15))
	require.NoError(t, err)
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 15, got.Minute())
	assert.Equal(t, time.Date(2025, 3, 30, 9, 15, 0, 0, loc), got)
}
