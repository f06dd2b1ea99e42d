package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStreams(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantOK   bool
		expected Streams
	}{
		{
			name:   "keyed by type with data objects",
			raw:    `{"time":{"data":[0,1,2]},"watts":{"data":[100,200,300]},"heartrate":{"data":[120,121,122]}}`,
			wantOK: true,
			expected: Streams{
				Time:      []int64{0, 1, 2},
				Power:     []int64{100, 200, 300},
				Heartrate: []int64{120, 121, 122},
			},
		},
		{
			name:   "bare arrays and power key",
			raw:    `{"time":[0,1],"power":[250,260]}`,
			wantOK: true,
			expected: Streams{
				Time:      []int64{0, 1},
				Power:     []int64{250, 260},
				Heartrate: []int64{},
			},
		},
		{
			name:   "watts wins over power",
			raw:    `{"time":[0],"watts":[1],"power":[2]}`,
			wantOK: true,
			expected: Streams{
				Time:      []int64{0},
				Power:     []int64{1},
				Heartrate: []int64{},
			},
		},
		{
			name:   "list of stream objects",
			raw:    `[{"type":"time","data":[0,5]},{"type":"heartrate","data":[140,150]}]`,
			wantOK: true,
			expected: Streams{
				Time:      []int64{0, 5},
				Power:     []int64{},
				Heartrate: []int64{140, 150},
			},
		},
		{
			name:   "non-integer entries become zero",
			raw:    `{"time":[0,1,2],"watts":[100,null,"x"],"heartrate":[1.5,130]}`,
			wantOK: true,
			expected: Streams{
				Time:      []int64{0, 1, 2},
				Power:     []int64{100, 0, 0},
				Heartrate: []int64{0, 130},
			},
		},
		{
			name:   "missing time",
			raw:    `{"watts":[100]}`,
			wantOK: false,
		},
		{
			name:   "time is not an array",
			raw:    `{"time":"soon"}`,
			wantOK: false,
		},
		{
			name:   "not json",
			raw:    `nope`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStreams([]byte(tt.raw))
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestStreamsLastTime(t *testing.T) {
	_, ok := EmptyStreams().LastTime()
	assert.False(t, ok)

	last, ok := Streams{Time: []int64{0, 10, 3600}}.LastTime()
	require.True(t, ok)
	assert.Equal(t, int64(3600), last)
}
