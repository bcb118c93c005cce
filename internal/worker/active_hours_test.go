package worker_test

import (
	"taskBot/internal/worker"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveHours_Contains(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before opening", at(8, 59, 59), false},
		{"opening inclusive", at(9, 0, 0), true},
		{"midday", at(14, 30, 0), true},
		{"closing inclusive", at(21, 0, 0), true},
		{"one second late", at(21, 0, 1), false},
		{"night", at(22, 0, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, utcHours.Contains(tt.at))
		})
	}
}

func TestActiveHours_UsesZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	h := worker.ActiveHours{From: 9 * time.Hour, To: 21 * time.Hour, Location: tokyo}

	// 01:00 UTC = 10:00 JST
	assert.True(t, h.Contains(time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)))
	// 13:00 UTC = 22:00 JST
	assert.False(t, h.Contains(time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)))
}

func TestParseActiveHours(t *testing.T) {
	h, err := worker.ParseActiveHours("08:30", "20:00:30", "UTC")
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour+30*time.Minute, h.From)
	assert.Equal(t, 20*time.Hour+30*time.Second, h.To)
	assert.Equal(t, time.UTC, h.Location)

	def, err := worker.ParseActiveHours("", "", "")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour, def.From)
	assert.Equal(t, 21*time.Hour, def.To)

	_, err = worker.ParseActiveHours("25:00", "", "")
	assert.Error(t, err)
	_, err = worker.ParseActiveHours("21:00", "09:00", "")
	assert.Error(t, err)
	_, err = worker.ParseActiveHours("", "", "Mars/Olympus")
	assert.Error(t, err)
}
