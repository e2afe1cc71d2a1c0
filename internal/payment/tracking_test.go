package payment

import (
	"bytes"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var trackingPattern = regexp.MustCompile(`^PARCEL-\d{8}-[0-9A-F]{6}$`)

func TestTrackingGeneratorFormat(t *testing.T) {
	g := NewTrackingGenerator()
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		id, err := g.Generate()
		require.NoError(t, err)
		assert.Regexp(t, trackingPattern, id)
		seen[id] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestTrackingGeneratorUsesUTCDate(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*60*60)
	g := &TrackingGenerator{
		// 01:30 local is still the previous day in UTC
		now:  func() time.Time { return time.Date(2024, 5, 2, 1, 30, 0, 0, nairobi) },
		rand: bytes.NewReader([]byte{0xab, 0x0c, 0xef}),
	}

	id, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "PARCEL-20240501-AB0CEF", id)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestTrackingGeneratorRandFailure(t *testing.T) {
	g := &TrackingGenerator{now: time.Now, rand: failingReader{}}

	_, err := g.Generate()
	assert.ErrorContains(t, err, "entropy exhausted")
}
