package payment

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

const trackingPrefix = "PARCEL"

// TrackingGenerator produces ids of the form PARCEL-YYYYMMDD-XXXXXX where the
// suffix is three random bytes in upper-case hex. Ids are customer facing, so
// the suffix comes from a cryptographic source.
type TrackingGenerator struct {
	now  func() time.Time
	rand io.Reader
}

func NewTrackingGenerator() *TrackingGenerator {
	return &TrackingGenerator{now: time.Now, rand: rand.Reader}
}

func (g *TrackingGenerator) Generate() (string, error) {
	var b [3]byte
	if _, err := io.ReadFull(g.rand, b[:]); err != nil {
		return "", fmt.Errorf("read tracking suffix: %w", err)
	}
	date := g.now().UTC().Format("20060102")
	return fmt.Sprintf("%s-%s-%s", trackingPrefix, date, strings.ToUpper(hex.EncodeToString(b[:]))), nil
}
