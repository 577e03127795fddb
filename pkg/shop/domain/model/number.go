package model

import (
	"crypto/rand"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	OrderNumberPrefix     = "ORD"
	InvoiceNumberPrefix   = "INV"
	DefaultTrackingPrefix = "PCDOS2"

	dateStampLayout      = "20060102"
	hexSuffixLength      = 8
	trackingSuffixLength = 7
	trackingAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NumberGenerator builds the human facing order, tracking and invoice numbers:
// PREFIX-YYYYMMDD-SUFFIX.
type NumberGenerator struct {
	trackingPrefix string
	location       *time.Location
	random         io.Reader
}

// NewNumberGenerator stamps order and tracking numbers with the date in loc.
// Invoice numbers are always stamped in UTC.
func NewNumberGenerator(trackingPrefix string, loc *time.Location, random io.Reader) *NumberGenerator {
	if trackingPrefix == "" {
		trackingPrefix = DefaultTrackingPrefix
	}
	if loc == nil {
		loc = time.UTC
	}
	if random == nil {
		random = rand.Reader
	}
	return &NumberGenerator{trackingPrefix: trackingPrefix, location: loc, random: random}
}

func (g *NumberGenerator) OrderNumber(now time.Time) (string, error) {
	suffix, err := g.hexSuffix()
	if err != nil {
		return "", err
	}
	return composeNumber(OrderNumberPrefix, now.In(g.location), suffix), nil
}

func (g *NumberGenerator) InvoiceNumber(now time.Time) (string, error) {
	suffix, err := g.hexSuffix()
	if err != nil {
		return "", err
	}
	return composeNumber(InvoiceNumberPrefix, now.UTC(), suffix), nil
}

func (g *NumberGenerator) TrackingNumber(now time.Time) (string, error) {
	suffix, err := g.alphanumericSuffix(trackingSuffixLength)
	if err != nil {
		return "", err
	}
	return composeNumber(g.trackingPrefix, now.In(g.location), suffix), nil
}

func (g *NumberGenerator) TrackingPrefix() string {
	return g.trackingPrefix
}

func (g *NumberGenerator) hexSuffix() (string, error) {
	id, err := uuid.NewRandomFromReader(g.random)
	if err != nil {
		return "", err
	}
	return id.String()[:hexSuffixLength], nil
}

// alphanumericSuffix draws uniformly from trackingAlphabet by rejecting bytes
// past the largest multiple of its length.
func (g *NumberGenerator) alphanumericSuffix(length int) (string, error) {
	const limit = 256 - 256%len(trackingAlphabet)

	var sb strings.Builder
	sb.Grow(length)
	buf := make([]byte, length)
	for sb.Len() < length {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			sb.WriteByte(trackingAlphabet[int(b)%len(trackingAlphabet)])
			if sb.Len() == length {
				break
			}
		}
	}
	return sb.String(), nil
}

func composeNumber(prefix string, at time.Time, suffix string) string {
	return prefix + "-" + at.Format(dateStampLayout) + "-" + suffix
}
