package order

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
)

const numberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateNumber produces a human-legible order number candidate:
// ORD-<millis, base36>-<6 random base36 chars>. The random suffix gives
// collisions vanishingly small probability within a millisecond; global
// uniqueness is still enforced by the store, not by this function.
func GenerateNumber(now time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))

	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	suffix := make([]byte, len(b))
	for i, v := range b {
		suffix[i] = numberAlphabet[int(v)%len(numberAlphabet)]
	}

	return "ORD-" + ts + "-" + string(suffix)
}
