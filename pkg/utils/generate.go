package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateBookingReference creates a reference like BKG-20250101-093000-K7QZ.
func GenerateBookingReference(now time.Time) string {
	suffix := make([]byte, 4)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceAlphabet))))
		if err != nil {
			// crypto/rand never fails on supported platforms; fall back to the clock
			n = big.NewInt(now.UnixNano() % int64(len(referenceAlphabet)))
		}
		suffix[i] = referenceAlphabet[n.Int64()]
	}

	return fmt.Sprintf("BKG-%s-%s-%s", now.Format("20060102"), now.Format("150405"), suffix)
}
