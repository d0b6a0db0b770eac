package service

import (
	"crypto/rand"
	"fmt"
	"time"
)

// newID returns a unique identifier in the format <prefix>-XXXXXXXX.
func newID(prefix string) string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// fallback: use current nanoseconds
		return fmt.Sprintf("%s-%08X", prefix, time.Now().UnixNano()&0xFFFFFFFF)
	}
	return fmt.Sprintf("%s-%08X", prefix, b)
}
