package chat

import (
	"fmt"
	"hash/fnv"
	"time"
)

const sessionTimestampLayout = "20060102150405"

// GenerateSessionID derives "<YYYYMMDDHHMMSS>-<8 hex>" from the clock and the 32-bit
// FNV-1a hash of the first message. Ids are not checked for collisions.
func GenerateSessionID(now time.Time, message string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(message))
	return fmt.Sprintf("%s-%08x", now.Format(sessionTimestampLayout), h.Sum32())
}
