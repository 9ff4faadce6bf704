// Package xid mints unique identifiers for ledger entities. Ids embed the
// creation instant so they sort roughly chronologically, plus random bytes
// so concurrent writers never collide.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const randomBytes = 6

// New returns an id of the form "<prefix>-<unix-nanos>-<12 hex chars>".
func New(prefix string) string {
	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		// Entropy exhaustion is not survivable in any useful way; the
		// timestamp alone still distinguishes sequential single-writer ids.
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
