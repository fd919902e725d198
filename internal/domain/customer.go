package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizePhone strips formatting characters so the same number always
// produces the same dedupe key. Digits and a leading plus survive.
func NormalizePhone(phone string) string {
	trimmed := strings.TrimSpace(phone)
	var b strings.Builder
	b.Grow(len(trimmed))
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CustomerID derives the deterministic customer identifier for a phone
// number within a store. Concurrent submissions with the same new phone
// therefore target the same document instead of racing to create two.
func CustomerID(storeID, phone string) string {
	sum := sha256.Sum256([]byte(storeID + "\x00" + NormalizePhone(phone)))
	return "cus_" + hex.EncodeToString(sum[:])[:24]
}
