package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Fingerprint hashes the semantically relevant fields of a request. Reusing a
// key with a different fingerprint is rejected rather than replayed.
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

func CreateHoldFingerprint(eventID, zoneID string, quantity int) string {
	return Fingerprint("create-hold", eventID, zoneID, strconv.Itoa(quantity))
}

func ConfirmHoldFingerprint(holdID string) string {
	return Fingerprint("confirm-hold", holdID)
}
