package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// contentIDLength is the number of hex digits kept by ContentID
const contentIDLength = 12

// ContentID derives a stable id from data, so the same input maps to the
// same job across runs
func ContentID(prefix string, data []byte) string {
	sum := sha256.Sum256(data)
	return prefix + "-" + hex.EncodeToString(sum[:])[:contentIDLength]
}
