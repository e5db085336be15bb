package utils

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// EventKey identifies one event of a transaction, used to drop duplicated notifications.
func EventKey(txID string, index int) string {
	return KeccakHash32Bytes([]byte(fmt.Sprintf("%s:%d", txID, index)))
}

// KeccakHash32Bytes returns the first 32 hex characters of the keccak256 hash of bz.
func KeccakHash32Bytes(bz []byte) string {
	hash := sha3.NewLegacyKeccak256()

	var buf []byte
	hash.Write(bz)
	buf = hash.Sum(nil)

	encoded := hex.EncodeToString(buf)
	if len(encoded) > 32 {
		encoded = encoded[:32]
	}

	return encoded
}
