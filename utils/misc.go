package utils

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// NormalizeUUID lower cases a hex vault id and makes sure it carries the 0x prefix.
func NormalizeUUID(uuid string) string {
	uuid = strings.ToLower(strings.TrimSpace(uuid))
	if !strings.HasPrefix(uuid, "0x") {
		uuid = "0x" + uuid
	}

	return uuid
}

func UUIDToBytes32(uuid string) ([32]byte, error) {
	var out [32]byte

	bz, err := hex.DecodeString(strings.TrimPrefix(NormalizeUUID(uuid), "0x"))
	if err != nil {
		return out, fmt.Errorf("invalid uuid %s: %w", uuid, err)
	}
	if len(bz) > 32 {
		return out, fmt.Errorf("uuid %s is longer than 32 bytes", uuid)
	}

	copy(out[32-len(bz):], bz)
	return out, nil
}

func UUIDFromBytes(bz []byte) string {
	return "0x" + hex.EncodeToString(bz)
}
