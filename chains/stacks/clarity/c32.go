package clarity

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	AddressVersionMainnet = byte(22) // 'P'
	AddressVersionTestnet = byte(26) // 'T'
)

var (
	ErrInvalidAddress = errors.New("invalid stacks address")
	ErrBadChecksum    = errors.New("stacks address checksum mismatch")

	big32 = big.NewInt(32)
)

func c32Encode(data []byte) string {
	n := new(big.Int).SetBytes(data)
	digits := make([]byte, 0, len(data)*8/5+1)
	mod := new(big.Int)
	for n.Sign() > 0 {
		n.DivMod(n, big32, mod)
		digits = append(digits, c32Alphabet[mod.Int64()])
	}

	for _, b := range data {
		if b != 0 {
			break
		}
		digits = append(digits, c32Alphabet[0])
	}

	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}

	return string(digits)
}

func c32Normalize(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "O", "0")
	s = strings.ReplaceAll(s, "L", "1")
	return strings.ReplaceAll(s, "I", "1")
}

func c32Decode(s string) ([]byte, error) {
	s = c32Normalize(s)

	zeros := 0
	for zeros < len(s) && s[zeros] == c32Alphabet[0] {
		zeros++
	}

	n := new(big.Int)
	for i := zeros; i < len(s); i++ {
		idx := strings.IndexByte(c32Alphabet, s[i])
		if idx < 0 {
			return nil, fmt.Errorf("%w: bad character %q", ErrInvalidAddress, s[i])
		}
		n.Mul(n, big32)
		n.Add(n, big.NewInt(int64(idx)))
	}

	return append(make([]byte, zeros), n.Bytes()...), nil
}

func checksum(version byte, data []byte) []byte {
	first := sha256.Sum256(append([]byte{version}, data...))
	second := sha256.Sum256(first[:])
	return second[:4]
}

// C32CheckEncode is the version character followed by the c32 form of data and its checksum.
func C32CheckEncode(version byte, data []byte) (string, error) {
	if version >= 32 {
		return "", fmt.Errorf("%w: version %d", ErrInvalidAddress, version)
	}

	buf := append(append([]byte{}, data...), checksum(version, data)...)
	return string(c32Alphabet[version]) + c32Encode(buf), nil
}

func C32CheckDecode(s string) (byte, []byte, error) {
	if len(s) < 2 {
		return 0, nil, ErrInvalidAddress
	}

	s = c32Normalize(s)
	version := strings.IndexByte(c32Alphabet, s[0])
	if version < 0 {
		return 0, nil, ErrInvalidAddress
	}

	buf, err := c32Decode(s[1:])
	if err != nil {
		return 0, nil, err
	}
	if len(buf) < 4 {
		return 0, nil, ErrInvalidAddress
	}

	data, sum := buf[:len(buf)-4], buf[len(buf)-4:]
	if !bytes.Equal(sum, checksum(byte(version), data)) {
		return 0, nil, ErrBadChecksum
	}

	return byte(version), data, nil
}

// EncodeAddress renders a hash160 as an "S..." address.
func EncodeAddress(version byte, hash160 [20]byte) (string, error) {
	s, err := C32CheckEncode(version, hash160[:])
	if err != nil {
		return "", err
	}

	return "S" + s, nil
}

func DecodeAddress(addr string) (byte, [20]byte, error) {
	var hash [20]byte
	if len(addr) < 2 || (addr[0] != 'S' && addr[0] != 's') {
		return 0, hash, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}

	version, data, err := C32CheckDecode(addr[1:])
	if err != nil {
		return 0, hash, fmt.Errorf("%s: %w", addr, err)
	}
	if len(data) != 20 {
		return 0, hash, fmt.Errorf("%w: %s has a %d byte hash", ErrInvalidAddress, addr, len(data))
	}

	copy(hash[:], data)
	return version, hash, nil
}
