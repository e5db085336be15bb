package clarity

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strings"
)

type Type byte

const (
	TypeInt               Type = 0x00
	TypeUInt              Type = 0x01
	TypeBuffer            Type = 0x02
	TypeTrue              Type = 0x03
	TypeFalse             Type = 0x04
	TypeStandardPrincipal Type = 0x05
	TypeContractPrincipal Type = 0x06
	TypeResponseOk        Type = 0x07
	TypeResponseErr       Type = 0x08
	TypeNone              Type = 0x09
	TypeSome              Type = 0x0a
	TypeList              Type = 0x0b
	TypeTuple             Type = 0x0c
	TypeStringASCII       Type = 0x0d
	TypeStringUTF8        Type = 0x0e
)

// Value is a Clarity value in its consensus serialization model.
type Value interface {
	Type() Type
}

type Int struct{ Value *big.Int }

type UInt struct{ Value *big.Int }

type Buffer []byte

type Bool bool

type StandardPrincipal struct {
	Version byte
	Hash160 [20]byte
}

type ContractPrincipal struct {
	StandardPrincipal
	Name string
}

type ResponseOk struct{ Value Value }

type ResponseErr struct{ Value Value }

type None struct{}

type Some struct{ Value Value }

type List []Value

type Tuple map[string]Value

type StringASCII string

type StringUTF8 string

func (Int) Type() Type         { return TypeInt }
func (UInt) Type() Type        { return TypeUInt }
func (Buffer) Type() Type      { return TypeBuffer }
func (ResponseOk) Type() Type  { return TypeResponseOk }
func (ResponseErr) Type() Type { return TypeResponseErr }
func (None) Type() Type        { return TypeNone }
func (Some) Type() Type        { return TypeSome }
func (List) Type() Type        { return TypeList }
func (Tuple) Type() Type       { return TypeTuple }
func (StringASCII) Type() Type { return TypeStringASCII }
func (StringUTF8) Type() Type  { return TypeStringUTF8 }

func (StandardPrincipal) Type() Type { return TypeStandardPrincipal }
func (ContractPrincipal) Type() Type { return TypeContractPrincipal }

func (b Bool) Type() Type {
	if b {
		return TypeTrue
	}
	return TypeFalse
}

func NewUInt(v uint64) UInt {
	return UInt{Value: new(big.Int).SetUint64(v)}
}

func (b Buffer) Hex() string {
	return "0x" + hex.EncodeToString(b)
}

func (p StandardPrincipal) String() string {
	addr, err := EncodeAddress(p.Version, p.Hash160)
	if err != nil {
		return fmt.Sprintf("<invalid principal version %d>", p.Version)
	}
	return addr
}

func (p ContractPrincipal) String() string {
	return p.StandardPrincipal.String() + "." + p.Name
}

// ParsePrincipal accepts "SP..." and "SP....contract-name", with or without the leading quote
// Clarity uses in its repr.
func ParsePrincipal(s string) (Value, error) {
	s = strings.TrimPrefix(s, "'")
	addr, name, isContract := strings.Cut(s, ".")

	version, hash, err := DecodeAddress(addr)
	if err != nil {
		return nil, err
	}

	std := StandardPrincipal{Version: version, Hash160: hash}
	if !isContract {
		return std, nil
	}
	if len(name) == 0 || len(name) > 128 {
		return nil, fmt.Errorf("invalid contract name in %s", s)
	}

	return ContractPrincipal{StandardPrincipal: std, Name: name}, nil
}

// PrincipalString returns the address form of a standard or contract principal.
func PrincipalString(v Value) (string, bool) {
	switch p := v.(type) {
	case StandardPrincipal:
		return p.String(), true
	case ContractPrincipal:
		return p.String(), true
	}
	return "", false
}

func (t Tuple) sortedKeys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t Tuple) String(key string) (string, bool) {
	switch v := t[key].(type) {
	case StringASCII:
		return string(v), true
	case StringUTF8:
		return string(v), true
	}
	return "", false
}

func (t Tuple) UInt(key string) (*big.Int, bool) {
	switch v := t[key].(type) {
	case UInt:
		return v.Value, true
	case Int:
		return v.Value, true
	}
	return nil, false
}

func (t Tuple) Buffer(key string) (Buffer, bool) {
	v, ok := t[key].(Buffer)
	return v, ok
}

func (t Tuple) Principal(key string) (string, bool) {
	return PrincipalString(t[key])
}

// Unwrap strips (ok ...) and (some ...) wrappers. It returns nil for none and for err responses.
func Unwrap(v Value) Value {
	for {
		switch w := v.(type) {
		case ResponseOk:
			v = w.Value
		case Some:
			v = w.Value
		case None, ResponseErr:
			return nil
		default:
			return v
		}
	}
}
