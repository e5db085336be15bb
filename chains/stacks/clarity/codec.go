package clarity

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const maxDepth = 32

var (
	ErrTruncated = errors.New("clarity: truncated value")

	twoTo128 = new(big.Int).Lsh(big.NewInt(1), 128)
)

// Encode serializes v in the consensus format used by contract call arguments and read-only
// calls.
func Encode(v Value) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := encode(buf, v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func EncodeHex(v Value) (string, error) {
	bz, err := Encode(v)
	if err != nil {
		return "", err
	}

	return "0x" + hex.EncodeToString(bz), nil
}

func writeUint32(buf *bytes.Buffer, n int) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	buf.Write(b[:])
}

func write128(buf *bytes.Buffer, v *big.Int, signed bool) error {
	if v == nil {
		v = new(big.Int)
	}

	n := new(big.Int).Set(v)
	if n.Sign() < 0 {
		if !signed {
			return fmt.Errorf("clarity: negative uint %s", v)
		}
		n.Add(n, twoTo128)
	}
	if n.BitLen() > 128 || (signed && v.Sign() >= 0 && v.BitLen() > 127) {
		return fmt.Errorf("clarity: %s overflows 128 bits", v)
	}

	var b [16]byte
	n.FillBytes(b[:])
	buf.Write(b[:])

	return nil
}

func encode(buf *bytes.Buffer, v Value) error {
	if v == nil {
		return errors.New("clarity: nil value")
	}

	buf.WriteByte(byte(v.Type()))

	switch x := v.(type) {
	case Int:
		return write128(buf, x.Value, true)

	case UInt:
		return write128(buf, x.Value, false)

	case Buffer:
		writeUint32(buf, len(x))
		buf.Write(x)

	case Bool, None:

	case StandardPrincipal:
		buf.WriteByte(x.Version)
		buf.Write(x.Hash160[:])

	case ContractPrincipal:
		buf.WriteByte(x.Version)
		buf.Write(x.Hash160[:])
		if len(x.Name) > 128 {
			return fmt.Errorf("clarity: contract name too long: %s", x.Name)
		}
		buf.WriteByte(byte(len(x.Name)))
		buf.WriteString(x.Name)

	case ResponseOk:
		return encode(buf, x.Value)

	case ResponseErr:
		return encode(buf, x.Value)

	case Some:
		return encode(buf, x.Value)

	case List:
		writeUint32(buf, len(x))
		for _, item := range x {
			if err := encode(buf, item); err != nil {
				return err
			}
		}

	case Tuple:
		writeUint32(buf, len(x))
		for _, k := range x.sortedKeys() {
			if len(k) > 128 {
				return fmt.Errorf("clarity: tuple key too long: %s", k)
			}
			buf.WriteByte(byte(len(k)))
			buf.WriteString(k)
			if err := encode(buf, x[k]); err != nil {
				return err
			}
		}

	case StringASCII:
		writeUint32(buf, len(x))
		buf.WriteString(string(x))

	case StringUTF8:
		writeUint32(buf, len(x))
		buf.WriteString(string(x))

	default:
		return fmt.Errorf("clarity: cannot encode %T", v)
	}

	return nil
}

// DecodeHex decodes a "0x" prefixed serialized value as returned by the Stacks API.
func DecodeHex(s string) (Value, error) {
	bz, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("clarity: %w", err)
	}

	return Decode(bz)
}

func Decode(bz []byte) (Value, error) {
	d := &decoder{buf: bz}
	v, err := d.value(0)
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.buf) {
		return nil, fmt.Errorf("clarity: %d trailing bytes", len(d.buf)-d.pos)
	}

	return v, nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, ErrTruncated
	}

	out := d.buf[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

func (d *decoder) readByte() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) length() (int, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}

	n := binary.BigEndian.Uint32(b)
	// No element is smaller than one byte.
	if int(n) > len(d.buf)-d.pos && n > 0 {
		return 0, ErrTruncated
	}
	return int(n), nil
}

func (d *decoder) standardPrincipal() (StandardPrincipal, error) {
	p := StandardPrincipal{}

	b, err := d.take(21)
	if err != nil {
		return p, err
	}
	p.Version = b[0]
	copy(p.Hash160[:], b[1:])

	return p, nil
}

func (d *decoder) value(depth int) (Value, error) {
	if depth > maxDepth {
		return nil, errors.New("clarity: value nested too deep")
	}

	t, err := d.readByte()
	if err != nil {
		return nil, err
	}

	switch Type(t) {
	case TypeInt, TypeUInt:
		b, err := d.take(16)
		if err != nil {
			return nil, err
		}
		n := new(big.Int).SetBytes(b)
		if Type(t) == TypeUInt {
			return UInt{Value: n}, nil
		}
		if b[0]&0x80 != 0 {
			n.Sub(n, twoTo128)
		}
		return Int{Value: n}, nil

	case TypeBuffer, TypeStringASCII, TypeStringUTF8:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		b, err := d.take(n)
		if err != nil {
			return nil, err
		}
		switch Type(t) {
		case TypeBuffer:
			return Buffer(append([]byte{}, b...)), nil
		case TypeStringASCII:
			return StringASCII(b), nil
		}
		return StringUTF8(b), nil

	case TypeTrue:
		return Bool(true), nil

	case TypeFalse:
		return Bool(false), nil

	case TypeStandardPrincipal:
		return d.standardPrincipal()

	case TypeContractPrincipal:
		std, err := d.standardPrincipal()
		if err != nil {
			return nil, err
		}
		n, err := d.readByte()
		if err != nil {
			return nil, err
		}
		name, err := d.take(int(n))
		if err != nil {
			return nil, err
		}
		return ContractPrincipal{StandardPrincipal: std, Name: string(name)}, nil

	case TypeResponseOk, TypeResponseErr, TypeSome:
		inner, err := d.value(depth + 1)
		if err != nil {
			return nil, err
		}
		switch Type(t) {
		case TypeResponseOk:
			return ResponseOk{Value: inner}, nil
		case TypeResponseErr:
			return ResponseErr{Value: inner}, nil
		}
		return Some{Value: inner}, nil

	case TypeNone:
		return None{}, nil

	case TypeList:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		list := make(List, 0, n)
		for i := 0; i < n; i++ {
			item, err := d.value(depth + 1)
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil

	case TypeTuple:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		tuple := make(Tuple, n)
		for i := 0; i < n; i++ {
			l, err := d.readByte()
			if err != nil {
				return nil, err
			}
			name, err := d.take(int(l))
			if err != nil {
				return nil, err
			}
			item, err := d.value(depth + 1)
			if err != nil {
				return nil, err
			}
			tuple[string(name)] = item
		}
		return tuple, nil
	}

	return nil, fmt.Errorf("clarity: unknown type prefix 0x%02x", t)
}
