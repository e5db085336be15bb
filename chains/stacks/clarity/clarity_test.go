package clarity

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

const closeEventHex = "0x0c000000061163616c6c6261636b2d636f6e7472616374061a2b19bade75a48768a5ffc142a86490303a95f4131973616d706c652d636f6e74726163742d6c6f616e2d76302d310663616c6c6572051a6d78de7b0625dfbfc16c3a8a5735f6dc3dc3f2ce0763726561746f72051a2b19bade75a48768a5ffc142a86490303a95f4130c6576656e742d736f757263650d00000016646c636c696e6b3a636c6f73652d646c633a76302d31076f7574636f6d65010000000000000000000000000586498f04757569640200000020a706e0be4bd16e81673201b6314d632d9f0a4681ebef9a641716e65623fda047"

func TestDecodePrintEvent(t *testing.T) {
	v, err := DecodeHex(closeEventHex)
	require.NoError(t, err)

	tuple, ok := v.(Tuple)
	require.True(t, ok)

	source, ok := tuple.String("event-source")
	require.True(t, ok)
	require.Equal(t, "dlclink:close-dlc:v0-1", source)

	outcome, ok := tuple.UInt("outcome")
	require.True(t, ok)
	require.Equal(t, big.NewInt(92686735), outcome)

	uuid, ok := tuple.Buffer("uuid")
	require.True(t, ok)
	require.Equal(t, "0xa706e0be4bd16e81673201b6314d632d9f0a4681ebef9a641716e65623fda047", uuid.Hex())

	creator, ok := tuple.Principal("creator")
	require.True(t, ok)
	require.Equal(t, "STNHKEPYEPJ8ET55ZZ0M5A34J0R3N5FM2CMMMAZ6", creator)

	caller, ok := tuple.Principal("caller")
	require.True(t, ok)
	require.Equal(t, "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", caller)

	callback, ok := tuple.Principal("callback-contract")
	require.True(t, ok)
	require.Equal(t, "STNHKEPYEPJ8ET55ZZ0M5A34J0R3N5FM2CMMMAZ6.sample-contract-loan-v0-1", callback)

	// Tuples are encoded with sorted keys, so re-encoding gives back the same bytes.
	encoded, err := EncodeHex(tuple)
	require.NoError(t, err)
	require.Equal(t, closeEventHex, encoded)
}

func TestDecode_Errors(t *testing.T) {
	_, err := DecodeHex("0x01000000")
	require.ErrorIs(t, err, ErrTruncated)

	_, err = DecodeHex("0x0c0000ffff")
	require.Error(t, err)

	_, err = DecodeHex("0x0303")
	require.Error(t, err)

	_, err = DecodeHex("0x99")
	require.Error(t, err)

	_, err = DecodeHex("zz")
	require.Error(t, err)
}

func TestEncode(t *testing.T) {
	bz, err := EncodeHex(NewUInt(1671011830913))
	require.NoError(t, err)
	require.Equal(t, "0x0100000000000000000000018510110c81", bz)

	bz, err = EncodeHex(Int{Value: big.NewInt(-1)})
	require.NoError(t, err)
	require.Equal(t, "0x00ffffffffffffffffffffffffffffffff", bz)

	v, err := DecodeHex(bz)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(-1), v.(Int).Value)

	bz, err = EncodeHex(ResponseOk{Value: Bool(true)})
	require.NoError(t, err)
	require.Equal(t, "0x0703", bz)

	_, err = Encode(UInt{Value: big.NewInt(-5)})
	require.Error(t, err)

	_, err = Encode(UInt{Value: new(big.Int).Lsh(big.NewInt(1), 128)})
	require.Error(t, err)
}

func TestUnwrap(t *testing.T) {
	require.Equal(t, Bool(true), Unwrap(ResponseOk{Value: Some{Value: Bool(true)}}))
	require.Nil(t, Unwrap(ResponseOk{Value: None{}}))
	require.Nil(t, Unwrap(ResponseErr{Value: NewUInt(1)}))
}

func TestAddress(t *testing.T) {
	var hash [20]byte
	copy(hash[:], []byte{0xa4, 0x6f, 0xf8, 0x88, 0x86, 0xc2, 0xef, 0x97, 0x62, 0xd9, 0x70, 0xb4, 0xd2,
		0xc6, 0x36, 0x78, 0x83, 0x5b, 0xd3, 0x9d})

	addr, err := EncodeAddress(AddressVersionMainnet, hash)
	require.NoError(t, err)
	require.Equal(t, "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", addr)

	version, decoded, err := DecodeAddress(addr)
	require.NoError(t, err)
	require.Equal(t, AddressVersionMainnet, version)
	require.Equal(t, hash, decoded)

	// Leading zero bytes survive the round trip.
	zeroHash := [20]byte{0, 0, 1, 2, 3}
	addr, err = EncodeAddress(AddressVersionTestnet, zeroHash)
	require.NoError(t, err)
	require.Equal(t, "ST00", addr[:4])
	_, decoded, err = DecodeAddress(addr)
	require.NoError(t, err)
	require.Equal(t, zeroHash, decoded)

	_, _, err = DecodeAddress("SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ8")
	require.ErrorIs(t, err, ErrBadChecksum)

	_, _, err = DecodeAddress("XP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7")
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestParsePrincipal(t *testing.T) {
	v, err := ParsePrincipal("'STNHKEPYEPJ8ET55ZZ0M5A34J0R3N5FM2CMMMAZ6.sample-contract-loan-v0-1")
	require.NoError(t, err)

	p, ok := v.(ContractPrincipal)
	require.True(t, ok)
	require.Equal(t, AddressVersionTestnet, p.Version)
	require.Equal(t, "sample-contract-loan-v0-1", p.Name)

	bz, err := EncodeHex(p)
	require.NoError(t, err)
	require.Equal(t, "0x061a2b19bade75a48768a5ffc142a86490303a95f4131973616d706c652d636f6e74726163742d6c6f616e2d76302d31", bz)

	v, err = ParsePrincipal("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM")
	require.NoError(t, err)
	_, ok = v.(StandardPrincipal)
	require.True(t, ok)

	_, err = ParsePrincipal("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM.")
	require.Error(t, err)
}
