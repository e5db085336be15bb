package stacks

import (
	"math/big"
	"testing"

	"github.com/dlc-link/dlc-observer/chains/stacks/clarity"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/stretchr/testify/require"
)

const (
	testManager  = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM.dlc-manager-priced-v0-1"
	testProtocol = "STNHKEPYEPJ8ET55ZZ0M5A34J0R3N5FM2CMMMAZ6.sample-contract-loan-v0-1"
	testCreator  = "STNHKEPYEPJ8ET55ZZ0M5A34J0R3N5FM2CMMMAZ6"
	testSender   = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"
	testUUID     = "0xa706e0be4bd16e81673201b6314d632d9f0a4681ebef9a641716e65623fda047"

	priceEventHex = "0x0c000000030c6576656e742d736f757263650d00000020646c636c696e6b3a76616c69646174652d70726963652d646174613a76302d310570726963650100000000000000000000019e7bae96e004757569640200000020a706e0be4bd16e81673201b6314d632d9f0a4681ebef9a641716e65623fda047"
	statusEventHex = "0x0c00000002067374617475730d0000000e7072652d6c69717569646174656404757569640200000020a706e0be4bd16e81673201b6314d632d9f0a4681ebef9a641716e65623fda047"
	closeEventHex  = "0x0c000000061163616c6c6261636b2d636f6e7472616374061a2b19bade75a48768a5ffc142a86490303a95f4131973616d706c652d636f6e74726163742d6c6f616e2d76302d310663616c6c6572051a6d78de7b0625dfbfc16c3a8a5735f6dc3dc3f2ce0763726561746f72051a2b19bade75a48768a5ffc142a86490303a95f4130c6576656e742d736f757263650d00000016646c636c696e6b3a636c6f73652d646c633a76302d31076f7574636f6d65010000000000000000000000000586498f04757569640200000020a706e0be4bd16e81673201b6314d632d9f0a4681ebef9a641716e65623fda047"
)

func printEvent(index int, contract, hex string) TxEvent {
	return TxEvent{
		EventIndex: index,
		EventType:  EventTypeContractLog,
		ContractLog: &ContractLog{
			ContractID: contract,
			Topic:      TopicPrint,
			Value:      ClarityRepr{Hex: hex},
		},
	}
}

func encodeTuple(t *testing.T, tuple clarity.Tuple) string {
	s, err := clarity.EncodeHex(tuple)
	require.NoError(t, err)
	return s
}

func mustPrincipal(t *testing.T, s string) clarity.Value {
	v, err := clarity.ParsePrincipal(s)
	require.NoError(t, err)
	return v
}

func uuidBuffer(t *testing.T) clarity.Buffer {
	v, err := clarity.DecodeHex("0x0200000020a706e0be4bd16e81673201b6314d632d9f0a4681ebef9a641716e65623fda047")
	require.NoError(t, err)
	return v.(clarity.Buffer)
}

func testTx(events ...TxEvent) *Transaction {
	return &Transaction{
		TxID:          "0x6a83ab7fc412427ea899d907ae4e3735e95e552fbc2f4b336110dd8278eb33f0",
		TxStatus:      TxStatusSuccess,
		TxType:        "contract_call",
		BlockHeight:   127,
		BurnBlockTime: 1671011861,
		ContractCall:  &ContractCall{ContractID: testManager, FunctionName: "close-dlc"},
		EventCount:    len(events),
		Events:        events,
	}
}

func newTestTranslator() *Translator {
	return NewTranslator("stx", "v0-1", func(contractID string) bool {
		return contractID == testManager
	})
}

func TestTranslate_CloseDlc(t *testing.T) {
	tx := testTx(
		printEvent(2, testManager, closeEventHex),
		printEvent(0, testManager, priceEventHex),
		printEvent(1, testProtocol, statusEventHex),
	)

	events := newTestTranslator().Translate(tx)
	require.Len(t, events, 1)

	ev := events[0]
	require.Equal(t, types.EventClosing, ev.Kind)
	require.Equal(t, testUUID, ev.UUID)
	require.Equal(t, "stx", ev.Chain)
	require.Equal(t, testManager, ev.ContractAddress)
	require.Equal(t, tx.TxID, ev.TxHash)
	require.Equal(t, big.NewInt(92686735), ev.Outcome)
	require.Equal(t, testCreator, ev.Creator)
	require.Equal(t, testSender, ev.Caller)
	require.Equal(t, testProtocol, ev.CallbackContract)
	require.Equal(t, int64(1671011861), ev.Timestamp.Unix())
}

func TestTranslate_DecodeFailureIsIsolated(t *testing.T) {
	tx := testTx(
		printEvent(0, testManager, "0x0c0000"),
		printEvent(1, testManager, closeEventHex),
	)

	events := newTestTranslator().Translate(tx)
	require.Len(t, events, 1)
	require.Equal(t, types.EventClosing, events[0].Kind)
}

func TestTranslate_CreateAndRegister(t *testing.T) {
	create := encodeTuple(t, clarity.Tuple{
		"event-source":          clarity.StringASCII("dlclink:create-dlc:v0-1"),
		"uuid":                  uuidBuffer(t),
		"emergency-refund-time": clarity.NewUInt(1677628800),
		"creator":               mustPrincipal(t, testCreator),
		"callback-contract":     mustPrincipal(t, testProtocol),
		"nonce":                 clarity.NewUInt(4),
	})
	register := encodeTuple(t, clarity.Tuple{
		"event-source":     clarity.StringASCII("dlclink:register-contract:v0-1"),
		"contract-address": mustPrincipal(t, testProtocol),
	})

	events := newTestTranslator().Translate(testTx(printEvent(0, testManager, create),
		printEvent(1, testManager, register)))
	require.Len(t, events, 2)

	require.Equal(t, types.EventCreated, events[0].Kind)
	require.Equal(t, uint64(1677628800), events[0].EmergencyRefundTime)
	require.Equal(t, big.NewInt(4), events[0].Nonce)
	require.Equal(t, testProtocol, events[0].CallbackContract)

	require.Equal(t, types.EventContractRegistered, events[1].Kind)
	require.Equal(t, testProtocol, events[1].CallbackContract)
}

func TestTranslate_Rejected(t *testing.T) {
	tr := newTestTranslator()

	failed := testTx(printEvent(0, testManager, closeEventHex))
	failed.TxStatus = "abort_by_response"
	require.Nil(t, tr.Translate(failed))

	microblock := testTx(printEvent(0, testManager, closeEventHex))
	microblock.IsUnanchored = true
	require.Nil(t, tr.Translate(microblock))

	unknown := testTx(printEvent(0, testManager, closeEventHex))
	unknown.ContractCall.ContractID = testProtocol
	require.Nil(t, tr.Translate(unknown))

	require.Nil(t, tr.Translate(testTx()))

	// Wrong contract version.
	other := NewTranslator("stx", "v1", func(string) bool { return true })
	require.Nil(t, other.Translate(testTx(printEvent(0, testManager, closeEventHex))))
}
