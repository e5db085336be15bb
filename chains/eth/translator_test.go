package eth

import (
	"math/big"
	"testing"

	"github.com/dlc-link/dlc-observer/types"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testCreator  = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	testReceiver = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func testUUID(b byte) [32]byte {
	var id [32]byte
	id[31] = b
	return id
}

func makeLog(t *testing.T, name string, uuid [32]byte, args ...interface{}) ethtypes.Log {
	ev := dlcManagerAbi.Events[name]
	data, err := ev.Inputs.NonIndexed().Pack(args...)
	require.NoError(t, err)

	return ethtypes.Log{
		Address:     testContract,
		Topics:      []common.Hash{ev.ID, common.Hash(uuid)},
		Data:        data,
		TxHash:      common.HexToHash("0xaa"),
		BlockNumber: 10,
	}
}

func TestTranslate_CreateDLC(t *testing.T) {
	tr := NewTranslator("eth", testContract, "v1")

	l := makeLog(t, EventCreateDLC, testUUID(1), testCreator, testReceiver, big.NewInt(1677628800),
		big.NewInt(3), "dlclink:create-dlc:v1")
	events := tr.Translate(l)

	require.Len(t, events, 1)
	ev := events[0]
	require.Equal(t, types.EventCreated, ev.Kind)
	require.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", ev.UUID)
	require.Equal(t, "eth", ev.Chain)
	require.Equal(t, testContract.Hex(), ev.ContractAddress)
	require.Equal(t, testCreator.Hex(), ev.Creator)
	require.Equal(t, testReceiver.Hex(), ev.Receiver)
	require.Equal(t, uint64(1677628800), ev.EmergencyRefundTime)
	require.Equal(t, big.NewInt(3), ev.Nonce)
}

func TestTranslate_Kinds(t *testing.T) {
	tr := NewTranslator("eth", testContract, "v1")

	ev := tr.Translate(makeLog(t, EventPostCreateDLC, testUUID(1), testCreator, testReceiver,
		big.NewInt(10), big.NewInt(1), "dlclink:post-create-dlc:v1"))[0]
	require.Equal(t, types.EventCreateConfirmed, ev.Kind)

	ev = tr.Translate(makeLog(t, EventSetStatusFunded, testUUID(1), "btc-tx", testCreator,
		"dlclink:set-status-funded:v1"))[0]
	require.Equal(t, types.EventFunded, ev.Kind)
	require.Equal(t, "btc-tx", ev.BtcTxID)

	ev = tr.Translate(makeLog(t, EventCloseDLC, testUUID(1), big.NewInt(9268), testCreator,
		"dlclink:close-dlc:v1"))[0]
	require.Equal(t, types.EventClosing, ev.Kind)
	require.Equal(t, big.NewInt(9268), ev.Outcome)
	require.Equal(t, testCreator.Hex(), ev.Caller)

	ev = tr.Translate(makeLog(t, EventPostCloseDLC, testUUID(1), big.NewInt(9268), "closing-tx",
		testCreator, "dlclink:post-close-dlc:v1"))[0]
	require.Equal(t, types.EventClosed, ev.Kind)
	require.Equal(t, "closing-tx", ev.BtcTxID)

	ev = tr.Translate(makeLog(t, EventBTCPriceFetching, testUUID(1), testCreator,
		"dlclink:get-btc-price:v1"))[0]
	require.Equal(t, types.EventPriceRequested, ev.Kind)
}

func TestTranslate_Irrelevant(t *testing.T) {
	tr := NewTranslator("eth", testContract, "v1")
	l := makeLog(t, EventCloseDLC, testUUID(1), big.NewInt(1), testCreator, "dlclink:close-dlc:v1")

	// Other contract.
	other := l
	other.Address = testCreator
	require.Nil(t, tr.Translate(other))

	// Reorged out.
	removed := l
	removed.Removed = true
	require.Nil(t, tr.Translate(removed))

	// Another contract version.
	require.Nil(t, tr.Translate(makeLog(t, EventCloseDLC, testUUID(1), big.NewInt(1), testCreator,
		"dlclink:close-dlc:v0-1")))

	// Unknown topic.
	unknown := l
	unknown.Topics = []common.Hash{common.HexToHash("0x1234"), common.Hash(testUUID(1))}
	require.Nil(t, tr.Translate(unknown))

	// Malformed data.
	malformed := l
	malformed.Data = []byte{1, 2, 3}
	require.Nil(t, tr.Translate(malformed))
}
