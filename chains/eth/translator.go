package eth

import (
	"fmt"
	"math/big"
	"time"

	chaincommon "github.com/dlc-link/dlc-observer/chains/common"
	"github.com/dlc-link/dlc-observer/metrics"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/dlc-link/dlc-observer/utils"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sisu-network/lib/log"
)

var eventKinds = map[string]types.EventKind{
	EventCreateDLC:        types.EventCreated,
	EventPostCreateDLC:    types.EventCreateConfirmed,
	EventSetStatusFunded:  types.EventFunded,
	EventCloseDLC:         types.EventClosing,
	EventPostCloseDLC:     types.EventClosed,
	EventBTCPriceFetching: types.EventPriceRequested,
}

// Translator decodes DLC manager logs into canonical events.
type Translator struct {
	chain    string
	contract common.Address
	version  string
}

func NewTranslator(chain string, contract common.Address, version string) *Translator {
	return &Translator{
		chain:    chain,
		contract: contract,
		version:  version,
	}
}

// Translate returns nil when the log is not relevant to the observer.
func (t *Translator) Translate(l ethtypes.Log) []*types.Event {
	if l.Removed {
		log.Verbosef("Dropping removed log %s/%d on chain %s", l.TxHash, l.Index, t.chain)
		metrics.EventsDropped.WithLabelValues(t.chain, "removed").Inc()
		return nil
	}

	if l.Address != t.contract {
		metrics.EventsDropped.WithLabelValues(t.chain, "unknown_contract").Inc()
		return nil
	}

	ev, err := t.decode(l)
	if err != nil {
		log.Errorf("Cannot decode log %s/%d on chain %s, err = %v", l.TxHash, l.Index, t.chain, err)
		metrics.EventsDropped.WithLabelValues(t.chain, "decode").Inc()
		return nil
	}
	if ev == nil {
		metrics.EventsDropped.WithLabelValues(t.chain, "irrelevant").Inc()
		return nil
	}

	return []*types.Event{ev}
}

func (t *Translator) decode(l ethtypes.Log) (*types.Event, error) {
	if len(l.Topics) == 0 {
		return nil, nil
	}

	abiEvent, err := dlcManagerAbi.EventByID(l.Topics[0])
	if err != nil {
		// Some other event of the contract.
		return nil, nil
	}

	kind, ok := eventKinds[abiEvent.Name]
	if !ok {
		return nil, nil
	}

	values := make(map[string]interface{})
	if err := dlcManagerAbi.UnpackIntoMap(values, abiEvent.Name, l.Data); err != nil {
		return nil, err
	}

	indexed := make(abi.Arguments, 0)
	for _, arg := range abiEvent.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(values, indexed, l.Topics[1:]); err != nil {
		return nil, err
	}

	source, _ := values["eventSource"].(string)
	eventSource, err := chaincommon.ParseEventSource(source)
	if err != nil {
		return nil, err
	}
	if !eventSource.Matches(t.version) {
		log.Verbosef("Ignoring %s with event source %s on chain %s", abiEvent.Name, source, t.chain)
		return nil, nil
	}

	uuid, ok := values["uuid"].([32]byte)
	if !ok {
		return nil, fmt.Errorf("event %s has no uuid", abiEvent.Name)
	}

	ev := &types.Event{
		Kind:            kind,
		UUID:            utils.UUIDFromBytes(uuid[:]),
		Chain:           t.chain,
		ContractAddress: l.Address.Hex(),
		TxHash:          l.TxHash.Hex(),
		Timestamp:       time.Now(),
	}

	switch kind {
	case types.EventCreated, types.EventCreateConfirmed:
		ev.Creator = addressValue(values, "creator")
		ev.Receiver = addressValue(values, "receiver")
		ev.Nonce = bigValue(values, "nonce")
		if refund := bigValue(values, "emergencyRefundTime"); refund != nil {
			if !refund.IsUint64() {
				return nil, fmt.Errorf("emergency refund time %s overflows", refund)
			}
			ev.EmergencyRefundTime = refund.Uint64()
		}

	case types.EventFunded:
		ev.BtcTxID, _ = values["btcTxId"].(string)
		ev.Caller = addressValue(values, "sender")

	case types.EventClosing:
		ev.Outcome = bigValue(values, "outcome")
		ev.Caller = addressValue(values, "sender")
		if ev.Outcome == nil {
			return nil, fmt.Errorf("close event for %s has no outcome", ev.UUID)
		}

	case types.EventClosed:
		ev.Outcome = bigValue(values, "outcome")
		ev.BtcTxID, _ = values["btcTxId"].(string)
		ev.Caller = addressValue(values, "sender")

	case types.EventPriceRequested:
		ev.Caller = addressValue(values, "caller")
	}

	return ev, nil
}

func addressValue(values map[string]interface{}, key string) string {
	if addr, ok := values[key].(common.Address); ok {
		return addr.Hex()
	}

	return ""
}

func bigValue(values map[string]interface{}, key string) *big.Int {
	if v, ok := values[key].(*big.Int); ok {
		return v
	}

	return nil
}
