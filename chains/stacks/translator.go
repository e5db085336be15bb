package stacks

import (
	"fmt"
	"sort"
	"strings"
	"time"

	chaincommon "github.com/dlc-link/dlc-observer/chains/common"
	"github.com/dlc-link/dlc-observer/chains/stacks/clarity"
	"github.com/dlc-link/dlc-observer/metrics"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/dlc-link/dlc-observer/utils"
	"github.com/sisu-network/lib/log"
)

const (
	FnCreateDlc          = "create-dlc"
	FnPostCreateDlc      = "post-create-dlc"
	FnSetStatusFunded    = "set-status-funded"
	FnCloseDlc           = "close-dlc"
	FnPostCloseDlc       = "post-close-dlc"
	FnGetBtcPrice        = "get-btc-price"
	FnRegisterContract   = "register-contract"
	FnUnregisterContract = "unregister-contract"
)

var eventKinds = map[string]types.EventKind{
	FnCreateDlc:          types.EventCreated,
	FnPostCreateDlc:      types.EventCreateConfirmed,
	FnSetStatusFunded:    types.EventFunded,
	FnCloseDlc:           types.EventClosing,
	FnPostCloseDlc:       types.EventClosed,
	FnGetBtcPrice:        types.EventPriceRequested,
	FnRegisterContract:   types.EventContractRegistered,
	FnUnregisterContract: types.EventContractUnregistered,
}

// Translator turns the print events of a confirmed stacks transaction into canonical events.
type Translator struct {
	chain   string
	version string
	allowed func(contractID string) bool
}

func NewTranslator(chain, version string, allowed func(contractID string) bool) *Translator {
	return &Translator{
		chain:   chain,
		version: version,
		allowed: allowed,
	}
}

func (t *Translator) drop(tx *Transaction, reason string) []*types.Event {
	log.Verbosef("Skipping stacks tx %s on chain %s: %s", tx.TxID, t.chain, reason)
	metrics.EventsDropped.WithLabelValues(t.chain, reason).Inc()
	return nil
}

func (t *Translator) Translate(tx *Transaction) []*types.Event {
	if tx.TxStatus != TxStatusSuccess {
		return t.drop(tx, "failed_tx")
	}
	if tx.IsUnanchored {
		return t.drop(tx, "microblock")
	}
	if tx.ContractCall == nil || !t.allowed(tx.ContractCall.ContractID) {
		return t.drop(tx, "unknown_contract")
	}

	logs := make([]TxEvent, 0, len(tx.Events))
	for _, e := range tx.Events {
		if e.EventType == EventTypeContractLog && e.ContractLog != nil && e.ContractLog.Topic == TopicPrint {
			logs = append(logs, e)
		}
	}
	if len(logs) == 0 {
		return t.drop(tx, "no_print")
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].EventIndex < logs[j].EventIndex })

	ts := time.Now()
	if tx.BurnBlockTime > 0 {
		ts = time.Unix(tx.BurnBlockTime, 0)
	}

	events := make([]*types.Event, 0)
	for _, e := range logs {
		// One bad print must not hide the others of the same tx.
		ev, err := t.decode(tx, e.ContractLog, ts)
		if err != nil {
			log.Errorf("Cannot decode print event %d of tx %s on chain %s, err = %v", e.EventIndex, tx.TxID,
				t.chain, err)
			metrics.EventsDropped.WithLabelValues(t.chain, "decode").Inc()
			continue
		}
		if ev != nil {
			events = append(events, ev)
		}
	}

	if len(events) == 0 {
		return nil
	}

	return events
}

func (t *Translator) decode(tx *Transaction, l *ContractLog, ts time.Time) (*types.Event, error) {
	if !t.allowed(l.ContractID) {
		return nil, nil
	}

	v, err := clarity.DecodeHex(l.Value.Hex)
	if err != nil {
		return nil, err
	}

	tuple, ok := v.(clarity.Tuple)
	if !ok {
		// Plain prints of protocol contracts.
		return nil, nil
	}

	source, ok := tuple.String("event-source")
	if !ok {
		return nil, nil
	}
	eventSource, err := chaincommon.ParseEventSource(source)
	if err != nil || !eventSource.Matches(t.version) {
		log.Verbosef("Ignoring print with event source %q in tx %s", source, tx.TxID)
		return nil, nil
	}

	kind, ok := eventKinds[eventSource.Function]
	if !ok {
		return nil, nil
	}

	ev := &types.Event{
		Kind:            kind,
		Chain:           t.chain,
		ContractAddress: l.ContractID,
		TxHash:          tx.TxID,
		Timestamp:       ts,
	}

	if kind == types.EventContractRegistered || kind == types.EventContractUnregistered {
		// The registered protocol contract travels as the callback contract.
		contract, ok := tuple.Principal("contract-address")
		if !ok {
			return nil, fmt.Errorf("%s print without contract-address", eventSource.Function)
		}
		ev.CallbackContract = contract
		return ev, nil
	}

	uuid, ok := tuple.Buffer("uuid")
	if !ok {
		return nil, fmt.Errorf("%s print without uuid", eventSource.Function)
	}
	ev.UUID = utils.NormalizeUUID(uuid.Hex())

	ev.Creator, _ = tuple.Principal("creator")
	ev.CallbackContract, _ = tuple.Principal("callback-contract")
	ev.Caller, _ = tuple.Principal("caller")
	ev.Receiver = ev.CallbackContract
	ev.Nonce, _ = tuple.UInt("nonce")
	ev.BtcTxID, _ = tuple.String("btc-tx-id")

	switch kind {
	case types.EventCreated, types.EventCreateConfirmed:
		refund, ok := tuple.UInt("emergency-refund-time")
		if !ok {
			return nil, fmt.Errorf("%s print without emergency-refund-time", eventSource.Function)
		}
		if !refund.IsUint64() {
			return nil, fmt.Errorf("emergency refund time %s overflows", refund)
		}
		ev.EmergencyRefundTime = refund.Uint64()

	case types.EventClosing, types.EventClosed:
		ev.Outcome, ok = tuple.UInt("outcome")
		if !ok && kind == types.EventClosing {
			return nil, fmt.Errorf("%s print without outcome", eventSource.Function)
		}
	}

	if strings.TrimSpace(ev.UUID) == "0x" {
		return nil, fmt.Errorf("%s print with an empty uuid", eventSource.Function)
	}

	return ev, nil
}
