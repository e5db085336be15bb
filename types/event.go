package types

import (
	"fmt"
	"math/big"
	"time"
)

type EventKind int

const (
	EventCreated EventKind = iota
	// EventCreateConfirmed is emitted once the contract has accepted a created vault.
	EventCreateConfirmed
	EventFunded
	EventClosing
	EventClosed
	EventPriceRequested

	// Contract registration events never leave the stacks adapter.
	EventContractRegistered
	EventContractUnregistered
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventCreateConfirmed:
		return "create_confirmed"
	case EventFunded:
		return "funded"
	case EventClosing:
		return "closing"
	case EventClosed:
		return "closed"
	case EventPriceRequested:
		return "price_requested"
	case EventContractRegistered:
		return "contract_registered"
	case EventContractUnregistered:
		return "contract_unregistered"
	}

	return "unknown"
}

// Event is the chain independent form of a contract event.
type Event struct {
	Kind            EventKind
	UUID            string
	Chain           string
	ContractAddress string
	TxHash          string
	Timestamp       time.Time

	// Payload. Only the fields relevant to Kind are set.
	EmergencyRefundTime uint64
	Creator             string
	Receiver            string
	CallbackContract    string
	Nonce               *big.Int
	Outcome             *big.Int
	BtcTxID             string
	Caller              string
}

func (e *Event) String() string {
	return fmt.Sprintf("%s(uuid=%s, chain=%s, contract=%s, tx=%s)", e.Kind, e.UUID, e.Chain,
		e.ContractAddress, e.TxHash)
}
