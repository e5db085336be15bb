package stacks

const (
	TxStatusSuccess = "success"
	TxStatusPending = "pending"

	EventTypeContractLog = "smart_contract_log"
	TopicPrint           = "print"
)

type ClarityRepr struct {
	Hex  string `json:"hex"`
	Repr string `json:"repr"`
}

type ContractCall struct {
	ContractID   string `json:"contract_id"`
	FunctionName string `json:"function_name"`
}

type ContractLog struct {
	ContractID string      `json:"contract_id"`
	Topic      string      `json:"topic"`
	Value      ClarityRepr `json:"value"`
}

type TxEvent struct {
	EventIndex  int          `json:"event_index"`
	EventType   string       `json:"event_type"`
	TxID        string       `json:"tx_id"`
	ContractLog *ContractLog `json:"contract_log"`
}

// Transaction is the subset of the extended API transaction we read.
type Transaction struct {
	TxID          string        `json:"tx_id"`
	TxStatus      string        `json:"tx_status"`
	TxType        string        `json:"tx_type"`
	SenderAddress string        `json:"sender_address"`
	IsUnanchored  bool          `json:"is_unanchored"`
	BlockHeight   uint64        `json:"block_height"`
	BurnBlockTime int64         `json:"burn_block_time"`
	TxResult      *ClarityRepr  `json:"tx_result"`
	ContractCall  *ContractCall `json:"contract_call"`
	EventCount    int           `json:"event_count"`
	Events        []TxEvent     `json:"events"`
}

type NftHolding struct {
	AssetIdentifier string      `json:"asset_identifier"`
	Value           ClarityRepr `json:"value"`
	TxID            string      `json:"tx_id"`
}

type nftHoldingsResponse struct {
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	Total   int          `json:"total"`
	Results []NftHolding `json:"results"`
}

type readOnlyRequest struct {
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

type readOnlyResponse struct {
	Okay   bool   `json:"okay"`
	Result string `json:"result"`
	Cause  string `json:"cause"`
}

type accountResponse struct {
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type broadcastRejection struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
	TxID   string `json:"txid"`
}
