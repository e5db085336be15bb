package eth

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	EventCreateDLC        = "CreateDLC"
	EventPostCreateDLC    = "PostCreateDLC"
	EventSetStatusFunded  = "SetStatusFunded"
	EventCloseDLC         = "CloseDLC"
	EventPostCloseDLC     = "PostCloseDLC"
	EventBTCPriceFetching = "BTCPriceFetching"

	MethodGetDLC          = "getDLC"
	MethodPostCreateDLC   = "postCreateDLC"
	MethodSetStatusFunded = "setStatusFunded"
	MethodPostCloseDLC    = "postCloseDLC"
)

// DlcManagerABI is the subset of the DLC manager contract the observer talks to.
const DlcManagerABI = `[
  {"type":"event","name":"CreateDLC","anonymous":false,"inputs":[
    {"name":"uuid","type":"bytes32","indexed":true},
    {"name":"creator","type":"address","indexed":false},
    {"name":"receiver","type":"address","indexed":false},
    {"name":"emergencyRefundTime","type":"uint256","indexed":false},
    {"name":"nonce","type":"uint256","indexed":false},
    {"name":"eventSource","type":"string","indexed":false}]},
  {"type":"event","name":"PostCreateDLC","anonymous":false,"inputs":[
    {"name":"uuid","type":"bytes32","indexed":true},
    {"name":"creator","type":"address","indexed":false},
    {"name":"receiver","type":"address","indexed":false},
    {"name":"emergencyRefundTime","type":"uint256","indexed":false},
    {"name":"nonce","type":"uint256","indexed":false},
    {"name":"eventSource","type":"string","indexed":false}]},
  {"type":"event","name":"SetStatusFunded","anonymous":false,"inputs":[
    {"name":"uuid","type":"bytes32","indexed":true},
    {"name":"btcTxId","type":"string","indexed":false},
    {"name":"sender","type":"address","indexed":false},
    {"name":"eventSource","type":"string","indexed":false}]},
  {"type":"event","name":"CloseDLC","anonymous":false,"inputs":[
    {"name":"uuid","type":"bytes32","indexed":true},
    {"name":"outcome","type":"uint256","indexed":false},
    {"name":"sender","type":"address","indexed":false},
    {"name":"eventSource","type":"string","indexed":false}]},
  {"type":"event","name":"PostCloseDLC","anonymous":false,"inputs":[
    {"name":"uuid","type":"bytes32","indexed":true},
    {"name":"outcome","type":"uint256","indexed":false},
    {"name":"btcTxId","type":"string","indexed":false},
    {"name":"sender","type":"address","indexed":false},
    {"name":"eventSource","type":"string","indexed":false}]},
  {"type":"event","name":"BTCPriceFetching","anonymous":false,"inputs":[
    {"name":"uuid","type":"bytes32","indexed":true},
    {"name":"caller","type":"address","indexed":false},
    {"name":"eventSource","type":"string","indexed":false}]},
  {"type":"function","name":"getDLC","stateMutability":"view","inputs":[
    {"name":"_uuid","type":"bytes32"}],"outputs":[
    {"name":"uuid","type":"bytes32"},
    {"name":"creator","type":"address"},
    {"name":"protocolContract","type":"address"},
    {"name":"outcome","type":"uint256"},
    {"name":"status","type":"uint8"},
    {"name":"fundingTxId","type":"string"},
    {"name":"closingTxId","type":"string"},
    {"name":"timestamp","type":"uint256"}]},
  {"type":"function","name":"postCreateDLC","stateMutability":"nonpayable","inputs":[
    {"name":"_uuid","type":"bytes32"},
    {"name":"_creator","type":"address"},
    {"name":"_receiver","type":"address"},
    {"name":"_emergencyRefundTime","type":"uint256"},
    {"name":"_nonce","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"setStatusFunded","stateMutability":"nonpayable","inputs":[
    {"name":"_uuid","type":"bytes32"},
    {"name":"_btcTxId","type":"string"}],"outputs":[]},
  {"type":"function","name":"postCloseDLC","stateMutability":"nonpayable","inputs":[
    {"name":"_uuid","type":"bytes32"},
    {"name":"_btcTxId","type":"string"}],"outputs":[]}
]`

var dlcManagerAbi abi.ABI

func init() {
	var err error
	dlcManagerAbi, err = abi.JSON(strings.NewReader(DlcManagerABI))
	if err != nil {
		panic(err)
	}
}
