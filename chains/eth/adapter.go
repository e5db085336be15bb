package eth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/dlc-link/dlc-observer/chains"
	"github.com/dlc-link/dlc-observer/chains/nonce"
	"github.com/dlc-link/dlc-observer/config"
	"github.com/dlc-link/dlc-observer/metrics"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/dlc-link/dlc-observer/utils"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sisu-network/lib/log"
)

const (
	MaxSendAttempt = 3
)

var (
	SendRetryInterval = time.Second * 3
)

// dlcView mirrors the outputs of getDLC.
type dlcView struct {
	Uuid             [32]byte
	Creator          common.Address
	ProtocolContract common.Address
	Outcome          *big.Int
	Status           uint8
	FundingTxId      string
	ClosingTxId      string
	Timestamp        *big.Int
}

type ethAdapter struct {
	chain     string
	cfg       config.Chain
	client    EthClient
	sequencer nonce.Sequencer
	contract  common.Address

	key  *ecdsa.PrivateKey
	from common.Address

	translator     *Translator
	watcher        *watcher
	gasCalculator  *gasCalculator
	receiptFetcher receiptFetcher

	signer ethtypes.Signer
	lock   *sync.Mutex
}

func NewAdapter(cfg config.Chain, client EthClient, sequencer nonce.Sequencer) (chains.Adapter, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %s for chain %s", cfg.ContractAddress, cfg.Chain)
	}

	key, from, err := utils.LoadPrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("chain %s: %w", cfg.Chain, err)
	}

	contract := common.HexToAddress(cfg.ContractAddress)
	translator := NewTranslator(cfg.Chain, contract, cfg.EventSourceVersion)

	return &ethAdapter{
		chain:          cfg.Chain,
		cfg:            cfg,
		client:         client,
		sequencer:      sequencer,
		contract:       contract,
		key:            key,
		from:           from,
		translator:     translator,
		watcher:        newWatcher(cfg.Chain, client, contract, translator),
		gasCalculator:  newGasCalculator(cfg.Chain, client, GasPriceUpdateInterval),
		receiptFetcher: newReceiptFetcher(client, cfg.Chain, time.Duration(cfg.ConfirmationPoll)*time.Second),
		lock:           &sync.Mutex{},
	}, nil
}

func (a *ethAdapter) Name() string {
	return a.chain
}

func (a *ethAdapter) StartListening(ctx context.Context, sink chan<- *types.Event) error {
	log.Infof("Starting eth adapter for chain %s, contract %s, sender %s", a.chain, a.contract.Hex(),
		a.from.Hex())

	a.client.Start()
	a.gasCalculator.Start()
	a.watcher.start(ctx, sink)

	return nil
}

func (a *ethAdapter) CheckAndGetVault(ctx context.Context, uuid string) (*types.VaultView, error) {
	id, err := utils.UUIDToBytes32(uuid)
	if err != nil {
		return nil, err
	}

	data, err := dlcManagerAbi.Pack(MethodGetDLC, id)
	if err != nil {
		return nil, err
	}

	rpcCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
	out, err := a.client.CallContract(rpcCtx, ethereum.CallMsg{From: a.from, To: &a.contract, Data: data}, nil)
	cancel()
	if err != nil {
		if isRevert(err) {
			// Missing records revert on some deployments.
			log.Verbosef("getDLC reverted for %s on chain %s: %v", uuid, a.chain, err)
			return nil, nil
		}
		return nil, err
	}

	if len(out) == 0 {
		return nil, nil
	}

	view := &dlcView{}
	if err := dlcManagerAbi.UnpackIntoInterface(view, MethodGetDLC, out); err != nil {
		return nil, fmt.Errorf("cannot decode getDLC result for %s: %w", uuid, err)
	}

	if view.Uuid != id {
		return nil, nil
	}

	ret := &types.VaultView{
		UUID:            utils.UUIDFromBytes(view.Uuid[:]),
		Chain:           a.chain,
		ContractAddress: a.contract.Hex(),
		Creator:         view.Creator.Hex(),
		Outcome:         view.Outcome,
		Status:          types.VaultStatus(view.Status),
		FundingTxID:     view.FundingTxId,
		ClosingTxID:     view.ClosingTxId,
	}
	if view.ProtocolContract != (common.Address{}) {
		ret.CallbackContract = view.ProtocolContract.Hex()
	}
	if view.Timestamp != nil && view.Timestamp.IsUint64() {
		ret.Timestamp = view.Timestamp.Uint64()
	}

	return ret, nil
}

func (a *ethAdapter) PostCreateVault(ctx context.Context, ev *types.Event) (*types.Receipt, error) {
	id, err := utils.UUIDToBytes32(ev.UUID)
	if err != nil {
		return nil, err
	}

	nonceValue := ev.Nonce
	if nonceValue == nil {
		nonceValue = big.NewInt(0)
	}

	return a.write(ctx, "post_create", MethodPostCreateDLC, id, common.HexToAddress(ev.Creator),
		common.HexToAddress(ev.Receiver), new(big.Int).SetUint64(ev.EmergencyRefundTime), nonceValue)
}

func (a *ethAdapter) SetVaultStatusFunded(ctx context.Context, uuid, btcTxID string) (*types.Receipt, error) {
	view, err := a.CheckAndGetVault(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, types.ErrVaultNotFound
	}
	if view.Status >= types.VaultStatusFunded {
		return nil, types.ErrAlreadyInState
	}

	id, _ := utils.UUIDToBytes32(uuid)
	return a.write(ctx, "set_status_funded", MethodSetStatusFunded, id, btcTxID)
}

func (a *ethAdapter) SetVaultStatusPostClosed(ctx context.Context, uuid, btcTxID string) (*types.Receipt, error) {
	view, err := a.CheckAndGetVault(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, types.ErrVaultNotFound
	}
	if view.Status == types.VaultStatusClosed {
		return nil, types.ErrAlreadyInState
	}

	id, _ := utils.UUIDToBytes32(uuid)
	return a.write(ctx, "post_close", MethodPostCloseDLC, id, btcTxID)
}

func (a *ethAdapter) write(ctx context.Context, op, method string, args ...interface{}) (*types.Receipt, error) {
	receipt, err := a.send(ctx, method, args...)
	metrics.Writes.WithLabelValues(a.chain, op, metrics.Result(err)).Inc()

	return receipt, err
}

func (a *ethAdapter) getSigner(ctx context.Context) (ethtypes.Signer, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.signer != nil {
		return a.signer, nil
	}

	rpcCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
	chainId, err := a.client.ChainID(rpcCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("cannot get chain id of %s: %w", a.chain, err)
	}

	a.signer = ethtypes.LatestSignerForChainID(chainId)
	return a.signer, nil
}

func (a *ethAdapter) readNonce(ctx context.Context, account string) (uint64, error) {
	rpcCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
	defer cancel()

	return a.client.PendingNonceAt(rpcCtx, common.HexToAddress(account))
}

func (a *ethAdapter) send(ctx context.Context, method string, args ...interface{}) (*types.Receipt, error) {
	data, err := dlcManagerAbi.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	signer, err := a.getSigner(ctx)
	if err != nil {
		return nil, err
	}

	msg := ethereum.CallMsg{From: a.from, To: &a.contract, Data: data}
	rpcCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
	estimated, err := a.client.EstimateGas(rpcCtx, msg)
	cancel()
	if err != nil {
		if isRevert(err) {
			return nil, types.NewRevertErr(a.chain, "", err.Error())
		}
		return nil, fmt.Errorf("cannot estimate gas for %s on %s: %w", method, a.chain, err)
	}
	gasLimit := a.gasCalculator.GetGasLimit(estimated)

	var lastErr error
	for attempt := 0; attempt < MaxSendAttempt; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(SendRetryInterval):
			}
		}

		// A new lease for every attempt: a failed broadcast may still have used the nonce.
		lease, err := a.sequencer.Lease(ctx, a.chain, a.from.Hex(), a.readNonce)
		if err != nil {
			lastErr = err
			continue
		}

		tx := ethtypes.NewTx(&ethtypes.LegacyTx{
			Nonce:    lease.Value,
			To:       &a.contract,
			Gas:      gasLimit,
			GasPrice: a.gasCalculator.GetGasPrice(),
			Data:     data,
		})
		signedTx, err := ethtypes.SignTx(tx, signer, a.key)
		if err != nil {
			return nil, err
		}

		rpcCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
		err = a.client.SendTransaction(rpcCtx, signedTx)
		cancel()

		if err != nil && !isAlreadyKnown(err) {
			lastErr = err
			if isNonceErr(err) {
				log.Warnf("Nonce %d rejected on chain %s, err = %v", lease.Value, a.chain, err)
				a.sequencer.Reset(a.chain, a.from.Hex())
				continue
			}
			if isTransportErr(err) || errors.Is(err, context.DeadlineExceeded) {
				log.Warnf("Failed to send %s on chain %s, attempt %d, err = %v", method, a.chain, attempt, err)
				continue
			}

			return nil, types.NewBroadcastErr(a.chain, err.Error())
		}

		log.Verbose("Tx ", method, " is dispatched on chain ", a.chain, " txHash = ", signedTx.Hash().Hex(),
			" nonce = ", lease.Value)

		return a.waitMined(ctx, signedTx.Hash())
	}

	return nil, fmt.Errorf("cannot send %s on chain %s after %d attempts: %w", method, a.chain,
		MaxSendAttempt, lastErr)
}

func (a *ethAdapter) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := a.receiptFetcher.waitReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("no receipt for tx %s on chain %s: %w", hash.Hex(), a.chain, err)
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, types.NewRevertErr(a.chain, hash.Hex(), "receipt status 0")
	}

	ret := &types.Receipt{
		Chain:  a.chain,
		TxHash: hash.Hex(),
	}
	if receipt.BlockNumber != nil {
		ret.BlockNumber = receipt.BlockNumber.Uint64()
	}

	return ret, nil
}

// Ethereum does not return error codes in its JSON RPC for these cases, so we rely on string
// matching.
func isAlreadyKnown(err error) bool {
	return strings.Contains(err.Error(), "already known")
}

func isNonceErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "nonce too low") || strings.Contains(msg, "replacement transaction underpriced")
}

func isRevert(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
