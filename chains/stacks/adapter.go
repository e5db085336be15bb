package stacks

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/dlc-link/dlc-observer/chains"
	"github.com/dlc-link/dlc-observer/chains/nonce"
	"github.com/dlc-link/dlc-observer/chains/stacks/clarity"
	"github.com/dlc-link/dlc-observer/config"
	"github.com/dlc-link/dlc-observer/metrics"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/dlc-link/dlc-observer/utils"
	"github.com/golang/groupcache/lru"
	"github.com/sisu-network/lib/log"
)

const (
	FnGetDlc              = "get-dlc"
	FnGetCallbackContract = "get-callback-contract"
	FnPostClose           = "post-close"

	ReasonConflictingNonce = "ConflictingNonceInMempool"

	MaxSendAttempt      = 3
	NotificationBufSize = 100
	SeenEventCacheSize  = 4096
)

var (
	RpcTimeOut        = 10 * time.Second
	SendRetryInterval = 3 * time.Second
	// A notification can arrive before the API indexed the tx.
	TxFetchAttempts = 3
	TxFetchInterval = time.Second
)

type stacksAdapter struct {
	chain     string
	cfg       config.Chain
	client    Client
	socket    Socket
	signer    Signer
	sequencer nonce.Sequencer

	contracts    *contractSet
	translator   *Translator
	pollInterval time.Duration

	seenLock *sync.Mutex
	seen     *lru.Cache
}

func NewAdapter(cfg config.Chain, client Client, socket Socket, signer Signer, sequencer nonce.Sequencer) (chains.Adapter, error) {
	if _, _, err := splitContractID(cfg.ContractAddress); err != nil {
		return nil, fmt.Errorf("chain %s: %w", cfg.Chain, err)
	}
	if _, err := clarity.ParsePrincipal(cfg.SenderAddress); err != nil {
		return nil, fmt.Errorf("chain %s: invalid sender address: %w", cfg.Chain, err)
	}

	pollInterval := time.Duration(cfg.ConfirmationPoll) * time.Second
	if pollInterval <= 0 {
		pollInterval = time.Duration(config.DefaultConfirmationPoll) * time.Second
	}

	contracts := newContractSet(cfg.ContractAddress)

	return &stacksAdapter{
		chain:        cfg.Chain,
		cfg:          cfg,
		client:       client,
		socket:       socket,
		signer:       signer,
		sequencer:    sequencer,
		contracts:    contracts,
		translator:   NewTranslator(cfg.Chain, cfg.EventSourceVersion, contracts.Allowed),
		pollInterval: pollInterval,
		seenLock:     &sync.Mutex{},
		seen:         lru.New(SeenEventCacheSize),
	}, nil
}

func (a *stacksAdapter) Name() string {
	return a.chain
}

func (a *stacksAdapter) StartListening(ctx context.Context, sink chan<- *types.Event) error {
	log.Infof("Starting stacks adapter for chain %s, contract %s, sender %s", a.chain, a.cfg.ContractAddress,
		a.cfg.SenderAddress)

	if err := a.socket.Subscribe(a.cfg.ContractAddress); err != nil {
		return err
	}

	rpcCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
	err := a.loadRegisteredContracts(rpcCtx)
	cancel()
	if err != nil {
		// Registrations seen from now on are still picked up.
		log.Errorf("Cannot load registered contracts on chain %s, err = %v", a.chain, err)
	}

	notifications := make(chan *Notification, NotificationBufSize)
	go a.socket.Run(ctx, notifications)
	go a.loop(ctx, notifications, sink)

	return nil
}

func (a *stacksAdapter) loop(ctx context.Context, notifications <-chan *Notification, sink chan<- *types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-notifications:
			a.handleNotification(ctx, n, sink)
		}
	}
}

func (a *stacksAdapter) handleNotification(ctx context.Context, n *Notification, sink chan<- *types.Event) {
	if !a.contracts.Allowed(n.Address) {
		log.Verbosef("Skipping tx %s of unknown address %s on chain %s", n.TxID, n.Address, a.chain)
		return
	}
	if n.TxStatus != "" && n.TxStatus != TxStatusSuccess {
		log.Verbosef("Skipping tx %s with status %s on chain %s", n.TxID, n.TxStatus, a.chain)
		return
	}

	tx, err := a.fetchTx(ctx, n.TxID)
	if err != nil {
		log.Errorf("Cannot fetch tx %s on chain %s, err = %v", n.TxID, a.chain, err)
		return
	}

	for i, ev := range a.translator.Translate(tx) {
		key := utils.EventKey(tx.TxID, i)
		if a.markSeen(key) {
			continue
		}

		metrics.EventsObserved.WithLabelValues(a.chain, ev.Kind.String()).Inc()
		log.Verbose("Observed event ", ev)

		switch ev.Kind {
		case types.EventContractRegistered:
			if ev.ContractAddress == a.cfg.ContractAddress {
				a.registerContract(ev.CallbackContract)
			}
			continue
		case types.EventContractUnregistered:
			if ev.ContractAddress == a.cfg.ContractAddress {
				a.unregisterContract(ev.CallbackContract)
			}
			continue
		}

		select {
		case sink <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// markSeen returns true when key was already processed.
func (a *stacksAdapter) markSeen(key string) bool {
	a.seenLock.Lock()
	defer a.seenLock.Unlock()

	if _, ok := a.seen.Get(key); ok {
		return true
	}
	a.seen.Add(key, true)

	return false
}

func (a *stacksAdapter) fetchTx(ctx context.Context, txID string) (*Transaction, error) {
	for attempt := 0; attempt < TxFetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(TxFetchInterval):
			}
		}

		rpcCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
		tx, err := a.client.GetTransaction(rpcCtx, txID)
		cancel()
		if err != nil {
			return nil, err
		}
		if tx != nil {
			return tx, nil
		}
	}

	return nil, fmt.Errorf("tx %s not indexed after %d attempts", txID, TxFetchAttempts)
}

func uuidArg(uuid string) (clarity.Buffer, error) {
	id, err := utils.UUIDToBytes32(uuid)
	if err != nil {
		return nil, err
	}

	return clarity.Buffer(id[:]), nil
}

func (a *stacksAdapter) readOnly(ctx context.Context, fn string, args ...clarity.Value) (clarity.Value, error) {
	rpcCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
	defer cancel()

	return a.client.CallReadOnly(rpcCtx, a.cfg.ContractAddress, fn, a.cfg.SenderAddress, args...)
}

func optionalUInt(t clarity.Tuple, key string) *big.Int {
	switch v := clarity.Unwrap(t[key]).(type) {
	case clarity.UInt:
		return v.Value
	case clarity.Int:
		return v.Value
	}
	return nil
}

func optionalString(t clarity.Tuple, key string) string {
	switch v := clarity.Unwrap(t[key]).(type) {
	case clarity.StringASCII:
		return string(v)
	case clarity.StringUTF8:
		return string(v)
	}
	return ""
}

func (a *stacksAdapter) CheckAndGetVault(ctx context.Context, uuid string) (*types.VaultView, error) {
	arg, err := uuidArg(uuid)
	if err != nil {
		return nil, err
	}

	v, err := a.readOnly(ctx, FnGetDlc, arg)
	if err != nil {
		return nil, err
	}

	tuple, ok := clarity.Unwrap(v).(clarity.Tuple)
	if !ok {
		return nil, nil
	}

	id, ok := tuple.Buffer("uuid")
	if !ok || !strings.EqualFold(id.Hex(), arg.Hex()) {
		return nil, nil
	}

	view := &types.VaultView{
		UUID:            utils.NormalizeUUID(id.Hex()),
		Chain:           a.chain,
		ContractAddress: a.cfg.ContractAddress,
		Outcome:         optionalUInt(tuple, "outcome"),
		FundingTxID:     optionalString(tuple, "funding-tx-id"),
		ClosingTxID:     optionalString(tuple, "closing-tx-id"),
	}
	view.Creator, _ = tuple.Principal("creator")
	view.CallbackContract, _ = tuple.Principal("protocol-contract")
	if status := optionalUInt(tuple, "status"); status != nil {
		view.Status = types.VaultStatus(status.Uint64())
	}
	if ts := optionalUInt(tuple, "timestamp"); ts != nil && ts.IsUint64() {
		view.Timestamp = ts.Uint64()
	}

	return view, nil
}

func (a *stacksAdapter) getCallbackContract(ctx context.Context, uuid string) (clarity.Value, error) {
	arg, err := uuidArg(uuid)
	if err != nil {
		return nil, err
	}

	v, err := a.readOnly(ctx, FnGetCallbackContract, arg)
	if err != nil {
		return nil, err
	}

	inner := clarity.Unwrap(v)
	if _, ok := clarity.PrincipalString(inner); !ok {
		return nil, types.ErrMissingCallbackContract
	}

	return inner, nil
}

func (a *stacksAdapter) PostCreateVault(ctx context.Context, ev *types.Event) (*types.Receipt, error) {
	arg, err := uuidArg(ev.UUID)
	if err != nil {
		return nil, err
	}

	creator, err := clarity.ParsePrincipal(ev.Creator)
	if err != nil {
		return nil, fmt.Errorf("invalid creator of %s: %w", ev.UUID, err)
	}

	var callback clarity.Value
	if ev.CallbackContract != "" {
		callback, err = clarity.ParsePrincipal(ev.CallbackContract)
	} else {
		callback, err = a.getCallbackContract(ctx, ev.UUID)
	}
	if err != nil {
		return nil, err
	}

	nonceValue := ev.Nonce
	if nonceValue == nil {
		nonceValue = big.NewInt(0)
	}

	return a.write(ctx, "post_create", FnPostCreateDlc, arg, clarity.NewUInt(ev.EmergencyRefundTime), creator,
		callback, clarity.UInt{Value: nonceValue})
}

func (a *stacksAdapter) SetVaultStatusFunded(ctx context.Context, uuid, btcTxID string) (*types.Receipt, error) {
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

	return a.statusWrite(ctx, "set_status_funded", FnSetStatusFunded, uuid, btcTxID)
}

func (a *stacksAdapter) SetVaultStatusPostClosed(ctx context.Context, uuid, btcTxID string) (*types.Receipt, error) {
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

	return a.statusWrite(ctx, "post_close", FnPostClose, uuid, btcTxID)
}

func (a *stacksAdapter) statusWrite(ctx context.Context, op, fn, uuid, btcTxID string) (*types.Receipt, error) {
	callback, err := a.getCallbackContract(ctx, uuid)
	if err != nil {
		metrics.Writes.WithLabelValues(a.chain, op, metrics.Result(err)).Inc()
		return nil, err
	}

	arg, err := uuidArg(uuid)
	if err != nil {
		return nil, err
	}

	return a.write(ctx, op, fn, arg, clarity.StringASCII(btcTxID), callback)
}

func (a *stacksAdapter) write(ctx context.Context, op, fn string, args ...clarity.Value) (*types.Receipt, error) {
	receipt, err := a.send(ctx, fn, args...)
	metrics.Writes.WithLabelValues(a.chain, op, metrics.Result(err)).Inc()

	return receipt, err
}

// nonceRejection returns the node's reason when a broadcast failed because of its nonce.
func nonceRejection(err error) (string, bool) {
	var broadcastErr *types.BroadcastError
	if errors.As(err, &broadcastErr) && strings.Contains(broadcastErr.Reason, "Nonce") {
		return broadcastErr.Reason, true
	}
	return "", false
}

func (a *stacksAdapter) send(ctx context.Context, fn string, args ...clarity.Value) (*types.Receipt, error) {
	encoded := make([]string, 0, len(args))
	for _, arg := range args {
		s, err := clarity.EncodeHex(arg)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, s)
	}

	var lastErr error
	for attempt := 0; attempt < MaxSendAttempt; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(SendRetryInterval):
			}
		}

		lease, err := a.sequencer.Lease(ctx, a.chain, a.cfg.SenderAddress, a.client.GetNonce)
		if err != nil {
			lastErr = err
			continue
		}

		rpcCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
		signed, err := a.signer.SignContractCall(rpcCtx, &ContractCallRequest{
			ContractID: a.cfg.ContractAddress,
			Function:   fn,
			Arguments:  encoded,
			Sender:     a.cfg.SenderAddress,
			Nonce:      lease.Value,
			FeeMargin:  FeeMargin,
		})
		cancel()
		if err != nil {
			lastErr = err
			log.Warnf("Cannot sign %s on chain %s, attempt %d, err = %v", fn, a.chain, attempt, err)
			continue
		}

		raw, err := signed.Bytes()
		if err != nil {
			return nil, fmt.Errorf("signer returned a malformed tx: %w", err)
		}

		rpcCtx, cancel = context.WithTimeout(ctx, RpcTimeOut)
		txID, err := a.client.Broadcast(rpcCtx, raw)
		cancel()
		if err != nil {
			lastErr = err
			if reason, ok := nonceRejection(err); ok {
				log.Warnf("Nonce %d rejected on chain %s, reason = %s", lease.Value, a.chain, reason)
				// A conflicting mempool tx holds the nonce, the next lease moves past it.
				if reason != ReasonConflictingNonce {
					a.sequencer.Reset(a.chain, a.cfg.SenderAddress)
				}
				continue
			}
			if types.IsWriteError(err) {
				return nil, err
			}
			log.Warnf("Failed to broadcast %s on chain %s, attempt %d, err = %v", fn, a.chain, attempt, err)
			continue
		}

		log.Verbose("Tx ", fn, " is dispatched on chain ", a.chain, " txId = ", txID, " nonce = ", lease.Value,
			" fee = ", signed.Fee)

		return a.waitConfirmed(ctx, txID)
	}

	return nil, fmt.Errorf("cannot send %s on chain %s after %d attempts: %w", fn, a.chain, MaxSendAttempt,
		lastErr)
}

func (a *stacksAdapter) waitConfirmed(ctx context.Context, txID string) (*types.Receipt, error) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		rpcCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
		tx, err := a.client.GetTransaction(rpcCtx, txID)
		cancel()

		switch {
		case err != nil:
			log.Verbosef("Cannot get tx %s on chain %s yet, err = %v", txID, a.chain, err)

		case tx == nil || tx.TxStatus == TxStatusPending:

		case tx.TxStatus == TxStatusSuccess:
			if !tx.IsUnanchored {
				return &types.Receipt{Chain: a.chain, TxHash: txID, BlockNumber: tx.BlockHeight}, nil
			}

		case strings.HasPrefix(tx.TxStatus, "abort"):
			reason := tx.TxStatus
			if tx.TxResult != nil {
				reason = reason + " " + tx.TxResult.Repr
			}
			return nil, types.NewRevertErr(a.chain, txID, reason)

		default:
			// dropped_* statuses
			return nil, types.NewBroadcastErr(a.chain, tx.TxStatus)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("tx %s on chain %s not confirmed: %w", txID, a.chain, ctx.Err())
		case <-ticker.C:
		}
	}
}
