package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	chaincommon "github.com/dlc-link/dlc-observer/chains/common"
	"github.com/dlc-link/dlc-observer/metrics"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/groupcache/lru"
	"github.com/sisu-network/lib/log"
	"go.uber.org/atomic"
)

const (
	LogChannelSize   = 100
	SeenLogCacheSize = 4096
)

// watcher follows the manager contract logs over a websocket subscription. After a reconnect it
// replays the logs of the blocks it missed.
type watcher struct {
	chain      string
	client     EthClient
	contract   common.Address
	translator *Translator
	policy     chaincommon.ReconnectPolicy

	lastBlock *atomic.Uint64
	connected *atomic.Bool
	// only touched by the session goroutine
	seen *lru.Cache
}

func newWatcher(chain string, client EthClient, contract common.Address, translator *Translator) *watcher {
	return &watcher{
		chain:      chain,
		client:     client,
		contract:   contract,
		translator: translator,
		policy:     chaincommon.DefaultReconnectPolicy,
		lastBlock:  atomic.NewUint64(0),
		connected:  atomic.NewBool(false),
		seen:       lru.New(SeenLogCacheSize),
	}
}

func (w *watcher) start(ctx context.Context, sink chan<- *types.Event) {
	go chaincommon.KeepAlive(ctx, w.chain, w.policy, func(ctx context.Context) error {
		return w.session(ctx, sink)
	})
}

func (w *watcher) query() ethereum.FilterQuery {
	return ethereum.FilterQuery{Addresses: []common.Address{w.contract}}
}

func (w *watcher) session(ctx context.Context, sink chan<- *types.Event) error {
	logs := make(chan ethtypes.Log, LogChannelSize)
	sub, err := w.client.SubscribeFilterLogs(ctx, w.query(), logs)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	w.connected.Store(true)
	defer w.connected.Store(false)
	metrics.SubscriptionStatus.WithLabelValues(w.chain).Set(1)
	log.Infof("Subscribed to DLC manager %s on chain %s", w.contract.Hex(), w.chain)

	// Subscribed first so nothing falls between the replay and the live logs.
	if err := w.backfill(ctx, sink); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return err

		case l := <-logs:
			w.process(ctx, l, sink)
		}
	}
}

func (w *watcher) backfill(ctx context.Context, sink chan<- *types.Event) error {
	rpcCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
	latest, err := w.client.BlockNumber(rpcCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("cannot get block number: %w", err)
	}

	from := w.lastBlock.Load()
	if from == 0 {
		w.lastBlock.Store(latest)
		return nil
	}
	if latest <= from {
		return nil
	}

	q := w.query()
	q.FromBlock = new(big.Int).SetUint64(from)
	q.ToBlock = new(big.Int).SetUint64(latest)

	rpcCtx, cancel = context.WithTimeout(ctx, RpcTimeOut)
	logs, err := w.client.FilterLogs(rpcCtx, q)
	cancel()
	if err != nil {
		return fmt.Errorf("cannot replay logs from block %d to %d: %w", from, latest, err)
	}

	log.Infof("Replaying %d logs between blocks %d and %d on chain %s", len(logs), from, latest, w.chain)
	for _, l := range logs {
		w.process(ctx, l, sink)
	}

	return nil
}

func (w *watcher) process(ctx context.Context, l ethtypes.Log, sink chan<- *types.Event) {
	key := fmt.Sprintf("%s:%d:%t", l.TxHash.Hex(), l.Index, l.Removed)
	if _, ok := w.seen.Get(key); ok {
		return
	}
	w.seen.Add(key, true)

	if l.BlockNumber > w.lastBlock.Load() {
		w.lastBlock.Store(l.BlockNumber)
	}

	for _, ev := range w.translator.Translate(l) {
		log.Verbose("Observed event ", ev)
		metrics.EventsObserved.WithLabelValues(w.chain, ev.Kind.String()).Inc()

		select {
		case sink <- ev:
		case <-ctx.Done():
			return
		}
	}
}
