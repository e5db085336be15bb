package eth

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sisu-network/lib/log"
)

type receiptFetcher interface {
	// waitReceipt blocks until the tx is mined or ctx is done.
	waitReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
}

type defaultReceiptFetcher struct {
	chain     string
	retryTime time.Duration

	client EthClient
}

func newReceiptFetcher(client EthClient, chain string, retryTime time.Duration) receiptFetcher {
	if retryTime <= 0 {
		retryTime = time.Second
	}

	return &defaultReceiptFetcher{
		chain:     chain,
		client:    client,
		retryTime: retryTime,
	}
}

func (rf *defaultReceiptFetcher) waitReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(rf.retryTime)
	defer ticker.Stop()

	for {
		rpcCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
		receipt, err := rf.client.TransactionReceipt(rpcCtx, hash)
		cancel()

		if err == nil && receipt != nil {
			return receipt, nil
		}

		if err != nil && !errors.Is(err, ethereum.NotFound) {
			log.Verbosef("Cannot get receipt for tx %s on chain %s, err = %v", hash, rf.chain, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
