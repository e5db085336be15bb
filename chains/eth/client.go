package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sisu-network/lib/log"
)

const (
	RpcTimeOut = time.Second * 10
)

var (
	RpcCheckInterval = time.Minute * 30
)

type NoHealthyClientErr struct {
	chain string
}

func NewNoHealthyClientErr(chain string) error {
	return &NoHealthyClientErr{chain: chain}
}

func (e *NoHealthyClientErr) Error() string {
	return fmt.Sprintf("No healthy client for chain %s", e.chain)
}

// EthClient A wrapper around eth.client so that we can mock in watcher and adapter tests.
type EthClient interface {
	Start()
	Close()

	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- ethtypes.Log) (ethereum.Subscription, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

type defaultEthClient struct {
	chain string

	clients   []*ethclient.Client
	healthies []bool
	rpcs      []string

	initialRpcs []string
	lock        *sync.RWMutex
}

func NewEthClients(chain string, rpcs []string) EthClient {
	return &defaultEthClient{
		chain:       chain,
		initialRpcs: rpcs,
		lock:        &sync.RWMutex{},
	}
}

func (c *defaultEthClient) Start() {
	c.updateRpcs()
	go c.loopCheck()
}

func (c *defaultEthClient) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, client := range c.clients {
		client.Close()
	}
	c.clients, c.healthies, c.rpcs = nil, nil, nil
}

func (c *defaultEthClient) loopCheck() {
	for {
		time.Sleep(RpcCheckInterval)
		c.updateRpcs()
	}
}

func (c *defaultEthClient) updateRpcs() {
	c.lock.RLock()
	oldClients := c.clients
	c.lock.RUnlock()

	rpcs, clients, healthies := c.getRpcsHealthiness(c.initialRpcs)
	if len(clients) == 0 {
		log.Errorf("No rpc of chain %s is reachable", c.chain)
	}

	c.lock.Lock()
	for _, client := range oldClients {
		client.Close()
	}

	c.rpcs, c.clients, c.healthies = rpcs, clients, healthies
	c.lock.Unlock()
}

func (c *defaultEthClient) getRpcsHealthiness(allRpcs []string) ([]string, []*ethclient.Client, []bool) {
	clients := make([]*ethclient.Client, 0)
	rpcs := make([]string, 0)
	healthies := make([]bool, 0)

	for _, url := range allRpcs {
		ctx, cancel := context.WithTimeout(context.Background(), RpcTimeOut)
		client, err := ethclient.DialContext(ctx, url)
		if err == nil {
			_, err = client.BlockNumber(ctx)
			if err == nil {
				clients = append(clients, client)
				rpcs = append(rpcs, url)
				healthies = append(healthies, true)
			} else {
				client.Close()
			}
		}
		cancel()

		if err != nil {
			log.Warnf("Rpc %s of chain %s is not healthy, err = %v", url, c.chain, err)
		}
	}

	return rpcs, clients, healthies
}

func (c *defaultEthClient) shuffle() ([]*ethclient.Client, []bool, []string) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	n := len(c.clients)

	clients := make([]*ethclient.Client, n)
	healthy := make([]bool, n)
	rpcs := make([]string, n)

	copy(clients, c.clients)
	copy(healthy, c.healthies)
	copy(rpcs, c.rpcs)

	rand.Shuffle(n, func(x, y int) {
		clients[x], clients[y] = clients[y], clients[x]
		healthy[x], healthy[y] = healthy[y], healthy[x]
		rpcs[x], rpcs[y] = rpcs[y], rpcs[x]
	})

	return clients, healthy, rpcs
}

// getHealthyClient picks a random healthy client. wsOnly restricts the choice to websocket
// endpoints, which subscriptions need.
func (c *defaultEthClient) getHealthyClient(wsOnly bool) (*ethclient.Client, string) {
	pick := func() (*ethclient.Client, string) {
		clients, healthies, rpcs := c.shuffle()
		for i, healthy := range healthies {
			if healthy && (!wsOnly || strings.HasPrefix(rpcs[i], "ws")) {
				return clients[i], rpcs[i]
			}
		}
		return nil, ""
	}

	client, url := pick()
	if client == nil {
		c.updateRpcs()
		client, url = pick()
	}

	return client, url
}

func (c *defaultEthClient) markUnhealthy(url string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for i, rpc := range c.rpcs {
		if rpc == url {
			c.healthies[i] = false
		}
	}
}

// isTransportErr is true for errors that did not come back as a json-rpc error response.
func isTransportErr(err error) bool {
	if err == nil || errors.Is(err, ethereum.NotFound) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var rpcErr rpc.Error
	return !errors.As(err, &rpcErr)
}

func execute[T any](c *defaultEthClient, wsOnly bool, f func(client *ethclient.Client) (T, error)) (T, error) {
	var zero T

	client, url := c.getHealthyClient(wsOnly)
	if client == nil {
		return zero, NewNoHealthyClientErr(c.chain)
	}

	ret, err := f(client)
	if isTransportErr(err) {
		log.Warnf("Rpc %s of chain %s failed, marking it unhealthy. err = %v", url, c.chain, err)
		c.markUnhealthy(url)
	}

	return ret, err
}

func (c *defaultEthClient) ChainID(ctx context.Context) (*big.Int, error) {
	return execute(c, false, func(client *ethclient.Client) (*big.Int, error) {
		return client.ChainID(ctx)
	})
}

func (c *defaultEthClient) BlockNumber(ctx context.Context) (uint64, error) {
	return execute(c, false, func(client *ethclient.Client) (uint64, error) {
		return client.BlockNumber(ctx)
	})
}

func (c *defaultEthClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	return execute(c, false, func(client *ethclient.Client) ([]ethtypes.Log, error) {
		return client.FilterLogs(ctx, q)
	})
}

func (c *defaultEthClient) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- ethtypes.Log) (ethereum.Subscription, error) {
	return execute(c, true, func(client *ethclient.Client) (ethereum.Subscription, error) {
		return client.SubscribeFilterLogs(ctx, q, ch)
	})
}

func (c *defaultEthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return execute(c, false, func(client *ethclient.Client) ([]byte, error) {
		return client.CallContract(ctx, msg, blockNumber)
	})
}

func (c *defaultEthClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return execute(c, false, func(client *ethclient.Client) (uint64, error) {
		return client.EstimateGas(ctx, msg)
	})
}

func (c *defaultEthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return execute(c, false, func(client *ethclient.Client) (*big.Int, error) {
		return client.SuggestGasPrice(ctx)
	})
}

func (c *defaultEthClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return execute(c, false, func(client *ethclient.Client) (uint64, error) {
		return client.PendingNonceAt(ctx, account)
	})
}

func (c *defaultEthClient) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	_, err := execute(c, false, func(client *ethclient.Client) (struct{}, error) {
		return struct{}{}, client.SendTransaction(ctx, tx)
	})

	return err
}

func (c *defaultEthClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	return execute(c, false, func(client *ethclient.Client) (*ethtypes.Receipt, error) {
		return client.TransactionReceipt(ctx, txHash)
	})
}
