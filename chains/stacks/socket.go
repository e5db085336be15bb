package stacks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	chaincommon "github.com/dlc-link/dlc-observer/chains/common"
	"github.com/dlc-link/dlc-observer/metrics"
	"github.com/gorilla/websocket"
	"github.com/sisu-network/lib/log"
	"go.uber.org/atomic"
)

const (
	MethodSubscribe    = "subscribe"
	MethodUnsubscribe  = "unsubscribe"
	EventAddressTx     = "address_tx_update"
	SocketWriteTimeout = 10 * time.Second
	SocketPingInterval = 30 * time.Second
)

// Notification tells that a tx touching a subscribed address changed status.
type Notification struct {
	Address  string
	TxID     string
	TxStatus string
}

type Socket interface {
	// Run keeps a connection open and pushes notifications to out until ctx is done.
	Run(ctx context.Context, out chan<- *Notification)
	// Subscribe and Unsubscribe are remembered across reconnects.
	Subscribe(address string) error
	Unsubscribe(address string) error
}

type rpcRequest struct {
	JsonRpc string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type subscribeParams struct {
	Event   string `json:"event"`
	Address string `json:"address"`
}

type rpcMessage struct {
	ID     *int64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type addressTxParams struct {
	Address  string `json:"address"`
	TxID     string `json:"tx_id"`
	TxStatus string `json:"tx_status"`
}

type wsSocket struct {
	chain  string
	url    string
	policy chaincommon.ReconnectPolicy
	dialer *websocket.Dialer

	lock      *sync.Mutex
	conn      *websocket.Conn
	addresses map[string]bool

	nextId    *atomic.Int64
	connected *atomic.Bool
}

func NewSocket(chain, url string) Socket {
	return &wsSocket{
		chain:     chain,
		url:       url,
		policy:    chaincommon.DefaultReconnectPolicy,
		dialer:    websocket.DefaultDialer,
		lock:      &sync.Mutex{},
		addresses: make(map[string]bool),
		nextId:    atomic.NewInt64(0),
		connected: atomic.NewBool(false),
	}
}

func (s *wsSocket) Run(ctx context.Context, out chan<- *Notification) {
	chaincommon.KeepAlive(ctx, s.chain, s.policy, func(ctx context.Context) error {
		return s.session(ctx, out)
	})
}

// send must be called with the lock held.
func (s *wsSocket) send(method, address string) error {
	if s.conn == nil {
		return nil
	}

	req := rpcRequest{
		JsonRpc: "2.0",
		ID:      s.nextId.Inc(),
		Method:  method,
		Params:  subscribeParams{Event: EventAddressTx, Address: address},
	}

	s.conn.SetWriteDeadline(time.Now().Add(SocketWriteTimeout))
	return s.conn.WriteJSON(req)
}

func (s *wsSocket) Subscribe(address string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.addresses[address] {
		return nil
	}
	s.addresses[address] = true

	log.Infof("Subscribing to %s on chain %s", address, s.chain)
	return s.send(MethodSubscribe, address)
}

func (s *wsSocket) Unsubscribe(address string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.addresses[address] {
		return nil
	}
	delete(s.addresses, address)

	log.Infof("Unsubscribing from %s on chain %s", address, s.chain)
	return s.send(MethodUnsubscribe, address)
}

func (s *wsSocket) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot dial %s: %w", s.url, err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.conn = conn
	for address := range s.addresses {
		if err := s.send(MethodSubscribe, address); err != nil {
			s.conn = nil
			conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

func (s *wsSocket) disconnect(conn *websocket.Conn) {
	s.lock.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.lock.Unlock()

	conn.Close()
	s.connected.Store(false)
}

func (s *wsSocket) session(ctx context.Context, out chan<- *Notification) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer s.disconnect(conn)

	s.connected.Store(true)
	metrics.SubscriptionStatus.WithLabelValues(s.chain).Set(1)
	log.Infof("Connected to stacks socket %s for chain %s", s.url, s.chain)

	done := make(chan struct{})
	defer close(done)
	go s.keepPinging(ctx, conn, done)

	for {
		msg := &rpcMessage{}
		if err := conn.ReadJSON(msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if msg.Error != nil {
			log.Warnf("Stacks socket error on chain %s: %d %s", s.chain, msg.Error.Code, msg.Error.Message)
			continue
		}
		if msg.Method != EventAddressTx {
			continue
		}

		params := &addressTxParams{}
		if err := json.Unmarshal(msg.Params, params); err != nil {
			log.Errorf("Cannot parse %s notification on chain %s, err = %v", EventAddressTx, s.chain, err)
			continue
		}

		select {
		case out <- &Notification{Address: params.Address, TxID: params.TxID, TxStatus: params.TxStatus}:
		case <-ctx.Done():
			return nil
		}
	}
}

// keepPinging also closes the connection when ctx is done so the blocked read returns.
func (s *wsSocket) keepPinging(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(SocketPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.Close()
			return
		case <-ticker.C:
			s.lock.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(SocketWriteTimeout))
			s.lock.Unlock()
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				log.Warnf("Ping to stacks socket failed on chain %s, err = %v", s.chain, err)
				conn.Close()
				return
			}
		}
	}
}
