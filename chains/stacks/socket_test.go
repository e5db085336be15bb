package stacks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestSocket_SubscribeAndNotify(t *testing.T) {
	requests := make(chan *rpcRequest, 10)
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		req := &rpcRequest{Params: &subscribeParams{}}
		if err := conn.ReadJSON(req); err != nil {
			return
		}
		requests <- req

		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  EventAddressTx,
			"params": map[string]interface{}{
				"address":   testManager,
				"tx_id":     "0x01",
				"tx_status": TxStatusSuccess,
			},
		})

		// Keep reading until the client goes away.
		for {
			req := &rpcRequest{Params: &subscribeParams{}}
			if err := conn.ReadJSON(req); err != nil {
				return
			}
			requests <- req
		}
	}))
	defer server.Close()

	s := NewSocket("stx", "ws"+strings.TrimPrefix(server.URL, "http"))
	require.NoError(t, s.Subscribe(testManager))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan *Notification, 10)
	go s.Run(ctx, out)

	select {
	case req := <-requests:
		require.Equal(t, MethodSubscribe, req.Method)
		require.Equal(t, testManager, req.Params.(*subscribeParams).Address)
	case <-time.After(3 * time.Second):
		t.Fatal("no subscribe request")
	}

	select {
	case n := <-out:
		require.Equal(t, &Notification{Address: testManager, TxID: "0x01", TxStatus: TxStatusSuccess}, n)
	case <-time.After(3 * time.Second):
		t.Fatal("no notification")
	}

	// Live connections get the unsubscribe right away.
	require.NoError(t, s.Unsubscribe(testManager))
	select {
	case req := <-requests:
		require.Equal(t, MethodUnsubscribe, req.Method)
	case <-time.After(3 * time.Second):
		t.Fatal("no unsubscribe request")
	}
}
