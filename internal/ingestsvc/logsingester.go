package ingestsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"

	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// LogsIngester watches a set of programs for new signatures via
// logsSubscribe, then fetches each transaction's message bytes over
// the rate-limited RPC client, emitting pending-tx Events (spec.md §3:
// "ingests a live stream of ... pending/confirmed transactions"). The
// teacher never subscribes to pending activity at all — it only reads
// settled pool state before building its own swaps — so this ingester
// has no direct teacher analogue; it follows WSIngester's own dial/
// subscribe/read-loop shape and Solana's documented logsSubscribe
// method.
type LogsIngester struct {
	endpoint  string
	programs  []pubkey.Pubkey
	rpcClient *RPCClient

	nextReqID atomic.Int64
}

// NewLogsIngester builds a LogsIngester watching programs for new
// signatures, resolving each one's message bytes through rpcClient.
func NewLogsIngester(endpoint string, programs []pubkey.Pubkey, rpcClient *RPCClient) *LogsIngester {
	return &LogsIngester{endpoint: endpoint, programs: programs, rpcClient: rpcClient}
}

type logsNotification struct {
	Params struct {
		Result struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Signature string `json:"signature"`
				Err       any    `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// Events dials the endpoint, subscribes to every configured program's
// logs, and for each new, non-failed signature fetches and emits its
// message bytes as a pending-tx Event. The returned channel closes
// when the connection drops.
func (l *LogsIngester) Events(ctx context.Context) (<-chan Event, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ingestsvc: dial %s: %w", l.endpoint, err)
	}

	for _, program := range l.programs {
		id := l.nextReqID.Add(1)
		req := map[string]any{
			"jsonrpc": "2.0",
			"id":      id,
			"method":  "logsSubscribe",
			"params": []any{
				map[string]any{"mentions": []string{program.String()}},
				map[string]any{"commitment": "processed"},
			},
		}
		if err := conn.WriteJSON(req); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ingestsvc: logsSubscribe %s: %w", program, err)
		}
	}

	out := make(chan Event, 256)
	var once sync.Once
	closeConn := func() { once.Do(func() { conn.Close(); close(out) }) }

	go func() {
		defer closeConn()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var note logsNotification
			if err := json.Unmarshal(raw, &note); err != nil {
				continue
			}
			sigStr := note.Params.Result.Value.Signature
			if sigStr == "" || note.Params.Result.Value.Err != nil {
				continue // skip subscribe acks and already-failed transactions
			}
			sig, err := solana.SignatureFromBase58(sigStr)
			if err != nil {
				continue
			}

			go l.fetchAndEmit(ctx, sig, note.Params.Result.Context.Slot, out)
		}
	}()

	return out, nil
}

// fetchAndEmit resolves one signature's message bytes and emits it as
// a pending-tx Event. Run off the read loop's goroutine so a slow RPC
// round trip never stalls draining the websocket.
func (l *LogsIngester) fetchAndEmit(ctx context.Context, sig solana.Signature, slot uint64, out chan<- Event) {
	full, message, err := l.rpcClient.getTransaction(ctx, sig)
	if err != nil {
		return // transaction not yet available, or fetch failed: drop it, the confirm path never needed it
	}
	raw := RawPendingTx{
		Slot:           slot,
		RawTransaction: full,
		RawMessage:     message,
		ReceivedAt:     time.Now().UnixNano(),
	}
	copy(raw.Signature[:], sig[:])
	select {
	case out <- Event{PendingTx: &raw}:
	case <-ctx.Done():
	}
}
