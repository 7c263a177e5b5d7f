package ingestsvc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/mr-tron/base58"

	"github.com/solana-zh/arb-engine/internal/cache"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// Subscription maps one account (or every account owned by one
// program) to the Kind its bytes should be decoded as, and — for
// TickArray/BinArray accounts — the owning pool plus array key.
type Subscription struct {
	Method    string // "accountSubscribe" or "programSubscribe"
	Account   pubkey.Pubkey
	Program   pubkey.Pubkey // the account's owning program
	Kind      Kind
	PoolOwner pubkey.Pubkey
	TickStart int32
	BinIndex  int64

	// Memcmp narrows a programSubscribe to accounts matching a byte
	// pattern (typically the Kind's discriminator at offset 0), the
	// same filter Bootstrapper.Discover applies to its one-shot scan.
	// Ignored for accountSubscribe.
	Memcmp []MemcmpFilter
}

// WSIngester is the reference Ingester: a JSON-RPC pubsub client over
// a single websocket connection, subscribing to every configured
// account/program and decoding notifications by the Kind its
// subscription was registered under. Out of scope per the hot-path
// boundary (spec.md §1, §5) but wired as the default transport the
// rest of the package compiles and tests against.
type WSIngester struct {
	endpoint string
	subs     []Subscription

	nextReqID        atomic.Int64
	nextWriteVersion atomic.Uint64
}

// NewWSIngester builds a WSIngester that subscribes to every entry in
// subs once connected.
func NewWSIngester(endpoint string, subs []Subscription) *WSIngester {
	return &WSIngester{endpoint: endpoint, subs: subs}
}

// wsNotification is the minimal shape of a Solana account/program
// notification this ingester understands; every other field the
// real RPC node sends is ignored.
type wsNotification struct {
	Method string `json:"method"`
	Params struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value struct {
				// accountSubscribe's value IS the account; programSubscribe
				// wraps it one level deeper under "account" and adds
				// "pubkey" since the address isn't implied by the
				// subscription. Both shapes are unmarshaled into this one
				// struct; accountFields is read directly for
				// accountSubscribe and via Account for programSubscribe.
				accountFields
				Pubkey  string        `json:"pubkey"`
				Account accountFields `json:"account"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

type accountFields struct {
	Data     [2]string `json:"data"` // [base64, "base64"]
	Owner    string    `json:"owner"`
	Lamports uint64    `json:"lamports"`
}

type wsSubscribeResult struct {
	ID     int64 `json:"id"`
	Result int64 `json:"result"`
}

// Events dials the endpoint, issues one subscribe request per
// configured Subscription, and translates notifications into Events.
// The returned channel is closed when the connection drops; the
// Worker reconnects by calling Events again.
func (w *WSIngester) Events(ctx context.Context) (<-chan Event, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ingestsvc: dial %s: %w", w.endpoint, err)
	}

	subByReqID := make(map[int64]Subscription, len(w.subs))
	for _, sub := range w.subs {
		id := w.nextReqID.Add(1)
		subByReqID[id] = sub
		if err := conn.WriteJSON(subscribeRequest(id, sub)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ingestsvc: subscribe %s: %w", sub.Account, err)
		}
	}

	out := make(chan Event, 256)
	var once sync.Once
	closeConn := func() { once.Do(func() { conn.Close(); close(out) }) }

	go func() {
		defer closeConn()
		subByWSID := make(map[int64]Subscription, len(w.subs))
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

			if ack, ok := parseSubscribeAck(raw); ok {
				// A subscribe ack correlates a request id with the
				// server-assigned subscription id used on every later
				// notification for it.
				for reqID, sub := range subByReqID {
					if reqID == ack.ID {
						subByWSID[ack.Result] = sub
						delete(subByReqID, reqID)
						break
					}
				}
				continue
			}

			var note wsNotification
			if err := json.Unmarshal(raw, &note); err != nil {
				continue
			}
			sub, ok := subByWSID[note.Params.Subscription]
			if !ok {
				continue
			}

			fields := note.Params.Result.Value.accountFields
			pk := sub.Account
			if sub.Method == "programSubscribe" {
				fields = note.Params.Result.Value.Account
				decoded, err := pubkey.FromBase58(note.Params.Result.Value.Pubkey)
				if err != nil {
					continue
				}
				pk = decoded
			}

			data, err := base64.StdEncoding.DecodeString(fields.Data[0])
			if err != nil {
				continue
			}

			update := RawUpdate{
				Kind:   sub.Kind,
				Pubkey: pk,
				Owner:  sub.Program,
				Slot:   note.Params.Result.Context.Slot,
				// The account-notification wire format carries no
				// write_version of its own (unlike a Geyser-plugin
				// feed); this ingester assigns one from a single
				// connection-wide counter instead — sufficient for
				// the cache's (slot, write_version) ordering rule
				// since every notification arrives in wire order over
				// one socket.
				WriteVersion: w.nextWriteVersion.Add(1),
				Data:         data,
				Source:       cache.SourceCanonical,
				PoolOwner:    sub.PoolOwner,
				TickStart:    sub.TickStart,
				BinIndex:     sub.BinIndex,
			}
			select {
			case out <- Event{Update: &update}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// subscribeRequest builds the jsonrpc request for sub: accountSubscribe
// addresses a single account, programSubscribe addresses every account
// owned by a program (used for venues whose accounts — tick arrays,
// bin arrays — aren't known ahead of discovery).
func subscribeRequest(id int64, sub Subscription) map[string]any {
	if sub.Method == "programSubscribe" {
		opts := map[string]any{"encoding": "base64", "commitment": "processed"}
		if len(sub.Memcmp) > 0 {
			filters := make([]any, len(sub.Memcmp))
			for i, m := range sub.Memcmp {
				filters[i] = map[string]any{
					"memcmp": map[string]any{
						"offset": m.Offset,
						"bytes":  base58.Encode(m.Bytes),
					},
				}
			}
			opts["filters"] = filters
		}
		return map[string]any{
			"jsonrpc": "2.0",
			"id":      id,
			"method":  sub.Method,
			"params":  []any{sub.Program.String(), opts},
		}
	}
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  sub.Method,
		"params": []any{
			sub.Account.String(),
			map[string]any{"encoding": "base64", "commitment": "processed"},
		},
	}
}

func parseSubscribeAck(raw []byte) (wsSubscribeResult, bool) {
	var ack wsSubscribeResult
	if err := json.Unmarshal(raw, &ack); err != nil {
		return wsSubscribeResult{}, false
	}
	if ack.ID == 0 && ack.Result == 0 {
		return wsSubscribeResult{}, false
	}
	return ack, true
}
