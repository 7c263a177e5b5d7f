package submit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	jitorpc "github.com/jito-labs/jito-go-rpc"
)

// JitoTransport adapts a Jito block-engine endpoint to the Transport
// interface, grounded on the teacher's JitoClient: SendBundle for
// submission, GetBundleStatuses polled on an interval in place of a
// genuine push stream (the jito-go-rpc client exposes no subscription
// call, only point-in-time status lookups).
type JitoTransport struct {
	client     *jitorpc.JitoJsonRpcClient
	pollEvery  time.Duration
	tracked    chan string // bundle ids handed off by SubmitBundle, consumed by the poll loop
}

// NewJitoTransport wraps an already-constructed jito-go-rpc client.
func NewJitoTransport(client *jitorpc.JitoJsonRpcClient, pollEvery time.Duration) *JitoTransport {
	if pollEvery <= 0 {
		pollEvery = time.Second
	}
	return &JitoTransport{client: client, pollEvery: pollEvery, tracked: make(chan string, 1024)}
}

// SubmitBundle base64-encodes each transaction (the wire format Jito's
// sendBundle RPC expects, per the teacher's encodeTransaction/
// SendTxWithJito) and hands the resulting id to the poll loop.
func (t *JitoTransport) SubmitBundle(ctx context.Context, txs [][]byte) (string, error) {
	encoded := make([]string, len(txs))
	for i, tx := range txs {
		encoded[i] = base64.StdEncoding.EncodeToString(tx)
	}

	raw, err := t.client.SendBundle([][]string{encoded})
	if err != nil {
		return "", fmt.Errorf("send bundle: %w", err)
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", fmt.Errorf("decode bundle id: %w", err)
	}

	select {
	case t.tracked <- id:
	default: // tracking queue full: the poll loop will simply never see this id again
	}
	return id, nil
}

// Results starts a polling loop over every bundle id submitted so far,
// translating Jito's confirmation ladder (processed < confirmed <
// finalized) onto our accepted/processed/finalized states, and Jito's
// per-bundle error field onto rejected. The returned channel is closed
// when ctx is cancelled.
func (t *JitoTransport) Results(ctx context.Context) (<-chan ResultEvent, error) {
	out := make(chan ResultEvent, 256)
	go t.pollLoop(ctx, out)
	return out, nil
}

func (t *JitoTransport) pollLoop(ctx context.Context, out chan<- ResultEvent) {
	defer close(out)

	ids := make(map[string]bool)
	ticker := time.NewTicker(t.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-t.tracked:
			ids[id] = true
		case <-ticker.C:
			t.pollOnce(ctx, ids, out)
		}
	}
}

func (t *JitoTransport) pollOnce(ctx context.Context, ids map[string]bool, out chan<- ResultEvent) {
	if len(ids) == 0 {
		return
	}
	batch := make([]string, 0, len(ids))
	for id := range ids {
		batch = append(batch, id)
	}

	statuses, err := t.client.GetBundleStatuses(batch)
	if err != nil {
		return // transient polling error: next tick retries
	}

	// The response carries no bundle-id field of its own (the teacher's
	// CheckBundleStatus reads the same shape); request and response
	// order match because the batch was built from a single map range
	// just above and GetBundleStatuses preserves request order.
	for i, status := range statuses.Value {
		if i >= len(batch) {
			break
		}
		id := batch[i]

		state, terminal := jitoState(status.ConfirmationStatus, status.Err.Ok)
		select {
		case out <- ResultEvent{BundleID: id, State: state}:
		case <-ctx.Done():
			return
		}
		if terminal {
			delete(ids, id)
		}
	}
}

// jitoState maps a Jito confirmation status onto our state ladder.
// "processed" is Jito's earliest commitment level, so it maps to our
// "accepted"; "confirmed" maps to "processed"; "finalized" is terminal,
// split into finalized/rejected by the bundle's on-chain error field
// (teacher's CheckBundleStatus reads ConfirmationStatus and Err.Ok the
// same way).
func jitoState(confirmationStatus string, errOk interface{}) (BundleState, bool) {
	switch confirmationStatus {
	case "processed":
		return StateAccepted, false
	case "confirmed":
		return StateProcessed, false
	case "finalized":
		if errOk == nil {
			return StateFinalized, true
		}
		return StateRejected, true
	default:
		return StateDropped, true
	}
}
