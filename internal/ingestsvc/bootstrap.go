package ingestsvc

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	"github.com/solana-zh/arb-engine/internal/cache"
	"github.com/solana-zh/arb-engine/internal/pubkey"
	"github.com/solana-zh/arb-engine/internal/wire"
)

// RPCClient rate-limits calls against a Solana JSON-RPC endpoint, the
// same wrapping `pkg/sol/rpc_wrapper.go` applies around every RPC
// method: acquire a token before each call rather than let bootstrap
// discovery hammer a shared public endpoint.
type RPCClient struct {
	rpc     *rpc.Client
	limiter *rate.Limiter
}

// NewRPCClient builds a rate-limited client against endpoint, allowing
// requestsPerSecond sustained calls with a matching burst.
func NewRPCClient(endpoint string, requestsPerSecond int) *RPCClient {
	return &RPCClient{
		rpc:     rpc.New(endpoint),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

func (c *RPCClient) getProgramAccounts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.rpc.GetProgramAccountsWithOpts(ctx, programID, opts)
}

func (c *RPCClient) getSlot(ctx context.Context) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return c.rpc.GetSlot(ctx, rpc.CommitmentProcessed)
}

// LatestBlockhash fetches the recent blockhash the bundle builder signs
// our own two transactions against (spec.md §4.7 step 1). Exported
// (unlike the package-private helpers above) since cmd/arbd, not just
// Bootstrapper, needs to call it on a timer.
func (c *RPCClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return solana.Hash{}, err
	}
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentProcessed)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("ingestsvc: get latest blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

// getTransaction fetches the full wire bytes of sig and also strips its
// leading signatures, returning both: the full signed bytes are what a
// bundle splices in verbatim as the victim leg (spec.md §4.7), while
// the message-only bytes are what buildPendingTx's wire.ParseMessage
// call decodes a victim's swap instructions from.
func (c *RPCClient) getTransaction(ctx context.Context, sig solana.Signature) (full, message []byte, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	maxVersion := uint64(0)
	result, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentProcessed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, nil, err
	}
	if result == nil || result.Transaction == nil {
		return nil, nil, fmt.Errorf("ingestsvc: empty transaction result for %s", sig)
	}
	full = result.Transaction.GetBinary()
	_, message, err = wire.StripSignatures(full)
	if err != nil {
		return nil, nil, fmt.Errorf("ingestsvc: strip signatures for %s: %w", sig, err)
	}
	return full, message, nil
}

// MemcmpFilter narrows a program-account scan to accounts whose bytes
// match at a given offset (spec.md §6's account formats give the
// offsets; `pkg/protocol/raydium_cpmm.go`'s `Memcmp` filters on
// `Token0Mint`/`Token1Mint` is the pattern this generalizes).
type MemcmpFilter struct {
	Offset uint64
	Bytes  []byte
}

// ProgramFilter describes one venue's bootstrap scan: which program
// to enumerate, which Kind its accounts decode as, and the
// size/content filters the teacher uses to keep the scan narrow
// (`pkg/protocol/raydium_cpmm.go`'s `DataSize: 637` filter).
type ProgramFilter struct {
	ProgramID pubkey.Pubkey
	Kind      Kind
	DataSize  uint64 // 0 omits the size filter
	Memcmp    []MemcmpFilter
}

// Bootstrapper performs a one-shot getProgramAccounts sweep per
// configured venue to seed the cache before the canonical stream
// (websocket or otherwise) starts delivering incremental updates
// (spec.md §4.1's "bootstrap" source tag exists precisely for this).
type Bootstrapper struct {
	client  *RPCClient
	filters []ProgramFilter
}

// NewBootstrapper builds a Bootstrapper over the given venue filters.
func NewBootstrapper(client *RPCClient, filters []ProgramFilter) *Bootstrapper {
	return &Bootstrapper{client: client, filters: filters}
}

// Discover runs every configured filter and returns the accounts found
// as bootstrap-sourced RawUpdates. Every account in one Discover call
// is stamped with the same snapshot slot and write_version 0: the
// scan has no natural per-account write version, so writes are
// deliberately ordered as "earliest known" and rely on the cache's own
// (slot, write_version) rule to let any live update at or after this
// slot take precedence (spec.md §4.1's "new write applies iff
// (slot, write_version) > previous"; a genuine tie is a harmless
// idempotent no-op).
func (b *Bootstrapper) Discover(ctx context.Context) ([]RawUpdate, error) {
	slot, err := b.client.getSlot(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingestsvc: bootstrap snapshot slot: %w", err)
	}

	var out []RawUpdate
	for _, filter := range b.filters {
		opts := &rpc.GetProgramAccountsOpts{Filters: buildRPCFilters(filter)}
		accounts, err := b.client.getProgramAccounts(ctx, filter.ProgramID.ToSolana(), opts)
		if err != nil {
			return nil, fmt.Errorf("ingestsvc: bootstrap scan %s: %w", filter.Kind, err)
		}
		for _, acct := range accounts {
			if acct == nil || acct.Account == nil {
				continue
			}
			out = append(out, RawUpdate{
				Kind:         filter.Kind,
				Pubkey:       pubkey.FromSolana(acct.Pubkey),
				Owner:        filter.ProgramID,
				Slot:         slot,
				WriteVersion: 0,
				Data:         acct.Account.Data.GetBinary(),
				Source:       cache.SourceBootstrap,
			})
		}
	}
	return out, nil
}

func buildRPCFilters(filter ProgramFilter) []rpc.RPCFilter {
	var filters []rpc.RPCFilter
	if filter.DataSize > 0 {
		filters = append(filters, rpc.RPCFilter{DataSize: filter.DataSize})
	}
	for _, m := range filter.Memcmp {
		filters = append(filters, rpc.RPCFilter{
			Memcmp: &rpc.RPCFilterMemcmp{Offset: m.Offset, Bytes: m.Bytes},
		})
	}
	return filters
}
