// Command arbd is the engine's daemon entry point: it wires the
// ingest worker, lifecycle cache, pending queue, opportunity
// detectors, bundle builder, and Jito submitter described across
// spec.md's modules into one running process (spec.md §5's role
// split: one ingest-worker goroutine, one hot-path pair, one
// submitter-result goroutine, all sharing the cache/queue by
// reference, never by copy).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	jitorpc "github.com/jito-labs/jito-go-rpc"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/solana-zh/arb-engine/internal/cache"
	"github.com/solana-zh/arb-engine/internal/config"
	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/ingestsvc"
	"github.com/solana-zh/arb-engine/internal/logging"
	"github.com/solana-zh/arb-engine/internal/metrics"
	"github.com/solana-zh/arb-engine/internal/pending"
	"github.com/solana-zh/arb-engine/internal/pubkey"
	"github.com/solana-zh/arb-engine/internal/submit"
)

// poolRefreshInterval is how often the live subscription set (vault
// and config dependencies of newly discovered pools) and the
// lifecycle freeze/activate pass are recomputed.
const poolRefreshInterval = 5 * time.Second

// arrayRescanInterval drives the periodic program-wide tick/bin-array
// scan in place of a per-address live subscription (no PDA derivation
// for either account type is grounded anywhere in the corpus — see
// DESIGN.md).
const arrayRescanInterval = 10 * time.Second

// blockhashRefreshInterval matches Solana's ~150-block blockhash
// validity window with a wide safety margin.
const blockhashRefreshInterval = 20 * time.Second

// expireInterval drives pending.Queue.Expire (spec.md §4.6).
const expireInterval = 5 * time.Second

// rpcRequestsPerSecond bounds the rate-limited RPC client, the same
// shared budget pkg/sol/rpc_wrapper.go's wrapper enforces against a
// single upstream endpoint.
const rpcRequestsPerSecond = 20

func main() {
	cfg := config.FromEnv()

	var (
		dryRun       = flag.Bool("dry-run", cfg.DryRun, "build and count bundles but never submit them")
		rpcEndpoint  = flag.String("rpc", cfg.RPCEndpoint, "Solana JSON-RPC HTTP endpoint")
		wsEndpoint   = flag.String("ws", cfg.WSEndpoint, "Solana JSON-RPC websocket endpoint")
		jitoEndpoint = flag.String("jito", cfg.JitoEndpoint, "Jito block-engine endpoint")
		metricsAddr  = flag.String("metrics-addr", cfg.MetricsAddr, "address to serve /metrics and /status on")
	)
	flag.Parse()
	cfg.DryRun = *dryRun
	cfg.RPCEndpoint = *rpcEndpoint
	cfg.WSEndpoint = *wsEndpoint
	cfg.JitoEndpoint = *jitoEndpoint
	cfg.MetricsAddr = *metricsAddr

	log, err := logging.New(cfg.DryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arbd: build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	c := cache.New()
	c.OnRollback(func(previousHighSlot, observedSlot uint64) {
		m.SlotRollbacks.Inc()
		log.Warn("ingest slot rollback", zap.Uint64("previous_high_slot", previousHighSlot), zap.Uint64("observed_slot", observedSlot))
	})

	pendingQueue := pending.New(pending.Config{
		MaxSize:         cfg.PendingQueue.MaxSize,
		ExpirationSlots: cfg.PendingQueue.ExpirationSlots,
		ExpirationMS:    cfg.PendingQueue.ExpirationMS,
	})

	rpcClient := ingestsvc.NewRPCClient(cfg.RPCEndpoint, rpcRequestsPerSecond)

	logf := func(format string, args ...any) { log.Sugar().Infof(format, args...) }

	bootstrapper := ingestsvc.NewBootstrapper(rpcClient, bootstrapFilters(cfg.Programs, logf))
	updates, err := bootstrapper.Discover(ctx)
	if err != nil {
		log.Warn("initial bootstrap scan failed", zap.Error(err))
	}
	bootstrapWorker := ingestsvc.New(c, pendingQueue, nil, m, log)
	bootstrapWorker.Bootstrap(updates)
	log.Info("bootstrap complete", zap.Int("accounts", len(updates)))

	tipAccount, jitoClient, err := setupJito(cfg.JitoEndpoint)
	if err != nil {
		log.Warn("jito setup failed, running with a submit-disabled transport", zap.Error(err))
	}

	var transport submit.Transport
	if jitoClient != nil {
		transport = submit.NewJitoTransport(jitoClient, time.Second)
	} else {
		transport = noopTransport{}
	}
	submitter := submit.New(transport, submit.Config{
		MaxRetries:       cfg.Submitter.MaxRetries,
		AttemptTimeoutMS: cfg.Submitter.AttemptTimeout.Milliseconds(),
		DryRun:           cfg.DryRun,
	})
	go submitter.Run(ctx)

	runner := newHotpathRunner(c, pendingQueue, cfg, log, m, submitter, tipAccount)

	if cfg.SignerPrivateKey != "" {
		key, err := solana.PrivateKeyFromBase58(cfg.SignerPrivateKey)
		if err != nil {
			log.Warn("invalid signer private key, running observe-only", zap.Error(err))
		} else {
			runner.setSigner(key)
		}
	}
	if cfg.Programs.RaydiumCPMM != "" && cfg.Programs.RaydiumCPMMAuthority != "" {
		programID, err1 := pubkey.FromBase58(cfg.Programs.RaydiumCPMM)
		authority, err2 := pubkey.FromBase58(cfg.Programs.RaydiumCPMMAuthority)
		if err1 == nil && err2 == nil {
			runner.setRaydiumCPMM(programID.ToSolana(), authority.ToSolana())
		} else {
			log.Warn("invalid raydium cpmm program/authority, back-run legs against it will be skipped")
		}
	}

	go runBlockhashRefresh(ctx, rpcClient, runner, log)
	go runLiveIngest(ctx, cfg, c, pendingQueue, m, log)
	go runArrayRescan(ctx, cfg, rpcClient, c, pendingQueue, m, log)
	go runLifecycleSweep(ctx, c)
	go runExpireSweep(ctx, c, pendingQueue)
	go runner.runSpreadScan(ctx)
	go runner.runBackrun(ctx)

	metricsSrv := newMetricsServer(cfg.MetricsAddr, reg, m, submitter.Counters())
	go runMetricsServer(ctx, metricsSrv, log)

	log.Info("arbd started", zap.Bool("dry_run", cfg.DryRun), zap.String("metrics_addr", cfg.MetricsAddr))
	<-ctx.Done()
	log.Info("arbd shutting down")
}

// setupJito mirrors the teacher's NewJitoClient sequence: build a
// jito-go-rpc client, ask it for a random tip account, and parse that
// account's address. Returns a zero tip account and nil client if
// endpoint is unset (observe-only / dry-run deployments don't need a
// real block-engine connection).
func setupJito(endpoint string) (solana.PublicKey, *jitorpc.JitoJsonRpcClient, error) {
	if endpoint == "" {
		return solana.PublicKey{}, nil, nil
	}
	client := jitorpc.NewJitoJsonRpcClient(endpoint, "")
	tipAccount, err := client.GetRandomTipAccount()
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("get random tip account: %w", err)
	}
	tipAccountKey, err := solana.PublicKeyFromBase58(tipAccount.Address)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("parse tip account: %w", err)
	}
	return tipAccountKey, client, nil
}

// noopTransport is used when no Jito endpoint is configured: Submit
// always fails fast rather than panicking on a nil client, which only
// matters outside dry-run mode (spec.md §6's DryRun already bypasses
// the transport entirely).
type noopTransport struct{}

func (noopTransport) SubmitBundle(ctx context.Context, txs [][]byte) (string, error) {
	return "", fmt.Errorf("no jito endpoint configured")
}

func (noopTransport) Results(ctx context.Context) (<-chan submit.ResultEvent, error) {
	out := make(chan submit.ResultEvent)
	close(out)
	return out, nil
}

// runBlockhashRefresh keeps the hot-path runner's cached recent
// blockhash current (spec.md §4.7 step 1).
func runBlockhashRefresh(ctx context.Context, rpcClient *ingestsvc.RPCClient, runner *hotpathRunner, log *zap.Logger) {
	ticker := time.NewTicker(blockhashRefreshInterval)
	defer ticker.Stop()
	for {
		hash, err := rpcClient.LatestBlockhash(ctx)
		if err != nil {
			log.Debug("refresh blockhash failed", zap.Error(err))
		} else {
			runner.setBlockhash(hash)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runLiveIngest drives the canonical WSIngester, periodically
// restarting it on a fresh subscription list so newly discovered
// pools' vault/config dependencies get picked up without requiring a
// second ingest channel (spec.md §4.1's canonical source plus §4.2's
// dependency set, reconciled at a coarse interval rather than
// per-discovery since programSubscribe already delivers every new
// pool account itself).
func runLiveIngest(ctx context.Context, cfg config.Config, c *cache.Cache, pendingQueue *pending.Queue, m *metrics.Registry, log *zap.Logger) {
	logf := func(format string, args ...any) { log.Sugar().Infof(format, args...) }
	for ctx.Err() == nil {
		subs := append(poolSubscriptions(cfg.Programs, logf), dependencySubscriptions(c)...)
		if len(subs) == 0 {
			log.Warn("no venues configured, live ingest idle")
			if !sleepOrDone(ctx, poolRefreshInterval) {
				return
			}
			continue
		}

		runCtx, cancel := context.WithTimeout(ctx, poolRefreshInterval)
		ingester := ingestsvc.NewWSIngester(cfg.WSEndpoint, subs)
		worker := ingestsvc.New(c, pendingQueue, ingester, m, log)
		worker.Run(runCtx)
		cancel()
	}
}

// runArrayRescan periodically re-scans every configured CLMM/DLMM
// program for tick/bin-array accounts, the sole discovery mechanism
// for those two account kinds (see DESIGN.md: no PDA derivation for
// either is grounded in the corpus).
func runArrayRescan(ctx context.Context, cfg config.Config, rpcClient *ingestsvc.RPCClient, c *cache.Cache, pendingQueue *pending.Queue, m *metrics.Registry, log *zap.Logger) {
	logf := func(format string, args ...any) { log.Sugar().Infof(format, args...) }
	ticker := time.NewTicker(arrayRescanInterval)
	defer ticker.Stop()
	worker := ingestsvc.New(c, pendingQueue, nil, m, log)

	for {
		filters := arrayBootstrapFilters(cfg.Programs, logf)
		if len(filters) > 0 {
			bootstrapper := ingestsvc.NewBootstrapper(rpcClient, filters)
			updates, err := bootstrapper.Discover(ctx)
			if err != nil {
				log.Debug("array rescan failed", zap.Error(err))
			} else {
				worker.Bootstrap(updates)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runLifecycleSweep periodically freezes newly discovered pools and
// tries to activate every frozen one, the background equivalent of a
// per-discovery callback (spec.md §4.2).
func runLifecycleSweep(ctx context.Context, c *cache.Cache) {
	ticker := time.NewTicker(poolRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slot := c.HighSlot()
			var pools []pubkey.Pubkey
			c.Pools.Range(func(key pubkey.Pubkey, _ domain.Pool, _ domain.Version) bool {
				pools = append(pools, key)
				return true
			})
			for _, key := range pools {
				c.Freeze(key, slot)
				c.TryActivate(key)
			}
		}
	}
}

// sleepOrDone waits for d or ctx cancellation, reporting whether the
// sleep completed normally.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// runExpireSweep periodically evicts stale pending-tx entries
// (spec.md §4.6).
func runExpireSweep(ctx context.Context, c *cache.Cache, pendingQueue *pending.Queue) {
	ticker := time.NewTicker(expireInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pendingQueue.Expire(c.HighSlot(), time.Now().UnixNano())
		}
	}
}
