package main

import (
	"github.com/solana-zh/arb-engine/internal/cache"
	"github.com/solana-zh/arb-engine/internal/config"
	"github.com/solana-zh/arb-engine/internal/decode"
	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/ingestsvc"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// venue describes one of the five tracked programs: a name for log
// messages when a venue is skipped, plus the program id, ingest kind
// and account discriminator its scan and subscription filters use.
type venue struct {
	name      string
	programID string
	kind      ingestsvc.Kind
	disc      [8]byte
}

func trackedVenues(programs config.ProgramIDs) []venue {
	return []venue{
		{"bonding_curve", programs.BondingCurve, ingestsvc.KindBondingCurve, decode.DiscriminatorPumpBondingCurve},
		{"pump_amm", programs.PumpAMM, ingestsvc.KindPumpAMMPool, decode.DiscriminatorPumpAMMPool},
		{"raydium_cpmm", programs.RaydiumCPMM, ingestsvc.KindRaydiumCPMMPool, decode.DiscriminatorRaydiumCPMMPool},
		{"raydium_clmm", programs.RaydiumCLMM, ingestsvc.KindCLMMPool, decode.DiscriminatorRaydiumCLMMPool},
		{"meteora_dlmm", programs.MeteoraDLMM, ingestsvc.KindDLMMPool, decode.DiscriminatorMeteoraLbPair},
	}
}

// bootstrapFilters builds the one-shot getProgramAccounts scan for
// every venue that has a configured program id, plus the tick/bin
// array program-wide scans for CLMM/DLMM (spec.md §4.1's bootstrap
// source). A venue left unconfigured is skipped rather than guessed.
func bootstrapFilters(programs config.ProgramIDs, log func(format string, args ...any)) []ingestsvc.ProgramFilter {
	var filters []ingestsvc.ProgramFilter

	for _, v := range trackedVenues(programs) {
		if v.programID == "" {
			log("venue %s has no configured program id, skipping bootstrap scan", v.name)
			continue
		}
		pid, err := pubkey.FromBase58(v.programID)
		if err != nil {
			log("venue %s program id %q is not valid base58, skipping: %v", v.name, v.programID, err)
			continue
		}
		filters = append(filters, ingestsvc.ProgramFilter{
			ProgramID: pid,
			Kind:      v.kind,
			Memcmp:    []ingestsvc.MemcmpFilter{{Offset: 0, Bytes: v.disc[:]}},
		})
	}

	// Tick arrays carry no discriminator of their own (decode.TickArray
	// treats the leading 8 bytes as unchecked padding), so they're
	// selected by exact account size instead of a memcmp. Bin arrays do
	// have a discriminator; both filters are still included here so the
	// periodic re-scan (runArrayRescan) can reuse this exact list.
	if programs.RaydiumCLMM != "" {
		if pid, err := pubkey.FromBase58(programs.RaydiumCLMM); err == nil {
			filters = append(filters, ingestsvc.ProgramFilter{
				ProgramID: pid,
				Kind:      ingestsvc.KindTickArray,
				DataSize:  uint64(decode.TickArrayAccountLen),
			})
		}
	}
	if programs.MeteoraDLMM != "" {
		if pid, err := pubkey.FromBase58(programs.MeteoraDLMM); err == nil {
			filters = append(filters, ingestsvc.ProgramFilter{
				ProgramID: pid,
				Kind:      ingestsvc.KindBinArray,
				DataSize:  uint64(decode.BinArrayAccountLen),
				Memcmp:    []ingestsvc.MemcmpFilter{{Offset: 0, Bytes: decode.DiscriminatorMeteoraBinArray[:]}},
			})
		}
	}

	return filters
}

// arrayBootstrapFilters returns just the tick/bin array filters out of
// bootstrapFilters' full list, for the periodic re-scan that stands in
// for a live subscription (arrays have no known pubkey ahead of
// discovery and no grounded PDA derivation this engine can reconstruct
// — see DESIGN.md).
func arrayBootstrapFilters(programs config.ProgramIDs, log func(format string, args ...any)) []ingestsvc.ProgramFilter {
	var out []ingestsvc.ProgramFilter
	for _, f := range bootstrapFilters(programs, log) {
		if f.Kind == ingestsvc.KindTickArray || f.Kind == ingestsvc.KindBinArray {
			out = append(out, f)
		}
	}
	return out
}

// poolSubscriptions builds the live programSubscribe list that
// discovers new pools as they're created, one per configured venue.
func poolSubscriptions(programs config.ProgramIDs, log func(format string, args ...any)) []ingestsvc.Subscription {
	var subs []ingestsvc.Subscription
	for _, v := range trackedVenues(programs) {
		if v.programID == "" {
			continue
		}
		pid, err := pubkey.FromBase58(v.programID)
		if err != nil {
			log("venue %s program id %q is not valid base58, skipping: %v", v.name, v.programID, err)
			continue
		}
		subs = append(subs, ingestsvc.Subscription{
			Method:  "programSubscribe",
			Program: pid,
			Kind:    v.kind,
			Memcmp:  []ingestsvc.MemcmpFilter{{Offset: 0, Bytes: v.disc[:]}},
		})
	}
	return subs
}

// configKind reports which decoder a pool's config dependency should
// go through. CLMM and BondingCurve are unambiguous; a CPMM-kind pool
// is shared by two venues with different config formats
// (RaydiumCPMM's AmmConfig vs PumpSwap's GlobalConfig), disambiguated
// by BaseMint: only decode.RaydiumCPMMPool populates it
// (decode.PumpAMMPool doesn't decode mint fields at all), so a CPMM
// pool with a non-zero BaseMint is always RaydiumCPMM's.
func configKind(pool domain.Pool) (ingestsvc.Kind, bool) {
	switch pool.Kind {
	case domain.PoolKindCPMM:
		if pool.CPMM.GlobalConfig.IsZero() {
			return 0, false
		}
		if !pool.CPMM.BaseMint.IsZero() {
			return ingestsvc.KindAmmConfig, true
		}
		return ingestsvc.KindGlobalConfig, true
	case domain.PoolKindBondingCurve:
		if pool.BondingCurve.GlobalConfig.IsZero() {
			return 0, false
		}
		return ingestsvc.KindGlobalConfig, true
	case domain.PoolKindCLMM:
		return ingestsvc.KindAmmConfig, true
	default:
		return 0, false
	}
}

// dependencySubscriptions walks every pool resident in c and builds
// accountSubscribe entries for its vaults and config account, so a
// pool discovered via poolSubscriptions gets its dependencies tracked
// live too (spec.md §4.2's dependency set). Called by runLiveIngest
// each time it restarts the live subscription (every
// poolRefreshInterval) rather than incrementally, since the cache
// exposes no "pool just appeared" hook of its own — Store.Range is the
// one enumeration primitive it offers background workers.
func dependencySubscriptions(c *cache.Cache) []ingestsvc.Subscription {
	var subs []ingestsvc.Subscription
	seen := make(map[pubkey.Pubkey]bool)

	addVault := func(pk pubkey.Pubkey) {
		if pk.IsZero() || seen[pk] {
			return
		}
		seen[pk] = true
		subs = append(subs, ingestsvc.Subscription{Method: "accountSubscribe", Account: pk, Kind: ingestsvc.KindVault})
	}
	addConfig := func(pk pubkey.Pubkey, kind ingestsvc.Kind) {
		if pk.IsZero() || seen[pk] {
			return
		}
		seen[pk] = true
		subs = append(subs, ingestsvc.Subscription{Method: "accountSubscribe", Account: pk, Kind: kind})
	}

	c.Pools.Range(func(_ pubkey.Pubkey, pool domain.Pool, _ domain.Version) bool {
		deps := cache.DeriveDependencies(pool)
		for _, v := range deps.Vaults {
			addVault(v)
		}
		if kind, ok := configKind(pool); ok {
			for _, cfg := range deps.Configs {
				addConfig(cfg, kind)
			}
		}
		return true
	})

	return subs
}
