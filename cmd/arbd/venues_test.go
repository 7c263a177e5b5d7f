package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solana-zh/arb-engine/internal/cache"
	"github.com/solana-zh/arb-engine/internal/config"
	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/ingestsvc"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

func discardLog(format string, args ...any) {}

func TestBootstrapFiltersSkipsUnconfiguredVenues(t *testing.T) {
	filters := bootstrapFilters(config.ProgramIDs{}, discardLog)
	require.Empty(t, filters)
}

func TestBootstrapFiltersBuildsOneFilterPerConfiguredVenue(t *testing.T) {
	programs := config.ProgramIDs{
		RaydiumCPMM: "11111111111111111111111111111111",
		RaydiumCLMM: "11111111111111111111111111111111",
	}
	filters := bootstrapFilters(programs, discardLog)

	var sawCPMM, sawCLMM, sawTickArray bool
	for _, f := range filters {
		switch f.Kind {
		case ingestsvc.KindRaydiumCPMMPool:
			sawCPMM = true
		case ingestsvc.KindCLMMPool:
			sawCLMM = true
		case ingestsvc.KindTickArray:
			sawTickArray = true
			require.NotZero(t, f.DataSize)
		}
	}
	require.True(t, sawCPMM)
	require.True(t, sawCLMM)
	require.True(t, sawTickArray, "configuring RaydiumCLMM should also add the tick-array size filter")
}

func TestBootstrapFiltersSkipsInvalidBase58(t *testing.T) {
	filters := bootstrapFilters(config.ProgramIDs{RaydiumCPMM: "not-valid-base58!!"}, discardLog)
	require.Empty(t, filters)
}

func TestArrayBootstrapFiltersOnlyReturnsArrayKinds(t *testing.T) {
	programs := config.ProgramIDs{
		RaydiumCPMM: "11111111111111111111111111111111",
		RaydiumCLMM: "11111111111111111111111111111111",
		MeteoraDLMM: "11111111111111111111111111111111",
	}
	filters := arrayBootstrapFilters(programs, discardLog)
	require.NotEmpty(t, filters)
	for _, f := range filters {
		require.Contains(t, []ingestsvc.Kind{ingestsvc.KindTickArray, ingestsvc.KindBinArray}, f.Kind)
	}
}

func TestPoolSubscriptionsSkipsUnconfiguredVenues(t *testing.T) {
	subs := poolSubscriptions(config.ProgramIDs{}, discardLog)
	require.Empty(t, subs)
}

func TestPoolSubscriptionsOnePerConfiguredVenue(t *testing.T) {
	programs := config.ProgramIDs{
		RaydiumCPMM: "11111111111111111111111111111111",
	}
	subs := poolSubscriptions(programs, discardLog)
	require.Len(t, subs, 1)
	require.Equal(t, "programSubscribe", subs[0].Method)
	require.Equal(t, ingestsvc.KindRaydiumCPMMPool, subs[0].Kind)
}

func TestConfigKindDisambiguatesCPMMByBaseMint(t *testing.T) {
	raydium := domain.Pool{Kind: domain.PoolKindCPMM, CPMM: &domain.CPMM{
		GlobalConfig: pubkey.Pubkey{0x01}, BaseMint: pubkey.Pubkey{0x02},
	}}
	kind, ok := configKind(raydium)
	require.True(t, ok)
	require.Equal(t, ingestsvc.KindAmmConfig, kind)

	pumpAMM := domain.Pool{Kind: domain.PoolKindCPMM, CPMM: &domain.CPMM{
		GlobalConfig: pubkey.Pubkey{0x01},
	}}
	kind, ok = configKind(pumpAMM)
	require.True(t, ok)
	require.Equal(t, ingestsvc.KindGlobalConfig, kind)
}

func TestConfigKindNoDependencyWhenConfigUnset(t *testing.T) {
	pool := domain.Pool{Kind: domain.PoolKindCPMM, CPMM: &domain.CPMM{}}
	_, ok := configKind(pool)
	require.False(t, ok)
}

func TestConfigKindCLMMAlwaysAmmConfig(t *testing.T) {
	pool := domain.Pool{Kind: domain.PoolKindCLMM, CLMM: &domain.CLMM{}}
	kind, ok := configKind(pool)
	require.True(t, ok)
	require.Equal(t, ingestsvc.KindAmmConfig, kind)
}

func TestConfigKindBondingCurve(t *testing.T) {
	withConfig := domain.Pool{Kind: domain.PoolKindBondingCurve, BondingCurve: &domain.BondingCurve{
		GlobalConfig: pubkey.Pubkey{0x01},
	}}
	kind, ok := configKind(withConfig)
	require.True(t, ok)
	require.Equal(t, ingestsvc.KindGlobalConfig, kind)

	withoutConfig := domain.Pool{Kind: domain.PoolKindBondingCurve, BondingCurve: &domain.BondingCurve{}}
	_, ok = configKind(withoutConfig)
	require.False(t, ok)
}

func TestDependencySubscriptionsDedupsSharedVaults(t *testing.T) {
	c := cache.New()
	sharedVault := pubkey.Pubkey{0x01}
	poolA := pubkey.Pubkey{0x10}
	poolB := pubkey.Pubkey{0x11}

	c.Pools.Put(poolA, domain.Pool{Kind: domain.PoolKindCPMM, CPMM: &domain.CPMM{
		BaseVault: sharedVault, QuoteVault: pubkey.Pubkey{0x02},
	}}, domain.Version{Slot: 1}, cache.SourceCanonical)
	c.Pools.Put(poolB, domain.Pool{Kind: domain.PoolKindCPMM, CPMM: &domain.CPMM{
		BaseVault: sharedVault, QuoteVault: pubkey.Pubkey{0x03},
	}}, domain.Version{Slot: 1}, cache.SourceCanonical)

	subs := dependencySubscriptions(c)

	count := 0
	for _, s := range subs {
		if s.Account == sharedVault {
			count++
		}
	}
	require.Equal(t, 1, count, "a vault shared by two pools must only be subscribed once")
}
