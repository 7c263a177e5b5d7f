package ingestsvc

import (
	"fmt"

	"github.com/solana-zh/arb-engine/internal/cache"
	"github.com/solana-zh/arb-engine/internal/decode"
	"github.com/solana-zh/arb-engine/internal/domain"
)

// buildCacheUpdate decodes raw.Data per raw.Kind and assembles the
// cache.Update the single-writer cache expects. A decode failure is
// returned as an error rather than a zero cache.Update so the caller
// can count it as a decode_error drop without risking an accidental
// commit of a half-built value (spec.md §4.3).
func buildCacheUpdate(raw RawUpdate) (cache.Update, error) {
	u := cache.Update{
		Pubkey:       raw.Pubkey,
		Slot:         raw.Slot,
		WriteVersion: raw.WriteVersion,
		DataLen:      len(raw.Data),
		Source:       raw.Source,
		PoolOwner:    raw.PoolOwner,
	}

	switch raw.Kind {
	case KindVault:
		v, err := decode.Vault(raw.Data)
		if err != nil {
			return cache.Update{}, err
		}
		u.Kind = cache.UpdateVault
		u.Vault = v

	case KindBondingCurve:
		bc, err := decode.BondingCurve(raw.Data)
		if err != nil {
			return cache.Update{}, err
		}
		u.Kind = cache.UpdatePool
		u.Pool = domain.Pool{Kind: domain.PoolKindBondingCurve, BondingCurve: &bc}

	case KindPumpAMMPool:
		p, err := decode.PumpAMMPool(raw.Data)
		if err != nil {
			return cache.Update{}, err
		}
		u.Kind = cache.UpdatePool
		u.Pool = p

	case KindRaydiumCPMMPool:
		p, err := decode.RaydiumCPMMPool(raw.Data)
		if err != nil {
			return cache.Update{}, err
		}
		u.Kind = cache.UpdatePool
		u.Pool = p

	case KindCLMMPool:
		p, err := decode.CLMMPool(raw.Data)
		if err != nil {
			return cache.Update{}, err
		}
		u.Kind = cache.UpdatePool
		u.Pool = p

	case KindDLMMPool:
		p, err := decode.DLMMPool(raw.Data)
		if err != nil {
			return cache.Update{}, err
		}
		u.Kind = cache.UpdatePool
		u.Pool = p

	case KindTickArray:
		ta, err := decode.TickArray(raw.Data)
		if err != nil {
			return cache.Update{}, err
		}
		u.Kind = cache.UpdateTickArray
		u.TickArray = ta
		// The account itself carries PoolId/StartTickIndex (decode.TickArray
		// reads both), so a caller that doesn't already know them — a
		// program-wide bootstrap scan, as opposed to a targeted
		// accountSubscribe that supplies them up front — can leave
		// raw.PoolOwner unset and still land on the right cache key.
		u.TickStart = ta.StartTickIndex
		if raw.PoolOwner.IsZero() {
			u.PoolOwner = ta.PoolID
		}

	case KindBinArray:
		ba, err := decode.BinArray(raw.Data)
		if err != nil {
			return cache.Update{}, err
		}
		u.Kind = cache.UpdateBinArray
		u.BinArray = ba
		u.BinIndex = ba.Index
		if raw.PoolOwner.IsZero() {
			u.PoolOwner = ba.LBPair
		}

	case KindAmmConfig:
		cfg, err := decode.AmmConfig(raw.Data)
		if err != nil {
			return cache.Update{}, err
		}
		u.Kind = cache.UpdateAmmConfig
		u.AmmConfig = cfg

	case KindGlobalConfig:
		cfg, err := decode.GlobalConfig(raw.Data)
		if err != nil {
			return cache.Update{}, err
		}
		u.Kind = cache.UpdateGlobalConfig
		u.GlobalConfig = cfg

	default:
		return cache.Update{}, fmt.Errorf("%w: unknown ingest kind %d", decode.ErrDecode, raw.Kind)
	}

	return u, nil
}
