package bundle

import (
	"github.com/gagliardetto/solana-go"

	"github.com/solana-zh/arb-engine/internal/decode"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// cpmmAccountCount and the account-index constants below mirror the
// 13-account ordering `raydium/cpmmPool.go`'s BuildSwapInstructions
// uses, the same layout `decode.ParseCPMMSwap` reads a victim's swap
// against (internal/decode/cpmmswap.go): payer, authority, amm_config,
// pool_state, input/output token accounts, input/output vaults, the
// two token programs, input/output mints, observation_state.
const cpmmAccountCount = 13

// CPMMLegParams is everything one of our own CPMM swap legs needs
// beyond what Leg itself already carries.
type CPMMLegParams struct {
	Pool         pubkey.Pubkey
	ProgramID    solana.PublicKey
	Authority    solana.PublicKey
	AmmConfig    solana.PublicKey
	Observation  solana.PublicKey
	Payer        solana.PublicKey
	InputVault   pubkey.Pubkey
	OutputVault  pubkey.Pubkey
	InputMint    solana.PublicKey
	OutputMint   solana.PublicKey
	InputTokenAccount  solana.PublicKey
	OutputTokenAccount solana.PublicKey
	AmountIn  uint64
	MinOutput uint64
}

// BuildCPMMLeg assembles a Leg for a CPMM-shaped pool (RaydiumV4 or
// PumpSwap's post-graduation AMM, which share the constant-product
// swap shape per spec.md §4.4.1). The instruction discriminator is the
// same computed `swap_base_input` Anchor discriminator
// decode.ParseCPMMSwap validates incoming victim legs against, so a
// victim transaction carrying this leg decodes identically on replay.
func BuildCPMMLeg(p CPMMLegParams) Leg {
	data := make([]byte, 24)
	disc := decode.CPMMSwapDiscriminator
	copy(data[0:8], disc[:])
	putUint64LE(data[8:16], p.AmountIn)
	putUint64LE(data[16:24], p.MinOutput)

	accounts := make(solana.AccountMetaSlice, cpmmAccountCount)
	accounts[0] = solana.NewAccountMeta(p.Payer, true, true)
	accounts[1] = solana.NewAccountMeta(p.Authority, false, false)
	accounts[2] = solana.NewAccountMeta(p.AmmConfig, false, false)
	accounts[3] = solana.NewAccountMeta(p.Pool.ToSolana(), true, false)
	accounts[4] = solana.NewAccountMeta(p.InputTokenAccount, true, false)
	accounts[5] = solana.NewAccountMeta(p.OutputTokenAccount, true, false)
	accounts[6] = solana.NewAccountMeta(p.InputVault.ToSolana(), true, false)
	accounts[7] = solana.NewAccountMeta(p.OutputVault.ToSolana(), true, false)
	accounts[8] = solana.NewAccountMeta(solana.TokenProgramID, false, false)
	accounts[9] = solana.NewAccountMeta(solana.TokenProgramID, false, false)
	accounts[10] = solana.NewAccountMeta(p.InputMint, false, false)
	accounts[11] = solana.NewAccountMeta(p.OutputMint, false, false)
	accounts[12] = solana.NewAccountMeta(p.Observation, true, false)

	return Leg{
		Pool:        p.Pool,
		ProgramID:   p.ProgramID,
		Accounts:    accounts,
		Data:        data,
		InputAmount: p.AmountIn,
		MinOutput:   p.MinOutput,
	}
}

func putUint64LE(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}
