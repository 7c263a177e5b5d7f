package decode

import (
	"crypto/sha256"
	"fmt"

	"github.com/solana-zh/arb-engine/internal/pubkey"
	"github.com/solana-zh/arb-engine/internal/wire"
)

// InstructionDiscriminator computes an Anchor-style instruction-namespace
// discriminator: the first 8 bytes of sha256("global:<name>"), distinct
// from Discriminator's account-namespace sha256("account:<name>").
func InstructionDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// CPMMSwapDiscriminator identifies a RaydiumV4 swap_base_input
// instruction, grounded on `pkg/pool/raydium/cpmmPool.go`'s
// CPMMSwapInstruction.Data, which writes discriminator(8) +
// amount_in(8, u64 LE) + minimum_amount_out(8, u64 LE).
var CPMMSwapDiscriminator = InstructionDiscriminator("swap_base_input")

const cpmmSwapDataLen = 8 + 8 + 8

// cpmmSwapPoolAccountIndex/cpmmSwapInputVaultIndex/cpmmSwapOutputVaultIndex
// are the account positions `BuildSwapInstructions` wires up: payer,
// authority, amm_config, pool_state, input_token_account,
// output_token_account, input_vault, output_vault, ...
const (
	cpmmSwapPoolAccountIndex  = 3
	cpmmSwapInputVaultIndex   = 6
	cpmmSwapOutputVaultIndex  = 7
)

// CPMMSwap is a parsed RaydiumV4 swap_base_input instruction: the pool
// it touches, the vaults it moves funds through, and the declared
// amounts. Direction (ZeroForOne) isn't resolvable from the
// instruction alone — the caller must compare InputVault against the
// cached pool's own vault addresses.
type CPMMSwap struct {
	Pool             pubkey.Pubkey
	InputVault       pubkey.Pubkey
	OutputVault      pubkey.Pubkey
	AmountIn         uint64
	MinimumAmountOut uint64
}

// ParseCPMMSwap extracts a CPMMSwap from one wire.Instruction if its
// data carries the swap_base_input discriminator, resolving its
// account indexes against the enclosing message's static account
// list. ok is false (no error) for any other instruction, since a
// pending-tx's instruction list routinely mixes venues this engine
// doesn't track.
func ParseCPMMSwap(instr wire.Instruction, accountKeys []pubkey.Pubkey) (CPMMSwap, bool, error) {
	if len(instr.Data) < cpmmSwapDataLen {
		return CPMMSwap{}, false, nil
	}
	var disc [8]byte
	copy(disc[:], instr.Data[:8])
	if disc != CPMMSwapDiscriminator {
		return CPMMSwap{}, false, nil
	}
	maxIdx := cpmmSwapPoolAccountIndex
	if cpmmSwapInputVaultIndex > maxIdx {
		maxIdx = cpmmSwapInputVaultIndex
	}
	if cpmmSwapOutputVaultIndex > maxIdx {
		maxIdx = cpmmSwapOutputVaultIndex
	}
	if len(instr.AccountIndexes) <= maxIdx {
		return CPMMSwap{}, false, fmt.Errorf("%w: swap instruction has %d accounts, need > %d", ErrDecode, len(instr.AccountIndexes), maxIdx)
	}

	pool, err := resolveAccount(accountKeys, instr.AccountIndexes[cpmmSwapPoolAccountIndex])
	if err != nil {
		return CPMMSwap{}, false, err
	}
	inputVault, err := resolveAccount(accountKeys, instr.AccountIndexes[cpmmSwapInputVaultIndex])
	if err != nil {
		return CPMMSwap{}, false, err
	}
	outputVault, err := resolveAccount(accountKeys, instr.AccountIndexes[cpmmSwapOutputVaultIndex])
	if err != nil {
		return CPMMSwap{}, false, err
	}

	return CPMMSwap{
		Pool:             pool,
		InputVault:       inputVault,
		OutputVault:      outputVault,
		AmountIn:         u64le(instr.Data[8:16]),
		MinimumAmountOut: u64le(instr.Data[16:24]),
	}, true, nil
}

func resolveAccount(keys []pubkey.Pubkey, idx uint8) (pubkey.Pubkey, error) {
	if int(idx) >= len(keys) {
		return pubkey.Pubkey{}, fmt.Errorf("%w: account index %d out of range (%d keys)", ErrDecode, idx, len(keys))
	}
	return keys[idx], nil
}
