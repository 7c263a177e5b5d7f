package decode

import (
	"fmt"

	"github.com/solana-zh/arb-engine/internal/domain"
)

// splTokenAccountMinLen and amountOffset ground the SPL-token account
// layout from spec.md §6: "amount: u64 LE @ offset 64. Minimum length 165."
const (
	splTokenAccountMinLen = 165
	splTokenAmountOffset  = 64
)

// Vault decodes an SPL-token-style account into its balance field.
func Vault(data []byte) (domain.Vault, error) {
	if len(data) < splTokenAccountMinLen {
		return domain.Vault{}, fmt.Errorf("%w: spl-token account too short: %d < %d", ErrDecode, len(data), splTokenAccountMinLen)
	}
	amount := u64le(data[splTokenAmountOffset : splTokenAmountOffset+8])
	return domain.Vault{Amount: amount}, nil
}
