// Package pubkey provides the 32-byte account identifier shared by every
// component in the engine, plus the base58/hex conversions the rest of the
// stack needs at its edges.
package pubkey

import (
	"encoding/hex"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Size is the byte length of a Solana-style account address.
const Size = 32

// Pubkey is a 32-byte identifier compared bytewise throughout the engine.
// It is layout-compatible with solana.PublicKey so decoders built on
// gagliardetto/solana-go need no conversion beyond a cast.
type Pubkey [Size]byte

// Zero is the all-zero pubkey used as a sentinel "no account" value.
var Zero Pubkey

// FromSolana converts a solana-go public key into a Pubkey.
func FromSolana(pk solana.PublicKey) Pubkey {
	return Pubkey(pk)
}

// ToSolana converts back to the solana-go representation, for building
// instructions at the submission boundary.
func (p Pubkey) ToSolana() solana.PublicKey {
	return solana.PublicKey(p)
}

// FromBytes copies the first Size bytes of b into a Pubkey. It errors if b is
// shorter than Size.
func FromBytes(b []byte) (Pubkey, error) {
	var p Pubkey
	if len(b) < Size {
		return p, errors.New("pubkey: short byte slice")
	}
	copy(p[:], b[:Size])
	return p, nil
}

// FromBase58 parses the conventional base58 display form.
func FromBase58(s string) (Pubkey, error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, err
	}
	return FromBytes(decoded)
}

// String renders the base58 display form.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// Hex renders the lowercase hex form used internally for map keys where
// base58's variable length would otherwise force re-parsing to compare.
func (p Pubkey) Hex() string {
	return hex.EncodeToString(p[:])
}

// IsZero reports whether p is the zero value.
func (p Pubkey) IsZero() bool {
	return p == Zero
}
