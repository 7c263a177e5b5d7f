package decode

import (
	"fmt"

	"github.com/solana-zh/arb-engine/internal/domain"
	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// altHeaderLen and altEntryOffset ground spec.md §6: "first 4 bytes =
// discriminator u32 LE (= 1 means initialized); entries start at
// offset 56, each 32 bytes." The engine only parses the entry list;
// resolving a transaction's lookup indices against it is out of scope.
const (
	altInitializedDiscriminator = 1
	altEntryOffset              = 56
	altEntryLen                 = 32
)

// AddressLookupTable decodes an ALT account's address list.
func AddressLookupTable(tablePubkey pubkey.Pubkey, slot uint64, data []byte) (domain.AddressLookupTable, error) {
	if len(data) < altEntryOffset {
		return domain.AddressLookupTable{}, fmt.Errorf("%w: alt account too short for header: %d < %d", ErrDecode, len(data), altEntryOffset)
	}
	disc := u32le(data[0:4])
	if disc != altInitializedDiscriminator {
		return domain.AddressLookupTable{}, fmt.Errorf("%w: alt not initialized (discriminator=%d)", ErrDecode, disc)
	}

	remainder := data[altEntryOffset:]
	if len(remainder)%altEntryLen != 0 {
		return domain.AddressLookupTable{}, fmt.Errorf("%w: alt entry region not a multiple of 32 bytes: %d", ErrDecode, len(remainder))
	}
	n := len(remainder) / altEntryLen
	addrs := make([]pubkey.Pubkey, 0, n)
	for i := 0; i < n; i++ {
		entry := remainder[i*altEntryLen : (i+1)*altEntryLen]
		p, err := pubkey.FromBytes(entry)
		if err != nil {
			return domain.AddressLookupTable{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		addrs = append(addrs, p)
	}

	return domain.AddressLookupTable{
		Pubkey:    tablePubkey,
		Addresses: addrs,
		Slot:      slot,
	}, nil
}
