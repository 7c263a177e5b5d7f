// Package wire parses the read-only slice of Solana's transaction wire
// format spec.md §6 specifies: the legacy/versioned message header,
// compact-u16–prefixed account keys and instructions, and (for
// versioned messages) the address-table-lookup index lists. It
// resolves nothing: a versioned message's lookup indices are returned
// as-is, since "ALT resolution is external" (spec.md §6).
package wire

import (
	"fmt"

	"github.com/solana-zh/arb-engine/internal/pubkey"
)

// versionedPrefixBit marks the first message byte as a version tag
// rather than the legacy header's num_required_signatures field: no
// real transaction needs anywhere near 128 required signatures, so the
// wire format reuses the high bit to disambiguate (spec.md §6).
const versionedPrefixBit = 0x80

// Instruction is one parsed `{ program_id_index, accounts, data }`
// triple (spec.md §6).
type Instruction struct {
	ProgramIDIndex uint8
	AccountIndexes []uint8
	Data           []byte
}

// AddressTableLookup is one versioned-message ALT reference: the table
// account plus the writable/readonly index lists into it. The indices
// are returned unresolved.
type AddressTableLookup struct {
	Table           pubkey.Pubkey
	WritableIndexes []uint8
	ReadonlyIndexes []uint8
}

// Message is a parsed transaction message (spec.md §3, §6).
type Message struct {
	Version                 int // -1 for legacy
	NumRequiredSignatures   uint8
	NumReadonlySignedAccts  uint8
	NumReadonlyUnsignedAccts uint8
	AccountKeys             []pubkey.Pubkey // static keys only
	RecentBlockhash         [32]byte
	Instructions            []Instruction
	AddressTableLookups     []AddressTableLookup // empty for legacy messages
}

// signatureLen is the fixed width of one ed25519 signature in a
// transaction's leading compact-array (spec.md §6).
const signatureLen = 64

// StripSignatures splits a full transaction's wire bytes into its
// signatures and the trailing message bytes ParseMessage expects: a
// compact-u16 signature count followed by that many 64-byte
// signatures, then the message. It performs no verification.
func StripSignatures(data []byte) (signatures [][signatureLen]byte, message []byte, err error) {
	r := &reader{buf: data}
	count, err := r.compactU16()
	if err != nil {
		return nil, nil, fmt.Errorf("wire: signature count: %w", err)
	}
	signatures = make([][signatureLen]byte, count)
	for i := 0; i < count; i++ {
		raw, err := r.bytes(signatureLen)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: signature %d: %w", i, err)
		}
		copy(signatures[i][:], raw)
	}
	return signatures, data[r.pos:], nil
}

// ParseMessage parses a transaction message per spec.md §6. It does not
// verify signatures or resolve address-table lookups.
func ParseMessage(data []byte) (Message, error) {
	var msg Message
	r := &reader{buf: data}

	first, err := r.peekByte()
	if err != nil {
		return Message{}, fmt.Errorf("wire: %w", err)
	}
	if first&versionedPrefixBit != 0 {
		b, _ := r.byte()
		msg.Version = int(b &^ versionedPrefixBit)
	} else {
		msg.Version = -1
	}

	header, err := r.bytes(3)
	if err != nil {
		return Message{}, fmt.Errorf("wire: header: %w", err)
	}
	msg.NumRequiredSignatures = header[0]
	msg.NumReadonlySignedAccts = header[1]
	msg.NumReadonlyUnsignedAccts = header[2]

	keyCount, err := r.compactU16()
	if err != nil {
		return Message{}, fmt.Errorf("wire: account key count: %w", err)
	}
	msg.AccountKeys = make([]pubkey.Pubkey, 0, keyCount)
	for i := 0; i < keyCount; i++ {
		raw, err := r.bytes(32)
		if err != nil {
			return Message{}, fmt.Errorf("wire: account key %d: %w", i, err)
		}
		pk, err := pubkey.FromBytes(raw)
		if err != nil {
			return Message{}, fmt.Errorf("wire: account key %d: %w", i, err)
		}
		msg.AccountKeys = append(msg.AccountKeys, pk)
	}

	blockhash, err := r.bytes(32)
	if err != nil {
		return Message{}, fmt.Errorf("wire: recent blockhash: %w", err)
	}
	copy(msg.RecentBlockhash[:], blockhash)

	instrCount, err := r.compactU16()
	if err != nil {
		return Message{}, fmt.Errorf("wire: instruction count: %w", err)
	}
	msg.Instructions = make([]Instruction, 0, instrCount)
	for i := 0; i < instrCount; i++ {
		instr, err := parseInstruction(r)
		if err != nil {
			return Message{}, fmt.Errorf("wire: instruction %d: %w", i, err)
		}
		msg.Instructions = append(msg.Instructions, instr)
	}

	if msg.Version >= 0 {
		lookups, err := parseAddressTableLookups(r)
		if err != nil {
			return Message{}, fmt.Errorf("wire: address table lookups: %w", err)
		}
		msg.AddressTableLookups = lookups
	}

	return msg, nil
}

func parseInstruction(r *reader) (Instruction, error) {
	programIdx, err := r.byte()
	if err != nil {
		return Instruction{}, err
	}

	acctCount, err := r.compactU16()
	if err != nil {
		return Instruction{}, fmt.Errorf("account index count: %w", err)
	}
	accounts, err := r.bytes(acctCount)
	if err != nil {
		return Instruction{}, fmt.Errorf("account indexes: %w", err)
	}

	dataLen, err := r.compactU16()
	if err != nil {
		return Instruction{}, fmt.Errorf("data length: %w", err)
	}
	data, err := r.bytes(dataLen)
	if err != nil {
		return Instruction{}, fmt.Errorf("data: %w", err)
	}

	return Instruction{
		ProgramIDIndex: programIdx,
		AccountIndexes: append([]uint8(nil), accounts...),
		Data:           append([]byte(nil), data...),
	}, nil
}

func parseAddressTableLookups(r *reader) ([]AddressTableLookup, error) {
	count, err := r.compactU16()
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}
	out := make([]AddressTableLookup, 0, count)
	for i := 0; i < count; i++ {
		tableRaw, err := r.bytes(32)
		if err != nil {
			return nil, fmt.Errorf("lookup %d table: %w", i, err)
		}
		table, err := pubkey.FromBytes(tableRaw)
		if err != nil {
			return nil, fmt.Errorf("lookup %d table: %w", i, err)
		}

		writableCount, err := r.compactU16()
		if err != nil {
			return nil, fmt.Errorf("lookup %d writable count: %w", i, err)
		}
		writable, err := r.bytes(writableCount)
		if err != nil {
			return nil, fmt.Errorf("lookup %d writable indexes: %w", i, err)
		}

		readonlyCount, err := r.compactU16()
		if err != nil {
			return nil, fmt.Errorf("lookup %d readonly count: %w", i, err)
		}
		readonly, err := r.bytes(readonlyCount)
		if err != nil {
			return nil, fmt.Errorf("lookup %d readonly indexes: %w", i, err)
		}

		out = append(out, AddressTableLookup{
			Table:           table,
			WritableIndexes: append([]uint8(nil), writable...),
			ReadonlyIndexes: append([]uint8(nil), readonly...),
		})
	}
	return out, nil
}
