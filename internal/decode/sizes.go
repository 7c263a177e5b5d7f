package decode

// TickArrayAccountLen and BinArrayAccountLen expose the two array
// decoders' minimum-length constants for callers that need to build a
// getProgramAccounts dataSize filter. Tick arrays carry no
// discriminator to memcmp against (tickarray.go treats the leading 8
// bytes as unchecked padding), so an exact account-size match is the
// only practical way to isolate them from a CLMM program's pool and
// config accounts in a program-wide scan.
const (
	TickArrayAccountLen = tickArrayMinLen
	BinArrayAccountLen  = binArrayMinLen
)
