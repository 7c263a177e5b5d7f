package decode

import "errors"

// ErrDecode wraps every decode failure so callers can classify with
// errors.Is regardless of which specific rule failed (spec.md §4.3:
// "Returns a typed value or a decode_error with the failing rule").
var ErrDecode = errors.New("decode_error")
