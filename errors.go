package recordlist

import "errors"

// Batch result codes returned by the index-list operations.
const (
	CodeSuccess = 1
	CodeNoop    = 0
	CodeFailure = -1
)

var (
	ErrNoNyms            = errors.New("record list has no nyms configured")
	ErrNoServers         = errors.New("record list has no servers configured")
	ErrNoUnitTypes       = errors.New("record list has no unit types configured")
	ErrMalformedIndices  = errors.New("malformed index list")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrNoDecoder         = errors.New("record list has no instrument decoder")
	ErrInvalidInstrument = errors.New("instrument failed validation")
	ErrNoAccountForItem  = errors.New("no configured account can accept this instrument")

	errEntryGone = errors.New("entry is no longer in its box")
)
