package uapi

// MarshalError reports a wire-encoding failure in this package, following
// the same plain string-error idiom as the rest of this module's error
// types.
type MarshalError string

func (e MarshalError) Error() string { return string(e) }

// ErrInsufficientData is returned (as a bool ok=false from the Unmarshal*
// helpers in structs.go) when a caller didn't read enough of a probed
// user-memory region to decode a structure.
const ErrInsufficientData MarshalError = "insufficient data for unmarshaling"
