package debounce

import "errors"

// Errors reported in Result.Err. None of them are fatal.
var (
	ErrNotInitialized     = errors.New("debounce: accessories not loaded")
	ErrDeviceNotFound     = errors.New("debounce: device not found")
	ErrUnknownKind        = errors.New("debounce: unknown event kind")
	ErrMotionNotEnabled   = errors.New("debounce: motion not enabled")
	ErrDoorbellNotEnabled = errors.New("debounce: doorbell not enabled")
)
