package driveport_errors

import (
	"errors"
)

// Common errors
var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrTooLarge             = errors.New("file too large")
	ErrTooLargeForTransport = errors.New("file too large for transport")
	ErrRootNotFound         = errors.New("upload root folder not found")
	ErrDestinationGone      = errors.New("destination no longer exists")
	ErrAuthExpired          = errors.New("storage authorization expired")
	ErrTransfer             = errors.New("transfer failed")
	ErrEmptyBatch           = errors.New("nothing to upload")
	ErrNotFound             = errors.New("not found")
)
