package workflow

import (
	"errors"
	"fmt"
)

// Policy rejections and terminal session failures. The transport layer maps
// these to user-facing text; anything not listed here is a transient
// infrastructure failure and safe to retry.
var (
	ErrUnsupportedType  = errors.New("unsupported content type")
	ErrCorruptInput     = errors.New("corrupt or unreadable input")
	ErrUnknownFormat    = errors.New("unknown output format")
	ErrNoActiveSession  = errors.New("no active session")
	ErrConversionFailed = errors.New("conversion failed")
	ErrDeliveryFailed   = errors.New("delivery failed")
)

// QuotaExceededError rejects entry into the workflow with the current
// usage and limit.
type QuotaExceededError struct {
	Usage int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily quota exhausted: %d/%d", e.Usage, e.Limit)
}

// DurationExceededError rejects an artifact longer than the tier's cap.
type DurationExceededError struct {
	CapSeconds int
	Seconds    float64
}

func (e *DurationExceededError) Error() string {
	return fmt.Sprintf("duration %.0fs exceeds cap %ds", e.Seconds, e.CapSeconds)
}
