package colosseum

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrSessionActive is returned when a start command targets a
	// (chat, thread) pair that already has an active session.
	ErrSessionActive = errors.New("colosseum: session already active")

	// ErrNoActiveSession is returned by lookups and stop commands when no
	// active session exists for the (chat, thread) pair.
	ErrNoActiveSession = errors.New("colosseum: no active session")

	// ErrGenerationFailed wraps a provider failure that survived the
	// gateway's bounded retry. The scheduler absorbs it; it never ends a
	// session.
	ErrGenerationFailed = errors.New("colosseum: generation failed")

	// ErrDeliveryFailed wraps a transport rejection. Recorded, never fatal.
	ErrDeliveryFailed = errors.New("colosseum: delivery failed")

	// ErrTopicsExhausted is returned by rotation under the halt policy when
	// the catalog end is reached.
	ErrTopicsExhausted = errors.New("colosseum: topic catalog exhausted")

	// ErrInvalidConfig marks a missing or inconsistent persona, model, or
	// topic reference. Fatal before any session is created.
	ErrInvalidConfig = errors.New("colosseum: invalid configuration")

	// ErrEmptyPrompt is returned by providers for a request with no content.
	ErrEmptyPrompt = errors.New("colosseum: prompt is empty")

	// ErrProviderFailed marks a single failed provider attempt.
	ErrProviderFailed = errors.New("colosseum: provider error")
)

// Provider attempt failure classifications, recorded with usage events.
const (
	FailReasonTimeout      = "timeout"
	FailReasonNetworkError = "network_error"
	FailReasonBadResponse  = "bad_response"
	FailReasonUnknownError = "unknown_error"
)

// ClassifyFailure categorizes a generation error for usage recording.
func ClassifyFailure(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailReasonTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return FailReasonTimeout
		}
		return FailReasonNetworkError
	}

	if errors.Is(err, context.Canceled) {
		return FailReasonNetworkError
	}

	if errors.Is(err, ErrProviderFailed) {
		return FailReasonBadResponse
	}

	return FailReasonUnknownError
}
