package colosseum

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, FailReasonTimeout},
		{"wrapped deadline", fmt.Errorf("attempt: %w", context.DeadlineExceeded), FailReasonTimeout},
		{"net timeout", &net.DNSError{Err: "lookup timeout", IsTimeout: true}, FailReasonTimeout},
		{"net error", &net.DNSError{Err: "no such host"}, FailReasonNetworkError},
		{"cancelled", context.Canceled, FailReasonNetworkError},
		{"provider", fmt.Errorf("%w: status 500", ErrProviderFailed), FailReasonBadResponse},
		{"unknown", errors.New("mystery"), FailReasonUnknownError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyFailure(tc.err); got != tc.want {
				t.Fatalf("ClassifyFailure(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}
