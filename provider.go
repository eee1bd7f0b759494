package colosseum

import "context"

// Provider defines the contract for completion providers. A provider makes a
// single attempt; bounded retry and fallback live in the gateway, so call
// sites never branch on provider identity.
type Provider interface {
	Generate(ctx context.Context, prompt Prompt) (*Result, error)
}
