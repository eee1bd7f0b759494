package colosseum

import "context"

// Courier defines the contract for delivering generated text to the external
// chat platform. Deliver returns the platform-assigned message id, or a
// DeliveryError-classed failure; delivery failures are recorded and never
// end a session.
type Courier interface {
	Deliver(ctx context.Context, chatID, threadID int64, speaker, text string) (deliveryID string, err error)
}
