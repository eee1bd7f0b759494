package debate

import (
	"sync"

	"github.com/meikuraledutech/colosseum"
)

// Rotator advances a pointer through the append-only topic catalog. The
// catalog starts unconsumed: the first Rotate selects the first entry, the
// way the original daily rotation picks topics. At catalog end the policy
// decides: wrap restarts from the first entry, halt returns
// ErrTopicsExhausted on every further call.
type Rotator struct {
	mu       sync.Mutex
	topics   []colosseum.Topic
	idx      int
	consumed bool
	policy   string
}

// NewRotator creates a Rotator over the initial catalog. policy is
// colosseum.RotationWrap or colosseum.RotationHalt.
func NewRotator(topics []colosseum.Topic, policy string) *Rotator {
	return &Rotator{
		topics: append([]colosseum.Topic(nil), topics...),
		policy: policy,
	}
}

// Current returns the topic the pointer rests on (the first entry before
// any rotation has happened).
func (r *Rotator) Current() (colosseum.Topic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.topics) == 0 {
		return colosseum.Topic{}, false
	}
	return r.topics[r.idx], true
}

// Rotate advances to the next topic.
func (r *Rotator) Rotate() (colosseum.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.topics) == 0 {
		return colosseum.Topic{}, colosseum.ErrTopicsExhausted
	}

	if !r.consumed {
		r.consumed = true
		r.idx = 0
		return r.topics[0], nil
	}

	next := r.idx + 1
	if next >= len(r.topics) {
		if r.policy == colosseum.RotationHalt {
			return colosseum.Topic{}, colosseum.ErrTopicsExhausted
		}
		next = 0
	}
	r.idx = next
	return r.topics[next], nil
}

// Add appends a topic to the catalog end. Never reorders.
func (r *Rotator) Add(topic colosseum.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
}

// Topics returns the catalog in order.
func (r *Rotator) Topics() []colosseum.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]colosseum.Topic, len(r.topics))
	copy(out, r.topics)
	return out
}
