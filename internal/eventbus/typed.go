package eventbus

import "fmt"

// On subscribes a handler typed to the concrete payload T. The type tag is
// taken from T's zero value.
func On[T Event](b *Bus, h func(T) error, filter ...string) Subscription {
	var zero T
	return b.Subscribe(zero.EventType(), func(env Envelope) error {
		ev, ok := env.Payload.(T)
		if !ok {
			return fmt.Errorf("%w: want %T, got %T", ErrPayloadType, zero, env.Payload)
		}
		return h(ev)
	}, filter...)
}
