// Package eventbus provides the typed publish/subscribe bus modules use to
// talk to each other without holding references to one another.
//
// # Buckets
//
// Every event type has a global bucket. Subscribing with a filter tag puts the
// handler in the global bucket and additionally in the (type, filter) bucket.
// Delivery of one event runs the global bucket first, then, when the publisher
// named a filter, the matching filter bucket. Handlers within a bucket run in
// subscription order. Envelope.Filtered tells a handler which bucket it was
// reached through.
//
// # Immediate and deferred delivery
//
// PublishImmediate runs handlers on the caller's goroutine before returning.
// Publish only enqueues; ProcessEvents detaches the whole queue and delivers
// it Critical first, Low last, FIFO among equal priorities. Events published
// while a drain is running wait for the next ProcessEvents call.
//
// # Locking
//
// The bus mutex guards the subscriber tables and the pending queue only. It is
// always released before a handler runs, so handlers may publish, subscribe or
// call into the module registry without deadlocking.
package eventbus
