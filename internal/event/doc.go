// Package event provides the synchronous message bus that connects rendered
// table widgets to the table manager.
//
// Widgets never reach into the manager's state. When editing focus leaves a
// widget it publishes a topic.TableBlur event carrying the instance ID, and
// the manager's subscription performs the write-back. Publication is
// synchronous: PublishSync returns only after every matching handler ran, so
// a write-back has fully cleared its binding before the host triggers the next
// detection pass.
//
// # Usage
//
//	bus := event.NewBus()
//
//	event.Subscribe(bus, topic.TableBlur, func(ctx context.Context, ev event.Event[manager.BlurPayload]) error {
//	    return m.Release(ev.Payload.InstanceID)
//	})
//
//	bus.PublishSync(ctx, event.NewEvent(topic.TableBlur, payload, "widget"))
package event
