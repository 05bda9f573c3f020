// Package event provides a typed publish/subscribe event bus with
// priority-ordered delivery, wildcard topic patterns, and isolated
// handler failures.
//
// # Topics
//
// Events carry hierarchical dot-notation topics; subscriptions may use
// wildcard patterns:
//
//	auth.login        - a concrete topic
//	auth.*            - one segment wildcard
//	api.request.**    - any depth under api.request
//
// # Ordering
//
// Handlers run in descending priority order; equal priorities run in
// registration order. The handler set is snapshotted before iteration,
// so subscribing or unsubscribing from inside a handler affects only
// future emits.
//
// # Failure isolation
//
// A handler error or panic never aborts delivery to the remaining
// handlers and never surfaces to the caller of Emit. Each failure is
// wrapped (HandlerError, PanicError) and scheduled asynchronously on
// the reserved "bus.error" topic. Failures of handlers on that topic
// are only logged, guaranteeing that reporting terminates.
//
// # Usage
//
//	bus := event.NewBus()
//	if err := bus.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer bus.Stop(context.Background())
//
//	sub, _ := bus.SubscribeFunc("auth.*", func(ctx context.Context, ev event.Envelope) error {
//	    fmt.Println("auth event:", ev.Topic)
//	    return nil
//	}, event.WithPriority(event.PriorityFramework))
//	defer bus.Unsubscribe(sub)
//
//	_ = bus.EmitTopic(context.Background(), "auth.login", LoginPayload{User: "ada"})
package event
