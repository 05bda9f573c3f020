// Package hook provides ordered, mutation-threading middleware chains
// for named extension points.
//
// Unlike the event bus's fan-out notification, hooks transform shared
// state: Run threads a Context through the point's handlers strictly
// sequentially, in descending priority order, shallow-merging each
// handler's returned partial into the context that later handlers see.
//
//	reg := hook.NewRegistry()
//	reg.Register("api.request.before", func(ctx context.Context, hc hook.Context) (hook.Context, error) {
//	    return hook.Context{"authorization": "Bearer " + token}, nil
//	}, hook.WithPriority(100))
//
//	out := reg.Run(ctx, "api.request.before", hook.Context{"url": url})
//
// A failing handler is isolated: the error is reported (typically onto
// the event bus error channel) and the chain continues with the context
// as of before the failure. Run never returns an error.
package hook
