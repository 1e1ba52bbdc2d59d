// Package router maps business events to scheduled notification
// deliveries through persisted event bindings.
//
// A binding ties an (eventType, entityType) pair to a template and an
// optional list of conditions over the event variables. Conditions use a
// closed comparator set (eq, ne, gt, gte, lt, lte, in); nothing from the
// event is ever evaluated as code. All conditions of a binding must pass
// for it to fire, and a condition that cannot be evaluated counts as not
// met.
//
// When a binding fires, the router loads the template and enqueues one
// delivery entry per template channel, honoring the recipient's channel
// preferences, the binding's delay and its retry policy override.
// Bindings are isolated: a failure inside one binding never prevents the
// others from firing.
//
// Example:
//
//	r, err := router.NewRouter(bindings, templates, enqueuer,
//		router.WithPreferences(prefsStore),
//	)
//	if err != nil {
//		return err
//	}
//
//	entries, err := r.HandleEvent(ctx, router.Event{
//		EventType:  "QUOTE_ACCEPTED",
//		EntityType: "quote",
//		EntityID:   "q-123",
//		Variables: map[string]any{
//			"recipientId": "user-42",
//			"amount":      150,
//		},
//	})
package router
