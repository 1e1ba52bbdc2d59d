// Package notifier assembles the notification engine: template and
// binding management, direct and event-driven sends through the durable
// delivery queue, the dispatch worker with its channel senders,
// real-time fan-out with server-authoritative unread counts, and
// statistics over the delivery log.
//
// Example:
//
//	engine, err := notifier.NewEngine(notifier.Storages{
//		Templates:     template.NewMemoryStore(),
//		Bindings:      router.NewMemoryBindingStore(),
//		Queue:         queueStore,
//		Log:           dispatcher.NewMemoryLogStore(),
//		Notifications: notifStore,
//		Preferences:   notifStore,
//	}, directory,
//		notifier.WithSenders(emailSender, smsSender),
//		notifier.WithConfig(cfg),
//	)
//	if err != nil {
//		return err
//	}
//
//	go func() { _ = engine.Run(ctx) }()
//
//	_, err = engine.Send(ctx, "welcome", "user-42", map[string]any{
//		"name": "Ada",
//	})
package notifier
