// Package notification persists per-recipient notification rows backing
// the real-time channel, plus recipient delivery preferences.
//
// A Notification row is created whenever a delivery targets the push
// channel and mutated only by the recipient's own read actions. The
// IsRead flag and ReadAt timestamp always agree: unread rows carry a
// nil ReadAt.
//
// Preferences hold per-channel opt-outs. Missing preferences mean
// everything is enabled, so recipients receive notifications without
// any setup step.
//
// Storage ships in two implementations: MemoryStorage for tests and
// local development, PostgresStorage for production.
//
// Example:
//
//	storage := notification.NewMemoryStorage()
//	_ = storage.Create(ctx, notification.Notification{
//		ID:          uuid.New(),
//		RecipientID: "user-1",
//		Type:        notification.TypeInfo,
//		Title:       "Quote accepted",
//		Content:     "Your quote for $150 was accepted.",
//	})
//	count, _ := storage.CountUnread(ctx, "user-1") // 1
package notification
