// Package notifications mounts the notification engine as an HTTP
// module: template and binding management, sends and events, delivery
// statistics, the recipient inbox and a server-sent-events stream
// carrying the real-time protocol.
//
// The module does not authenticate requests itself. It resolves the
// acting recipient through a RecipientResolver; wrap the router with
// your auth middleware and point the resolver at its session.
//
// Example:
//
//	svc, err := notifications.NewService(engine)
//	if err != nil {
//		return err
//	}
//
//	r := chi.NewRouter()
//	r.Mount("/notifications", svc.Handle())
package notifications
