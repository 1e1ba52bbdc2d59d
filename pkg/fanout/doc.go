// Package fanout is the real-time layer: it pushes notification events
// to a recipient's live connections and serves the read-state requests
// a client can make over that connection.
//
// The wire contract is a small tagged-message protocol. Every frame is
// a Message with a Kind from a closed set and a typed payload, so the
// client/server contract is exhaustive and testable without a socket.
//
// Registry tracks live connections per recipient. Sends are
// non-blocking: a connection that cannot keep up is dropped and the
// client recovers current state on reconnect via Hub.Connect.
//
// Hub owns the semantics. Unread counts are server-authoritative: every
// mutation recomputes the count from storage before pushing it, so all
// of a recipient's connections converge regardless of which one issued
// the request.
//
// RedisBridge extends fan-out across instances: published messages
// travel through a shared Redis channel and every instance forwards
// them to its local registry.
package fanout
