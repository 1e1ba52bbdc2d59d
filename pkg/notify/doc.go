// Package notify defines the shared vocabulary of the notification engine:
// delivery channels, priorities, recipients, rendered content and the
// uniform channel sender contract.
//
// Every other package in the engine speaks these types. Concrete senders
// live in pkg/sender; this package only fixes the contract between the
// dispatcher and a transport.
//
// # Channel senders
//
// A sender is responsible for transport only. It must classify failures
// so the dispatcher's retry policy can act correctly:
//
//	func (s *smtpSender) Send(ctx context.Context, rcpt notify.Recipient, content notify.Content) error {
//	    if err := s.client.Send(...); err != nil {
//	        if isTimeout(err) {
//	            return notify.Transient(err) // eligible for retry
//	        }
//	        return notify.Permanent(err) // invalid address, blocked recipient
//	    }
//	    return nil
//	}
//
// Errors that are neither wrapped with Transient nor Permanent are treated
// as transient by the dispatcher, since retrying an unknown failure is the
// safer default.
package notify
