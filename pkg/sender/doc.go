// Package sender provides the concrete channel senders: email through
// Postmark (plus a file-writing dev variant), SMS through Twilio,
// instant messages through a JSON HTTP gateway, and real-time push
// backed by the notification store and fan-out hub.
//
// Every sender implements notify.Sender and classifies failures as
// transient or permanent so the dispatcher's retry policy can act on
// them. Missing contact details are always permanent: no amount of
// retrying produces a phone number.
package sender
