// Package connectors pulls AHJ export emails from a mailbox and keeps a raw
// copy of each one.
package connectors

import (
	"context"

	"permitnorm/internal"
)

// MailConnector lists the messages of one mailbox (IMAP folder or Gmail
// label), newest last, at most max of them.
type MailConnector interface {
	FetchMailbox(ctx context.Context, mailbox string, max int) ([]internal.FetchedMailMessage, error)
}
