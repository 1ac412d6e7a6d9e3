package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"permitnorm/internal"
	"permitnorm/internal/config"
	"permitnorm/internal/sheet"
)

type Connector struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	markSeen bool
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("IMAP_HOST", cfg.IMAPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_USER", cfg.IMAPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_PASSWORD", cfg.IMAPPassword); err != nil {
		return nil, err
	}

	return &Connector{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		markSeen: cfg.IMAPMarkSeen,
	}, nil
}

// FetchMailbox reads unseen messages of an IMAP folder that carry a
// loader-readable attachment. Body structures are fetched first so that only
// export messages are downloaded. The folder is opened read-only unless
// messages are to be marked seen.
func (c *Connector) FetchMailbox(ctx context.Context, mailbox string, max int) ([]internal.FetchedMailMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	var client *imapclient.Client
	var err error
	if c.secure {
		client, err = imapclient.DialTLS(addr, &tls.Config{ServerName: c.host})
	} else {
		client, err = imapclient.Dial(addr)
	}
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	if err := client.Login(c.user, c.password); err != nil {
		return nil, err
	}

	if _, err := client.Select(mailbox, !c.markSeen); err != nil {
		return nil, fmt.Errorf("select %s: %w", mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := client.UidSearch(criteria)
	if err != nil {
		return nil, err
	}
	if len(uids) > max {
		uids = uids[len(uids)-max:]
	}
	if len(uids) == 0 {
		return nil, nil
	}

	candidates := new(imap.SeqSet)
	candidates.AddNum(uids...)
	exports, err := c.exportUIDs(client, candidates, len(uids))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if exports.Empty() {
		return nil, nil
	}

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, len(uids))
	fetchDone := make(chan error, 1)
	go func() { fetchDone <- client.UidFetch(exports, items, messages) }()

	out := make([]internal.FetchedMailMessage, 0, len(uids))
	seen := new(imap.SeqSet)
	var readErr error
	for msg := range messages {
		if msg == nil || readErr != nil || ctx.Err() != nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			readErr = err
			continue
		}
		out = append(out, fetchedMessage(mailbox, msg, raw))
		seen.AddNum(msg.Uid)
	}

	if err := <-fetchDone; err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// flags can only be stored once the fetch has drained
	if c.markSeen && !seen.Empty() {
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := client.UidStore(seen, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// exportUIDs fetches body structures for the candidates and keeps the UIDs
// of messages with an export attachment.
func (c *Connector) exportUIDs(client *imapclient.Client, candidates *imap.SeqSet, n int) (*imap.SeqSet, error) {
	messages := make(chan *imap.Message, n)
	fetchDone := make(chan error, 1)
	items := []imap.FetchItem{imap.FetchUid, imap.FetchBodyStructure}
	go func() { fetchDone <- client.UidFetch(candidates, items, messages) }()

	exports := new(imap.SeqSet)
	for msg := range messages {
		if msg != nil && hasExportAttachment(msg.BodyStructure) {
			exports.AddNum(msg.Uid)
		}
	}
	if err := <-fetchDone; err != nil {
		return nil, err
	}
	return exports, nil
}

// hasExportAttachment reports whether any part of the message names a file
// the sheet loader can read.
func hasExportAttachment(bs *imap.BodyStructure) bool {
	if bs == nil {
		return false
	}
	found := false
	bs.Walk(func(_ []int, part *imap.BodyStructure) bool {
		if found {
			return false
		}
		name, _ := part.Filename()
		if name != "" && sheet.Supported(name) {
			found = true
			return false
		}
		return true
	})
	return found
}

func fetchedMessage(mailbox string, msg *imap.Message, raw []byte) internal.FetchedMailMessage {
	messageID := ""
	subject := ""
	from := ""
	if msg.Envelope != nil {
		messageID = msg.Envelope.MessageId
		subject = msg.Envelope.Subject
		from = formatAddresses(msg.Envelope.From)
	}
	if messageID == "" {
		messageID = fmt.Sprintf("imap-%d", msg.Uid)
	}

	received := time.Now().UTC().Format(time.RFC3339)
	if !msg.InternalDate.IsZero() {
		received = msg.InternalDate.UTC().Format(time.RFC3339)
	}

	return internal.FetchedMailMessage{
		Provider:   "imap",
		MessageID:  messageID,
		Mailbox:    mailbox,
		Subject:    subject,
		From:       from,
		ReceivedAt: received,
		Raw:        raw,
	}
}

func formatAddresses(addrs []*imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		email := strings.Trim(strings.Join([]string{a.MailboxName, a.HostName}, "@"), "@")
		if a.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.PersonalName, email))
		} else {
			parts = append(parts, email)
		}
	}
	return strings.Join(parts, ", ")
}
