package intake

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"

	"permitnorm/internal/sheet"
)

// Attachment is one file carried by an email.
type Attachment struct {
	FileName string
	Content  []byte
	Format   sheet.Format
}

// Message is the part of an intake email the processing step needs.
type Message struct {
	Subject     string
	Text        string
	Attachments []Attachment
	Skipped     []string
}

func (m Message) AttachmentNames() []string {
	out := make([]string, 0, len(m.Attachments)+len(m.Skipped))
	for _, a := range m.Attachments {
		out = append(out, a.FileName)
	}
	return append(out, m.Skipped...)
}

// ReadMessage parses a raw RFC 822 message and keeps the attachments whose
// extension a loader accepts. Other attachments are listed in Skipped.
func ReadMessage(raw []byte) (Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return Message{}, err
	}

	msg := Message{Subject: env.GetHeader("Subject"), Text: env.Text}
	parts := append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...)
	for _, part := range parts {
		filename := strings.TrimSpace(part.FileName)
		if filename == "" {
			continue
		}
		format, err := sheet.FormatOf(filename)
		if err != nil {
			msg.Skipped = append(msg.Skipped, filename)
			continue
		}
		msg.Attachments = append(msg.Attachments, Attachment{FileName: filename, Content: part.Content, Format: format})
	}
	return msg, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._ -]+`)

// SafeName makes a mailbox segment or file name usable as a path element.
func SafeName(input string) string {
	out := strings.TrimSpace(unsafeName.ReplaceAllString(filepath.Base(input), "_"))
	out = strings.Trim(out, ". ")
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}

// ResolveAHJ picks the authority an email belongs to: the explicit
// override when set, otherwise the last segment of the mailbox path
// (INBOX/Permits/Springfield -> Springfield).
func ResolveAHJ(override, mailbox string) string {
	if v := strings.TrimSpace(override); v != "" {
		return SafeName(v)
	}
	mailbox = strings.Trim(strings.TrimSpace(mailbox), "/")
	if mailbox == "" || strings.EqualFold(mailbox, "INBOX") {
		return ""
	}
	if i := strings.LastIndex(mailbox, "/"); i >= 0 {
		mailbox = mailbox[i+1:]
	}
	return SafeName(mailbox)
}
