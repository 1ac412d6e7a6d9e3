package imap

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"

	"permitnorm/internal/config"
)

func attachment(filename string) *imap.BodyStructure {
	return &imap.BodyStructure{
		MIMEType:          "application",
		MIMESubType:       "octet-stream",
		Disposition:       "attachment",
		DispositionParams: map[string]string{"filename": filename},
	}
}

func TestHasExportAttachment(t *testing.T) {
	text := &imap.BodyStructure{MIMEType: "text", MIMESubType: "plain"}

	cases := []struct {
		name string
		bs   *imap.BodyStructure
		want bool
	}{
		{"nil", nil, false},
		{"plain text only", text, false},
		{"single part export", attachment("permits.xlsx"), true},
		{"photo only", &imap.BodyStructure{
			MIMEType: "multipart", MIMESubType: "mixed",
			Parts: []*imap.BodyStructure{text, attachment("site-photo.jpg")},
		}, false},
		{"nested csv", &imap.BodyStructure{
			MIMEType: "multipart", MIMESubType: "mixed",
			Parts: []*imap.BodyStructure{
				{MIMEType: "multipart", MIMESubType: "alternative", Parts: []*imap.BodyStructure{text}},
				{
					MIMEType: "multipart", MIMESubType: "related",
					Parts: []*imap.BodyStructure{attachment("Inspections.CSV")},
				},
			},
		}, true},
		{"content type name", &imap.BodyStructure{
			MIMEType: "multipart", MIMESubType: "mixed",
			Parts: []*imap.BodyStructure{text, {
				MIMEType: "application", MIMESubType: "vnd.ms-excel",
				Params: map[string]string{"name": "report.xls"},
			}},
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, hasExportAttachment(tc.bs))
		})
	}
}

func TestFetchedMessage(t *testing.T) {
	msg := &imap.Message{
		Uid:          42,
		InternalDate: time.Date(2023, 11, 14, 22, 13, 20, 0, time.FixedZone("EST", -5*3600)),
		Envelope: &imap.Envelope{
			Subject: "Weekly permit report",
			From:    []*imap.Address{{PersonalName: "Permits Desk", MailboxName: "permits", HostName: "springfield.example"}},
		},
	}

	got := fetchedMessage("Permits/Springfield", msg, []byte("raw"))
	assert.Equal(t, "imap", got.Provider)
	assert.Equal(t, "imap-42", got.MessageID)
	assert.Equal(t, "Permits/Springfield", got.Mailbox)
	assert.Equal(t, "Weekly permit report", got.Subject)
	assert.Equal(t, "Permits Desk <permits@springfield.example>", got.From)
	assert.Equal(t, "2023-11-15T03:13:20Z", got.ReceivedAt)
	assert.Equal(t, []byte("raw"), got.Raw)
}

func TestNewConnectorRequiresCredentials(t *testing.T) {
	_, err := NewConnector(config.Config{IMAPHost: "imap.example", IMAPUser: "clerk"})
	assert.ErrorContains(t, err, "IMAP_PASSWORD")
}
