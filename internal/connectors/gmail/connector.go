package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"permitnorm/internal"
	"permitnorm/internal/config"
	"permitnorm/internal/sheet"
)

const user = "me"

// exportQuery narrows a label to messages that can carry an export file.
const exportQuery = "has:attachment"

type Connector struct {
	service *gmail.Service
	labels  map[string]*gmail.Label
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}
	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	return NewConnectorWithOptions(context.Background(), option.WithTokenSource(tokenSource))
}

// NewConnectorWithOptions builds a connector from raw client options, for
// instance an HTTP client and endpoint.
func NewConnectorWithOptions(ctx context.Context, opts ...option.ClientOption) (*Connector, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Connector{service: svc}, nil
}

// FetchMailbox reads the messages under a label that carry at least one
// attachment the loaders accept. mailbox is a label name such as
// "Permits/Springfield" or a label id; the returned messages carry the
// label name so that the AHJ can be taken from its last segment.
func (c *Connector) FetchMailbox(ctx context.Context, mailbox string, max int) ([]internal.FetchedMailMessage, error) {
	label, err := c.resolveLabel(ctx, mailbox)
	if err != nil {
		return nil, err
	}

	list, err := c.service.Users.Messages.List(user).LabelIds(label.Id).Q(exportQuery).MaxResults(int64(max)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", label.Name, err)
	}

	out := make([]internal.FetchedMailMessage, 0, len(list.Messages))
	for _, ref := range list.Messages {
		if ref.Id == "" {
			continue
		}
		// the full format lists attachment names without their bodies
		full, err := c.service.Users.Messages.Get(user, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		if !hasExportAttachment(full.Payload) {
			continue
		}

		rawResp, err := c.service.Users.Messages.Get(user, ref.Id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		if rawResp.Raw == "" {
			continue
		}
		raw, err := decodeBase64URL(rawResp.Raw)
		if err != nil {
			return nil, err
		}

		headers := headerMap(full.Payload)
		messageID := headers["message-id"]
		if messageID == "" {
			messageID = ref.Id
		}
		received := time.Now().UTC()
		if full.InternalDate > 0 {
			received = time.UnixMilli(full.InternalDate).UTC()
		}

		out = append(out, internal.FetchedMailMessage{
			Provider:   "gmail",
			MessageID:  messageID,
			Mailbox:    label.Name,
			Subject:    headers["subject"],
			From:       headers["from"],
			ReceivedAt: received.Format(time.RFC3339),
			Raw:        raw,
		})
	}
	return out, nil
}

// resolveLabel accepts a label id or a label name (case-insensitive).
// Labels are listed once per connector.
func (c *Connector) resolveLabel(ctx context.Context, mailbox string) (*gmail.Label, error) {
	mailbox = strings.TrimSpace(mailbox)
	if c.labels == nil {
		resp, err := c.service.Users.Labels.List(user).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("list labels: %w", err)
		}
		c.labels = make(map[string]*gmail.Label, 2*len(resp.Labels))
		for _, l := range resp.Labels {
			c.labels[l.Id] = l
			c.labels[strings.ToLower(l.Name)] = l
		}
	}
	if l, ok := c.labels[mailbox]; ok {
		return l, nil
	}
	if l, ok := c.labels[strings.ToLower(mailbox)]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("gmail label %q not found", mailbox)
}

func hasExportAttachment(part *gmail.MessagePart) bool {
	if part == nil {
		return false
	}
	if part.Filename != "" && sheet.Supported(part.Filename) {
		return true
	}
	for _, p := range part.Parts {
		if hasExportAttachment(p) {
			return true
		}
	}
	return false
}

func headerMap(part *gmail.MessagePart) map[string]string {
	out := map[string]string{}
	if part == nil {
		return out
	}
	for _, h := range part.Headers {
		out[strings.ToLower(h.Name)] = h.Value
	}
	return out
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
