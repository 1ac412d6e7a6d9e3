package listener

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"permitnorm/internal"
	"permitnorm/internal/config"
	"permitnorm/internal/connectors"
	"permitnorm/internal/runner"
	"permitnorm/internal/storage"
	"permitnorm/internal/vocab"
)

type fakeConnector struct {
	messages []internal.FetchedMailMessage
	err      error
}

func (f *fakeConnector) FetchMailbox(_ context.Context, mailbox string, max int) ([]internal.FetchedMailMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.messages
	if len(out) > max {
		out = out[:max]
	}
	f.messages = f.messages[len(out):]
	return out, nil
}

func exportEmail(t *testing.T, csv string) []byte {
	t.Helper()
	part, err := enmime.Builder().
		From("Permit Desk", "permits@springfield.example").
		To("Ops", "ops@installer.example").
		Subject("Weekly permit report").
		Text([]byte("Inspection results attached.")).
		AddAttachment([]byte(csv), "application/octet-stream", "permits.csv").
		Build()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, part.Encode(&buf))
	return buf.Bytes()
}

func newService(t *testing.T, conn connectors.MailConnector) (*Service, config.Config, *storage.DB) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Config{
		DBPath:              filepath.Join(root, "data", "permitnorm.db"),
		RawDir:              filepath.Join(root, "raw"),
		RawMailDir:          filepath.Join(root, "data", "mail"),
		OutputDir:           filepath.Join(root, "out"),
		OutputFile:          "Clean.xlsx",
		OutputSheet:         "Clean",
		BatchWorkers:        2,
		IntakeProvider:      "imap",
		IntakeLabel:         "INBOX/Permits/Springfield",
		IntakeFetchMax:      10,
		IntakeProcessBatch:  10,
		IntakeAutoNormalize: true,
	}
	db, err := storage.Open(cfg.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	set, err := vocab.Default()
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	svc := NewService(db, cfg, runner.New(cfg, db, set, logger), logger)
	svc.connect = func(string) (connectors.MailConnector, error) { return conn, nil }
	return svc, cfg, db
}

func TestRunOnceFetchesExtractsAndNormalizes(t *testing.T) {
	conn := &fakeConnector{messages: []internal.FetchedMailMessage{{
		Provider:  "imap",
		MessageID: "<export-1@springfield.example>",
		Subject:   "Weekly permit report",
		Raw:       exportEmail(t, "permit_ID,inspt_status_last,inspt_date_last\nP1,Approved,1/5/2023\n"),
	}}}
	svc, cfg, db := newService(t, conn)

	res, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, []string{"Springfield"}, res.Normalized)
	assert.Empty(t, res.Failed)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "Springfield", "Clean.xlsx"))

	runs, err := db.ListRuns("Springfield", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, internal.RunIntake, runs[0].Mode)

	last, err := db.GetMetadata(lastCycleKey)
	require.NoError(t, err)
	require.NotNil(t, last)

	again, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.Fetched)
	assert.Empty(t, again.Normalized)
}

func TestRunOnceReportsFetchError(t *testing.T) {
	svc, _, _ := newService(t, &fakeConnector{err: errors.New("connection refused")})
	_, err := svc.RunOnce(context.Background())
	require.ErrorContains(t, err, "connection refused")
}

func TestRunStopsOnCancel(t *testing.T) {
	svc, _, _ := newService(t, &fakeConnector{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, svc.Run(ctx))
}

func TestUnknownProvider(t *testing.T) {
	svc := NewService(nil, config.Config{IntakeProvider: "pop3"}, nil, nil)
	_, err := svc.RunOnce(context.Background())
	require.ErrorContains(t, err, "unsupported intake provider")
}
