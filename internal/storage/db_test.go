package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permitnorm/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state", "permitnorm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEmailUpsertAndStatus(t *testing.T) {
	db := openTestDB(t)

	row, err := db.UpsertEmail(internal.EmailRow{
		Provider: "imap", MessageID: "<m1@x>", Mailbox: "INBOX/Permits/Springfield",
		Subject: "Permit export", Hash: "h1", RawRef: "raw/h1.eml", ReceivedAt: "2024-01-02T00:00:00Z",
	})
	require.NoError(t, err)
	assert.NotZero(t, row.ID)
	assert.Equal(t, internal.EmailFetched, row.Status)

	again, err := db.UpsertEmail(internal.EmailRow{Provider: "imap", MessageID: "<m1@x>", Subject: "Re: Permit export", Hash: "h1", RawRef: "raw/h1.eml"})
	require.NoError(t, err)
	assert.Equal(t, row.ID, again.ID)
	assert.Equal(t, "Re: Permit export", again.Subject)

	require.NoError(t, db.SetEmailAHJ(row.ID, "Springfield"))
	require.NoError(t, db.UpdateEmailStatus(row.ID, internal.EmailExtracted))
	got, err := db.GetEmailByID(row.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Springfield", got.AHJ)

	pending, err := db.ListEmailsByStatus(internal.EmailFetched, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	missing, err := db.GetEmailByProviderMessageID("imap", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAttachments(t *testing.T) {
	db := openTestDB(t)
	email, err := db.UpsertEmail(internal.EmailRow{Provider: "gmail", MessageID: "g1", Hash: "h", RawRef: "r"})
	require.NoError(t, err)

	a := internal.AttachmentRow{EmailID: email.ID, AHJ: "Springfield", FileName: "permits.xlsx", Path: "raw/Springfield/permits.xlsx", Hash: "a1", Format: "xlsx"}
	id1, err := db.InsertAttachment(a)
	require.NoError(t, err)
	a.Hash = "a2"
	id2, err := db.InsertAttachment(a)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	list, err := db.ListAttachments(email.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a2", list[0].Hash)

	require.NoError(t, db.ClearEmailAttachments(email.ID))
	list, err = db.ListAttachments(email.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRunsAndReview(t *testing.T) {
	db := openTestDB(t)

	first := internal.RunRecord{ID: "run-1", AHJ: "Springfield", Mode: internal.RunFolder, Status: internal.RunOK, StartedAt: "2024-01-01T00:00:00Z", FinishedAt: "2024-01-01T00:00:01Z", Pivoted: true, RowsIn: 10, RowsOut: 4}
	second := internal.RunRecord{ID: "run-2", AHJ: "Springfield", Mode: internal.RunFolder, Status: internal.RunOK, StartedAt: "2024-02-01T00:00:00Z", FinishedAt: "2024-02-01T00:00:01Z"}
	other := internal.RunRecord{ID: "run-3", AHJ: "Shelbyville", Mode: internal.RunFiles, Status: internal.RunFailed, Error: "boom", StartedAt: "2024-03-01T00:00:00Z", FinishedAt: "2024-03-01T00:00:01Z"}

	require.NoError(t, db.InsertRun(first, []internal.ReviewValueRow{{Domain: "permit_status", Value: "On Hold", Count: 3}}, nil))
	require.NoError(t, db.InsertRun(second,
		[]internal.ReviewValueRow{{Domain: "permit_status", Value: "Stalled", Count: 1}, {Domain: "permit_status", Value: "On Hold", Count: 2}},
		[]internal.NoticeRow{{Stage: "pivot", Level: "warn", Message: "2 inspections past slot 8 dropped"}}))
	require.NoError(t, db.InsertRun(other, []internal.ReviewValueRow{{Domain: "project_type", Value: "Ground", Count: 1}}, nil))

	runs, err := db.ListRuns("", 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-3", runs[0].ID)

	got, err := db.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Pivoted)
	assert.Equal(t, 4, got.RowsOut)

	review, err := db.ListReviewValues("")
	require.NoError(t, err)
	require.Len(t, review, 2, "only the latest successful run per AHJ")
	assert.Equal(t, "On Hold", review[0].Value)
	assert.Equal(t, "Springfield", review[0].AHJ)
	assert.Equal(t, "run-2", review[1].RunID)

	notices, err := db.ListNotices("run-2")
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "pivot", notices[0].Stage)

	assert.Error(t, db.InsertRun(first, nil, nil), "duplicate run id")
}

func TestMetadata(t *testing.T) {
	db := openTestDB(t)
	v, err := db.GetMetadata("imap_last_uid")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, db.SetMetadata("imap_last_uid", "41"))
	require.NoError(t, db.SetMetadata("imap_last_uid", "42"))
	v, err = db.GetMetadata("imap_last_uid")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "42", *v)
}
