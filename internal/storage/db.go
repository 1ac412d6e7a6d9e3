package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"permitnorm/internal"
)

type DB struct {
	conn *sqlx.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; batch runs share this handle
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA journal_mode = WAL;`, `PRAGMA foreign_keys = ON;`, `PRAGMA busy_timeout = 5000;`} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  mailbox TEXT NOT NULL DEFAULT '',
  ahj TEXT NOT NULL DEFAULT '',
  subject TEXT NOT NULL DEFAULT '',
  sender TEXT NOT NULL DEFAULT '',
  receivedAt TEXT NOT NULL DEFAULT '',
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS attachments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  emailId INTEGER NOT NULL,
  ahj TEXT NOT NULL,
  fileName TEXT NOT NULL,
  path TEXT NOT NULL,
  hash TEXT NOT NULL,
  format TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(emailId, fileName),
  FOREIGN KEY(emailId) REFERENCES emails(id)
);
CREATE INDEX IF NOT EXISTS idx_attachments_ahj ON attachments(ahj);

CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  ahj TEXT NOT NULL,
  mode TEXT NOT NULL,
  inputsJson TEXT NOT NULL DEFAULT '[]',
  filesLoaded INTEGER NOT NULL DEFAULT 0,
  filesSkipped INTEGER NOT NULL DEFAULT 0,
  rowsIn INTEGER NOT NULL DEFAULT 0,
  rowsOut INTEGER NOT NULL DEFAULT 0,
  pivoted INTEGER NOT NULL DEFAULT 0,
  overflowDropped INTEGER NOT NULL DEFAULT 0,
  duplicatesRemoved INTEGER NOT NULL DEFAULT 0,
  outputPath TEXT NOT NULL DEFAULT '',
  vocabVersion TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  startedAt TEXT NOT NULL,
  finishedAt TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_ahj ON runs(ahj, startedAt);

CREATE TABLE IF NOT EXISTS review_values (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  domain TEXT NOT NULL,
  value TEXT NOT NULL,
  count INTEGER NOT NULL,
  FOREIGN KEY(runId) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS notices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  stage TEXT NOT NULL,
  level TEXT NOT NULL,
  message TEXT NOT NULL,
  FOREIGN KEY(runId) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

const emailColumns = `id, provider, messageId, mailbox, ahj, subject, sender, receivedAt, hash, status, rawRef`

func (d *DB) UpsertEmail(row internal.EmailRow) (internal.EmailRow, error) {
	if row.Status == "" {
		row.Status = internal.EmailFetched
	}
	_, err := d.conn.NamedExec(`
INSERT INTO emails (provider, messageId, mailbox, ahj, subject, sender, receivedAt, hash, status, rawRef)
VALUES (:provider, :messageId, :mailbox, :ahj, :subject, :sender, :receivedAt, :hash, :status, :rawRef)
ON CONFLICT(provider, messageId) DO UPDATE SET
  mailbox=excluded.mailbox,
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, row)
	if err != nil {
		return internal.EmailRow{}, err
	}

	stored, err := d.GetEmailByProviderMessageID(row.Provider, row.MessageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if stored == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *stored, nil
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := d.conn.Get(&row, `SELECT `+emailColumns+` FROM emails WHERE provider = ? AND messageId = ?`, provider, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetEmailByID(id int) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := d.conn.Get(&row, `SELECT `+emailColumns+` FROM emails WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	var out []internal.EmailRow
	err := d.conn.Select(&out, `SELECT `+emailColumns+` FROM emails WHERE status = ? ORDER BY receivedAt ASC, id ASC LIMIT ?`, status, limit)
	return out, err
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

// SetEmailAHJ records the authority an email was filed under.
func (d *DB) SetEmailAHJ(emailID int, ahj string) error {
	_, err := d.conn.Exec(`UPDATE emails SET ahj = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, ahj, emailID)
	return err
}

func (d *DB) InsertAttachment(row internal.AttachmentRow) (int64, error) {
	_, err := d.conn.NamedExec(`
INSERT INTO attachments (emailId, ahj, fileName, path, hash, format)
VALUES (:emailId, :ahj, :fileName, :path, :hash, :format)
ON CONFLICT(emailId, fileName) DO UPDATE SET
  ahj=excluded.ahj,
  path=excluded.path,
  hash=excluded.hash,
  format=excluded.format
`, row)
	if err != nil {
		return 0, err
	}
	var id int64
	err = d.conn.Get(&id, `SELECT id FROM attachments WHERE emailId = ? AND fileName = ?`, row.EmailID, row.FileName)
	return id, err
}

func (d *DB) ListAttachments(emailID int) ([]internal.AttachmentRow, error) {
	var out []internal.AttachmentRow
	err := d.conn.Select(&out, `
SELECT id, emailId, ahj, fileName, path, hash, format
FROM attachments WHERE emailId = ? ORDER BY id ASC
`, emailID)
	return out, err
}

func (d *DB) ClearEmailAttachments(emailID int) error {
	_, err := d.conn.Exec(`DELETE FROM attachments WHERE emailId = ?`, emailID)
	return err
}

// InsertRun stores a run together with its review values and notices.
func (d *DB) InsertRun(run internal.RunRecord, review []internal.ReviewValueRow, notices []internal.NoticeRow) error {
	tx, err := d.conn.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NamedExec(`
INSERT INTO runs (
  id, ahj, mode, inputsJson, filesLoaded, filesSkipped, rowsIn, rowsOut, pivoted,
  overflowDropped, duplicatesRemoved, outputPath, vocabVersion, status, error, startedAt, finishedAt
) VALUES (
  :id, :ahj, :mode, :inputsJson, :filesLoaded, :filesSkipped, :rowsIn, :rowsOut, :pivoted,
  :overflowDropped, :duplicatesRemoved, :outputPath, :vocabVersion, :status, :error, :startedAt, :finishedAt
)`, run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, v := range review {
		v.RunID = run.ID
		if _, err := tx.NamedExec(`INSERT INTO review_values (runId, domain, value, count) VALUES (:runId, :domain, :value, :count)`, v); err != nil {
			return fmt.Errorf("insert review value: %w", err)
		}
	}
	for _, n := range notices {
		n.RunID = run.ID
		if _, err := tx.NamedExec(`INSERT INTO notices (runId, stage, level, message) VALUES (:runId, :stage, :level, :message)`, n); err != nil {
			return fmt.Errorf("insert notice: %w", err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, ahj, mode, inputsJson, filesLoaded, filesSkipped, rowsIn, rowsOut, pivoted,
  overflowDropped, duplicatesRemoved, outputPath, vocabVersion, status, error, startedAt, finishedAt`

// ListRuns returns the most recent runs first. An empty ahj lists all.
func (d *DB) ListRuns(ahj string, limit int) ([]internal.RunRecord, error) {
	var out []internal.RunRecord
	err := d.conn.Select(&out, `
SELECT `+runColumns+`
FROM runs WHERE (? = '' OR ahj = ?)
ORDER BY startedAt DESC, id DESC LIMIT ?
`, ahj, ahj, limit)
	return out, err
}

func (d *DB) GetRun(id string) (*internal.RunRecord, error) {
	var run internal.RunRecord
	err := d.conn.Get(&run, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (d *DB) ListNotices(runID string) ([]internal.NoticeRow, error) {
	var out []internal.NoticeRow
	err := d.conn.Select(&out, `SELECT runId, stage, level, message FROM notices WHERE runId = ? ORDER BY id ASC`, runID)
	return out, err
}

// ListReviewValues returns the unmapped values of the latest successful run
// of every AHJ (or of one AHJ), most frequent first.
func (d *DB) ListReviewValues(ahj string) ([]internal.ReviewValueRow, error) {
	var out []internal.ReviewValueRow
	err := d.conn.Select(&out, `
SELECT v.runId, r.ahj, v.domain, v.value, v.count
FROM review_values v
JOIN runs r ON r.id = v.runId
WHERE (? = '' OR r.ahj = ?)
  AND r.id = (
    SELECT id FROM runs latest
    WHERE latest.ahj = r.ahj AND latest.status = 'ok'
    ORDER BY latest.startedAt DESC, latest.id DESC LIMIT 1
  )
ORDER BY r.ahj ASC, v.domain ASC, v.count DESC, v.value ASC
`, ahj, ahj)
	return out, err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.Get(&value, `SELECT value FROM metadata WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
