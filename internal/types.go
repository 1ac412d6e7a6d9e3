package internal

// Email processing states.
const (
	EmailFetched   = "fetched"
	EmailExtracted = "extracted"
	EmailIgnored   = "ignored"
	EmailFailed    = "failed"
)

type EmailRow struct {
	ID         int    `db:"id"`
	Provider   string `db:"provider"`
	MessageID  string `db:"messageId"`
	Mailbox    string `db:"mailbox"`
	AHJ        string `db:"ahj"`
	Subject    string `db:"subject"`
	Sender     string `db:"sender"`
	ReceivedAt string `db:"receivedAt"`
	Hash       string `db:"hash"`
	Status     string `db:"status"`
	RawRef     string `db:"rawRef"`
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Mailbox    string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

// AttachmentRow is an export file saved from an intake email.
type AttachmentRow struct {
	ID       int    `db:"id"`
	EmailID  int    `db:"emailId"`
	AHJ      string `db:"ahj"`
	FileName string `db:"fileName"`
	Path     string `db:"path"`
	Hash     string `db:"hash"`
	Format   string `db:"format"`
}

// Run modes.
const (
	RunFiles  = "files"
	RunFolder = "folder"
	RunIntake = "intake"
)

// Run outcomes.
const (
	RunOK     = "ok"
	RunFailed = "failed"
)

// RunRecord is one normalization run of one AHJ.
type RunRecord struct {
	ID                string `db:"id"`
	AHJ               string `db:"ahj"`
	Mode              string `db:"mode"`
	InputsJSON        string `db:"inputsJson"`
	FilesLoaded       int    `db:"filesLoaded"`
	FilesSkipped      int    `db:"filesSkipped"`
	RowsIn            int    `db:"rowsIn"`
	RowsOut           int    `db:"rowsOut"`
	Pivoted           bool   `db:"pivoted"`
	OverflowDropped   int    `db:"overflowDropped"`
	DuplicatesRemoved int    `db:"duplicatesRemoved"`
	OutputPath        string `db:"outputPath"`
	VocabVersion      string `db:"vocabVersion"`
	Status            string `db:"status"`
	Error             string `db:"error"`
	StartedAt         string `db:"startedAt"`
	FinishedAt        string `db:"finishedAt"`
}

// ReviewValueRow is an unmapped categorical value left for a person to
// add to the vocabulary.
type ReviewValueRow struct {
	RunID  string `db:"runId"`
	AHJ    string `db:"ahj"`
	Domain string `db:"domain"`
	Value  string `db:"value"`
	Count  int    `db:"count"`
}

type NoticeRow struct {
	RunID   string `db:"runId"`
	Stage   string `db:"stage"`
	Level   string `db:"level"`
	Message string `db:"message"`
}
