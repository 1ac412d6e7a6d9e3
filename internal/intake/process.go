package intake

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"permitnorm/internal"
	"permitnorm/internal/storage"
)

// ProcessingService turns fetched emails into export files filed under
// RawDir/<AHJ>/, ready for a folder run.
type ProcessingService struct {
	db     *storage.DB
	rawDir string
	ahj    string
	logger *zap.Logger
}

// NewProcessingService files every email under ahj when it is set, and
// under the mailbox name otherwise.
func NewProcessingService(db *storage.DB, rawDir, ahj string, logger *zap.Logger) *ProcessingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessingService{db: db, rawDir: rawDir, ahj: ahj, logger: logger.Named("intake")}
}

type ProcessResult struct {
	EmailID int
	AHJ     string
	Status  string
	Saved   int
}

// PendingResult summarizes a ProcessPending pass. AHJs lists, in first-seen
// order, every authority that received at least one new export file.
type PendingResult struct {
	Emails int
	Saved  int
	Failed int
	AHJs   []string
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	email, err := s.db.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	if email == nil {
		return ProcessResult{}, fmt.Errorf("email not found: %s/%s", provider, messageID)
	}
	return s.ProcessEmail(*email)
}

// ProcessPending handles up to limit fetched emails. A failing email is
// marked failed and does not stop the pass.
func (s *ProcessingService) ProcessPending(limit int, provider string) (PendingResult, error) {
	pending, err := s.db.ListEmailsByStatus(internal.EmailFetched, limit)
	if err != nil {
		return PendingResult{}, err
	}
	var out PendingResult
	seen := map[string]bool{}
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		res, err := s.ProcessEmail(email)
		out.Emails++
		if err != nil {
			out.Failed++
			s.logger.Warn("email failed", zap.Int("email_id", email.ID), zap.Error(err))
			if uerr := s.db.UpdateEmailStatus(email.ID, internal.EmailFailed); uerr != nil {
				return out, uerr
			}
			continue
		}
		out.Saved += res.Saved
		if res.Saved > 0 && !seen[res.AHJ] {
			seen[res.AHJ] = true
			out.AHJs = append(out.AHJs, res.AHJ)
		}
	}
	return out, nil
}

// ProcessEmail saves the spreadsheet attachments of one email. Emails that
// do not look like a permit export, or whose AHJ cannot be resolved, are
// marked ignored.
func (s *ProcessingService) ProcessEmail(email internal.EmailRow) (ProcessResult, error) {
	logger := s.logger.With(zap.Int("email_id", email.ID))
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}
	msg, err := ReadMessage(raw)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("parse email %d: %w", email.ID, err)
	}

	res := ProcessResult{EmailID: email.ID, AHJ: ResolveAHJ(s.ahj, email.Mailbox), Status: internal.EmailIgnored}
	detect := DetectExport(firstNonEmpty(msg.Subject, email.Subject), msg.Text, msg.AttachmentNames())
	if err := s.db.ClearEmailAttachments(email.ID); err != nil {
		return ProcessResult{}, err
	}

	switch {
	case !detect.IsExport:
		logger.Debug("email ignored", zap.String("reason", detect.Reason), zap.Float64("score", detect.Score))
	case res.AHJ == "":
		logger.Warn("email ignored, no AHJ", zap.String("mailbox", email.Mailbox))
	default:
		dir := filepath.Join(s.rawDir, res.AHJ)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ProcessResult{}, err
		}
		for _, att := range msg.Attachments {
			sum := sha256.Sum256(att.Content)
			path := filepath.Join(dir, fmt.Sprintf("%d_%s", email.ID, SafeName(att.FileName)))
			if err := os.WriteFile(path, att.Content, 0o644); err != nil {
				return ProcessResult{}, err
			}
			if _, err := s.db.InsertAttachment(internal.AttachmentRow{
				EmailID:  email.ID,
				AHJ:      res.AHJ,
				FileName: att.FileName,
				Path:     path,
				Hash:     hex.EncodeToString(sum[:]),
				Format:   string(att.Format),
			}); err != nil {
				return ProcessResult{}, err
			}
			res.Saved++
		}
		if err := s.db.SetEmailAHJ(email.ID, res.AHJ); err != nil {
			return ProcessResult{}, err
		}
		res.Status = internal.EmailExtracted
		logger.Info("export saved", zap.String("ahj", res.AHJ), zap.Int("files", res.Saved))
	}

	if err := s.db.UpdateEmailStatus(email.ID, res.Status); err != nil {
		return ProcessResult{}, err
	}
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
