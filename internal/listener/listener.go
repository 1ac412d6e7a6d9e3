package listener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"permitnorm/internal"
	"permitnorm/internal/config"
	"permitnorm/internal/connectors"
	gmailconnector "permitnorm/internal/connectors/gmail"
	imapconnector "permitnorm/internal/connectors/imap"
	"permitnorm/internal/intake"
	"permitnorm/internal/runner"
	"permitnorm/internal/sheet"
	"permitnorm/internal/storage"
)

const lastCycleKey = "intake.last_cycle"

type Service struct {
	db      *storage.DB
	cfg     config.Config
	runs    *runner.Service
	logger  *zap.Logger
	connect func(provider string) (connectors.MailConnector, error)
}

// NewService wires a polling listener. runs may be nil when
// INTAKE_AUTO_NORMALIZE is off.
func NewService(db *storage.DB, cfg config.Config, runs *runner.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{db: db, cfg: cfg, runs: runs, logger: logger.Named("listener")}
	s.connect = s.makeConnector
	return s
}

// CycleResult counts what one fetch -> extract -> normalize cycle did.
type CycleResult struct {
	Fetched    int
	Stored     int
	Emails     int
	Saved      int
	Normalized []string
	Failed     []string
}

// Run polls until ctx is canceled. A failed cycle is logged and retried on
// the next tick.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(max(1, s.cfg.IntakeIntervalSec)) * time.Second
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("listener cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunOnce(ctx context.Context) (CycleResult, error) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.IntakeProvider))
	mailConnector, err := s.connect(provider)
	if err != nil {
		return CycleResult{}, err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector, s.logger)
	fetched, err := fetchService.FetchAndStore(ctx, s.cfg.IntakeLabel, s.cfg.IntakeFetchMax)
	if err != nil {
		return CycleResult{}, err
	}
	res := CycleResult{Fetched: fetched.Fetched, Stored: fetched.Stored}

	processor := intake.NewProcessingService(s.db, s.cfg.RawDir, s.cfg.IntakeAHJ, s.logger)
	pending, err := processor.ProcessPending(s.cfg.IntakeProcessBatch, provider)
	if err != nil {
		return res, err
	}
	res.Emails, res.Saved = pending.Emails, pending.Saved

	if s.cfg.IntakeAutoNormalize && s.runs != nil && len(pending.AHJs) > 0 {
		batch, err := s.runs.RunBatch(ctx, s.cfg.RawDir, pending.AHJs, runner.Options{
			Mode:       internal.RunIntake,
			Extensions: sheet.AllExtensions,
		})
		if err != nil {
			return res, err
		}
		for _, b := range batch {
			if b.Err != nil {
				res.Failed = append(res.Failed, b.AHJ)
				continue
			}
			res.Normalized = append(res.Normalized, b.AHJ)
		}
	}

	if err := s.db.SetMetadata(lastCycleKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return res, err
	}
	s.logger.Info("listener cycle done",
		zap.String("provider", provider),
		zap.Int("fetched", res.Fetched),
		zap.Int("stored", res.Stored),
		zap.Int("emails", res.Emails),
		zap.Int("files_saved", res.Saved),
		zap.Strings("normalized", res.Normalized),
		zap.Strings("failed", res.Failed))
	return res, nil
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported intake provider: %s", provider)
	}
}
