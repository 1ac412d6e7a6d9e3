package connectors

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"permitnorm/internal/storage"
)

type FetchService struct {
	connector MailConnector
	store     *MailStoreService
	logger    *zap.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, logger *zap.Logger) *FetchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FetchService{
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		logger:    logger.Named("fetch"),
	}
}

func (s *FetchService) FetchAndStore(ctx context.Context, mailbox string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchMailbox(ctx, mailbox, max)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch %s: %w", mailbox, err)
	}

	stored := 0
	for _, msg := range messages {
		if msg.Mailbox == "" {
			msg.Mailbox = mailbox
		}
		row, err := s.store.Store(msg)
		if err != nil {
			return FetchResult{Fetched: len(messages), Stored: stored}, err
		}
		stored++
		s.logger.Debug("email stored",
			zap.Int("email_id", row.ID),
			zap.String("provider", row.Provider),
			zap.String("subject", row.Subject))
	}

	s.logger.Info("mailbox fetched", zap.String("mailbox", mailbox), zap.Int("fetched", len(messages)), zap.Int("stored", stored))
	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}
