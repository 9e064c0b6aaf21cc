package crontab

import (
	"context"
	"fmt"
	"time"

	"github.com/mileusna/crontab"

	"veilchat-server/chat-api/internal/config"
	"veilchat-server/chat-api/internal/domain/chat"
	"veilchat-server/chat-api/internal/infrastructure/logger"
	"veilchat-server/chat-api/internal/infrastructure/metrics"
	"veilchat-server/chat-api/internal/utils/platformerrors"
)

const (
	DefaultStatsInterval = 5               // in minutes
	CronJobTimeout       = 1 * time.Minute // Timeout for each cron job execution
)

type Crontab struct {
	ctab *crontab.Crontab
	cfg  *config.Config
	repo chat.Repository
}

func NewCrontab(cfg *config.Config, repo chat.Repository) *Crontab {
	return &Crontab{
		ctab: crontab.New(),
		cfg:  cfg,
		repo: repo,
	}
}

// Run refreshes the ledger size gauges on a fixed schedule until ctx is
// cancelled.
func (c *Crontab) Run(ctx context.Context) error {
	log := logger.GetLogger()
	// execute once on server start
	c.refreshLedgerStats(ctx)

	if c.cfg.StatsEnabled {
		interval := c.cfg.StatsIntervalMinutes
		if interval <= 0 {
			interval = DefaultStatsInterval
		}

		cronExpr := fmt.Sprintf("*/%d * * * *", interval)
		if err := c.ctab.AddJob(cronExpr, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
			defer cancel()
			c.refreshLedgerStats(jobCtx)
		}); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add ledger stats job")
		}
		log.Info().Msgf("ledger stats scheduled: every %d minute(s)", interval)
	}

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) refreshLedgerStats(ctx context.Context) {
	log := logger.GetLogger()

	conversations, err := c.repo.CountConversations(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to count conversations for stats")
		return
	}
	messages, err := c.repo.CountMessages(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to count messages for stats")
		return
	}

	metrics.UpdateLedgerStats(conversations, messages)
}
