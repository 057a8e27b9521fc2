package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"staybid/internal/domain"
	"staybid/pkg/logger"
)

// Sweeper runs the settlement sweep on a fixed interval. When a leader
// elector is configured, only the current leader instance executes the
// sweep so concurrent deployments do not double-settle.
type Sweeper struct {
	service    *AuctionService
	leader     domain.LeaderElection
	instanceID string
	interval   time.Duration
	cron       *cron.Cron
	log        logger.Logger
}

func NewSweeper(service *AuctionService, leader domain.LeaderElection,
	instanceID string, interval time.Duration, log logger.Logger) *Sweeper {
	return &Sweeper{
		service:    service,
		leader:     leader,
		instanceID: instanceID,
		interval:   interval,
		cron:       cron.New(),
		log:        log,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.log.Info("Starting auction sweeper", "interval", s.interval.String())

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.tick(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() error {
	s.log.Info("Stopping auction sweeper")
	s.cron.Stop()
	return nil
}

func (s *Sweeper) tick(ctx context.Context) {
	if s.leader != nil {
		isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
		if err != nil {
			s.log.Error("Leader check failed, skipping sweep", "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	settled, err := s.service.RunSweep(ctx)
	if err != nil {
		s.log.Error("Sweep failed", "error", err)
		return
	}
	if settled > 0 {
		s.log.Info("Sweep settled auctions", "count", settled)
	}
}
