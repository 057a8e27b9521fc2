package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"staybid/internal/domain"
	"staybid/pkg/logger"
)

type fakeLeader struct {
	leader bool
}

func (f *fakeLeader) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	return f.leader, nil
}

func (f *fakeLeader) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	return f.leader, nil
}

func (f *fakeLeader) ReleaseLeadership(ctx context.Context, instanceID string) error {
	f.leader = false
	return nil
}

func TestSweeperSettlesOnSchedule(t *testing.T) {
	f := newAuctionFixture(t)
	f.service.now = time.Now
	f.seedAuction(t, func(a *domain.Auction) {
		a.EndTime = time.Now().Add(-time.Hour)
		a.CurrentBid = 2_000_000
		a.HighestBidderID = "guest_1"
	})

	sweeper := NewSweeper(f.service, &fakeLeader{leader: true}, "instance_1", time.Second, logger.NewNop())
	require.NoError(t, sweeper.Start(context.Background()))
	defer sweeper.Stop()

	require.Eventually(t, func() bool {
		auction, err := f.auctions.GetAuction(context.Background(), "auction_1")
		return err == nil && auction.Status == domain.AuctionEnded
	}, 5*time.Second, 100*time.Millisecond)

	require.Len(t, f.orders.inputs(), 1)
}

func TestSweeperSkipsWhenNotLeader(t *testing.T) {
	f := newAuctionFixture(t)
	f.service.now = time.Now
	f.seedAuction(t, func(a *domain.Auction) {
		a.EndTime = time.Now().Add(-time.Hour)
	})

	sweeper := NewSweeper(f.service, &fakeLeader{leader: false}, "instance_1", time.Second, logger.NewNop())
	require.NoError(t, sweeper.Start(context.Background()))
	defer sweeper.Stop()

	// Give the schedule time to fire; the follower must leave the auction
	// alone.
	time.Sleep(2500 * time.Millisecond)

	auction, err := f.auctions.GetAuction(context.Background(), "auction_1")
	require.NoError(t, err)
	require.Equal(t, domain.AuctionActive, auction.Status)
}

func TestSweeperRunsWithoutElector(t *testing.T) {
	f := newAuctionFixture(t)
	f.service.now = time.Now
	f.seedAuction(t, func(a *domain.Auction) {
		a.EndTime = time.Now().Add(-time.Hour)
	})

	// Single-instance deployments run without leader election at all.
	sweeper := NewSweeper(f.service, nil, "instance_1", time.Second, logger.NewNop())
	require.NoError(t, sweeper.Start(context.Background()))
	defer sweeper.Stop()

	require.Eventually(t, func() bool {
		auction, err := f.auctions.GetAuction(context.Background(), "auction_1")
		return err == nil && auction.Status == domain.AuctionEnded
	}, 5*time.Second, 100*time.Millisecond)
}
