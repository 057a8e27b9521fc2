package services

import (
	"context"
	"fmt"
	"time"

	"staybid/internal/domain"
	"staybid/pkg/logger"
	"staybid/pkg/utils"
)

const recentBidLimit = 10

// AuctionService owns live auctions: reads, bid admission, buyout and the
// settlement of expired auctions. All writes to one auction run under that
// auction's lock; auctions never wait on each other.
type AuctionService struct {
	auctions    domain.AuctionRepository
	bids        domain.BidRepository
	listings    domain.ListingDirectory
	users       domain.UserDirectory
	orders      domain.OrderService
	broadcaster domain.Broadcaster
	locks       *lockTable
	log         logger.Logger
	now         func() time.Time
}

func NewAuctionService(
	auctions domain.AuctionRepository,
	bids domain.BidRepository,
	listings domain.ListingDirectory,
	users domain.UserDirectory,
	orders domain.OrderService,
	broadcaster domain.Broadcaster,
	log logger.Logger,
) *AuctionService {
	return &AuctionService{
		auctions:    auctions,
		bids:        bids,
		listings:    listings,
		users:       users,
		orders:      orders,
		broadcaster: broadcaster,
		locks:       newLockTable(),
		log:         log,
		now:         time.Now,
	}
}

// AuctionDetail is the display projection for one auction. Listing and Host
// come from the read-only collaborators; a collaborator failure leaves the
// field nil rather than failing the whole read.
type AuctionDetail struct {
	Auction    *domain.Auction `json:"auction"`
	Listing    *domain.Listing `json:"listing,omitempty"`
	Host       *domain.User    `json:"host,omitempty"`
	RecentBids []*domain.Bid   `json:"recent_bids"`
}

func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (*AuctionDetail, error) {
	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, domain.ErrAuctionNotFound
	}

	detail := &AuctionDetail{Auction: auction}

	if listing, err := s.listings.GetListing(ctx, auction.ListingID); err != nil {
		s.log.Warn("Listing lookup failed", "listing_id", auction.ListingID, "error", err)
	} else {
		detail.Listing = listing
	}

	if host, err := s.users.GetUser(ctx, auction.HostID); err != nil {
		s.log.Warn("Host lookup failed", "user_id", auction.HostID, "error", err)
	} else {
		detail.Host = host
	}

	bids, err := s.bids.ListBids(ctx, auctionID, recentBidLimit)
	if err != nil {
		return nil, err
	}
	detail.RecentBids = bids

	return detail, nil
}

// AuctionPage is one page of the auction listing.
type AuctionPage struct {
	Items    []*domain.Auction `json:"items"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Total    int               `json:"total"`
}

func (s *AuctionService) ListAuctions(ctx context.Context, filter domain.AuctionFilter) (*AuctionPage, error) {
	if filter.Status == "" {
		filter.Status = domain.FilterAll
	}
	if filter.Sort == "" {
		filter.Sort = domain.SortEndingSoon
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	items, total, err := s.auctions.ListAuctions(ctx, filter, s.now())
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Auction{}
	}

	return &AuctionPage{
		Items:    items,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Total:    total,
	}, nil
}

// PlaceBid admits one bid against a single consistent snapshot of the
// auction taken under its lock. On success the previous winning bid is
// flipped to outbid, the new bid becomes the single winning one, and a
// bid_update is broadcast to every watcher except the bidder. The broadcast
// runs before the lock is released so subscribers see updates in commit
// order; pushes are non-blocking per the Sink contract, so this holds the
// lock only briefly.
func (s *AuctionService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (*domain.Bid, *domain.Auction, error) {
	unlock := s.locks.Lock(auctionID)
	defer unlock()

	bid, auction, err := s.admitBid(ctx, auctionID, bidderID, amount)
	if err != nil {
		return nil, nil, err
	}

	s.broadcaster.Broadcast(auctionID, &domain.AuctionEvent{
		Type:      domain.EventBidUpdate,
		AuctionID: auctionID,
		Bid:       bid,
		Auction:   auction,
		Timestamp: s.now(),
	}, bidderID)

	return bid, auction, nil
}

func (s *AuctionService) admitBid(ctx context.Context, auctionID, bidderID string, amount int64) (*domain.Bid, *domain.Auction, error) {
	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, nil, domain.ErrAuctionNotFound
	}

	now := s.now()
	if auction.Status != domain.AuctionActive || !auction.EndTime.After(now) {
		return nil, nil, domain.ErrAuctionNotActive
	}
	if bidderID == auction.HostID {
		return nil, nil, domain.ErrSelfBid
	}
	if amount <= auction.CurrentBid {
		return nil, nil, fmt.Errorf("%w: current bid is %d₫, offer more than that",
			domain.ErrBidTooLow, auction.CurrentBid)
	}
	if amount >= auction.BuyoutPrice {
		return nil, nil, fmt.Errorf("%w: buyout price is %d₫",
			domain.ErrBidAtOrAboveBuyout, auction.BuyoutPrice)
	}

	previous, err := s.bids.GetWinningBid(ctx, auctionID)
	if err != nil {
		return nil, nil, err
	}
	if previous != nil {
		if err := s.bids.UpdateBidStatus(ctx, previous.ID, false, domain.BidOutbid); err != nil {
			return nil, nil, err
		}
	}

	bid := &domain.Bid{
		ID:        utils.GenerateID("bid"),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		Winning:   true,
		Status:    domain.BidWinning,
		CreatedAt: now,
	}
	if err := s.bids.CreateBid(ctx, bid); err != nil {
		return nil, nil, err
	}

	auction.CurrentBid = amount
	auction.HighestBidderID = bidderID
	auction.TotalBids++
	auction.UpdatedAt = now
	if err := s.auctions.UpdateAuction(ctx, auction); err != nil {
		return nil, nil, err
	}

	s.log.Info("Bid accepted", "auction_id", auctionID, "bidder_id", bidderID,
		"amount", amount, "total_bids", auction.TotalBids)
	return bid, auction, nil
}

// Buyout ends the auction immediately at the buyout price. The auction is
// settled before order creation runs; an order failure is reported but never
// rolls the settlement back.
func (s *AuctionService) Buyout(ctx context.Context, auctionID, buyerID string) (*domain.Auction, *domain.Order, error) {
	unlock := s.locks.Lock(auctionID)

	auction, err := s.admitBuyout(ctx, auctionID, buyerID)
	if err != nil {
		unlock()
		return nil, nil, err
	}

	// Announced under the lock so the ending follows every bid_update. The
	// buyer gets the authoritative confirmation too, so nobody is excluded.
	s.broadcaster.Broadcast(auctionID, &domain.AuctionEvent{
		Type:       domain.EventAuctionEnded,
		AuctionID:  auctionID,
		Auction:    auction,
		Reason:     domain.EndReasonBuyout,
		WinnerID:   buyerID,
		FinalPrice: auction.BuyoutPrice,
		Timestamp:  s.now(),
	}, "")
	unlock()

	order, err := s.orders.CreateOrder(ctx, domain.CreateOrderInput{
		ListingID: auction.ListingID,
		GuestID:   buyerID,
		Price:     auction.BuyoutPrice,
		CheckIn:   auction.CheckIn,
		CheckOut:  auction.CheckOut,
		Type:      domain.OrderTypeBuyout,
	})
	if err != nil {
		// Booking reconciliation is the order collaborator's concern; the
		// auction stays settled.
		s.log.Error("Order creation failed after buyout", "auction_id", auctionID,
			"buyer_id", buyerID, "error", err)
		return auction, nil, nil
	}

	return auction, order, nil
}

func (s *AuctionService) admitBuyout(ctx context.Context, auctionID, buyerID string) (*domain.Auction, error) {
	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, domain.ErrAuctionNotFound
	}

	now := s.now()
	if auction.Status != domain.AuctionActive || !auction.EndTime.After(now) {
		return nil, domain.ErrAuctionNotActive
	}
	if buyerID == auction.HostID {
		return nil, domain.ErrSelfBuyout
	}
	// Guards the cross-field invariant; unreachable while bid admission
	// rejects amounts at or above the buyout price.
	if auction.CurrentBid >= auction.BuyoutPrice {
		return nil, domain.ErrBuyoutUnavailable
	}

	previous, err := s.bids.GetWinningBid(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if previous != nil {
		if err := s.bids.UpdateBidStatus(ctx, previous.ID, false, domain.BidLost); err != nil {
			return nil, err
		}
	}

	auction.Status = domain.AuctionEnded
	auction.CurrentBid = auction.BuyoutPrice
	auction.HighestBidderID = buyerID
	auction.UpdatedAt = now
	if err := s.auctions.UpdateAuction(ctx, auction); err != nil {
		return nil, err
	}

	s.log.Info("Auction bought out", "auction_id", auctionID, "buyer_id", buyerID,
		"price", auction.BuyoutPrice)
	return auction, nil
}

// RunSweep settles every active auction whose end time has passed. The sweep
// is a best-effort batch: a failure on one auction is logged and the rest
// continue. It returns the number of auctions settled.
func (s *AuctionService) RunSweep(ctx context.Context) (int, error) {
	expired, err := s.auctions.ListExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, auction := range expired {
		ok, err := s.settle(ctx, auction.ID)
		if err != nil {
			s.log.Error("Failed to settle auction", "auction_id", auction.ID, "error", err)
			continue
		}
		if ok {
			settled++
		}
	}

	if settled > 0 {
		s.log.Info("Sweep finished", "settled", settled, "candidates", len(expired))
	}
	return settled, nil
}

func (s *AuctionService) settle(ctx context.Context, auctionID string) (bool, error) {
	unlock := s.locks.Lock(auctionID)

	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		unlock()
		return false, err
	}

	now := s.now()
	// A buyout or an earlier sweep pass may have settled it already, and a
	// list snapshot can be stale.
	if auction.Status != domain.AuctionActive || auction.EndTime.After(now) {
		unlock()
		return false, nil
	}

	auction.Status = domain.AuctionEnded
	auction.UpdatedAt = now
	if err := s.auctions.UpdateAuction(ctx, auction); err != nil {
		unlock()
		return false, err
	}

	s.broadcaster.Broadcast(auctionID, &domain.AuctionEvent{
		Type:       domain.EventAuctionEnded,
		AuctionID:  auctionID,
		Auction:    auction,
		Reason:     domain.EndReasonTimeout,
		WinnerID:   auction.HighestBidderID,
		FinalPrice: auction.CurrentBid,
		Timestamp:  now,
	}, "")
	unlock()

	if auction.HighestBidderID != "" {
		if _, err := s.orders.CreateOrder(ctx, domain.CreateOrderInput{
			ListingID: auction.ListingID,
			GuestID:   auction.HighestBidderID,
			Price:     auction.CurrentBid,
			CheckIn:   auction.CheckIn,
			CheckOut:  auction.CheckOut,
			Type:      domain.OrderTypeAuction,
		}); err != nil {
			s.log.Error("Order creation failed on settlement", "auction_id", auctionID,
				"winner_id", auction.HighestBidderID, "error", err)
		}
	}

	s.log.Info("Auction settled", "auction_id", auctionID,
		"winner_id", auction.HighestBidderID, "final_price", auction.CurrentBid)
	return true, nil
}
