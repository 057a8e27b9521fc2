package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"staybid/internal/domain"
)

// In-memory repository implementations. They back unit tests and local
// development; production deployments use the mysql package.

type RequestRepository struct {
	mu       sync.RWMutex
	requests map[string]*domain.AuctionRequest
}

func NewRequestRepository() *RequestRepository {
	return &RequestRepository{requests: make(map[string]*domain.AuctionRequest)}
}

func (r *RequestRepository) CreateRequest(ctx context.Context, req *domain.AuctionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *req
	r.requests[req.ID] = &clone
	return nil
}

func (r *RequestRepository) GetRequest(ctx context.Context, requestID string) (*domain.AuctionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[requestID]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	clone := *req
	return &clone, nil
}

func (r *RequestRepository) UpdateRequest(ctx context.Context, req *domain.AuctionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return domain.ErrRequestNotFound
	}
	clone := *req
	r.requests[req.ID] = &clone
	return nil
}

func (r *RequestRepository) HasPendingRequest(ctx context.Context, listingID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, req := range r.requests {
		if req.ListingID == listingID && req.Status == domain.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

type AuctionRepository struct {
	mu       sync.RWMutex
	auctions map[string]*domain.Auction
}

func NewAuctionRepository() *AuctionRepository {
	return &AuctionRepository{auctions: make(map[string]*domain.Auction)}
}

func (r *AuctionRepository) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *auction
	r.auctions[auction.ID] = &clone
	return nil
}

func (r *AuctionRepository) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	auction, ok := r.auctions[auctionID]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	clone := *auction
	return &clone, nil
}

func (r *AuctionRepository) UpdateAuction(ctx context.Context, auction *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.auctions[auction.ID]; !ok {
		return domain.ErrAuctionNotFound
	}
	clone := *auction
	r.auctions[auction.ID] = &clone
	return nil
}

func (r *AuctionRepository) ListAuctions(ctx context.Context, filter domain.AuctionFilter, now time.Time) ([]*domain.Auction, int, error) {
	r.mu.RLock()
	var matched []*domain.Auction
	for _, auction := range r.auctions {
		if !matchesStatus(auction, filter.Status, now) {
			continue
		}
		if filter.Query != "" && !strings.Contains(auction.ListingID, filter.Query) {
			continue
		}
		clone := *auction
		matched = append(matched, &clone)
	}
	r.mu.RUnlock()

	sortAuctions(matched, filter.Sort)

	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *AuctionRepository) ListExpired(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var expired []*domain.Auction
	for _, auction := range r.auctions {
		if auction.Status == domain.AuctionActive && !auction.EndTime.After(now) {
			clone := *auction
			expired = append(expired, &clone)
		}
	}
	return expired, nil
}

func matchesStatus(auction *domain.Auction, status domain.StatusFilter, now time.Time) bool {
	switch status {
	case domain.FilterActive:
		return auction.Status == domain.AuctionActive && auction.EndTime.After(now)
	case domain.FilterEnded:
		return auction.Status == domain.AuctionEnded || !auction.EndTime.After(now)
	default:
		return true
	}
}

func sortAuctions(auctions []*domain.Auction, key domain.SortKey) {
	switch key {
	case domain.SortNewest:
		sort.Slice(auctions, func(i, j int) bool {
			return auctions[i].CreatedAt.After(auctions[j].CreatedAt)
		})
	case domain.SortPriceAsc:
		sort.Slice(auctions, func(i, j int) bool {
			return auctions[i].CurrentBid < auctions[j].CurrentBid
		})
	case domain.SortPriceDesc:
		sort.Slice(auctions, func(i, j int) bool {
			return auctions[i].CurrentBid > auctions[j].CurrentBid
		})
	default: // SortEndingSoon
		sort.Slice(auctions, func(i, j int) bool {
			return auctions[i].EndTime.Before(auctions[j].EndTime)
		})
	}
}

type BidRepository struct {
	mu   sync.RWMutex
	bids map[string][]*domain.Bid // auctionID -> bids in insertion order
	byID map[string]*domain.Bid
}

func NewBidRepository() *BidRepository {
	return &BidRepository{
		bids: make(map[string][]*domain.Bid),
		byID: make(map[string]*domain.Bid),
	}
}

func (r *BidRepository) CreateBid(ctx context.Context, bid *domain.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *bid
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], &clone)
	r.byID[bid.ID] = &clone
	return nil
}

func (r *BidRepository) GetWinningBid(ctx context.Context, auctionID string) (*domain.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, bid := range r.bids[auctionID] {
		if bid.Winning {
			clone := *bid
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *BidRepository) UpdateBidStatus(ctx context.Context, bidID string, winning bool, status domain.BidStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bid, ok := r.byID[bidID]
	if !ok {
		return domain.ErrBidNotFound
	}
	bid.Winning = winning
	bid.Status = status
	return nil
}

func (r *BidRepository) ListBids(ctx context.Context, auctionID string, limit int) ([]*domain.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.bids[auctionID]
	var out []*domain.Bid
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		clone := *all[i]
		out = append(out, &clone)
	}
	return out, nil
}
