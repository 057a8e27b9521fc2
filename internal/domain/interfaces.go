package domain

import (
	"context"
	"time"
)

// Repository interfaces
type AuctionRequestRepository interface {
	CreateRequest(ctx context.Context, req *AuctionRequest) error
	GetRequest(ctx context.Context, requestID string) (*AuctionRequest, error)
	UpdateRequest(ctx context.Context, req *AuctionRequest) error
	HasPendingRequest(ctx context.Context, listingID string) (bool, error)
}

type StatusFilter string

const (
	FilterActive StatusFilter = "active"
	FilterEnded  StatusFilter = "ended"
	FilterAll    StatusFilter = "all"
)

type SortKey string

const (
	SortEndingSoon SortKey = "ending_soon"
	SortNewest     SortKey = "newest"
	SortPriceAsc   SortKey = "price_asc"
	SortPriceDesc  SortKey = "price_desc"
)

// AuctionFilter selects a page of auctions. FilterActive means
// status==active AND end_time>now; FilterEnded means status==ended OR
// end_time<=now; FilterAll applies no status predicate. Query matches the
// listing ID.
type AuctionFilter struct {
	Status   StatusFilter
	Query    string
	Sort     SortKey
	Page     int
	PageSize int
}

type AuctionRepository interface {
	CreateAuction(ctx context.Context, auction *Auction) error
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)
	UpdateAuction(ctx context.Context, auction *Auction) error
	ListAuctions(ctx context.Context, filter AuctionFilter, now time.Time) ([]*Auction, int, error)
	ListExpired(ctx context.Context, now time.Time) ([]*Auction, error)
}

type BidRepository interface {
	CreateBid(ctx context.Context, bid *Bid) error
	// GetWinningBid returns (nil, nil) when the auction has no winning bid.
	GetWinningBid(ctx context.Context, auctionID string) (*Bid, error)
	UpdateBidStatus(ctx context.Context, bidID string, winning bool, status BidStatus) error
	// ListBids returns the newest bids first, at most limit of them.
	ListBids(ctx context.Context, auctionID string, limit int) ([]*Bid, error)
}

// Collaborator interfaces (owned by other parts of the marketplace)
type ListingDirectory interface {
	GetListing(ctx context.Context, listingID string) (*Listing, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*User, error)
}

type CreateOrderInput struct {
	ListingID string
	GuestID   string
	Price     int64
	CheckIn   time.Time
	CheckOut  time.Time
	Type      OrderType
}

// OrderService creates the booking order for a settled auction and blocks
// the listing calendar as a side effect.
type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error)
}

// Notification interfaces
type Broadcaster interface {
	// Broadcast delivers event to every sink subscribed to the auction,
	// skipping excludeUserID when non-empty. Delivery is best effort and
	// never returns an error to the caller.
	Broadcast(auctionID string, event *AuctionEvent, excludeUserID string)
}

// Sink is one subscriber's outbound channel. Push must not block on slow
// transports; it reports an error when the event cannot be queued.
type Sink interface {
	Push(event *AuctionEvent) error
	Close() error
	Closed() bool
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}
