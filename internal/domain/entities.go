package domain

import (
	"time"
)

type RequestStatus int

const (
	RequestPending RequestStatus = iota
	RequestApproved
	RequestRejected
)

func (s RequestStatus) String() string {
	switch s {
	case RequestPending:
		return "pending"
	case RequestApproved:
		return "approved"
	case RequestRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

type AuctionStatus int

const (
	AuctionActive AuctionStatus = iota
	AuctionEnded
	AuctionCancelled
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionActive:
		return "active"
	case AuctionEnded:
		return "ended"
	case AuctionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type BidStatus string

const (
	BidActive  BidStatus = "active"
	BidWinning BidStatus = "winning"
	BidOutbid  BidStatus = "outbid"
	BidLost    BidStatus = "lost"
)

// AllowedDurations are the bidding-window lengths (in days) a host may pick.
var AllowedDurations = []int{7, 14, 21, 30}

// AuctionRequest is a host's proposal to auction a stay. It is mutated
// exactly once, by an admin decision, and never deleted.
type AuctionRequest struct {
	ID            string        `json:"id"`
	ListingID     string        `json:"listing_id"`
	HostID        string        `json:"host_id"`
	CheckIn       time.Time     `json:"check_in"`
	CheckOut      time.Time     `json:"check_out"`
	AuctionStart  time.Time     `json:"auction_start"`
	AuctionEnd    time.Time     `json:"auction_end"`
	DurationDays  int           `json:"duration_days"`
	TotalNights   int           `json:"total_nights"`
	StartingPrice int64         `json:"starting_price"`
	BuyoutPrice   int64         `json:"buyout_price"`
	Status        RequestStatus `json:"-"`
	AdminNotes    string        `json:"admin_notes,omitempty"`
	ApproverID    string        `json:"approver_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Auction is a live bidding market for one stay. Amounts are whole dong.
type Auction struct {
	ID              string        `json:"id"`
	ListingID       string        `json:"listing_id"`
	HostID          string        `json:"host_id"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	CheckIn         time.Time     `json:"check_in"`
	CheckOut        time.Time     `json:"check_out"`
	TotalNights     int           `json:"total_nights"`
	StartingPrice   int64         `json:"starting_price"`
	BuyoutPrice     int64         `json:"buyout_price"`
	CurrentBid      int64         `json:"current_bid"`
	HighestBidderID string        `json:"highest_bidder_id,omitempty"`
	Status          AuctionStatus `json:"-"`
	TotalBids       int           `json:"total_bids"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Bid is immutable once created except for the winning/status flip performed
// alongside a newer accepted bid or settlement. At most one bid per auction
// carries Winning=true.
type Bid struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	Winning   bool      `json:"winning"`
	Status    BidStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Listing is the read-only projection served by the listing collaborator.
type Listing struct {
	ID           string `json:"id"`
	HostID       string `json:"host_id"`
	Title        string `json:"title"`
	Capacity     int    `json:"capacity"`
	NightlyPrice int64  `json:"nightly_price"`
}

// User is the read-only projection served by the user collaborator.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsAdmin     bool   `json:"-"`
}

type OrderType string

const (
	OrderTypeAuction OrderType = "auction"
	OrderTypeBuyout  OrderType = "buyout"
)

// Order is what the order-creation collaborator returns; creating one also
// blocks the listing calendar for the stay window.
type Order struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listing_id"`
	GuestID    string    `json:"guest_id"`
	TotalPrice int64     `json:"total_price"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Type       OrderType `json:"type"`
	CreatedAt  time.Time `json:"created_at"`
}
