package domain

import (
	"time"
)

type EventType string

const (
	EventConnected    EventType = "connected"
	EventHeartbeat    EventType = "heartbeat"
	EventBidUpdate    EventType = "bid_update"
	EventAuctionEnded EventType = "auction_ended"
)

const (
	EndReasonBuyout  = "buyout"
	EndReasonTimeout = "timeout"
)

// AuctionEvent is the tagged payload pushed to subscribed clients.
type AuctionEvent struct {
	Type       EventType `json:"type"`
	AuctionID  string    `json:"auction_id"`
	Bid        *Bid      `json:"bid,omitempty"`
	Auction    *Auction  `json:"auction,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	WinnerID   string    `json:"winner,omitempty"`
	FinalPrice int64     `json:"final_price,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventEnvelope wraps an event for the cross-instance relay channel. Origin
// is the publishing instance ID so an instance can skip its own events.
type EventEnvelope struct {
	Origin        string        `json:"origin"`
	ExcludeUserID string        `json:"exclude_user_id,omitempty"`
	Event         *AuctionEvent `json:"event"`
}
