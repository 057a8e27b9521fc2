package services

import (
	"fmt"
	"math"
	"time"

	"staybid/internal/domain"
)

// RequestTerms carries a host's proposed auction terms before validation.
type RequestTerms struct {
	ListingID     string    `json:"listing_id"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	AuctionStart  time.Time `json:"auction_start"`
	AuctionEnd    time.Time `json:"auction_end"`
	DurationDays  int       `json:"duration_days"`
	StartingPrice int64     `json:"starting_price"`
	BuyoutPrice   int64     `json:"buyout_price"`
}

const (
	// Guests need at least this much lead time before check-in.
	minCheckInLead = 21 * 24 * time.Hour
	// The auction must settle at least this long before check-in.
	settleBuffer = 7 * 24 * time.Hour
)

// ValidateRequestTerms checks the proposed terms in rule order and returns
// the first violated rule so the client sees a specific reason.
func ValidateRequestTerms(terms RequestTerms, now time.Time) error {
	if terms.StartingPrice <= 0 {
		return fmt.Errorf("%w: starting price must be positive", domain.ErrInvalidTerms)
	}
	if terms.BuyoutPrice <= terms.StartingPrice {
		return fmt.Errorf("%w: buyout price must exceed the starting price of %d₫", domain.ErrInvalidTerms, terms.StartingPrice)
	}
	if !terms.CheckOut.After(terms.CheckIn) {
		return fmt.Errorf("%w: check-out must be after check-in", domain.ErrInvalidTerms)
	}
	if terms.CheckIn.Before(now.Add(minCheckInLead)) {
		return fmt.Errorf("%w: check-in must be at least 21 days away", domain.ErrInvalidTerms)
	}
	if terms.AuctionEnd.After(terms.CheckIn.Add(-settleBuffer)) {
		return fmt.Errorf("%w: auction must end at least 7 days before check-in", domain.ErrInvalidTerms)
	}
	if !terms.AuctionStart.Before(terms.AuctionEnd) {
		return fmt.Errorf("%w: auction start must be before auction end", domain.ErrInvalidTerms)
	}
	if !terms.AuctionStart.After(now) {
		return fmt.Errorf("%w: auction start must be in the future", domain.ErrInvalidTerms)
	}
	if !allowedDuration(terms.DurationDays) {
		return fmt.Errorf("%w: auction duration must be one of 7, 14, 21 or 30 days", domain.ErrInvalidTerms)
	}
	if got := terms.AuctionEnd.Sub(terms.AuctionStart); got != time.Duration(terms.DurationDays)*24*time.Hour {
		return fmt.Errorf("%w: auction window does not match the %d-day duration", domain.ErrInvalidTerms, terms.DurationDays)
	}
	return nil
}

// TotalNights is the stay length rounded up to whole nights.
func TotalNights(checkIn, checkOut time.Time) int {
	return int(math.Ceil(checkOut.Sub(checkIn).Hours() / 24))
}

func allowedDuration(days int) bool {
	for _, d := range domain.AllowedDurations {
		if d == days {
			return true
		}
	}
	return false
}
