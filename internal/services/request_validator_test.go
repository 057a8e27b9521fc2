package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"staybid/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// validTerms builds a set of terms that passes every rule; individual tests
// break one rule at a time.
func validTerms() RequestTerms {
	start := testNow.Add(24 * time.Hour)
	return RequestTerms{
		ListingID:     "listing_1",
		CheckIn:       testNow.Add(40 * 24 * time.Hour),
		CheckOut:      testNow.Add(43 * 24 * time.Hour),
		AuctionStart:  start,
		AuctionEnd:    start.Add(14 * 24 * time.Hour),
		DurationDays:  14,
		StartingPrice: 1_000_000,
		BuyoutPrice:   5_000_000,
	}
}

func TestValidateRequestTerms(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RequestTerms)
		wantErr string
	}{
		{
			name:   "valid terms pass",
			mutate: func(*RequestTerms) {},
		},
		{
			name:    "zero starting price",
			mutate:  func(tm *RequestTerms) { tm.StartingPrice = 0 },
			wantErr: "starting price",
		},
		{
			name:    "negative starting price",
			mutate:  func(tm *RequestTerms) { tm.StartingPrice = -500 },
			wantErr: "starting price",
		},
		{
			name:    "buyout equal to starting price",
			mutate:  func(tm *RequestTerms) { tm.BuyoutPrice = tm.StartingPrice },
			wantErr: "buyout price",
		},
		{
			name:    "buyout below starting price",
			mutate:  func(tm *RequestTerms) { tm.BuyoutPrice = tm.StartingPrice - 1 },
			wantErr: "buyout price",
		},
		{
			name:    "check-out before check-in",
			mutate:  func(tm *RequestTerms) { tm.CheckOut = tm.CheckIn.Add(-time.Hour) },
			wantErr: "check-out",
		},
		{
			name:    "check-out equal to check-in",
			mutate:  func(tm *RequestTerms) { tm.CheckOut = tm.CheckIn },
			wantErr: "check-out",
		},
		{
			name: "check-in only ten days away",
			mutate: func(tm *RequestTerms) {
				tm.CheckIn = testNow.Add(10 * 24 * time.Hour)
				tm.CheckOut = tm.CheckIn.Add(2 * 24 * time.Hour)
				tm.AuctionStart = testNow.Add(time.Hour)
				tm.AuctionEnd = tm.AuctionStart.Add(7 * 24 * time.Hour)
				tm.DurationDays = 7
			},
			wantErr: "21 days",
		},
		{
			name: "auction ends five days before check-in",
			mutate: func(tm *RequestTerms) {
				tm.AuctionEnd = tm.CheckIn.Add(-5 * 24 * time.Hour)
				tm.AuctionStart = tm.AuctionEnd.Add(-14 * 24 * time.Hour)
			},
			wantErr: "7 days before check-in",
		},
		{
			name: "auction start after auction end",
			mutate: func(tm *RequestTerms) {
				tm.AuctionStart = tm.AuctionEnd.Add(time.Hour)
			},
			wantErr: "before auction end",
		},
		{
			name: "auction start in the past",
			mutate: func(tm *RequestTerms) {
				tm.AuctionStart = testNow.Add(-time.Hour)
				tm.AuctionEnd = tm.AuctionStart.Add(14 * 24 * time.Hour)
			},
			wantErr: "in the future",
		},
		{
			name: "duration not on the menu",
			mutate: func(tm *RequestTerms) {
				tm.DurationDays = 10
				tm.AuctionEnd = tm.AuctionStart.Add(10 * 24 * time.Hour)
			},
			wantErr: "7, 14, 21 or 30",
		},
		{
			name: "window does not match duration",
			mutate: func(tm *RequestTerms) {
				tm.AuctionEnd = tm.AuctionStart.Add(13 * 24 * time.Hour)
			},
			wantErr: "does not match",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			terms := validTerms()
			tc.mutate(&terms)

			err := ValidateRequestTerms(terms, testNow)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, errors.Is(err, domain.ErrInvalidTerms))
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestTotalNightsRoundsUp(t *testing.T) {
	checkIn := time.Date(2026, 4, 1, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		checkOut time.Time
		want     int
	}{
		{"three whole nights", checkIn.Add(3 * 24 * time.Hour), 3},
		{"partial fourth night counts", checkIn.Add(3*24*time.Hour + 4*time.Hour), 4},
		{"under one night is one night", checkIn.Add(10 * time.Hour), 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, TotalNights(checkIn, tc.checkOut))
		})
	}
}
