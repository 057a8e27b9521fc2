package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"staybid/internal/domain"
	"staybid/internal/infrastructure/memory"
	"staybid/internal/services"
	"staybid/pkg/logger"
)

type stubListings map[string]*domain.Listing

func (s stubListings) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	listing, ok := s[listingID]
	if !ok {
		return nil, fmt.Errorf("listing %s not found", listingID)
	}
	return listing, nil
}

type stubUsers map[string]*domain.User

func (s stubUsers) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, ok := s[userID]
	if !ok {
		return nil, fmt.Errorf("user %s not found", userID)
	}
	return user, nil
}

type stubOrders struct{}

func (stubOrders) CreateOrder(ctx context.Context, input domain.CreateOrderInput) (*domain.Order, error) {
	return &domain.Order{ID: "order_1", Type: input.Type, TotalPrice: input.Price}, nil
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string, *domain.AuctionEvent, string) {}

type handlerFixture struct {
	echo     *echo.Echo
	auctions *memory.AuctionRepository
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	requests := memory.NewRequestRepository()
	auctions := memory.NewAuctionRepository()
	bids := memory.NewBidRepository()
	listings := stubListings{
		"listing_1": {ID: "listing_1", HostID: "host_1", Title: "Beach villa"},
	}
	users := stubUsers{
		"host_1":  {ID: "host_1", DisplayName: "Host"},
		"admin_1": {ID: "admin_1", DisplayName: "Admin", IsAdmin: true},
		"guest_1": {ID: "guest_1", DisplayName: "Guest"},
	}

	log := logger.NewNop()
	requestService := services.NewRequestService(requests, auctions, listings, users, log)
	auctionService := services.NewAuctionService(auctions, bids, listings, users, stubOrders{}, nopBroadcaster{}, log)

	e := echo.New()
	NewAuctionHandler(requestService, auctionService, log).Register(e.Group("/api/v1"))

	return &handlerFixture{echo: e, auctions: auctions}
}

func (f *handlerFixture) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) seedAuction(t *testing.T) *domain.Auction {
	t.Helper()
	now := time.Now()
	auction := &domain.Auction{
		ID:            "auction_1",
		ListingID:     "listing_1",
		HostID:        "host_1",
		StartTime:     now.Add(-time.Hour),
		EndTime:       now.Add(48 * time.Hour),
		CheckIn:       now.Add(40 * 24 * time.Hour),
		CheckOut:      now.Add(43 * 24 * time.Hour),
		StartingPrice: 1_000_000,
		BuyoutPrice:   5_000_000,
		CurrentBid:    1_000_000,
		Status:        domain.AuctionActive,
	}
	require.NoError(t, f.auctions.CreateAuction(context.Background(), auction))
	return auction
}

func validRequestBody() map[string]interface{} {
	now := time.Now()
	start := now.Add(24 * time.Hour)
	return map[string]interface{}{
		"listing_id":     "listing_1",
		"check_in":       now.Add(40 * 24 * time.Hour).Format(time.RFC3339),
		"check_out":      now.Add(43 * 24 * time.Hour).Format(time.RFC3339),
		"auction_start":  start.Format(time.RFC3339),
		"auction_end":    start.Add(14 * 24 * time.Hour).Format(time.RFC3339),
		"duration_days":  14,
		"starting_price": 1_000_000,
		"buyout_price":   5_000_000,
	}
}

func TestSubmitRequestEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auction-requests", "host_1", validRequestBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"pending"`)
}

func TestSubmitRequestEndpointRequiresIdentity(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auction-requests", "", validRequestBody())
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitRequestEndpointRejectsForeignListing(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auction-requests", "guest_1", validRequestBody())
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubmitRequestEndpointInvalidTerms(t *testing.T) {
	f := newHandlerFixture(t)

	body := validRequestBody()
	body["buyout_price"] = body["starting_price"]
	rec := f.do(t, http.MethodPost, "/api/v1/auction-requests", "host_1", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecisionEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auction-requests", "host_1", validRequestBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Request struct {
			ID string `json:"id"`
		} `json:"request"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	path := "/api/v1/auction-requests/" + created.Request.ID + "/decision"

	// Guests cannot decide.
	rec = f.do(t, http.MethodPost, path, "guest_1", map[string]string{"decision": "approve"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Nonsense verdicts bounce before the service runs.
	rec = f.do(t, http.MethodPost, path, "admin_1", map[string]string{"decision": "maybe"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, path, "admin_1", map[string]string{"decision": "approve"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"approved"`)

	// A decided request cannot be decided again.
	rec = f.do(t, http.MethodPost, path, "admin_1", map[string]string{"decision": "reject"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecisionEndpointUnknownRequest(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auction-requests/areq_missing/decision",
		"admin_1", map[string]string{"decision": "approve"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAuctionEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAuction(t)

	rec := f.do(t, http.MethodGet, "/api/v1/auctions/auction_1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":"auction_1"`)

	rec = f.do(t, http.MethodGet, "/api/v1/auctions/auction_missing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAuctionsEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAuction(t)

	rec := f.do(t, http.MethodGet, "/api/v1/auctions?status=active", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Items    []json.RawMessage `json:"items"`
		Page     int               `json:"page"`
		PageSize int               `json:"page_size"`
		Total    int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.Total)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 20, page.PageSize)
	require.Len(t, page.Items, 1)
}

func TestPlaceBidEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAuction(t)

	tests := []struct {
		name     string
		bidderID string
		amount   int64
		wantCode int
	}{
		{"bid too low", "guest_1", 1_000_000, http.StatusBadRequest},
		{"host bids on own auction", "host_1", 2_000_000, http.StatusForbidden},
		{"bid at buyout price", "guest_1", 5_000_000, http.StatusBadRequest},
		{"accepted", "guest_1", 2_000_000, http.StatusCreated},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/auctions/auction_1/bids",
				tc.bidderID, map[string]int64{"amount": tc.amount})
			require.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestBuyoutEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAuction(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auctions/auction_1/buyout", "guest_1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"current_bid":5000000`)

	// Terminal: a second buyout is a state conflict.
	rec = f.do(t, http.MethodPost, "/api/v1/auctions/auction_1/buyout", "guest_1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSweepEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	auction := f.seedAuction(t)
	auction.EndTime = time.Now().Add(-time.Hour)
	require.NoError(t, f.auctions.UpdateAuction(context.Background(), auction))

	rec := f.do(t, http.MethodPost, "/api/v1/admin/sweep", "admin_1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"settled":1`)
}
