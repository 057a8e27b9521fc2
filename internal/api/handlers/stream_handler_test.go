package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"staybid/internal/domain"
	"staybid/internal/hub"
	"staybid/internal/infrastructure/memory"
	"staybid/pkg/logger"
)

type streamFixture struct {
	server   *httptest.Server
	hub      *hub.Hub
	auctions *memory.AuctionRepository
}

func newStreamFixture(t *testing.T) *streamFixture {
	t.Helper()

	auctions := memory.NewAuctionRepository()
	h := hub.New(hub.Options{HeartbeatInterval: time.Hour, ReapInterval: time.Hour}, logger.NewNop())
	h.Start()
	t.Cleanup(h.Shutdown)

	router := mux.NewRouter()
	NewStreamHandler(auctions, h, 32, time.Second, logger.NewNop()).Register(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &streamFixture{server: server, hub: h, auctions: auctions}
}

func (f *streamFixture) seedAuction(t *testing.T, mutate func(*domain.Auction)) {
	t.Helper()
	auction := &domain.Auction{
		ID:            "auction_1",
		ListingID:     "listing_1",
		HostID:        "host_1",
		EndTime:       time.Now().Add(48 * time.Hour),
		StartingPrice: 1_000_000,
		BuyoutPrice:   5_000_000,
		CurrentBid:    1_000_000,
		Status:        domain.AuctionActive,
	}
	if mutate != nil {
		mutate(auction)
	}
	require.NoError(t, f.auctions.CreateAuction(context.Background(), auction))
}

func (f *streamFixture) dial(t *testing.T, auctionID, userID string) *websocket.Conn {
	t.Helper()
	url := strings.Replace(f.server.URL, "http://", "ws://", 1) +
		"/ws/auctions/" + auctionID + "?user_id=" + userID

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) *domain.AuctionEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event domain.AuctionEvent
	require.NoError(t, conn.ReadJSON(&event))
	return &event
}

func TestStreamSubscribeAndBroadcast(t *testing.T) {
	f := newStreamFixture(t)
	f.seedAuction(t, nil)

	conn := f.dial(t, "auction_1", "guest_1")

	ack := readEvent(t, conn)
	require.Equal(t, domain.EventConnected, ack.Type)
	require.Equal(t, "auction_1", ack.AuctionID)

	f.hub.Broadcast("auction_1", &domain.AuctionEvent{
		Type:      domain.EventBidUpdate,
		AuctionID: "auction_1",
		Timestamp: time.Now(),
	}, "")

	update := readEvent(t, conn)
	require.Equal(t, domain.EventBidUpdate, update.Type)
}

func TestStreamExcludesActor(t *testing.T) {
	f := newStreamFixture(t)
	f.seedAuction(t, nil)

	bidder := f.dial(t, "auction_1", "guest_1")
	watcher := f.dial(t, "auction_1", "guest_2")
	readEvent(t, bidder)  // connected
	readEvent(t, watcher) // connected

	require.Eventually(t, func() bool {
		return f.hub.SubscriberCount("auction_1") == 2
	}, time.Second, 10*time.Millisecond)

	f.hub.Broadcast("auction_1", &domain.AuctionEvent{
		Type:      domain.EventBidUpdate,
		AuctionID: "auction_1",
	}, "guest_1")

	update := readEvent(t, watcher)
	require.Equal(t, domain.EventBidUpdate, update.Type)

	// The excluded bidder's stream stays silent.
	require.NoError(t, bidder.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var event domain.AuctionEvent
	require.Error(t, bidder.ReadJSON(&event))
}

func TestStreamRejectsMissingUserID(t *testing.T) {
	f := newStreamFixture(t)
	f.seedAuction(t, nil)

	resp, err := http.Get(f.server.URL + "/ws/auctions/auction_1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamRejectsUnknownAuction(t *testing.T) {
	f := newStreamFixture(t)

	resp, err := http.Get(f.server.URL + "/ws/auctions/auction_missing?user_id=guest_1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamRejectsEndedAuction(t *testing.T) {
	f := newStreamFixture(t)
	f.seedAuction(t, func(a *domain.Auction) { a.Status = domain.AuctionEnded })

	resp, err := http.Get(f.server.URL + "/ws/auctions/auction_1?user_id=guest_1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStreamDisconnectUnsubscribes(t *testing.T) {
	f := newStreamFixture(t)
	f.seedAuction(t, nil)

	conn := f.dial(t, "auction_1", "guest_1")
	readEvent(t, conn)
	require.Equal(t, 1, f.hub.SubscriberCount("auction_1"))

	conn.Close()

	require.Eventually(t, func() bool {
		return f.hub.SubscriberCount("auction_1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}
