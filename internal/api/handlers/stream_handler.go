package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"staybid/internal/domain"
	"staybid/internal/hub"
	"staybid/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin policy is enforced at the edge
	},
}

// StreamHandler serves the server-push event stream: one websocket per
// (auction, user), registered as a hub sink for as long as the connection
// lives.
type StreamHandler struct {
	auctions     domain.AuctionRepository
	hub          *hub.Hub
	queueSize    int
	writeTimeout time.Duration
	log          logger.Logger
}

func NewStreamHandler(auctions domain.AuctionRepository, h *hub.Hub,
	queueSize int, writeTimeout time.Duration, log logger.Logger) *StreamHandler {
	return &StreamHandler{
		auctions:     auctions,
		hub:          h,
		queueSize:    queueSize,
		writeTimeout: writeTimeout,
		log:          log,
	}
}

func (h *StreamHandler) Register(router *mux.Router) {
	router.HandleFunc("/ws/auctions/{auctionID}", h.HandleSubscribe)
}

func (h *StreamHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	auctionID := vars["auctionID"]

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	auction, err := h.auctions.GetAuction(r.Context(), auctionID)
	if err != nil {
		h.log.Error("Failed to find auction", "auction_id", auctionID, "error", err)
		http.Error(w, "auction not found", http.StatusNotFound)
		return
	}

	if auction.Status != domain.AuctionActive || !auction.EndTime.After(time.Now()) {
		h.log.Info("Rejected subscription, auction not active", "auction_id", auctionID)
		http.Error(w, "auction is not active", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	sink := hub.NewWebSocketSink(conn, h.queueSize, h.writeTimeout)
	h.hub.Subscribe(auctionID, userID, sink)

	go h.readPump(conn, sink, auctionID, userID)
}

// readPump drains inbound frames until the peer goes away, then tears the
// subscription down. Closing the client connection always ends here, so
// unsubscribe is deterministic.
func (h *StreamHandler) readPump(conn *websocket.Conn, sink *hub.WebSocketSink, auctionID, userID string) {
	defer func() {
		sink.MarkClosed()
		h.hub.Unsubscribe(auctionID, userID)
	}()

	for {
		// Clients only listen on this stream; inbound frames are drained
		// for control handling and otherwise discarded.
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
