package hub

import (
	"sync"
	"time"

	"staybid/internal/domain"
	"staybid/pkg/logger"
)

// Options are the hub's timing knobs. Zero values fall back to the defaults
// below; exact periods are deployment parameters, not correctness ones.
type Options struct {
	HeartbeatInterval time.Duration
	ReapInterval      time.Duration
}

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultReapInterval      = 60 * time.Second
)

type subscription struct {
	auctionID string
	userID    string
	sink      domain.Sink
	stop      chan struct{}
	stopOnce  sync.Once
}

func (s *subscription) halt() {
	s.stopOnce.Do(func() { close(s.stop) })
}

type auctionGroup struct {
	// bmu serializes broadcasts for one auction so every sink receives
	// events in broadcast-invocation order.
	bmu  sync.Mutex
	subs map[string]*subscription // userID -> subscription
}

// Hub is the per-process fan-out registry keyed by (auctionID, userID). It
// is explicitly constructed and shut down; nothing about it is ambient
// state.
type Hub struct {
	mu       sync.RWMutex
	auctions map[string]*auctionGroup

	heartbeatEvery time.Duration
	reapEvery      time.Duration
	log            logger.Logger

	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

func New(opts Options, log logger.Logger) *Hub {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaultHeartbeatInterval
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = defaultReapInterval
	}
	return &Hub{
		auctions:       make(map[string]*auctionGroup),
		heartbeatEvery: opts.HeartbeatInterval,
		reapEvery:      opts.ReapInterval,
		log:            log,
		done:           make(chan struct{}),
	}
}

// Start launches the dead-connection reaper. Broadcast and Subscribe work
// without it, but closed transports then linger until a push fails.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.reapLoop()
}

// Shutdown cancels every heartbeat, closes every sink and stops the reaper.
func (h *Hub) Shutdown() {
	h.doneOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	for _, group := range h.auctions {
		for _, sub := range group.subs {
			sub.halt()
			sub.sink.Close()
		}
	}
	h.auctions = make(map[string]*auctionGroup)
	h.mu.Unlock()

	h.wg.Wait()
	h.log.Info("Hub shut down")
}

// Subscribe registers sink for (auctionID, userID), superseding any prior
// sink for the same pair: a reconnect replaces the old channel rather than
// stacking next to it. The subscriber immediately receives a connected
// acknowledgment and then a keepalive on every heartbeat interval.
func (h *Hub) Subscribe(auctionID, userID string, sink domain.Sink) {
	sub := &subscription{
		auctionID: auctionID,
		userID:    userID,
		sink:      sink,
		stop:      make(chan struct{}),
	}

	h.mu.Lock()
	group, ok := h.auctions[auctionID]
	if !ok {
		group = &auctionGroup{subs: make(map[string]*subscription)}
		h.auctions[auctionID] = group
	}
	if old, ok := group.subs[userID]; ok {
		old.halt()
		old.sink.Close()
	}
	group.subs[userID] = sub
	h.mu.Unlock()

	if err := sink.Push(&domain.AuctionEvent{
		Type:      domain.EventConnected,
		AuctionID: auctionID,
		Timestamp: time.Now(),
	}); err != nil {
		h.log.Warn("Connected ack failed, dropping subscriber",
			"auction_id", auctionID, "user_id", userID, "error", err)
		h.Unsubscribe(auctionID, userID)
		return
	}

	h.wg.Add(1)
	go h.heartbeatLoop(sub)

	h.log.Info("Subscriber registered", "auction_id", auctionID, "user_id", userID)
}

// Unsubscribe removes the sink for (auctionID, userID), cancels its
// heartbeat and cleans up emptied index entries. Calling it again for the
// same pair is a no-op.
func (h *Hub) Unsubscribe(auctionID, userID string) {
	h.mu.Lock()
	group, ok := h.auctions[auctionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	sub, ok := group.subs[userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(group.subs, userID)
	if len(group.subs) == 0 {
		delete(h.auctions, auctionID)
	}
	h.mu.Unlock()

	sub.halt()
	sub.sink.Close()

	h.log.Info("Subscriber removed", "auction_id", auctionID, "user_id", userID)
}

// Broadcast pushes event to every sink subscribed to auctionID except
// excludeUserID's (when non-empty). A failed push removes that subscriber
// and never aborts delivery to the rest.
func (h *Hub) Broadcast(auctionID string, event *domain.AuctionEvent, excludeUserID string) {
	h.mu.RLock()
	group, ok := h.auctions[auctionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	group.bmu.Lock()
	h.mu.RLock()
	targets := make([]*subscription, 0, len(group.subs))
	for userID, sub := range group.subs {
		if excludeUserID != "" && userID == excludeUserID {
			continue
		}
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	var failed []*subscription
	for _, sub := range targets {
		if err := sub.sink.Push(event); err != nil {
			h.log.Warn("Push failed, dropping subscriber", "auction_id", auctionID,
				"user_id", sub.userID, "error", err)
			failed = append(failed, sub)
		}
	}
	group.bmu.Unlock()

	for _, sub := range failed {
		h.Unsubscribe(auctionID, sub.userID)
	}
}

// SubscriberCount reports how many sinks watch one auction.
func (h *Hub) SubscriberCount(auctionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	group, ok := h.auctions[auctionID]
	if !ok {
		return 0
	}
	return len(group.subs)
}

func (h *Hub) heartbeatLoop(sub *subscription) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := sub.sink.Push(&domain.AuctionEvent{
				Type:      domain.EventHeartbeat,
				AuctionID: sub.auctionID,
				Timestamp: time.Now(),
			}); err != nil {
				h.Unsubscribe(sub.auctionID, sub.userID)
				return
			}
		case <-sub.stop:
			return
		case <-h.done:
			return
		}
	}
}

func (h *Hub) reapLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.reapEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.reapDeadConnections()
		case <-h.done:
			return
		}
	}
}

// reapDeadConnections drops every sink whose transport reports itself
// closed, independent of whether a broadcast would have noticed first.
func (h *Hub) reapDeadConnections() {
	type key struct{ auctionID, userID string }

	h.mu.RLock()
	var dead []key
	for auctionID, group := range h.auctions {
		for userID, sub := range group.subs {
			if sub.sink.Closed() {
				dead = append(dead, key{auctionID, userID})
			}
		}
	}
	h.mu.RUnlock()

	for _, k := range dead {
		h.log.Info("Reaping dead connection", "auction_id", k.auctionID, "user_id", k.userID)
		h.Unsubscribe(k.auctionID, k.userID)
	}
}
