package services

import (
	"context"
	"fmt"
	"time"

	"staybid/internal/domain"
	"staybid/pkg/logger"
	"staybid/pkg/utils"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// RequestService owns the AuctionRequest lifecycle: host submission and the
// single admin decision that either spawns a live auction or rejects the
// request.
type RequestService struct {
	requests domain.AuctionRequestRepository
	auctions domain.AuctionRepository
	listings domain.ListingDirectory
	users    domain.UserDirectory
	locks    *lockTable
	log      logger.Logger
	now      func() time.Time
}

func NewRequestService(
	requests domain.AuctionRequestRepository,
	auctions domain.AuctionRepository,
	listings domain.ListingDirectory,
	users domain.UserDirectory,
	log logger.Logger,
) *RequestService {
	return &RequestService{
		requests: requests,
		auctions: auctions,
		listings: listings,
		users:    users,
		locks:    newLockTable(),
		log:      log,
		now:      time.Now,
	}
}

func (s *RequestService) SubmitRequest(ctx context.Context, hostID string, terms RequestTerms) (*domain.AuctionRequest, error) {
	listing, err := s.listings.GetListing(ctx, terms.ListingID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s", domain.ErrInvalidTerms, terms.ListingID)
	}
	if listing.HostID != hostID {
		return nil, fmt.Errorf("%w: listing belongs to another host", domain.ErrForbidden)
	}

	now := s.now()
	if err := ValidateRequestTerms(terms, now); err != nil {
		return nil, err
	}

	pending, err := s.requests.HasPendingRequest(ctx, terms.ListingID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, domain.ErrDuplicateRequest
	}

	req := &domain.AuctionRequest{
		ID:            utils.GenerateID("areq"),
		ListingID:     terms.ListingID,
		HostID:        hostID,
		CheckIn:       terms.CheckIn,
		CheckOut:      terms.CheckOut,
		AuctionStart:  terms.AuctionStart,
		AuctionEnd:    terms.AuctionEnd,
		DurationDays:  terms.DurationDays,
		TotalNights:   TotalNights(terms.CheckIn, terms.CheckOut),
		StartingPrice: terms.StartingPrice,
		BuyoutPrice:   terms.BuyoutPrice,
		Status:        domain.RequestPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.requests.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	s.log.Info("Auction request submitted", "request_id", req.ID,
		"listing_id", req.ListingID, "host_id", hostID)
	return req, nil
}

// Decide applies the admin's approve/reject verdict. Approval re-checks the
// timing rules against current time: a decision delayed past auction start
// or past the settle buffer fails with ErrTimingExpired instead of creating
// a broken auction.
func (s *RequestService) Decide(ctx context.Context, requestID, adminID string, decision Decision, notes string) (*domain.AuctionRequest, error) {
	admin, err := s.users.GetUser(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown caller %s", domain.ErrNotAdmin, adminID)
	}
	if !admin.IsAdmin {
		return nil, domain.ErrNotAdmin
	}

	// A request is decided exactly once; concurrent verdicts serialize here
	// and the loser sees the no-longer-pending status.
	unlock := s.locks.Lock(requestID)
	defer unlock()

	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, domain.ErrRequestNotFound
	}
	if req.Status != domain.RequestPending {
		return nil, fmt.Errorf("%w: request is already %s", domain.ErrNotPending, req.Status)
	}

	now := s.now()
	req.ApproverID = adminID
	req.AdminNotes = notes
	req.UpdatedAt = now

	if decision == DecisionReject {
		req.Status = domain.RequestRejected
		if err := s.requests.UpdateRequest(ctx, req); err != nil {
			return nil, err
		}
		s.log.Info("Auction request rejected", "request_id", req.ID, "admin_id", adminID)
		return req, nil
	}

	if !now.Before(req.AuctionStart) {
		return nil, fmt.Errorf("%w: auction start has already passed", domain.ErrTimingExpired)
	}
	if now.After(req.CheckIn.Add(-settleBuffer)) {
		return nil, fmt.Errorf("%w: stay is less than 7 days away", domain.ErrTimingExpired)
	}

	auction := &domain.Auction{
		ID:            utils.GenerateID("auction"),
		ListingID:     req.ListingID,
		HostID:        req.HostID,
		StartTime:     req.AuctionStart,
		EndTime:       req.AuctionEnd,
		CheckIn:       req.CheckIn,
		CheckOut:      req.CheckOut,
		TotalNights:   req.TotalNights,
		StartingPrice: req.StartingPrice,
		BuyoutPrice:   req.BuyoutPrice,
		CurrentBid:    req.StartingPrice,
		Status:        domain.AuctionActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.auctions.CreateAuction(ctx, auction); err != nil {
		return nil, err
	}

	req.Status = domain.RequestApproved
	if err := s.requests.UpdateRequest(ctx, req); err != nil {
		return nil, err
	}

	s.log.Info("Auction request approved", "request_id", req.ID,
		"auction_id", auction.ID, "admin_id", adminID)
	return req, nil
}
