package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"staybid/internal/domain"
)

type MySQLRequestRepository struct {
	db *sql.DB
}

func NewMySQLRequestRepository(db *sql.DB) *MySQLRequestRepository {
	return &MySQLRequestRepository{db: db}
}

func (r *MySQLRequestRepository) CreateRequest(ctx context.Context, req *domain.AuctionRequest) error {
	query := `
        INSERT INTO auction_requests
            (id, listing_id, host_id, check_in, check_out, auction_start, auction_end,
             duration_days, total_nights, starting_price, buyout_price, status,
             admin_notes, approver_id, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.ListingID, req.HostID, req.CheckIn, req.CheckOut,
		req.AuctionStart, req.AuctionEnd, req.DurationDays, req.TotalNights,
		req.StartingPrice, req.BuyoutPrice, int(req.Status),
		req.AdminNotes, req.ApproverID, req.CreatedAt, req.UpdatedAt)
	return err
}

func (r *MySQLRequestRepository) GetRequest(ctx context.Context, requestID string) (*domain.AuctionRequest, error) {
	query := `
        SELECT id, listing_id, host_id, check_in, check_out, auction_start, auction_end,
               duration_days, total_nights, starting_price, buyout_price, status,
               admin_notes, approver_id, created_at, updated_at
        FROM auction_requests WHERE id = ?
    `

	var req domain.AuctionRequest
	var status int

	err := r.db.QueryRowContext(ctx, query, requestID).Scan(
		&req.ID, &req.ListingID, &req.HostID, &req.CheckIn, &req.CheckOut,
		&req.AuctionStart, &req.AuctionEnd, &req.DurationDays, &req.TotalNights,
		&req.StartingPrice, &req.BuyoutPrice, &status,
		&req.AdminNotes, &req.ApproverID, &req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}

	req.Status = domain.RequestStatus(status)
	return &req, nil
}

func (r *MySQLRequestRepository) UpdateRequest(ctx context.Context, req *domain.AuctionRequest) error {
	query := `
        UPDATE auction_requests
        SET status = ?, admin_notes = ?, approver_id = ?, updated_at = ?
        WHERE id = ?
    `
	_, err := r.db.ExecContext(ctx, query,
		int(req.Status), req.AdminNotes, req.ApproverID, time.Now(), req.ID)
	return err
}

func (r *MySQLRequestRepository) HasPendingRequest(ctx context.Context, listingID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM auction_requests WHERE listing_id = ? AND status = ?)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, listingID, int(domain.RequestPending)).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
