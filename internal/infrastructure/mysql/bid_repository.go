package mysql

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/go-sql-driver/mysql"

	"staybid/internal/domain"
)

type MySQLBidRepository struct {
	db *sql.DB
}

func NewMySQLBidRepository(db *sql.DB) *MySQLBidRepository {
	return &MySQLBidRepository{db: db}
}

func (r *MySQLBidRepository) CreateBid(ctx context.Context, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, auction_id, bidder_id, amount, winning, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		bid.ID, bid.AuctionID, bid.BidderID, bid.Amount,
		bid.Winning, string(bid.Status), bid.CreatedAt)
	return err
}

func (r *MySQLBidRepository) GetWinningBid(ctx context.Context, auctionID string) (*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder_id, amount, winning, status, created_at
        FROM bids WHERE auction_id = ? AND winning = TRUE LIMIT 1
    `

	var bid domain.Bid
	var status string

	err := r.db.QueryRowContext(ctx, query, auctionID).Scan(
		&bid.ID, &bid.AuctionID, &bid.BidderID, &bid.Amount,
		&bid.Winning, &status, &bid.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	bid.Status = domain.BidStatus(status)
	return &bid, nil
}

func (r *MySQLBidRepository) UpdateBidStatus(ctx context.Context, bidID string, winning bool, status domain.BidStatus) error {
	query := `UPDATE bids SET winning = ?, status = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, winning, string(status), bidID)
	return err
}

func (r *MySQLBidRepository) ListBids(ctx context.Context, auctionID string, limit int) ([]*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder_id, amount, winning, status, created_at
        FROM bids
        WHERE auction_id = ?
        ORDER BY created_at DESC
        LIMIT ?
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var bid domain.Bid
		var status string

		err := rows.Scan(&bid.ID, &bid.AuctionID, &bid.BidderID, &bid.Amount,
			&bid.Winning, &status, &bid.CreatedAt)
		if err != nil {
			return nil, err
		}

		bid.Status = domain.BidStatus(status)
		bids = append(bids, &bid)
	}

	return bids, rows.Err()
}
