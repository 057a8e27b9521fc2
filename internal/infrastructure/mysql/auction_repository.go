package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"staybid/internal/domain"
)

const auctionColumns = `id, listing_id, host_id, start_time, end_time, check_in, check_out,
               total_nights, starting_price, buyout_price, current_bid, highest_bidder_id,
               status, total_bids, created_at, updated_at`

type MySQLAuctionRepository struct {
	db *sql.DB
}

func NewMySQLAuctionRepository(db *sql.DB) *MySQLAuctionRepository {
	return &MySQLAuctionRepository{db: db}
}

func (r *MySQLAuctionRepository) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (` + auctionColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		auction.ID, auction.ListingID, auction.HostID, auction.StartTime, auction.EndTime,
		auction.CheckIn, auction.CheckOut, auction.TotalNights, auction.StartingPrice,
		auction.BuyoutPrice, auction.CurrentBid, auction.HighestBidderID,
		int(auction.Status), auction.TotalBids, auction.CreatedAt, auction.UpdatedAt)
	return err
}

func (r *MySQLAuctionRepository) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = ?`

	auction, err := scanAuction(r.db.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, err
	}
	return auction, nil
}

func (r *MySQLAuctionRepository) UpdateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        UPDATE auctions
        SET current_bid = ?, highest_bidder_id = ?, status = ?, total_bids = ?, updated_at = ?
        WHERE id = ?
    `
	_, err := r.db.ExecContext(ctx, query,
		auction.CurrentBid, auction.HighestBidderID, int(auction.Status),
		auction.TotalBids, time.Now(), auction.ID)
	return err
}

func (r *MySQLAuctionRepository) ListAuctions(ctx context.Context, filter domain.AuctionFilter, now time.Time) ([]*domain.Auction, int, error) {
	where := "1=1"
	args := []interface{}{}

	switch filter.Status {
	case domain.FilterActive:
		where += " AND status = ? AND end_time > ?"
		args = append(args, int(domain.AuctionActive), now)
	case domain.FilterEnded:
		where += " AND (status = ? OR end_time <= ?)"
		args = append(args, int(domain.AuctionEnded), now)
	}

	if filter.Query != "" {
		where += " AND listing_id LIKE ?"
		args = append(args, "%"+filter.Query+"%")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM auctions WHERE " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM auctions WHERE %s ORDER BY %s LIMIT ? OFFSET ?",
		auctionColumns, where, orderClause(filter.Sort))
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, 0, err
		}
		auctions = append(auctions, auction)
	}

	return auctions, total, rows.Err()
}

func (r *MySQLAuctionRepository) ListExpired(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = ? AND end_time <= ?`

	rows, err := r.db.QueryContext(ctx, query, int(domain.AuctionActive), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}

	return auctions, rows.Err()
}

func orderClause(key domain.SortKey) string {
	switch key {
	case domain.SortNewest:
		return "created_at DESC"
	case domain.SortPriceAsc:
		return "current_bid ASC"
	case domain.SortPriceDesc:
		return "current_bid DESC"
	default:
		return "end_time ASC"
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var auction domain.Auction
	var status int

	err := row.Scan(
		&auction.ID, &auction.ListingID, &auction.HostID, &auction.StartTime,
		&auction.EndTime, &auction.CheckIn, &auction.CheckOut, &auction.TotalNights,
		&auction.StartingPrice, &auction.BuyoutPrice, &auction.CurrentBid,
		&auction.HighestBidderID, &status, &auction.TotalBids,
		&auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		return nil, err
	}

	auction.Status = domain.AuctionStatus(status)
	return &auction, nil
}
