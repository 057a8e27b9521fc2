package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"staybid/internal/domain"
	"staybid/pkg/utils"
)

// Marketplace collaborator glue. The engine only depends on the directory
// and order interfaces; these implementations read the marketplace's own
// tables in the shared database.

type MySQLListingDirectory struct {
	db *sql.DB
}

func NewMySQLListingDirectory(db *sql.DB) *MySQLListingDirectory {
	return &MySQLListingDirectory{db: db}
}

func (d *MySQLListingDirectory) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	query := `SELECT id, host_id, title, capacity, nightly_price FROM listings WHERE id = ?`

	var listing domain.Listing
	err := d.db.QueryRowContext(ctx, query, listingID).Scan(
		&listing.ID, &listing.HostID, &listing.Title,
		&listing.Capacity, &listing.NightlyPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("listing %s not found", listingID)
		}
		return nil, err
	}
	return &listing, nil
}

type MySQLUserDirectory struct {
	db *sql.DB
}

func NewMySQLUserDirectory(db *sql.DB) *MySQLUserDirectory {
	return &MySQLUserDirectory{db: db}
}

func (d *MySQLUserDirectory) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT id, display_name, is_admin FROM users WHERE id = ?`

	var user domain.User
	err := d.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID, &user.DisplayName, &user.IsAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s not found", userID)
		}
		return nil, err
	}
	return &user, nil
}

type MySQLOrderService struct {
	db *sql.DB
}

func NewMySQLOrderService(db *sql.DB) *MySQLOrderService {
	return &MySQLOrderService{db: db}
}

// CreateOrder writes the booking order and blocks the listing calendar for
// the stay window in one transaction.
func (s *MySQLOrderService) CreateOrder(ctx context.Context, input domain.CreateOrderInput) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order := &domain.Order{
		ID:         utils.GenerateID("order"),
		ListingID:  input.ListingID,
		GuestID:    input.GuestID,
		TotalPrice: input.Price,
		CheckIn:    input.CheckIn,
		CheckOut:   input.CheckOut,
		Type:       input.Type,
		CreatedAt:  time.Now(),
	}

	orderQuery := `
        INSERT INTO orders (id, listing_id, guest_id, total_price, check_in, check_out, order_type, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	if _, err := tx.ExecContext(ctx, orderQuery,
		order.ID, order.ListingID, order.GuestID, order.TotalPrice,
		order.CheckIn, order.CheckOut, string(order.Type), order.CreatedAt); err != nil {
		return nil, err
	}

	blockQuery := `
        INSERT INTO calendar_blocks (listing_id, blocked_from, blocked_to, order_id)
        VALUES (?, ?, ?, ?)
    `
	if _, err := tx.ExecContext(ctx, blockQuery,
		order.ListingID, order.CheckIn, order.CheckOut, order.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}
