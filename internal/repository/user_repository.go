package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/digkill/promoshot/internal/models"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrReservationNotFound = errors.New("credit reservation not found")
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) DB() *sql.DB {
	return r.db
}

func (r *UserRepository) FindByID(ctx context.Context, userID string) (*models.User, error) {
	const query = `SELECT id, credits, created_at, updated_at FROM users WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)
	var u models.User
	if err := row.Scan(&u.ID, &u.Credits, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// Ensure creates the user with the initial balance if it does not exist yet.
func (r *UserRepository) Ensure(ctx context.Context, userID string, initialCredits int) (bool, error) {
	const query = `INSERT IGNORE INTO users (id, credits) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, query, userID, initialCredits)
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure user rows affected: %w", err)
	}
	return affected > 0, nil
}

// Grant adds credits to a user, creating the user when needed.
func (r *UserRepository) Grant(ctx context.Context, userID string, amount int) error {
	const query = `
INSERT INTO users (id, credits) VALUES (?, ?)
ON DUPLICATE KEY UPDATE credits = credits + VALUES(credits), updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, userID, amount); err != nil {
		return fmt.Errorf("grant credits: %w", err)
	}
	return nil
}

// Reserve takes amount credits from the user and records the reservation in one transaction.
// The floor check happens inside the UPDATE so concurrent reservations cannot overdraw.
func (r *UserRepository) Reserve(ctx context.Context, userID string, amount int, action models.Action) (*models.CreditReservation, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const debit = `
UPDATE users SET credits = credits - ?, updated_at = NOW()
WHERE id = ? AND credits >= ?`
	res, err := tx.ExecContext(ctx, debit, amount, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("debit credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("debit rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrInsufficientCredits
	}

	reservation := &models.CreditReservation{
		ID:     uuid.NewString(),
		UserID: userID,
		Amount: amount,
		Action: action,
		Status: models.ReservationReserved,
	}
	const insert = `
INSERT INTO credit_reservations (id, user_id, amount, action, status)
VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insert, reservation.ID, userID, amount, string(action), string(models.ReservationReserved)); err != nil {
		return nil, fmt.Errorf("insert reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reserve tx: %w", err)
	}
	return reservation, nil
}

// Refund returns the reserved credits to the user. It reports false when the reservation
// was already refunded or settled, in which case nothing changes.
func (r *UserRepository) Refund(ctx context.Context, reservationID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		userID string
		amount int
		status string
	)
	row := tx.QueryRowContext(ctx, `SELECT user_id, amount, status FROM credit_reservations WHERE id = ? FOR UPDATE`, reservationID)
	if err := row.Scan(&userID, &amount, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrReservationNotFound
		}
		return false, fmt.Errorf("lock reservation: %w", err)
	}
	if models.ReservationStatus(status) != models.ReservationReserved {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE credit_reservations SET status = ?, updated_at = NOW() WHERE id = ?`, string(models.ReservationRefunded), reservationID); err != nil {
		return false, fmt.Errorf("mark reservation refunded: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET credits = credits + ?, updated_at = NOW() WHERE id = ?`, amount, userID); err != nil {
		return false, fmt.Errorf("credit refund: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit refund tx: %w", err)
	}
	return true, nil
}

// Settle marks a reservation as consumed so that later refunds are ignored.
func (r *UserRepository) Settle(ctx context.Context, reservationID string) error {
	const query = `
UPDATE credit_reservations SET status = ?, updated_at = NOW()
WHERE id = ? AND status = ?`
	if _, err := r.db.ExecContext(ctx, query, string(models.ReservationSettled), reservationID, string(models.ReservationReserved)); err != nil {
		return fmt.Errorf("settle reservation: %w", err)
	}
	return nil
}
