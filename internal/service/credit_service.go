package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/digkill/promoshot/internal/repository"
)

type CreditService struct {
	users          *repository.UserRepository
	log            *slog.Logger
	initialCredits int
}

func NewCreditService(users *repository.UserRepository, log *slog.Logger, initialCredits int) *CreditService {
	return &CreditService{users: users, log: log, initialCredits: initialCredits}
}

// EnsureUser creates the account with the starting balance on first sight.
func (s *CreditService) EnsureUser(ctx context.Context, userID string) error {
	created, err := s.users.Ensure(ctx, userID, s.initialCredits)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	if created {
		s.log.Info("user created", "user_id", userID, "credits", s.initialCredits)
	}
	return nil
}

func (s *CreditService) Balance(ctx context.Context, userID string) (int, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Credits, nil
}

func (s *CreditService) Grant(ctx context.Context, userID string, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := s.users.Grant(ctx, userID, amount); err != nil {
		return err
	}
	s.log.Info("credits granted", "user_id", userID, "amount", amount)
	return nil
}
