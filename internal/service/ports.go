package service

import (
	"context"

	"github.com/digkill/promoshot/internal/generation"
	"github.com/digkill/promoshot/internal/models"
)

// Ledger holds per-user credit balances. Reserve must check the floor and debit atomically,
// and Refund must be a no-op for a reservation that is no longer reserved.
type Ledger interface {
	Reserve(ctx context.Context, userID string, amount int, action models.Action) (*models.CreditReservation, error)
	Refund(ctx context.Context, reservationID string) (bool, error)
	Settle(ctx context.Context, reservationID string) error
}

type ProjectStore interface {
	Create(ctx context.Context, p *models.Project) error
	GetForUser(ctx context.Context, projectID, userID string) (*models.Project, error)
	ListForUser(ctx context.Context, userID string) ([]models.Project, error)
	ListPublished(ctx context.Context) ([]models.Project, error)
	ClaimForVideo(ctx context.Context, projectID, userID string) (bool, error)
	CompleteImage(ctx context.Context, projectID, imageURL string) error
	CompleteVideo(ctx context.Context, projectID, videoURL string) error
	MarkFailed(ctx context.Context, projectID, message string) error
	SetPublished(ctx context.Context, projectID, userID string, published bool) error
	DeleteForUser(ctx context.Context, projectID, userID string) error
}

type AssetStore interface {
	Upload(ctx context.Context, kind string, data []byte, contentType string) (string, error)
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.Image, error)
}

type VideoGenerator interface {
	Available() bool
	GenerateVideo(ctx context.Context, req generation.VideoRequest) (*generation.Video, error)
}
