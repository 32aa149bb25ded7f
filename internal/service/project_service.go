package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/digkill/promoshot/internal/config"
	"github.com/digkill/promoshot/internal/metrics"
	"github.com/digkill/promoshot/internal/models"
	"github.com/digkill/promoshot/internal/report"
)

const (
	defaultProjectName  = "New Project"
	defaultAspectRatio  = "9:16"
	defaultTargetLength = 5
	minInputImages      = 2
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Upload is one input image received from the client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type CreateImageInput struct {
	UserID             string
	Name               string
	ProductName        string
	ProductDescription string
	UserPrompt         string
	AspectRatio        string
	TargetLength       int
	Images             []Upload
}

type ProjectService struct {
	cfg      config.Config
	log      *slog.Logger
	ledger   Ledger
	projects ProjectStore
	assets   AssetStore
	images   ImageGenerator
	video    VideoGenerator
	reporter report.Reporter
	metrics  metrics.Recorder
}

func NewProjectService(
	cfg config.Config,
	log *slog.Logger,
	ledger Ledger,
	projects ProjectStore,
	assets AssetStore,
	images ImageGenerator,
	video VideoGenerator,
	reporter report.Reporter,
	recorder metrics.Recorder,
) *ProjectService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if reporter == nil {
		reporter = report.NewLogger(log)
	}
	return &ProjectService{
		cfg:      cfg,
		log:      log,
		ledger:   ledger,
		projects: projects,
		assets:   assets,
		images:   images,
		video:    video,
		reporter: reporter,
		metrics:  recorder,
	}
}

func (s *ProjectService) validateImageInput(in *CreateImageInput) error {
	if len(in.Images) < minInputImages {
		return &ValidationError{Message: "Please upload at least 2 images"}
	}
	in.ProductName = strings.TrimSpace(in.ProductName)
	if in.ProductName == "" {
		return &ValidationError{Message: "productName is required"}
	}
	for i, img := range in.Images {
		if len(img.Data) == 0 {
			return &ValidationError{Message: fmt.Sprintf("image %d is empty", i+1)}
		}
		if s.cfg.MaxImageBytes > 0 && int64(len(img.Data)) > s.cfg.MaxImageBytes {
			return &ValidationError{Message: fmt.Sprintf("image %d exceeds %d bytes", i+1, s.cfg.MaxImageBytes)}
		}
		if !allowedImageTypes[strings.ToLower(img.ContentType)] {
			return &ValidationError{Message: fmt.Sprintf("image %d has unsupported type %q", i+1, img.ContentType)}
		}
	}

	if strings.TrimSpace(in.Name) == "" {
		in.Name = defaultProjectName
	}
	if in.AspectRatio == "" {
		in.AspectRatio = defaultAspectRatio
	}
	if in.TargetLength <= 0 {
		in.TargetLength = defaultTargetLength
	}
	return nil
}

func imagePrompt(userPrompt string) string {
	prompt := "Combine the person and product into a realistic photo. " +
		"Make the person naturally hold or use the product. " +
		"Match lighting, shadows, scale and perspective. " +
		"Make the person stand in professional studio lighting. " +
		"Output ecommerce-quality photo realistic imagery."
	if p := strings.TrimSpace(userPrompt); p != "" {
		prompt += " " + p
	}
	return prompt
}

func videoPrompt(productName, productDescription string) string {
	prompt := "make the person showcase the product which is " + productName
	if productDescription != "" {
		prompt += " and Product Description: " + productDescription
	}
	return prompt
}

// ListPublished returns every published project, oldest first.
func (s *ProjectService) ListPublished(ctx context.Context) ([]models.Project, error) {
	return s.projects.ListPublished(ctx)
}

func (s *ProjectService) ListMine(ctx context.Context, userID string) ([]models.Project, error) {
	return s.projects.ListForUser(ctx, userID)
}

func (s *ProjectService) Get(ctx context.Context, userID, projectID string) (*models.Project, error) {
	return s.projects.GetForUser(ctx, projectID, userID)
}

func (s *ProjectService) SetPublished(ctx context.Context, userID, projectID string, published bool) error {
	return s.projects.SetPublished(ctx, projectID, userID, published)
}

// Delete removes a project owned by userID. Projects of other users are reported as not found.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID string) error {
	if err := s.projects.DeleteForUser(ctx, projectID, userID); err != nil {
		return err
	}
	s.log.Info("project deleted", "project_id", projectID, "user_id", userID)
	return nil
}
