package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/digkill/promoshot/internal/generation"
	"github.com/digkill/promoshot/internal/models"
	"github.com/digkill/promoshot/internal/storage"
)

// stage is how far a paid action got. Compensation is chosen from the stage at failure.
type stage int

const (
	stageValidated stage = iota
	stageReserved
	stageAssetsUploaded
	stageRecordCreated
	stageGenerated
	stageFinalized
)

func (s stage) String() string {
	switch s {
	case stageValidated:
		return "validated"
	case stageReserved:
		return "reserved"
	case stageAssetsUploaded:
		return "assets_uploaded"
	case stageRecordCreated:
		return "record_created"
	case stageGenerated:
		return "generated"
	case stageFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

var errNoVideoProvider = fmt.Errorf("%w: no video provider is configured", ErrCapabilityUnavailable)

// run tracks one paid action from reservation to its terminal state.
type run struct {
	action      models.Action
	userID      string
	projectID   string
	stage       stage
	reservation *models.CreditReservation
	started     time.Time
}

func (s *ProjectService) begin(action models.Action, userID string) *run {
	s.metrics.IncActionStarted(string(action))
	return &run{action: action, userID: userID, stage: stageValidated, started: time.Now()}
}

func (s *ProjectService) reserve(ctx context.Context, r *run, amount int) error {
	reservation, err := s.ledger.Reserve(ctx, r.userID, amount, r.action)
	if err != nil {
		s.metrics.IncActionFailed(string(r.action), r.stage.String())
		if !errors.Is(err, ErrInsufficientCredits) {
			s.reporter.Capture(ctx, err, "action", r.action, "user_id", r.userID)
		}
		return err
	}
	r.reservation = reservation
	r.stage = stageReserved
	return nil
}

// fail moves the run to its failed state and undoes whatever the reached stage requires:
// the record is marked failed once it exists and the reservation is refunded once it exists.
// It runs on a context detached from the caller so a dropped client cannot skip the refund.
func (s *ProjectService) fail(ctx context.Context, r *run, cause error) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CompensationTimeout)
	defer cancel()

	attrs := []any{"action", r.action, "stage", r.stage.String(), "user_id", r.userID, "project_id", r.projectID}

	if r.stage >= stageRecordCreated && r.projectID != "" {
		if err := s.projects.MarkFailed(cctx, r.projectID, cause.Error()); err != nil {
			s.log.Error("failed to mark project failed", append(attrs, "err", err)...)
			s.reporter.Capture(cctx, fmt.Errorf("mark project failed: %w", err), attrs...)
		}
	}
	s.refund(cctx, r)

	s.reporter.Capture(cctx, cause, attrs...)
	s.metrics.IncActionFailed(string(r.action), r.stage.String())
	s.metrics.ObserveActionDuration(string(r.action), "failed", time.Since(r.started))
	return cause
}

// reject returns the reservation for a request refused after reserving, without touching
// any record.
func (s *ProjectService) reject(ctx context.Context, r *run, cause error) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CompensationTimeout)
	defer cancel()

	s.refund(cctx, r)
	s.metrics.IncActionFailed(string(r.action), "rejected")
	s.metrics.ObserveActionDuration(string(r.action), "rejected", time.Since(r.started))
	return cause
}

func (s *ProjectService) refund(ctx context.Context, r *run) {
	if r.reservation == nil {
		return
	}
	refunded, err := s.ledger.Refund(ctx, r.reservation.ID)
	if err != nil {
		s.log.Error("failed to refund credits",
			"err", err, "reservation_id", r.reservation.ID, "user_id", r.userID, "amount", r.reservation.Amount)
		s.reporter.Capture(ctx, fmt.Errorf("refund reservation %s: %w", r.reservation.ID, err),
			"user_id", r.userID, "amount", r.reservation.Amount)
		return
	}
	if refunded {
		s.metrics.AddCreditsRefunded(string(r.action), r.reservation.Amount)
	}
}

func (s *ProjectService) finalize(ctx context.Context, r *run) {
	r.stage = stageFinalized
	if err := s.ledger.Settle(context.WithoutCancel(ctx), r.reservation.ID); err != nil {
		s.log.Error("failed to settle reservation", "err", err, "reservation_id", r.reservation.ID)
	}
	s.metrics.ObserveActionDuration(string(r.action), "success", time.Since(r.started))
}

// CreateImageProject charges the image cost, stores the inputs, generates the composite
// image and returns the new project id.
func (s *ProjectService) CreateImageProject(ctx context.Context, in CreateImageInput) (string, error) {
	if err := s.validateImageInput(&in); err != nil {
		return "", err
	}

	r := s.begin(models.ActionImage, in.UserID)
	if err := s.reserve(ctx, r, s.cfg.ImageCostCredits); err != nil {
		return "", err
	}

	urls, err := s.uploadInputs(ctx, in.Images)
	if err != nil {
		return "", s.fail(ctx, r, upstream("failed to upload images", err))
	}
	r.stage = stageAssetsUploaded

	project := &models.Project{
		UserID:             in.UserID,
		Name:               in.Name,
		ProductName:        in.ProductName,
		ProductDescription: in.ProductDescription,
		UserPrompt:         in.UserPrompt,
		AspectRatio:        in.AspectRatio,
		TargetLength:       in.TargetLength,
		UploadedImages:     urls,
		IsGenerating:       true,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return "", s.fail(ctx, r, fmt.Errorf("create project: %w", err))
	}
	r.projectID = project.ID
	r.stage = stageRecordCreated

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	img, err := s.images.GenerateImage(genCtx, generation.ImageRequest{
		Prompt:        imagePrompt(in.UserPrompt),
		Size:          "1024x1024",
		Quality:       "hd",
		ReferenceURLs: urls,
	})
	cancel()
	if err != nil {
		return "", s.fail(ctx, r, upstream("failed to generate image", err))
	}
	if img == nil || len(img.Data) == 0 {
		return "", s.fail(ctx, r, upstream("failed to generate image", generation.ErrEmptyResult))
	}
	r.stage = stageGenerated

	imageURL, err := s.upload(ctx, storage.KindGenerated, img.Data, img.ContentType)
	if err != nil {
		return "", s.fail(ctx, r, upstream("failed to upload generated image", err))
	}
	if err := s.projects.CompleteImage(ctx, project.ID, imageURL); err != nil {
		return "", s.fail(ctx, r, fmt.Errorf("save generated image: %w", err))
	}

	s.finalize(ctx, r)
	s.log.Info("image project generated", "project_id", project.ID, "user_id", in.UserID)
	return project.ID, nil
}

// CreateVideo charges the video cost and runs the video capability for an owned project.
// Requests refused before the project is claimed get their credits back untouched.
func (s *ProjectService) CreateVideo(ctx context.Context, userID, projectID string) (string, error) {
	if projectID == "" {
		return "", &ValidationError{Message: "projectId is required"}
	}

	r := s.begin(models.ActionVideo, userID)
	if err := s.reserve(ctx, r, s.cfg.VideoCostCredits); err != nil {
		return "", err
	}

	project, err := s.projects.GetForUser(ctx, projectID, userID)
	switch {
	case errors.Is(err, ErrProjectNotFound):
		return "", s.reject(ctx, r, ErrProjectNotFound)
	case err != nil:
		return "", s.fail(ctx, r, fmt.Errorf("load project: %w", err))
	case project.IsGenerating:
		return "", s.reject(ctx, r, ErrGenerationInProgress)
	case project.GeneratedVideo != "":
		return "", s.reject(ctx, r, ErrVideoAlreadyGenerated)
	}

	claimed, err := s.projects.ClaimForVideo(ctx, projectID, userID)
	if err != nil {
		return "", s.fail(ctx, r, fmt.Errorf("claim project: %w", err))
	}
	if !claimed {
		return "", s.reject(ctx, r, ErrGenerationInProgress)
	}
	r.projectID = projectID
	r.stage = stageRecordCreated

	if !s.video.Available() {
		return "", s.fail(ctx, r, errNoVideoProvider)
	}
	if project.GeneratedImage == "" {
		return "", s.fail(ctx, r, ErrGeneratedImageMissing)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	video, err := s.video.GenerateVideo(genCtx, generation.VideoRequest{
		Prompt:      videoPrompt(project.ProductName, project.ProductDescription),
		ImageURL:    project.GeneratedImage,
		AspectRatio: project.AspectRatio,
		Seconds:     project.TargetLength,
	})
	cancel()
	switch {
	case errors.Is(err, generation.ErrVideoUnavailable):
		return "", s.fail(ctx, r, errNoVideoProvider)
	case err != nil:
		return "", s.fail(ctx, r, upstream("failed to generate video", err))
	case video == nil || len(video.Data) == 0:
		return "", s.fail(ctx, r, upstream("failed to generate video", generation.ErrEmptyResult))
	}
	r.stage = stageGenerated

	videoURL, err := s.upload(ctx, storage.KindGenerated, video.Data, video.ContentType)
	if err != nil {
		return "", s.fail(ctx, r, upstream("failed to upload generated video", err))
	}
	if err := s.projects.CompleteVideo(ctx, projectID, videoURL); err != nil {
		return "", s.fail(ctx, r, fmt.Errorf("save generated video: %w", err))
	}

	s.finalize(ctx, r)
	s.log.Info("video generated", "project_id", projectID, "user_id", userID)
	return videoURL, nil
}

// uploadInputs stores all inputs concurrently and keeps their order. The first failure
// cancels the remaining uploads.
func (s *ProjectService) uploadInputs(ctx context.Context, uploads []Upload) ([]string, error) {
	urls := make([]string, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range uploads {
		i, u := i, u
		g.Go(func() error {
			url, err := s.upload(gctx, storage.KindInput, u.Data, u.ContentType)
			if err != nil {
				return fmt.Errorf("image %d: %w", i+1, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

func (s *ProjectService) upload(ctx context.Context, kind string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AssetTimeout)
	defer cancel()
	return s.assets.Upload(ctx, kind, data, contentType)
}
