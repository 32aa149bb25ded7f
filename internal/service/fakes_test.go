package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/digkill/promoshot/internal/config"
	"github.com/digkill/promoshot/internal/generation"
	"github.com/digkill/promoshot/internal/metrics"
	"github.com/digkill/promoshot/internal/models"
	"github.com/digkill/promoshot/internal/repository"
)

type fakeLedger struct {
	mu           sync.Mutex
	balances     map[string]int
	reservations map[string]*models.CreditReservation
	seq          int
	refunds      int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: map[string]int{}, reservations: map[string]*models.CreditReservation{}}
}

func (l *fakeLedger) Reserve(ctx context.Context, userID string, amount int, action models.Action) (*models.CreditReservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[userID] < amount {
		return nil, repository.ErrInsufficientCredits
	}
	l.balances[userID] -= amount
	l.seq++
	res := &models.CreditReservation{
		ID:     fmt.Sprintf("res-%d", l.seq),
		UserID: userID,
		Amount: amount,
		Action: action,
		Status: models.ReservationReserved,
	}
	stored := *res
	l.reservations[res.ID] = &stored
	return res, nil
}

func (l *fakeLedger) Refund(ctx context.Context, reservationID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	res, ok := l.reservations[reservationID]
	if !ok {
		return false, repository.ErrReservationNotFound
	}
	if res.Status != models.ReservationReserved {
		return false, nil
	}
	res.Status = models.ReservationRefunded
	l.balances[res.UserID] += res.Amount
	l.refunds++
	return true, nil
}

func (l *fakeLedger) Settle(ctx context.Context, reservationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if res, ok := l.reservations[reservationID]; ok && res.Status == models.ReservationReserved {
		res.Status = models.ReservationSettled
	}
	return nil
}

func (l *fakeLedger) balance(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID]
}

func (l *fakeLedger) statuses() []models.ReservationStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.ReservationStatus, 0, len(l.reservations))
	for i := 1; i <= l.seq; i++ {
		out = append(out, l.reservations[fmt.Sprintf("res-%d", i)].Status)
	}
	return out
}

type fakeProjects struct {
	mu       sync.Mutex
	projects map[string]*models.Project
	order    []string
	seq      int
	createFn func(*models.Project) error
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{projects: map[string]*models.Project{}}
}

func (f *fakeProjects) put(p models.Project) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[p.ID] = &p
	f.order = append(f.order, p.ID)
}

func (f *fakeProjects) get(id string) (models.Project, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return models.Project{}, false
	}
	return *p, true
}

func (f *fakeProjects) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.projects)
}

func (f *fakeProjects) Create(ctx context.Context, p *models.Project) error {
	if f.createFn != nil {
		if err := f.createFn(p); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.seq++
	p.ID = fmt.Sprintf("p-%d", f.seq)
	f.mu.Unlock()
	f.put(*p)
	return nil
}

func (f *fakeProjects) GetForUser(ctx context.Context, projectID, userID string) (*models.Project, error) {
	p, ok := f.get(projectID)
	if !ok || p.UserID != userID {
		return nil, repository.ErrProjectNotFound
	}
	return &p, nil
}

func (f *fakeProjects) ListForUser(ctx context.Context, userID string) ([]models.Project, error) {
	return f.filter(func(p *models.Project) bool { return p.UserID == userID }), nil
}

func (f *fakeProjects) ListPublished(ctx context.Context) ([]models.Project, error) {
	return f.filter(func(p *models.Project) bool { return p.IsPublished }), nil
}

func (f *fakeProjects) filter(keep func(*models.Project) bool) []models.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Project, 0)
	for _, id := range f.order {
		if p, ok := f.projects[id]; ok && keep(p) {
			out = append(out, *p)
		}
	}
	return out
}

func (f *fakeProjects) ClaimForVideo(ctx context.Context, projectID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[projectID]
	if !ok || p.UserID != userID || p.IsGenerating || p.GeneratedVideo != "" {
		return false, nil
	}
	p.IsGenerating = true
	p.Error = ""
	return true, nil
}

func (f *fakeProjects) update(projectID string, fn func(*models.Project)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[projectID]
	if !ok {
		return repository.ErrProjectNotFound
	}
	fn(p)
	return nil
}

func (f *fakeProjects) CompleteImage(ctx context.Context, projectID, imageURL string) error {
	return f.update(projectID, func(p *models.Project) {
		p.GeneratedImage, p.IsGenerating, p.Error = imageURL, false, ""
	})
}

func (f *fakeProjects) CompleteVideo(ctx context.Context, projectID, videoURL string) error {
	return f.update(projectID, func(p *models.Project) {
		p.GeneratedVideo, p.IsGenerating, p.Error = videoURL, false, ""
	})
}

func (f *fakeProjects) MarkFailed(ctx context.Context, projectID, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.update(projectID, func(p *models.Project) {
		p.IsGenerating, p.Error = false, message
	})
}

func (f *fakeProjects) SetPublished(ctx context.Context, projectID, userID string, published bool) error {
	if _, err := f.GetForUser(ctx, projectID, userID); err != nil {
		return err
	}
	return f.update(projectID, func(p *models.Project) { p.IsPublished = published })
}

func (f *fakeProjects) DeleteForUser(ctx context.Context, projectID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[projectID]
	if !ok || p.UserID != userID {
		return repository.ErrProjectNotFound
	}
	delete(f.projects, projectID)
	return nil
}

// fakeAssets returns URLs derived from the uploaded bytes so ordering is observable.
type fakeAssets struct {
	mu      sync.Mutex
	kinds   []string
	failOn  func(kind string, data []byte) error
	blockOn string
}

func (f *fakeAssets) Upload(ctx context.Context, kind string, data []byte, contentType string) (string, error) {
	if f.blockOn != "" && string(data) == f.blockOn {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.failOn != nil {
		if err := f.failOn(kind, data); err != nil {
			return "", err
		}
	}
	f.mu.Lock()
	f.kinds = append(f.kinds, kind)
	f.mu.Unlock()
	return "https://cdn.test/" + kind + "/" + string(data), nil
}

func (f *fakeAssets) uploaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.kinds...)
}

type fakeImages struct {
	mu       sync.Mutex
	requests []generation.ImageRequest
	fn       func(ctx context.Context) (*generation.Image, error)
}

func (f *fakeImages) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx)
	}
	return &generation.Image{Data: []byte("composite"), ContentType: "image/png"}, nil
}

type fakeVideo struct {
	available   bool
	onAvailable func()
	requests    []generation.VideoRequest
}

func (f *fakeVideo) Available() bool {
	if f.onAvailable != nil {
		f.onAvailable()
	}
	return f.available
}

func (f *fakeVideo) GenerateVideo(ctx context.Context, req generation.VideoRequest) (*generation.Video, error) {
	f.requests = append(f.requests, req)
	return &generation.Video{Data: []byte("clip"), ContentType: "video/mp4"}, nil
}

type capture struct {
	err   error
	attrs []any
}

type fakeReporter struct {
	mu       sync.Mutex
	captured []capture
}

func (r *fakeReporter) Capture(ctx context.Context, err error, attrs ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captured = append(r.captured, capture{err: err, attrs: attrs})
}

func (r *fakeReporter) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, 0, len(r.captured))
	for _, c := range r.captured {
		out = append(out, c.err)
	}
	return out
}

type harness struct {
	svc      *ProjectService
	ledger   *fakeLedger
	projects *fakeProjects
	assets   *fakeAssets
	images   *fakeImages
	video    *fakeVideo
	reporter *fakeReporter
	metrics  *metrics.InMemoryRecorder
}

func testConfig() config.Config {
	return config.Config{
		ImageCostCredits:    5,
		VideoCostCredits:    10,
		AssetTimeout:        time.Second,
		GenerationTimeout:   time.Second,
		CompensationTimeout: time.Second,
		MaxImageBytes:       1 << 20,
	}
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	h := &harness{
		ledger:   newFakeLedger(),
		projects: newFakeProjects(),
		assets:   &fakeAssets{},
		images:   &fakeImages{},
		video:    &fakeVideo{},
		reporter: &fakeReporter{},
		metrics:  metrics.NewInMemory(),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.svc = NewProjectService(cfg, log, h.ledger, h.projects, h.assets, h.images, h.video, h.reporter, h.metrics)
	return h
}

func validImageInput(userID string) CreateImageInput {
	return CreateImageInput{
		UserID:      userID,
		ProductName: "Ceramic Mug",
		UserPrompt:  "on a marble kitchen counter",
		Images: []Upload{
			{Filename: "person.jpg", ContentType: "image/jpeg", Data: []byte("person")},
			{Filename: "product.png", ContentType: "image/png", Data: []byte("product")},
		},
	}
}
