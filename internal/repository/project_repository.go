package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/digkill/promoshot/internal/models"
)

var ErrProjectNotFound = errors.New("project not found")

const projectColumns = `
id, user_id, name, product_name, COALESCE(product_description, ''), COALESCE(user_prompt, ''),
aspect_ratio, target_length, uploaded_images, COALESCE(generated_image, ''), COALESCE(generated_video, ''),
is_generating, is_published, COALESCE(error, ''), created_at, updated_at`

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project in the generating state. An empty ID is filled in.
func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	images, err := json.Marshal(nonNil(p.UploadedImages))
	if err != nil {
		return fmt.Errorf("encode uploaded images: %w", err)
	}
	const query = `
INSERT INTO projects (id, user_id, name, product_name, product_description, user_prompt,
    aspect_ratio, target_length, uploaded_images, is_generating, is_published)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.Name, p.ProductName, nullString(p.ProductDescription), nullString(p.UserPrompt),
		p.AspectRatio, p.TargetLength, string(images), p.IsGenerating, p.IsPublished,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) GetForUser(ctx context.Context, projectID, userID string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ? AND user_id = ?`
	p, err := scanProject(r.db.QueryRowContext(ctx, query, projectID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (r *ProjectRepository) ListForUser(ctx context.Context, userID string) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = ? ORDER BY created_at DESC, id`
	return r.list(ctx, query, userID)
}

// ListPublished returns published projects in insertion order.
func (r *ProjectRepository) ListPublished(ctx context.Context) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE is_published = 1 ORDER BY created_at, id`
	return r.list(ctx, query)
}

// ClaimForVideo flips is_generating on only when the project is idle and has no video yet.
// It reports false when another request got there first.
func (r *ProjectRepository) ClaimForVideo(ctx context.Context, projectID, userID string) (bool, error) {
	const query = `
UPDATE projects SET is_generating = 1, error = NULL
WHERE id = ? AND user_id = ? AND is_generating = 0 AND generated_video IS NULL`
	res, err := r.db.ExecContext(ctx, query, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("claim project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim project rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *ProjectRepository) CompleteImage(ctx context.Context, projectID, imageURL string) error {
	const query = `
UPDATE projects SET generated_image = ?, is_generating = 0, error = NULL
WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, imageURL, projectID); err != nil {
		return fmt.Errorf("complete image: %w", err)
	}
	return nil
}

func (r *ProjectRepository) CompleteVideo(ctx context.Context, projectID, videoURL string) error {
	const query = `
UPDATE projects SET generated_video = ?, is_generating = 0, error = NULL
WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, videoURL, projectID); err != nil {
		return fmt.Errorf("complete video: %w", err)
	}
	return nil
}

func (r *ProjectRepository) MarkFailed(ctx context.Context, projectID, message string) error {
	const query = `UPDATE projects SET is_generating = 0, error = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, message, projectID); err != nil {
		return fmt.Errorf("mark project failed: %w", err)
	}
	return nil
}

func (r *ProjectRepository) SetPublished(ctx context.Context, projectID, userID string, published bool) error {
	if _, err := r.GetForUser(ctx, projectID, userID); err != nil {
		return err
	}
	const query = `UPDATE projects SET is_published = ? WHERE id = ? AND user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, published, projectID, userID); err != nil {
		return fmt.Errorf("set published: %w", err)
	}
	return nil
}

// DeleteForUser removes the project only when it belongs to userID.
func (r *ProjectRepository) DeleteForUser(ctx context.Context, projectID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project rows affected: %w", err)
	}
	if affected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) list(ctx context.Context, query string, args ...any) ([]models.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var (
		p      models.Project
		images []byte
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.ProductName, &p.ProductDescription, &p.UserPrompt,
		&p.AspectRatio, &p.TargetLength, &images, &p.GeneratedImage, &p.GeneratedVideo,
		&p.IsGenerating, &p.IsPublished, &p.Error, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.UploadedImages = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.UploadedImages); err != nil {
			return nil, fmt.Errorf("decode uploaded images: %w", err)
		}
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
