package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opora-ai/docforge/pkg/apperrors"
	"github.com/opora-ai/docforge/pkg/database"
	"github.com/opora-ai/docforge/pkg/models"
)

// ComplaintRepository provides data access for captured complaints.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error)
	ListByCategory(ctx context.Context, category string) ([]*models.Complaint, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Complaint, error)
}

type complaintRepository struct {
	db *database.DB
}

// NewComplaintRepository creates a new ComplaintRepository.
func NewComplaintRepository(db *database.DB) ComplaintRepository {
	return &complaintRepository{db: db}
}

var _ ComplaintRepository = (*complaintRepository)(nil)

func (r *complaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	if complaint.ID == uuid.Nil {
		complaint.ID = uuid.New()
	}
	if complaint.CreatedAt.IsZero() {
		complaint.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO complaints (
			id, user_id, full_name, email, phone,
			complaint_text, category, priority, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		complaint.ID,
		complaint.UserID,
		complaint.FullName,
		complaint.Email,
		complaint.Phone,
		complaint.Text,
		complaint.Category,
		complaint.Priority,
		complaint.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create complaint: %w", err)
	}
	return nil
}

func (r *complaintRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	query := `
		SELECT id, user_id, full_name, email, phone,
		       complaint_text, category, priority, created_at
		FROM complaints
		WHERE id = $1`

	var c models.Complaint
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.FullName, &c.Email, &c.Phone,
		&c.Text, &c.Category, &c.Priority, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get complaint: %w", err)
	}
	return &c, nil
}

func (r *complaintRepository) ListByCategory(ctx context.Context, category string) ([]*models.Complaint, error) {
	query := `
		SELECT id, user_id, full_name, email, phone,
		       complaint_text, category, priority, created_at
		FROM complaints
		WHERE category = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, category)
}

func (r *complaintRepository) ListByUser(ctx context.Context, userID string) ([]*models.Complaint, error) {
	query := `
		SELECT id, user_id, full_name, email, phone,
		       complaint_text, category, priority, created_at
		FROM complaints
		WHERE user_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *complaintRepository) list(ctx context.Context, query string, arg any) ([]*models.Complaint, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	defer rows.Close()

	var complaints []*models.Complaint
	for rows.Next() {
		var c models.Complaint
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.FullName, &c.Email, &c.Phone,
			&c.Text, &c.Category, &c.Priority, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}
		complaints = append(complaints, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate complaints: %w", err)
	}
	return complaints, nil
}
