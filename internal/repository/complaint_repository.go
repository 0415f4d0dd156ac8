package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/complaint-desk-api/internal/models"
)

const complaintColumns = `id, title, description, branch, category, priority, status, student_id, resolver_id, comments, resolution_comment, file_key, file_name, incharge_name, created_at, updated_at`

// ComplaintRepository persists complaints. Every lifecycle transition is one UPDATE statement.
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository constructs the repository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// Create inserts a new complaint.
func (r *ComplaintRepository) Create(ctx context.Context, c *models.Complaint) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Comments == nil {
		c.Comments = models.Comments{}
	}
	const query = `INSERT INTO complaints (id, title, description, branch, category, priority, status, student_id, resolver_id, comments, resolution_comment, file_key, file_name, incharge_name, created_at, updated_at)
VALUES (:id, :title, :description, :branch, :category, :priority, :status, :student_id, :resolver_id, :comments, :resolution_comment, :file_key, :file_name, :incharge_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}
	c.Hydrate()
	return nil
}

// FindByID loads one complaint.
func (r *ComplaintRepository) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`
	return r.getOne(ctx, "find complaint", query, id)
}

// List returns complaints newest first. Status filters match any alias of the requested states.
func (r *ComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if len(filter.Statuses) > 0 {
		aliases := make([]string, 0, len(filter.Statuses)*4)
		blankIsPending := false
		for _, s := range filter.Statuses {
			aliases = append(aliases, models.StatusAliases(s)...)
			blankIsPending = blankIsPending || s == models.StatusPending
		}
		args = append(args, pq.Array(aliases))
		cond := fmt.Sprintf("LOWER(TRIM(status)) = ANY($%d)", len(args))
		if blankIsPending {
			// NormalizeStatus reads a blank status as pending.
			cond = "(" + cond + " OR TRIM(status) = '')"
		}
		conditions = append(conditions, cond)
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.ResolverID != "" {
		args = append(args, filter.ResolverID)
		conditions = append(conditions, fmt.Sprintf("resolver_id = $%d", len(args)))
	}
	if filter.Participant != "" {
		args = append(args, filter.Participant)
		conditions = append(conditions, fmt.Sprintf("(student_id = $%d OR resolver_id = $%d)", len(args), len(args)))
	}

	query := `SELECT ` + complaintColumns + ` FROM complaints`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var complaints []models.Complaint
	if err := r.db.SelectContext(ctx, &complaints, query, args...); err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	for i := range complaints {
		complaints[i].Hydrate()
	}
	return complaints, nil
}

// Assign sets the resolver and status and clears any resolution comment.
func (r *ComplaintRepository) Assign(ctx context.Context, id, resolverID string, status models.ComplaintStatus) (*models.Complaint, error) {
	query := `UPDATE complaints SET resolver_id = $2, status = $3, resolution_comment = NULL, updated_at = $4 WHERE id = $1 RETURNING ` + complaintColumns
	return r.getOne(ctx, "assign complaint", query, id, resolverID, status, time.Now().UTC())
}

// AppendComment adds one comment to the JSONB array without rewriting existing entries.
func (r *ComplaintRepository) AppendComment(ctx context.Context, id string, comment models.Comment) (*models.Complaint, error) {
	payload, err := json.Marshal([]models.Comment{comment})
	if err != nil {
		return nil, fmt.Errorf("encode comment: %w", err)
	}
	query := `UPDATE complaints SET comments = COALESCE(comments, '[]'::jsonb) || $2::jsonb, updated_at = $3 WHERE id = $1 RETURNING ` + complaintColumns
	return r.getOne(ctx, "append comment", query, id, string(payload), time.Now().UTC())
}

// Resolve marks the complaint resolved, keeping the current resolver or adopting actorID.
func (r *ComplaintRepository) Resolve(ctx context.Context, id, actorID, resolutionComment string) (*models.Complaint, error) {
	query := `UPDATE complaints SET status = $2, resolution_comment = $3, resolver_id = COALESCE(resolver_id, $4), updated_at = $5 WHERE id = $1 RETURNING ` + complaintColumns
	return r.getOne(ctx, "resolve complaint", query, id, models.StatusResolved, resolutionComment, actorID, time.Now().UTC())
}

// UpdateStatus writes a canonical status. Returning to pending clears the resolver; any other
// status keeps the resolver or adopts actorID. resolutionComment is stored as given (nil clears it).
func (r *ComplaintRepository) UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus, actorID string, resolutionComment *string) (*models.Complaint, error) {
	now := time.Now().UTC()
	if status == models.StatusPending {
		query := `UPDATE complaints SET status = $2, resolver_id = NULL, resolution_comment = NULL, updated_at = $3 WHERE id = $1 RETURNING ` + complaintColumns
		return r.getOne(ctx, "update complaint status", query, id, status, now)
	}
	query := `UPDATE complaints SET status = $2, resolver_id = COALESCE(resolver_id, $3), resolution_comment = $4, updated_at = $5 WHERE id = $1 RETURNING ` + complaintColumns
	return r.getOne(ctx, "update complaint status", query, id, status, actorID, resolutionComment, now)
}

// Delete removes the complaint and returns its attachment key, if any.
func (r *ComplaintRepository) Delete(ctx context.Context, id string) (*string, error) {
	var fileKey *string
	if err := r.db.GetContext(ctx, &fileKey, `DELETE FROM complaints WHERE id = $1 RETURNING file_key`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("delete complaint: %w", err)
	}
	return fileKey, nil
}

// CountByStatus groups raw stored statuses, optionally scoped to a resolver.
func (r *ComplaintRepository) CountByStatus(ctx context.Context, resolverID string) ([]models.StatusCount, error) {
	query := `SELECT status, COUNT(*) AS count FROM complaints`
	var args []interface{}
	if resolverID != "" {
		query += ` WHERE resolver_id = $1`
		args = append(args, resolverID)
	}
	query += ` GROUP BY status ORDER BY status`

	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count complaints by status: %w", err)
	}
	return counts, nil
}

// ListIdentities returns the fields the batch normalizer rewrites, for every complaint.
func (r *ComplaintRepository) ListIdentities(ctx context.Context) ([]models.ComplaintIdentity, error) {
	const query = `SELECT id, status, student_id, resolver_id FROM complaints ORDER BY created_at ASC`
	var rows []models.ComplaintIdentity
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list complaint identities: %w", err)
	}
	return rows, nil
}

// UpdateIdentity rewrites status and reference columns without touching updated_at.
func (r *ComplaintRepository) UpdateIdentity(ctx context.Context, row models.ComplaintIdentity) error {
	const query = `UPDATE complaints SET status = $2, student_id = $3, resolver_id = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, row.ID, row.Status, row.StudentID, row.ResolverID)
	if err != nil {
		return fmt.Errorf("normalize complaint: %w", err)
	}
	return requireAffected(res)
}

func (r *ComplaintRepository) getOne(ctx context.Context, op, query string, args ...interface{}) (*models.Complaint, error) {
	var c models.Complaint
	if err := r.db.GetContext(ctx, &c, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.Hydrate()
	return &c, nil
}
