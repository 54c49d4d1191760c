package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"voxnow-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// VoicemailRepository handles voicemail row access.
type VoicemailRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewVoicemailRepository creates a new repository.
func NewVoicemailRepository(db *sqlx.DB, logger *zap.Logger) *VoicemailRepository {
	return &VoicemailRepository{db: db, logger: logger}
}

// Create inserts a voicemail row. Rows normally arrive from the external
// capture process; this also serves seeding and tests.
func (r *VoicemailRepository) Create(vm *models.Voicemail) error {
	if vm.Status == "" {
		vm.Status = models.StatusNew
	}
	now := time.Now().UTC()
	if vm.CreatedAt.IsZero() {
		vm.CreatedAt = now
	}
	vm.UpdatedAt = now

	query := r.db.Rebind(`
		INSERT INTO voicemails (
			id, account_id, caller_number, duration_seconds, received_at,
			transcription, summary, status, is_read, is_starred, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.Exec(query,
		vm.ID, vm.AccountID, vm.CallerNumber, vm.DurationSeconds, vm.ReceivedAt,
		vm.Transcription, vm.Summary, vm.Status, vm.IsRead, vm.IsStarred,
		vm.CreatedAt, vm.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert voicemail: %w", err)
	}
	return nil
}

// GetByID fetches one voicemail.
func (r *VoicemailRepository) GetByID(id string) (*models.Voicemail, error) {
	var vm models.Voicemail
	query := r.db.Rebind(`SELECT * FROM voicemails WHERE id = ?`)
	if err := r.db.Get(&vm, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get voicemail: %w", err)
	}
	return &vm, nil
}

var sortColumns = map[string]string{
	"received_at":      "received_at",
	"duration_seconds": "duration_seconds",
	"caller_number":    "caller_number",
	"status":           "status",
}

// List returns one page of voicemails matching the filter plus the total
// match count. The dashboard's filtering, sorting and pagination all happen
// here rather than client-side.
func (r *VoicemailRepository) List(f models.VoicemailFilter) ([]*models.Voicemail, int, error) {
	var conds []string
	var args []interface{}

	if f.AccountID != "" {
		conds = append(conds, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *f.Status)
	} else {
		conds = append(conds, "status != ?")
		args = append(args, models.StatusDeleted)
	}
	if f.IsRead != nil {
		conds = append(conds, "is_read = ?")
		args = append(args, *f.IsRead)
	}
	if f.IsStarred != nil {
		conds = append(conds, "is_starred = ?")
		args = append(args, *f.IsStarred)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, "(caller_number LIKE ? OR transcription LIKE ? OR summary LIKE ?)")
		like := "%" + s + "%"
		args = append(args, like, like, like)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := r.db.Rebind("SELECT COUNT(*) FROM voicemails" + where)
	if err := r.db.Get(&total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count voicemails: %w", err)
	}

	sortCol, ok := sortColumns[f.SortBy]
	if !ok {
		sortCol = "received_at"
	}
	order := "ASC"
	if f.SortDesc || f.SortBy == "" {
		order = "DESC"
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	listQuery := r.db.Rebind(fmt.Sprintf(
		"SELECT * FROM voicemails%s ORDER BY %s %s LIMIT ? OFFSET ?",
		where, sortCol, order,
	))
	args = append(args, pageSize, (page-1)*pageSize)

	var rows []*models.Voicemail
	if err := r.db.Select(&rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list voicemails: %w", err)
	}
	return rows, total, nil
}

// Update applies the dashboard's mutable fields. Nil fields are unchanged.
func (r *VoicemailRepository) Update(id string, upd models.VoicemailUpdate) (*models.Voicemail, error) {
	var sets []string
	var args []interface{}

	if upd.Status != nil {
		if !models.IsValidStatus(*upd.Status) {
			return nil, fmt.Errorf("invalid status %q", *upd.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, *upd.Status)
	}
	if upd.IsRead != nil {
		sets = append(sets, "is_read = ?")
		args = append(args, *upd.IsRead)
	}
	if upd.IsStarred != nil {
		sets = append(sets, "is_starred = ?")
		args = append(args, *upd.IsStarred)
	}
	if len(sets) == 0 {
		return r.GetByID(id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, id)

	query := r.db.Rebind("UPDATE voicemails SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	res, err := r.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update voicemail: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(id)
}

// SetStatus flips only the lifecycle status; used by the result writer.
func (r *VoicemailRepository) SetStatus(id string, status models.VoicemailStatus) error {
	query := r.db.Rebind(`UPDATE voicemails SET status = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.Exec(query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set voicemail status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
