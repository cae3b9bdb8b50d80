package repository

import (
	"classhub_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ContentFilter narrows listings of teacher-owned content.
type ContentFilter struct {
	TeacherID  uint
	ModuleID   uint
	Statuses   []string
	Subject    string
	GradeLevel string
	Page       int
	Limit      int
}

func (f ContentFilter) apply(q *gorm.DB) *gorm.DB {
	if f.TeacherID != 0 {
		q = q.Where("teacher_id = ?", f.TeacherID)
	}
	if f.ModuleID != 0 {
		q = q.Where("module_id = ?", f.ModuleID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Subject != "" {
		q = q.Where("subject = ?", f.Subject)
	}
	if f.GradeLevel != "" {
		q = q.Where("grade_level = ?", f.GradeLevel)
	}
	return q
}

func paginate(q *gorm.DB, page, limit int) *gorm.DB {
	if limit <= 0 {
		return q
	}
	if page < 1 {
		page = 1
	}
	return q.Offset((page - 1) * limit).Limit(limit)
}

// statusColumns names the timestamp column stamped when a row enters a status.
var statusColumns = map[string]string{
	"published": "published_at",
	"closed":    "closed_at",
	"archived":  "archived_at",
	"live":      "started_at",
	"completed": "ended_at",
	"cancelled": "ended_at",
}

// transition moves a row from one status to another only if it is still in the
// expected one; ok is false when another request got there first.
func transition(ctx context.Context, db *gorm.DB, value interface{}, id uint, from, to string, at time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if col, ok := statusColumns[to]; ok {
		updates[col] = at
	}
	res := db.WithContext(ctx).Model(value).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// duplicateOr turns unique-constraint violations into ErrConflict.
func duplicateOr(err error, what string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s already exists", util.ErrConflict, what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s already exists", util.ErrConflict, what)
	}
	return err
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}
