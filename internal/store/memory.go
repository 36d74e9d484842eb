package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
)

// MemoryRecord is one project-memory note (decision, convention, gotcha).
type MemoryRecord struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Type      string `json:"type"`
	Content   string `json:"content"`
}

// MemoryUpdate carries the fields of a partial update; nil means unchanged.
type MemoryUpdate struct {
	Type    *string
	Content *string
}

func scanMemory(stmt *sqlite.Stmt) MemoryRecord {
	return MemoryRecord{
		ID:        stmt.GetText("id"),
		ProjectID: stmt.GetText("project_id"),
		Type:      stmt.GetText("type"),
		Content:   stmt.GetText("content"),
	}
}

// CreateMemory inserts a memory note and returns the stored record.
func (s *Store) CreateMemory(ctx context.Context, rec MemoryRecord) (MemoryRecord, error) {
	rec.ID = uuid.NewString()
	ts := now()
	err := s.exec(ctx,
		`INSERT INTO project_memory (id, project_id, type, content, created_at, updated_at)
		 VALUES (?,?,?,?,?,?)`,
		rec.ID, rec.ProjectID, rec.Type, rec.Content, ts, ts)
	return rec, err
}

// GetMemory looks a memory note up by id.
func (s *Store) GetMemory(ctx context.Context, id string) (MemoryRecord, error) {
	var rec MemoryRecord
	found := false
	err := s.query(ctx, `SELECT * FROM project_memory WHERE id=?`,
		func(stmt *sqlite.Stmt) error {
			rec = scanMemory(stmt)
			found = true
			return nil
		}, id)
	if err != nil {
		return rec, err
	}
	if !found {
		return rec, ErrNotFound
	}
	return rec, nil
}

// ListMemory returns a project's memory notes, newest first.
func (s *Store) ListMemory(ctx context.Context, projectID string) ([]MemoryRecord, error) {
	out := []MemoryRecord{}
	err := s.query(ctx,
		`SELECT * FROM project_memory WHERE project_id=? ORDER BY created_at DESC`,
		func(stmt *sqlite.Stmt) error {
			out = append(out, scanMemory(stmt))
			return nil
		}, projectID)
	return out, err
}

// UpdateMemory applies a partial update and returns the fresh record and
// the names of the changed fields.
func (s *Store) UpdateMemory(ctx context.Context, id string, upd MemoryUpdate) (MemoryRecord, []string, error) {
	if _, err := s.GetMemory(ctx, id); err != nil {
		return MemoryRecord{}, nil, err
	}

	set := []string{}
	args := []any{}
	if upd.Type != nil {
		set = append(set, "type=?")
		args = append(args, *upd.Type)
	}
	if upd.Content != nil {
		set = append(set, "content=?")
		args = append(args, *upd.Content)
	}

	changed := make([]string, 0, len(set))
	for _, clause := range set {
		changed = append(changed, strings.TrimSuffix(clause, "=?"))
	}

	if len(set) > 0 {
		set = append(set, "updated_at=?")
		args = append(args, now(), id)
		query := fmt.Sprintf(`UPDATE project_memory SET %s WHERE id=?`, strings.Join(set, ", "))
		if err := s.exec(ctx, query, args...); err != nil {
			return MemoryRecord{}, nil, err
		}
	}

	rec, err := s.GetMemory(ctx, id)
	return rec, changed, err
}

// DeleteMemory removes a memory note.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	if _, err := s.GetMemory(ctx, id); err != nil {
		return err
	}
	return s.exec(ctx, `DELETE FROM project_memory WHERE id=?`, id)
}
