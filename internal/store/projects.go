package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
)

// ProjectRecord mirrors one row of the projects table.
type ProjectRecord struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Path              string `json:"path"`
	ProjectGoal       string `json:"project_goal"`
	Constraints       string `json:"constraints"`
	ArchitectureNotes string `json:"architecture_notes"`
	Links             string `json:"links"`
	ReferenceDocs     string `json:"reference_docs"`
}

// ProjectUpdate carries the fields of a partial update; nil means unchanged.
type ProjectUpdate struct {
	Name              *string
	Path              *string
	ProjectGoal       *string
	Constraints       *string
	ArchitectureNotes *string
	Links             *string
	ReferenceDocs     *string
}

func scanProject(stmt *sqlite.Stmt) ProjectRecord {
	return ProjectRecord{
		ID:                stmt.GetText("id"),
		Name:              stmt.GetText("name"),
		Path:              stmt.GetText("path"),
		ProjectGoal:       stmt.GetText("project_goal"),
		Constraints:       stmt.GetText("constraints"),
		ArchitectureNotes: stmt.GetText("architecture_notes"),
		Links:             stmt.GetText("links"),
		ReferenceDocs:     stmt.GetText("reference_docs"),
	}
}

// CreateProject inserts a project and returns the stored record.
func (s *Store) CreateProject(ctx context.Context, rec ProjectRecord) (ProjectRecord, error) {
	rec.ID = uuid.NewString()
	ts := now()
	err := s.exec(ctx,
		`INSERT INTO projects (id, name, path, project_goal, constraints, architecture_notes, links, reference_docs, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Name, rec.Path, rec.ProjectGoal, rec.Constraints,
		rec.ArchitectureNotes, rec.Links, rec.ReferenceDocs, ts, ts)
	return rec, err
}

// GetProject looks a project up by id.
func (s *Store) GetProject(ctx context.Context, id string) (ProjectRecord, error) {
	var rec ProjectRecord
	found := false
	err := s.query(ctx, `SELECT * FROM projects WHERE id=?`,
		func(stmt *sqlite.Stmt) error {
			rec = scanProject(stmt)
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

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]ProjectRecord, error) {
	out := []ProjectRecord{}
	err := s.query(ctx, `SELECT * FROM projects ORDER BY created_at DESC`,
		func(stmt *sqlite.Stmt) error {
			out = append(out, scanProject(stmt))
			return nil
		})
	return out, err
}

// UpdateProject applies a partial update and returns the fresh record and
// the names of the changed fields.
func (s *Store) UpdateProject(ctx context.Context, id string, upd ProjectUpdate) (ProjectRecord, []string, error) {
	if _, err := s.GetProject(ctx, id); err != nil {
		return ProjectRecord{}, nil, err
	}

	set := []string{}
	args := []any{}
	add := func(col string, v *string) {
		if v != nil {
			set = append(set, col+"=?")
			args = append(args, *v)
		}
	}
	add("name", upd.Name)
	add("path", upd.Path)
	add("project_goal", upd.ProjectGoal)
	add("constraints", upd.Constraints)
	add("architecture_notes", upd.ArchitectureNotes)
	add("links", upd.Links)
	add("reference_docs", upd.ReferenceDocs)

	changed := make([]string, 0, len(set))
	for _, clause := range set {
		changed = append(changed, strings.TrimSuffix(clause, "=?"))
	}

	if len(set) > 0 {
		set = append(set, "updated_at=?")
		args = append(args, now(), id)
		query := fmt.Sprintf(`UPDATE projects SET %s WHERE id=?`, strings.Join(set, ", "))
		if err := s.exec(ctx, query, args...); err != nil {
			return ProjectRecord{}, nil, err
		}
	}

	rec, err := s.GetProject(ctx, id)
	return rec, changed, err
}

// DeleteProject removes a project row.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}
	return s.exec(ctx, `DELETE FROM projects WHERE id=?`, id)
}
