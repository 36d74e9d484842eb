package store

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
)

// ActivityRecord is one audit-trail row.
type ActivityRecord struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Action     string `json:"action"`
	Details    string `json:"details_json"`
	CreatedAt  string `json:"created_at"`
}

// LogActivity appends an audit row. details is marshaled to JSON; a nil map
// becomes an empty object. Best-effort from callers' perspective: CRUD
// handlers log the returned error and move on.
func (s *Store) LogActivity(ctx context.Context, projectID, entityType, entityID, action string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	payload, err := sonic.MarshalString(details)
	if err != nil {
		return err
	}
	return s.exec(ctx,
		`INSERT INTO activity_log (id, project_id, entity_type, entity_id, action, details_json, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		uuid.NewString(), projectID, entityType, entityID, action, payload, now())
}

// ListActivity returns a project's most recent activity rows, capped at 200.
func (s *Store) ListActivity(ctx context.Context, projectID string) ([]ActivityRecord, error) {
	out := []ActivityRecord{}
	err := s.query(ctx,
		`SELECT * FROM activity_log WHERE project_id=? ORDER BY created_at DESC LIMIT 200`,
		func(stmt *sqlite.Stmt) error {
			out = append(out, ActivityRecord{
				ID:         stmt.GetText("id"),
				ProjectID:  stmt.GetText("project_id"),
				EntityType: stmt.GetText("entity_type"),
				EntityID:   stmt.GetText("entity_id"),
				Action:     stmt.GetText("action"),
				Details:    stmt.GetText("details_json"),
				CreatedAt:  stmt.GetText("created_at"),
			})
			return nil
		}, projectID)
	return out, err
}
