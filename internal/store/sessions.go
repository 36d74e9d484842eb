package store

import (
	"context"
	"fmt"
	"strings"

	"zombiezen.com/go/sqlite"
)

// SessionRecord mirrors one row of the sessions table.
type SessionRecord struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Command        string `json:"command"`
	Cwd            string `json:"cwd"`
	PID            int    `json:"pid"`
	Status         string `json:"status"`
	LastActivityAt string `json:"last_activity_at,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// SessionArchiveItem is a session row joined with its assigned tickets.
type SessionArchiveItem struct {
	SessionRecord
	TicketIDs    []string `json:"ticket_ids"`
	TicketTitles []string `json:"ticket_titles"`
	TicketCount  int      `json:"ticket_count"`
}

func scanSession(stmt *sqlite.Stmt) SessionRecord {
	return SessionRecord{
		ID:             stmt.GetText("id"),
		Name:           stmt.GetText("name"),
		Command:        stmt.GetText("command"),
		Cwd:            stmt.GetText("cwd"),
		PID:            int(stmt.GetInt64("pid")),
		Status:         stmt.GetText("status"),
		LastActivityAt: stmt.GetText("last_activity_at"),
		CreatedAt:      stmt.GetText("created_at"),
		UpdatedAt:      stmt.GetText("updated_at"),
	}
}

// InsertSession records a freshly created terminal session.
func (s *Store) InsertSession(ctx context.Context, rec SessionRecord) error {
	ts := now()
	return s.exec(ctx,
		`INSERT INTO sessions (id, name, command, cwd, pid, status, last_activity_at, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Name, rec.Command, rec.Cwd, rec.PID, rec.Status, ts, ts, ts)
}

// ListSessions returns all session rows, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	var out []SessionRecord
	err := s.query(ctx, `SELECT * FROM sessions ORDER BY created_at DESC`,
		func(stmt *sqlite.Stmt) error {
			out = append(out, scanSession(stmt))
			return nil
		})
	return out, err
}

// TouchSessionActivity stamps last_activity_at. Wired as the terminal
// core's activity callback; errors are logged, never propagated.
func (s *Store) TouchSessionActivity(ctx context.Context, id string) error {
	ts := now()
	return s.exec(ctx,
		`UPDATE sessions SET last_activity_at=?, updated_at=? WHERE id=?`,
		ts, ts, id)
}

// SetSessionStatus relabels a session row.
func (s *Store) SetSessionStatus(ctx context.Context, id, status string) error {
	return s.exec(ctx,
		`UPDATE sessions SET status=?, updated_at=? WHERE id=?`,
		status, now(), id)
}

// MarkRunningSessionsStale relabels every lingering "running" row. Called
// once at startup: PTYs do not survive a server restart.
func (s *Store) MarkRunningSessionsStale(ctx context.Context) error {
	return s.exec(ctx, `UPDATE sessions SET status='stale' WHERE status='running'`)
}

// SessionArchive pages through session rows of the given status ("all" for
// no filter), newest update first, each joined with its ticket assignments.
func (s *Store) SessionArchive(ctx context.Context, status string, limit, offset int) ([]SessionArchiveItem, int, error) {
	where := ""
	args := []any{}
	if status != "all" {
		where = "WHERE s.status=?"
		args = append(args, status)
	}

	var total int
	err := s.query(ctx, fmt.Sprintf(`SELECT COUNT(*) AS cnt FROM sessions s %s`, where),
		func(stmt *sqlite.Stmt) error {
			total = int(stmt.GetInt64("cnt"))
			return nil
		}, args...)
	if err != nil {
		return nil, 0, err
	}

	items := []SessionArchiveItem{}
	err = s.query(ctx, fmt.Sprintf(`
		SELECT s.*,
		       GROUP_CONCAT(t.id) AS ticket_ids,
		       GROUP_CONCAT(t.title) AS ticket_titles,
		       COUNT(t.id) AS ticket_count
		FROM sessions s
		LEFT JOIN tickets t ON t.session_id = s.id
		%s
		GROUP BY s.id
		ORDER BY s.updated_at DESC
		LIMIT ? OFFSET ?`, where),
		func(stmt *sqlite.Stmt) error {
			item := SessionArchiveItem{
				SessionRecord: scanSession(stmt),
				TicketIDs:     splitConcat(stmt.GetText("ticket_ids")),
				TicketTitles:  splitConcat(stmt.GetText("ticket_titles")),
				TicketCount:   int(stmt.GetInt64("ticket_count")),
			}
			items = append(items, item)
			return nil
		}, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func splitConcat(v string) []string {
	if v == "" {
		return []string{}
	}
	return strings.Split(v, ",")
}
