package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
)

// Ticket status values.
const (
	TicketPending    = "pending"
	TicketInProgress = "in_progress"
	TicketDone       = "done"
)

// ValidTicketStatus reports whether v is an accepted ticket status.
func ValidTicketStatus(v string) bool {
	return v == TicketPending || v == TicketInProgress || v == TicketDone
}

// TicketRecord mirrors one row of the tickets table.
type TicketRecord struct {
	ID              string `json:"id"`
	ProjectID       string `json:"project_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	SuccessCriteria string `json:"success_criteria"`
	Status          string `json:"status"`
	BranchName      string `json:"branch_name,omitempty"`
	WorktreePath    string `json:"worktree_path,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
}

// TicketUpdate carries the fields of a partial update; nil means unchanged.
type TicketUpdate struct {
	Title           *string
	Description     *string
	SuccessCriteria *string
	Status          *string
	SessionID       *string
	BranchName      *string
	WorktreePath    *string
}

func scanTicket(stmt *sqlite.Stmt) TicketRecord {
	return TicketRecord{
		ID:              stmt.GetText("id"),
		ProjectID:       stmt.GetText("project_id"),
		Title:           stmt.GetText("title"),
		Description:     stmt.GetText("description"),
		SuccessCriteria: stmt.GetText("success_criteria"),
		Status:          stmt.GetText("status"),
		BranchName:      stmt.GetText("branch_name"),
		WorktreePath:    stmt.GetText("worktree_path"),
		SessionID:       stmt.GetText("session_id"),
	}
}

// CreateTicket inserts a pending ticket and returns the stored record.
// A caller-provided ID is kept so derived fields (branch names) can
// reference it; otherwise one is generated.
func (s *Store) CreateTicket(ctx context.Context, rec TicketRecord) (TicketRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Status = TicketPending
	ts := now()
	err := s.exec(ctx,
		`INSERT INTO tickets (id, project_id, title, description, success_criteria, status, branch_name, worktree_path, session_id, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.ProjectID, rec.Title, rec.Description, rec.SuccessCriteria,
		rec.Status, rec.BranchName, rec.WorktreePath, nil, ts, ts)
	return rec, err
}

// GetTicket looks a ticket up by id.
func (s *Store) GetTicket(ctx context.Context, id string) (TicketRecord, error) {
	var rec TicketRecord
	found := false
	err := s.query(ctx, `SELECT * FROM tickets WHERE id=?`,
		func(stmt *sqlite.Stmt) error {
			rec = scanTicket(stmt)
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

// ListTickets returns tickets, optionally filtered by project, newest first.
func (s *Store) ListTickets(ctx context.Context, projectID string) ([]TicketRecord, error) {
	query := `SELECT * FROM tickets ORDER BY created_at DESC`
	args := []any{}
	if projectID != "" {
		query = `SELECT * FROM tickets WHERE project_id=? ORDER BY created_at DESC`
		args = append(args, projectID)
	}

	out := []TicketRecord{}
	err := s.query(ctx, query,
		func(stmt *sqlite.Stmt) error {
			out = append(out, scanTicket(stmt))
			return nil
		}, args...)
	return out, err
}

// UpdateTicket applies a partial update and returns the fresh record and
// the names of the changed fields.
func (s *Store) UpdateTicket(ctx context.Context, id string, upd TicketUpdate) (TicketRecord, []string, error) {
	if _, err := s.GetTicket(ctx, id); err != nil {
		return TicketRecord{}, nil, err
	}

	set := []string{}
	args := []any{}
	add := func(col string, v *string) {
		if v != nil {
			set = append(set, col+"=?")
			args = append(args, *v)
		}
	}
	add("title", upd.Title)
	add("description", upd.Description)
	add("success_criteria", upd.SuccessCriteria)
	add("status", upd.Status)
	add("session_id", upd.SessionID)
	add("branch_name", upd.BranchName)
	add("worktree_path", upd.WorktreePath)

	changed := make([]string, 0, len(set))
	for _, clause := range set {
		changed = append(changed, strings.TrimSuffix(clause, "=?"))
	}

	if len(set) > 0 {
		set = append(set, "updated_at=?")
		args = append(args, now(), id)
		query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=?`, strings.Join(set, ", "))
		if err := s.exec(ctx, query, args...); err != nil {
			return TicketRecord{}, nil, err
		}
	}

	rec, err := s.GetTicket(ctx, id)
	return rec, changed, err
}

// AssignTicket marks a ticket in progress and binds it to a session.
func (s *Store) AssignTicket(ctx context.Context, ticketID, sessionID string) (TicketRecord, error) {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return TicketRecord{}, err
	}
	err := s.exec(ctx,
		`UPDATE tickets SET status=?, session_id=?, updated_at=? WHERE id=?`,
		TicketInProgress, sessionID, now(), ticketID)
	if err != nil {
		return TicketRecord{}, err
	}
	return s.GetTicket(ctx, ticketID)
}

// DeleteTicket removes a ticket row.
func (s *Store) DeleteTicket(ctx context.Context, id string) error {
	if _, err := s.GetTicket(ctx, id); err != nil {
		return err
	}
	return s.exec(ctx, `DELETE FROM tickets WHERE id=?`, id)
}
