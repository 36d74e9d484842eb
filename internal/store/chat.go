package store

import (
	"context"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
)

// ThreadRecord is one copilot conversation thread.
type ThreadRecord struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
}

// MessageRecord is one stored chat message.
type MessageRecord struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// CreateThread inserts a chat thread and returns the stored record.
func (s *Store) CreateThread(ctx context.Context, projectID, title string) (ThreadRecord, error) {
	rec := ThreadRecord{ID: uuid.NewString(), ProjectID: projectID, Title: title}
	ts := now()
	err := s.exec(ctx,
		`INSERT INTO chat_threads (id, project_id, title, created_at, updated_at) VALUES (?,?,?,?,?)`,
		rec.ID, projectID, title, ts, ts)
	return rec, err
}

// ListThreads returns a project's threads, most recently active first.
func (s *Store) ListThreads(ctx context.Context, projectID string) ([]ThreadRecord, error) {
	out := []ThreadRecord{}
	err := s.query(ctx,
		`SELECT * FROM chat_threads WHERE project_id=? ORDER BY updated_at DESC`,
		func(stmt *sqlite.Stmt) error {
			out = append(out, ThreadRecord{
				ID:        stmt.GetText("id"),
				ProjectID: stmt.GetText("project_id"),
				Title:     stmt.GetText("title"),
			})
			return nil
		}, projectID)
	return out, err
}

// TouchThread bumps a thread's updated_at so it sorts first.
func (s *Store) TouchThread(ctx context.Context, id string) error {
	return s.exec(ctx, `UPDATE chat_threads SET updated_at=? WHERE id=?`, now(), id)
}

// AppendMessage stores one chat message.
func (s *Store) AppendMessage(ctx context.Context, threadID, role, content string) (MessageRecord, error) {
	rec := MessageRecord{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		CreatedAt: now(),
	}
	err := s.exec(ctx,
		`INSERT INTO chat_messages (id, thread_id, role, content, created_at) VALUES (?,?,?,?,?)`,
		rec.ID, threadID, role, content, rec.CreatedAt)
	return rec, err
}

// ListMessages returns a thread's messages in chronological order, capped
// at limit when limit > 0.
func (s *Store) ListMessages(ctx context.Context, threadID string, limit int) ([]MessageRecord, error) {
	query := `SELECT * FROM chat_messages WHERE thread_id=? ORDER BY created_at ASC`
	args := []any{threadID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	out := []MessageRecord{}
	err := s.query(ctx, query,
		func(stmt *sqlite.Stmt) error {
			out = append(out, MessageRecord{
				ID:        stmt.GetText("id"),
				ThreadID:  stmt.GetText("thread_id"),
				Role:      stmt.GetText("role"),
				Content:   stmt.GetText("content"),
				CreatedAt: stmt.GetText("created_at"),
			})
			return nil
		}, args...)
	return out, err
}
