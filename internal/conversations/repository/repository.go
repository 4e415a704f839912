package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("conversation not found")

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Conversation statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusEscalated = "escalated"
)

type Conversation struct {
	ID          uuid.UUID
	PhoneNumber string
	Source      string
	LeadID      *uuid.UUID
	AIEnabled   bool
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message is one append-only conversation entry. Seq is assigned by the
// database at insert time and never reused.
type Message struct {
	ConversationID uuid.UUID
	Seq            int
	Role           string
	Content        string
	CreatedAt      time.Time
}

// Repository provides database operations for conversations and their
// message log.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new conversations repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const conversationColumns = `id, phone_number, source, lead_id, ai_enabled, status, created_at, updated_at`

func (r *Repository) FindActiveByPhone(ctx context.Context, phone string) (Conversation, error) {
	var conv Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE phone_number = $1 AND status = 'active'
	`, phone).Scan(conversationDest(&conv)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	return conv, err
}

// EnsureActive returns the active conversation for the phone, creating one
// when none exists. Creation races lose on the partial unique index and
// re-fetch the winner, so two concurrent inbound messages always land in
// the same conversation.
func (r *Repository) EnsureActive(ctx context.Context, phone, source string, leadID *uuid.UUID) (Conversation, bool, error) {
	conv, err := r.FindActiveByPhone(ctx, phone)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Conversation{}, false, err
	}

	conv = Conversation{}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, phone_number, source, lead_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+conversationColumns,
		uuid.New(), phone, source, leadID,
	).Scan(conversationDest(&conv)...)
	if isUniqueViolation(err) {
		winner, ferr := r.FindActiveByPhone(ctx, phone)
		if ferr != nil {
			return Conversation{}, false, ferr
		}
		return winner, false, nil
	}
	if err != nil {
		return Conversation{}, false, fmt.Errorf("create conversation: %w", err)
	}
	return conv, true, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Conversation, error) {
	var conv Conversation
	err := r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id).
		Scan(conversationDest(&conv)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	return conv, err
}

func (r *Repository) List(ctx context.Context, status string, limit, offset int) ([]Conversation, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM conversations WHERE ($1 = '' OR status = $1)
	`, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE ($1 = '' OR status = $1)
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(conversationDest(&conv)...); err != nil {
			return nil, 0, err
		}
		convs = append(convs, conv)
	}
	return convs, total, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Conversation, error) {
	var conv Conversation
	err := r.pool.QueryRow(ctx, `
		UPDATE conversations SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+conversationColumns, id, status,
	).Scan(conversationDest(&conv)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	return conv, err
}

func (r *Repository) SetAIEnabled(ctx context.Context, id uuid.UUID, enabled bool) (Conversation, error) {
	var conv Conversation
	err := r.pool.QueryRow(ctx, `
		UPDATE conversations SET ai_enabled = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+conversationColumns, id, enabled,
	).Scan(conversationDest(&conv)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	return conv, err
}

// appendMessageQuery assigns the next sequence number and bumps the
// conversation in one statement. Messages are never updated or deleted.
const appendMessageQuery = `
	WITH next AS (
		SELECT COALESCE(MAX(seq), 0) + 1 AS seq
		FROM conversation_messages
		WHERE conversation_id = $1
	), touched AS (
		UPDATE conversations SET updated_at = now() WHERE id = $1
	)
	INSERT INTO conversation_messages (conversation_id, seq, role, content)
	SELECT $1, next.seq, $2, $3 FROM next
	RETURNING conversation_id, seq, role, content, created_at`

// AppendMessage appends one entry to the conversation log. Two concurrent
// appends can race for the same seq; the loser hits the primary key and
// retries with a fresh number.
func (r *Repository) AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string) (Message, error) {
	var msg Message
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = r.pool.QueryRow(ctx, appendMessageQuery, conversationID, role, content).
			Scan(&msg.ConversationID, &msg.Seq, &msg.Role, &msg.Content, &msg.CreatedAt)
		if !isUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

func (r *Repository) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT conversation_id, seq, role, content, created_at
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY seq
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ConversationID, &msg.Seq, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// AutomationEnabled reads the system-wide auto-reply toggle.
func (r *Repository) AutomationEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := r.pool.QueryRow(ctx, `SELECT ai_auto_reply_enabled FROM automation_settings LIMIT 1`).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		// Unseeded settings row: automation defaults on.
		return true, nil
	}
	return enabled, err
}

func (r *Repository) SetAutomationEnabled(ctx context.Context, enabled bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE automation_settings SET ai_auto_reply_enabled = $1, updated_at = now()`, enabled)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func conversationDest(c *Conversation) []interface{} {
	return []interface{}{
		&c.ID, &c.PhoneNumber, &c.Source, &c.LeadID, &c.AIEnabled, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	}
}
