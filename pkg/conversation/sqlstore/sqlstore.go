// Package sqlstore implements conversation.Store on a database/sql
// connection. It is dialect-agnostic and is embedded by the sqlite and
// postgres drivers.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/formschema"
)

const (
	conversationsTable = "conversations"
	messagesTable      = "messages"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		agent TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		position BIGINT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		sent_at BIGINT NOT NULL,
		form_title TEXT NOT NULL DEFAULT '',
		form_schema TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (conversation_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS messages_position ON messages (conversation_id, position)`,
}

// Store provides conversation storage over a SQL database.
type Store struct {
	DB *sql.DB

	dialect string
	locks   conversation.Locker
	opts    conversation.Options
}

// New wraps db, creating the tables if they don't exist. dialectName is
// one of the entgo.io/ent/dialect names and selects placeholder and quoting
// style.
func New(ctx context.Context, db *sql.DB, dialectName string, opts ...conversation.Option) (*Store, error) {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Store{
		DB:      db,
		dialect: dialectName,
		opts:    conversation.NewOptions(opts...),
	}, nil
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

func (s *Store) Create(ctx context.Context, agent, name string) (*conversation.Conversation, error) {
	if name == "" {
		query, args := s.builder().Select(entsql.Count("*")).From(s.builder().Table(conversationsTable)).Query()
		var n int
		if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count conversations: %w", err)
		}
		name = conversation.DefaultName(n + 1)
	}

	now := s.opts.Now()
	c := &conversation.Conversation{
		ID:        s.opts.NewID(),
		Name:      name,
		Agent:     agent,
		CreatedAt: time.UnixMilli(now.UnixMilli()),
		UpdatedAt: time.UnixMilli(now.UnixMilli()),
	}

	query, args := s.builder().Insert(conversationsTable).
		Columns("id", "name", "agent", "created_at", "updated_at").
		Values(c.ID, c.Name, c.Agent, now.UnixMilli(), now.UnixMilli()).
		Query()
	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}
	return c, nil
}

func (s *Store) Get(ctx context.Context, id string) (*conversation.Conversation, error) {
	query, args := s.builder().Select("id", "name", "agent", "created_at", "updated_at").
		From(s.builder().Table(conversationsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	c, err := scanConversation(s.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, conversation.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	query, args = s.builder().Select("id", "role", "content", "sent_at", "form_title", "form_schema").
		From(s.builder().Table(messagesTable)).
		Where(entsql.EQ("conversation_id", id)).
		OrderBy("position").
		Query()
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		c.Messages = append(c.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	c.MessageCount = len(c.Messages)
	return c, nil
}

func (s *Store) List(ctx context.Context) ([]*conversation.Conversation, error) {
	query, args := s.builder().Select("id", "name", "agent", "created_at", "updated_at").
		From(s.builder().Table(conversationsTable)).
		Query()
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var list []*conversation.Conversation
	byID := map[string]*conversation.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		list = append(list, c)
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	query, args = s.builder().Select("conversation_id", entsql.Count("*")).
		From(s.builder().Table(messagesTable)).
		GroupBy("conversation_id").
		Query()
	counts, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	defer counts.Close()

	for counts.Next() {
		var (
			id string
			n  int
		)
		if err := counts.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan message count: %w", err)
		}
		if c, ok := byID[id]; ok {
			c.MessageCount = n
		}
	}
	if err := counts.Err(); err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	conversation.SortByRecent(list)
	return list, nil
}

func (s *Store) Rename(ctx context.Context, id, name string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	query, args := s.builder().Update(conversationsTable).
		Set("name", name).
		Set("updated_at", s.opts.Now().UnixMilli()).
		Where(entsql.EQ("id", id)).
		Query()
	return s.execOne(ctx, id, query, args)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args := s.builder().Delete(messagesTable).Where(entsql.EQ("conversation_id", id)).Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	query, args = s.builder().Delete(conversationsTable).Where(entsql.EQ("id", id)).Query()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if err := requireOne(res, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) UpsertMessage(ctx context.Context, id string, msg chat.Message) error {
	if err := conversation.ValidateMessage(msg); err != nil {
		return err
	}

	schema, err := encodeSchema(msg.FormSchema)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.opts.Now().UnixMilli()
	query, args := s.builder().Update(conversationsTable).
		Set("updated_at", now).
		Where(entsql.EQ("id", id)).
		Query()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if err := requireOne(res, id); err != nil {
		return err
	}

	query, args = s.builder().Update(messagesTable).
		Set("role", string(msg.Role)).
		Set("content", msg.Content).
		Set("sent_at", msg.Timestamp).
		Set("form_title", msg.FormTitle).
		Set("form_schema", schema).
		Where(entsql.And(entsql.EQ("conversation_id", id), entsql.EQ("id", msg.ID))).
		Query()
	res, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	} else if n > 0 {
		return tx.Commit()
	}

	query, args = s.builder().Select(entsql.Max("position")).
		From(s.builder().Table(messagesTable)).
		Where(entsql.EQ("conversation_id", id)).
		Query()
	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&last); err != nil {
		return fmt.Errorf("failed to read message position: %w", err)
	}
	position := int64(0)
	if last.Valid {
		position = last.Int64 + 1
	}

	query, args = s.builder().Insert(messagesTable).
		Columns("conversation_id", "id", "position", "role", "content", "sent_at", "form_title", "form_schema").
		Values(id, msg.ID, position, string(msg.Role), msg.Content, msg.Timestamp, msg.FormTitle, schema).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return tx.Commit()
}

func (s *Store) DeleteMessage(ctx context.Context, id, messageID string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args := s.builder().Delete(messagesTable).
		Where(entsql.And(entsql.EQ("conversation_id", id), entsql.EQ("id", messageID))).
		Query()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if err := requireOne(res, messageID); err != nil {
		return err
	}

	query, args = s.builder().Update(conversationsTable).
		Set("updated_at", s.opts.Now().UnixMilli()).
		Where(entsql.EQ("id", id)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) execOne(ctx context.Context, id, query string, args []any) error {
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return requireOne(res, id)
}

func requireOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return conversation.NotFoundError{ID: id}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*conversation.Conversation, error) {
	var (
		c                conversation.Conversation
		created, updated int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Agent, &created, &updated); err != nil {
		return nil, err
	}
	c.CreatedAt = time.UnixMilli(created)
	c.UpdatedAt = time.UnixMilli(updated)
	return &c, nil
}

func scanMessage(row scanner) (chat.Message, error) {
	var (
		m      chat.Message
		role   string
		schema string
	)
	if err := row.Scan(&m.ID, &role, &m.Content, &m.Timestamp, &m.FormTitle, &schema); err != nil {
		return chat.Message{}, fmt.Errorf("failed to scan message: %w", err)
	}
	m.Role = chat.Role(role)

	if schema != "" {
		if err := json.Unmarshal([]byte(schema), &m.FormSchema); err != nil {
			return chat.Message{}, fmt.Errorf("failed to decode form schema of message %s: %w", m.ID, err)
		}
	}
	return m, nil
}

func encodeSchema(s formschema.Schema) (string, error) {
	if s == nil {
		return "", nil
	}
	return formschema.Encode(s, false)
}
