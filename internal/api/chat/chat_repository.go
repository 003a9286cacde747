package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/types"
)

var _ ChatRepo = (*PostgresChatRepo)(nil)

// ChatRepo persists conversations and their message log.
type ChatRepo interface {
	FindOrCreateChat(ctx context.Context, userID uuid.UUID, title string) (types.Chat, error)
	GetChat(ctx context.Context, id uuid.UUID) (types.Chat, error)
	ListChats(ctx context.Context, userID uuid.UUID) ([]types.ChatSummary, error)
	DeleteChat(ctx context.Context, id uuid.UUID) error
	AppendMessages(ctx context.Context, chatID uuid.UUID, messages []types.ChatMessage) error
}

type PostgresChatRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresChatRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresChatRepo {
	return &PostgresChatRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

// FindOrCreateChat returns the user's conversation with that title,
// creating it when absent. (user_id, title) is the de-facto
// conversation key.
func (r *PostgresChatRepo) FindOrCreateChat(ctx context.Context, userID uuid.UUID, title string) (types.Chat, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "FindOrCreateChat", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "chats"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	var c types.Chat
	err := r.pgpool.QueryRow(ctx, `
        SELECT id, user_id, title, created_at, updated_at
        FROM chats
        WHERE user_id = $1 AND title = $2
        ORDER BY updated_at DESC
        LIMIT 1`, userID, title).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err == nil {
		span.SetStatus(codes.Ok, "Chat found")
		return r.withMessages(ctx, c)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return types.Chat{}, fmt.Errorf("database error looking up chat: %w", err)
	}

	err = r.pgpool.QueryRow(ctx, `
        INSERT INTO chats (user_id, title)
        VALUES ($1, $2)
        RETURNING id, user_id, title, created_at, updated_at`,
		userID, title).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return types.Chat{}, fmt.Errorf("database error creating chat: %w", err)
	}

	c.Messages = []types.ChatMessage{}
	r.logger.InfoContext(ctx, "Chat created", slog.String("chatID", c.ID.String()), slog.String("title", title))
	span.SetStatus(codes.Ok, "Chat created")
	return c, nil
}

func (r *PostgresChatRepo) withMessages(ctx context.Context, c types.Chat) (types.Chat, error) {
	rows, err := r.pgpool.Query(ctx, `
        SELECT id, role, content, city_id, destination_ids, created_at
        FROM chat_messages
        WHERE chat_id = $1
        ORDER BY created_at`, c.ID)
	if err != nil {
		return types.Chat{}, fmt.Errorf("database error loading chat messages: %w", err)
	}
	defer rows.Close()

	c.Messages = []types.ChatMessage{}
	for rows.Next() {
		var m types.ChatMessage
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CityID, &m.DestinationIDs, &m.CreatedAt); err != nil {
			return types.Chat{}, fmt.Errorf("database error scanning chat message: %w", err)
		}
		c.Messages = append(c.Messages, m)
	}
	if err = rows.Err(); err != nil {
		return types.Chat{}, fmt.Errorf("database error reading chat messages: %w", err)
	}
	return c, nil
}

func (r *PostgresChatRepo) GetChat(ctx context.Context, id uuid.UUID) (types.Chat, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "GetChat", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "chats"),
		attribute.String("db.chat.id", id.String()),
	))
	defer span.End()

	var c types.Chat
	err := r.pgpool.QueryRow(ctx, `
        SELECT id, user_id, title, created_at, updated_at
        FROM chats WHERE id = $1`, id).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Chat not found")
			return types.Chat{}, fmt.Errorf("chat %s: %w", id.String(), api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return types.Chat{}, fmt.Errorf("database error fetching chat: %w", err)
	}

	c, err = r.withMessages(ctx, c)
	if err != nil {
		span.RecordError(err)
		return types.Chat{}, err
	}

	span.SetStatus(codes.Ok, "Chat fetched")
	return c, nil
}

func (r *PostgresChatRepo) ListChats(ctx context.Context, userID uuid.UUID) ([]types.ChatSummary, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "ListChats", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "chats"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
        SELECT id, title, created_at, updated_at
        FROM chats
        WHERE user_id = $1
        ORDER BY updated_at DESC`, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing chats: %w", err)
	}
	defer rows.Close()

	var chats []types.ChatSummary
	for rows.Next() {
		var c types.ChatSummary
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning chat: %w", err)
		}
		chats = append(chats, c)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading chats: %w", err)
	}

	span.SetStatus(codes.Ok, "Chats listed")
	return chats, nil
}

func (r *PostgresChatRepo) DeleteChat(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "DeleteChat", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "chats"),
		attribute.String("db.chat.id", id.String()),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("database error deleting chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Chat not found")
		return fmt.Errorf("chat %s: %w", id.String(), api.ErrNotFound)
	}

	r.logger.InfoContext(ctx, "Chat deleted", slog.String("chatID", id.String()))
	span.SetStatus(codes.Ok, "Chat deleted")
	return nil
}

// AppendMessages writes the turn's messages and touches the chat's
// updated_at so recency ordering holds.
func (r *PostgresChatRepo) AppendMessages(ctx context.Context, chatID uuid.UUID, messages []types.ChatMessage) error {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "AppendMessages", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "chat_messages"),
		attribute.String("db.chat.id", chatID.String()),
		attribute.Int("chat.messages", len(messages)),
	))
	defer span.End()

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, m := range messages {
		destinationIDs := m.DestinationIDs
		if destinationIDs == nil {
			destinationIDs = []uuid.UUID{}
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO chat_messages (chat_id, role, content, city_id, destination_ids)
            VALUES ($1, $2, $3, $4, $5)`,
			chatID, m.Role, m.Content, m.CityID, destinationIDs); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB INSERT failed")
			return fmt.Errorf("database error appending chat message: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE chats SET updated_at = NOW() WHERE id = $1`, chatID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error touching chat: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error committing chat messages: %w", err)
	}

	span.SetStatus(codes.Ok, "Messages appended")
	return nil
}
