package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"relaychat/internal/app/db"
)

// pgxDB is the subset of *pgxpool.Pool used by the Postgres store.
type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres is the PostgreSQL-backed ChatStore.
type Postgres struct {
	db   pgxDB
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool. The schema must already be migrated (see db.NewPool).
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool, pool: pool}
}

// Close closes the underlying pool.
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

const selectChatSQL = `SELECT id, name, is_group, created_at FROM chats WHERE id = $1`

// FindGroupChat implements ChatStore.
func (p *Postgres) FindGroupChat(ctx context.Context, id int64) (Chat, error) {
	var chat Chat
	err := p.db.QueryRow(ctx, selectChatSQL+` AND is_group`, id).
		Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Chat{}, ErrChatNotFound
		}
		return Chat{}, fmt.Errorf("find group chat %d: %w", id, err)
	}

	if chat.Members, err = loadMembers(ctx, p.db, chat.ID); err != nil {
		return Chat{}, err
	}

	return chat, nil
}

// FindOrCreatePrivateChat implements ChatStore.
//
// The insert relies on chats_private_pair_key: when two transactions race for the
// same pair, the loser's INSERT waits for the winner to commit, does nothing, and
// the follow-up SELECT returns the winner's row.
func (p *Postgres) FindOrCreatePrivateChat(ctx context.Context, a, b int64) (Chat, error) {
	low, high := PairKey(a, b)

	var chat Chat
	err := pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		var found int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE id = ANY($1)`, []int64{low, high}).Scan(&found); err != nil {
			return fmt.Errorf("check private chat users: %w", err)
		}
		if found != 2 {
			return ErrUserNotFound
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO chats (is_group, private_low_id, private_high_id)
			VALUES (FALSE, $1, $2)
			ON CONFLICT (private_low_id, private_high_id) DO NOTHING
			RETURNING id, name, is_group, created_at`, low, high).
			Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.CreatedAt)

		switch {
		case errors.Is(err, pgx.ErrNoRows):
			err = tx.QueryRow(ctx, `
				SELECT id, name, is_group, created_at FROM chats
				WHERE private_low_id = $1 AND private_high_id = $2`, low, high).
				Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.CreatedAt)
			if err != nil {
				return fmt.Errorf("select existing private chat: %w", err)
			}
		case err != nil:
			return fmt.Errorf("insert private chat: %w", err)
		default:
			if _, err := tx.Exec(ctx, `
				INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2), ($1, $3)
				ON CONFLICT DO NOTHING`, chat.ID, low, high); err != nil {
				return fmt.Errorf("insert private chat participants: %w", err)
			}
		}

		chat.Members = []int64{low, high}
		return nil
	})
	if err != nil {
		return Chat{}, err
	}

	return chat, nil
}

// AppendMessage implements ChatStore.
func (p *Postgres) AppendMessage(ctx context.Context, chatID, senderID int64, content string, ts time.Time) (Message, error) {
	msg := Message{ChatID: chatID, SenderID: senderID, Content: content, Timestamp: ts}

	err := p.db.QueryRow(ctx, `
		INSERT INTO messages (chat_id, sender_id, content, sent_at)
		VALUES ($1, $2, $3, $4) RETURNING id`, chatID, senderID, content, ts).Scan(&msg.ID)
	if err != nil {
		return Message{}, fmt.Errorf("append message to chat %d: %w", chatID, err)
	}

	return msg, nil
}

// CreateUser implements Seeder.
func (p *Postgres) CreateUser(ctx context.Context, username string) (User, error) {
	u := User{Username: username}

	err := p.db.QueryRow(ctx, `INSERT INTO users (username) VALUES ($1) RETURNING id`, username).Scan(&u.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrDuplicateUsername
		}
		return User{}, fmt.Errorf("create user %q: %w", username, err)
	}

	return u, nil
}

// CreateGroupChat implements Seeder.
func (p *Postgres) CreateGroupChat(ctx context.Context, name string, members []int64) (Chat, error) {
	chat := Chat{Name: name, IsGroup: true}

	err := pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO chats (name, is_group) VALUES ($1, TRUE)
			RETURNING id, created_at`, name).Scan(&chat.ID, &chat.CreatedAt); err != nil {
			return fmt.Errorf("insert group chat: %w", err)
		}

		for _, userID := range members {
			if _, err := tx.Exec(ctx, `
				INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, chat.ID, userID); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23503" {
					return ErrUserNotFound
				}
				return fmt.Errorf("insert group participant %d: %w", userID, err)
			}
		}

		return nil
	})
	if err != nil {
		return Chat{}, err
	}

	chat.Members, err = loadMembers(ctx, p.db, chat.ID)
	if err != nil {
		return Chat{}, err
	}

	return chat, nil
}

func loadMembers(ctx context.Context, q pgxDB, chatID int64) ([]int64, error) {
	rows, err := q.Query(ctx, `SELECT user_id FROM chat_participants WHERE chat_id = $1 ORDER BY user_id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("load members of chat %d: %w", chatID, err)
	}

	members, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan members of chat %d: %w", chatID, err)
	}

	return members, nil
}

var (
	_ ChatStore = (*Postgres)(nil)
	_ Seeder    = (*Postgres)(nil)
)
