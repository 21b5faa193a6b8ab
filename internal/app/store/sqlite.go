package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"relaychat/internal/pkg/logx"
)

type userRow struct {
	ID        int64  `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

func (userRow) TableName() string { return "users" }

type chatRow struct {
	ID            int64 `gorm:"primaryKey"`
	Name          string
	IsGroup       bool   `gorm:"not null"`
	PrivateLowID  *int64 `gorm:"uniqueIndex:idx_chats_private_pair"`
	PrivateHighID *int64 `gorm:"uniqueIndex:idx_chats_private_pair"`
	CreatedAt     time.Time
}

func (chatRow) TableName() string { return "chats" }

type participantRow struct {
	ChatID int64 `gorm:"primaryKey"`
	UserID int64 `gorm:"primaryKey;index"`
}

func (participantRow) TableName() string { return "chat_participants" }

type messageRow struct {
	ID       int64     `gorm:"primaryKey"`
	ChatID   int64     `gorm:"not null;index:idx_messages_chat_sent_at,priority:1"`
	SenderID int64     `gorm:"not null"`
	Content  string    `gorm:"not null"`
	SentAt   time.Time `gorm:"not null;index:idx_messages_chat_sent_at,priority:2"`
}

func (messageRow) TableName() string { return "messages" }

// SQLite is the GORM/SQLite-backed ChatStore.
type SQLite struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for a throwaway database.
//
// The pool is limited to a single connection: SQLite serialises writers anyway,
// and one connection keeps an in-memory database shared by every caller.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := path
	if path != ":memory:" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		dsn = path + sep + "_busy_timeout=5000&_foreign_keys=on"
	}

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.New(gormLogWriter{}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", path, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("access sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(&userRow{}, &chatRow{}, &participantRow{}, &messageRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite database: %w", err)
	}

	return &SQLite{db: gdb}, nil
}

// Close closes the underlying database handle.
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FindGroupChat implements ChatStore.
func (s *SQLite) FindGroupChat(ctx context.Context, id int64) (Chat, error) {
	var row chatRow
	err := s.db.WithContext(ctx).Where("id = ? AND is_group = ?", id, true).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Chat{}, ErrChatNotFound
		}
		return Chat{}, fmt.Errorf("find group chat %d: %w", id, err)
	}

	return s.withMembers(s.db.WithContext(ctx), row)
}

// FindOrCreatePrivateChat implements ChatStore.
func (s *SQLite) FindOrCreatePrivateChat(ctx context.Context, a, b int64) (Chat, error) {
	low, high := PairKey(a, b)

	var chat Chat
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found int64
		if err := tx.Model(&userRow{}).Where("id IN ?", []int64{low, high}).Count(&found).Error; err != nil {
			return fmt.Errorf("check private chat users: %w", err)
		}
		if found != 2 {
			return ErrUserNotFound
		}

		row := chatRow{IsGroup: false, PrivateLowID: &low, PrivateHighID: &high}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return fmt.Errorf("insert private chat: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			row = chatRow{}
			if err := tx.Where("private_low_id = ? AND private_high_id = ?", low, high).First(&row).Error; err != nil {
				return fmt.Errorf("select existing private chat: %w", err)
			}
		} else {
			members := []participantRow{{ChatID: row.ID, UserID: low}, {ChatID: row.ID, UserID: high}}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&members).Error; err != nil {
				return fmt.Errorf("insert private chat participants: %w", err)
			}
		}

		var err error
		chat, err = s.withMembers(tx, row)
		return err
	})
	if err != nil {
		return Chat{}, err
	}

	return chat, nil
}

// AppendMessage implements ChatStore.
func (s *SQLite) AppendMessage(ctx context.Context, chatID, senderID int64, content string, ts time.Time) (Message, error) {
	row := messageRow{ChatID: chatID, SenderID: senderID, Content: content, SentAt: ts}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return Message{}, fmt.Errorf("append message to chat %d: %w", chatID, err)
	}

	return Message{
		ID:        row.ID,
		ChatID:    row.ChatID,
		SenderID:  row.SenderID,
		Content:   row.Content,
		Timestamp: row.SentAt,
	}, nil
}

// CreateUser implements Seeder.
func (s *SQLite) CreateUser(ctx context.Context, username string) (User, error) {
	row := userRow{Username: username}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return User{}, ErrDuplicateUsername
		}
		return User{}, fmt.Errorf("create user %q: %w", username, err)
	}

	return User{ID: row.ID, Username: row.Username}, nil
}

// CreateGroupChat implements Seeder.
func (s *SQLite) CreateGroupChat(ctx context.Context, name string, members []int64) (Chat, error) {
	var chat Chat
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(members) > 0 {
			var found int64
			if err := tx.Model(&userRow{}).Where("id IN ?", members).Count(&found).Error; err != nil {
				return fmt.Errorf("check group chat users: %w", err)
			}
			if int(found) != countDistinct(members) {
				return ErrUserNotFound
			}
		}

		row := chatRow{Name: name, IsGroup: true}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert group chat: %w", err)
		}

		if len(members) > 0 {
			rows := make([]participantRow, 0, len(members))
			for _, userID := range members {
				rows = append(rows, participantRow{ChatID: row.ID, UserID: userID})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
				return fmt.Errorf("insert group participants: %w", err)
			}
		}

		var err error
		chat, err = s.withMembers(tx, row)
		return err
	})
	if err != nil {
		return Chat{}, err
	}

	return chat, nil
}

// MessagesInChat returns the persisted messages of a chat in send order.
func (s *SQLite) MessagesInChat(ctx context.Context, chatID int64) ([]Message, error) {
	var rows []messageRow
	if err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("sent_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list messages of chat %d: %w", chatID, err)
	}

	out := make([]Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, Message{ID: r.ID, ChatID: r.ChatID, SenderID: r.SenderID, Content: r.Content, Timestamp: r.SentAt})
	}
	return out, nil
}

// CountPrivateChats returns the number of private chats of the pair {a, b}.
func (s *SQLite) CountPrivateChats(ctx context.Context, a, b int64) (int64, error) {
	low, high := PairKey(a, b)

	var n int64
	err := s.db.WithContext(ctx).Model(&chatRow{}).
		Where("is_group = ? AND private_low_id = ? AND private_high_id = ?", false, low, high).
		Count(&n).Error
	return n, err
}

func (s *SQLite) withMembers(tx *gorm.DB, row chatRow) (Chat, error) {
	var members []int64
	if err := tx.Model(&participantRow{}).Where("chat_id = ?", row.ID).Order("user_id").Pluck("user_id", &members).Error; err != nil {
		return Chat{}, fmt.Errorf("load members of chat %d: %w", row.ID, err)
	}

	return Chat{
		ID:        row.ID,
		Name:      row.Name,
		IsGroup:   row.IsGroup,
		Members:   members,
		CreatedAt: row.CreatedAt,
	}, nil
}

func countDistinct(ids []int64) int {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// gormLogWriter forwards GORM's slow-query and error lines to zerolog.
type gormLogWriter struct{}

func (gormLogWriter) Printf(format string, args ...interface{}) {
	logx.Logger().Warn().Str("component", "gorm").Msgf(format, args...)
}

var (
	_ ChatStore = (*SQLite)(nil)
	_ Seeder    = (*SQLite)(nil)
)
