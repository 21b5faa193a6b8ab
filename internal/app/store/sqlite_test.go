package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupSQLite opens an in-memory database for one test.
func setupSQLite(t *testing.T) *SQLite {
	t.Helper()

	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func seedUsers(t *testing.T, s Seeder, names ...string) []User {
	t.Helper()

	users := make([]User, 0, len(names))
	for _, name := range names {
		u, err := s.CreateUser(context.Background(), name)
		require.NoError(t, err)
		users = append(users, u)
	}
	return users
}

func TestPairKey(t *testing.T) {
	low, high := PairKey(9, 2)
	assert.Equal(t, int64(2), low)
	assert.Equal(t, int64(9), high)

	low, high = PairKey(2, 9)
	assert.Equal(t, int64(2), low)
	assert.Equal(t, int64(9), high)
}

func TestSQLite_CreateUser_Duplicate(t *testing.T) {
	s := setupSQLite(t)
	seedUsers(t, s, "alice")

	_, err := s.CreateUser(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestSQLite_FindOrCreatePrivateChat_Idempotent(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()
	users := seedUsers(t, s, "alice", "bob")
	alice, bob := users[0], users[1]

	first, err := s.FindOrCreatePrivateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, first.IsGroup)
	assert.ElementsMatch(t, []int64{alice.ID, bob.ID}, first.Members)

	second, err := s.FindOrCreatePrivateChat(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "the pair is unordered")
	assert.ElementsMatch(t, first.Members, second.Members)

	n, err := s.CountPrivateChats(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLite_FindOrCreatePrivateChat_ConcurrentFirstContact(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()
	users := seedUsers(t, s, "alice", "bob")

	const attempts = 16
	ids := make([]int64, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := users[0].ID, users[1].ID
			if i%2 == 1 {
				a, b = b, a
			}
			chat, err := s.FindOrCreatePrivateChat(ctx, a, b)
			ids[i], errs[i] = chat.ID, err
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	n, err := s.CountPrivateChats(ctx, users[0].ID, users[1].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLite_FindOrCreatePrivateChat_UnknownPeer(t *testing.T) {
	s := setupSQLite(t)
	users := seedUsers(t, s, "alice")

	_, err := s.FindOrCreatePrivateChat(context.Background(), users[0].ID, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSQLite_FindGroupChat(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()
	users := seedUsers(t, s, "u1", "u2", "u3")

	group, err := s.CreateGroupChat(ctx, "team", []int64{users[0].ID, users[1].ID, users[2].ID})
	require.NoError(t, err)

	found, err := s.FindGroupChat(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "team", found.Name)
	assert.True(t, found.IsGroup)
	assert.Len(t, found.Members, 3)
	assert.True(t, found.HasMember(users[1].ID))
	assert.False(t, found.HasMember(12345))

	_, err = s.FindGroupChat(ctx, 999)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestSQLite_FindGroupChat_IgnoresPrivateChats(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()
	users := seedUsers(t, s, "alice", "bob")

	private, err := s.FindOrCreatePrivateChat(ctx, users[0].ID, users[1].ID)
	require.NoError(t, err)

	_, err = s.FindGroupChat(ctx, private.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestSQLite_CreateGroupChat_UnknownMember(t *testing.T) {
	s := setupSQLite(t)
	users := seedUsers(t, s, "alice")

	_, err := s.CreateGroupChat(context.Background(), "ghosts", []int64{users[0].ID, 404})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSQLite_AppendMessage(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()
	users := seedUsers(t, s, "alice", "bob")

	chat, err := s.FindOrCreatePrivateChat(ctx, users[0].ID, users[1].ID)
	require.NoError(t, err)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg, err := s.AppendMessage(ctx, chat.ID, users[0].ID, "hi", ts)
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)

	_, err = s.AppendMessage(ctx, chat.ID, users[1].ID, "hello", ts.Add(time.Second))
	require.NoError(t, err)

	msgs, err := s.MessagesInChat(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, users[0].ID, msgs[0].SenderID)
	assert.True(t, ts.Equal(msgs[0].Timestamp))
	assert.Equal(t, "hello", msgs[1].Content)
}
