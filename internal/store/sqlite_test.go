package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/opencode-chat/internal/model/chat"
	chatservice "github.com/zhouzirui/opencode-chat/internal/service/chat"
)

func openTestDB(t *testing.T) (*SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "chat.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLiteServiceRoundTrip(t *testing.T) {
	db, _ := openTestDB(t)
	svc := chatservice.NewServiceWithRepository(db)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "persisted")
	require.NoError(t, err)

	_, err = svc.SaveMessage(ctx, chat.Message{SessionID: session.ID, Sender: chat.SenderUser, Content: "hello"})
	require.NoError(t, err)
	_, err = svc.SaveMessage(ctx, chat.Message{SessionID: session.ID, Sender: chat.SenderAssistant, Content: "hi"})
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, "persisted", got.Title)

	transcript, err := svc.LoadTranscript(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	require.Equal(t, "hello", transcript[0].Content)
	require.Equal(t, chat.SenderAssistant, transcript[1].Sender)
}

func TestSQLiteMissingSession(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	_, err := db.GetSession(ctx, "missing")
	require.True(t, errors.Is(err, chatservice.ErrSessionNotFound))

	err = db.AppendMessage(ctx, chat.Message{ID: "m", SessionID: "missing", Sender: chat.SenderUser, Content: "x"})
	require.ErrorIs(t, err, chatservice.ErrSessionNotFound)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	db, path := openTestDB(t)
	svc := chatservice.NewServiceWithRepository(db)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "durable")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, session.ID, got.ID)
}
