package dao

import (
	"context"
	"testing"

	"docchat/docchat/sources/psql"
	"docchat/docchat/utils/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	// every pooled connection would get its own :memory: database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, psql.Migrate(context.Background(), db))
	return db
}

func TestClientStateDAO(t *testing.T) {
	ctx := context.Background()
	dao := NewClientStateDAO(setupTestDB(t))

	st, err := dao.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ClientState{}, st)

	require.NoError(t, dao.Save(ctx, types.ClientState{Token: "t1", SessionID: "1"}))
	require.NoError(t, dao.Save(ctx, types.ClientState{Token: "t2", SessionID: "2"}))
	st, err = dao.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ClientState{Token: "t2", SessionID: "2"}, st)

	require.NoError(t, dao.Clear(ctx))
	st, err = dao.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Token)
}

func TestSessionCacheDAO(t *testing.T) {
	ctx := context.Background()
	dao := NewSessionCacheDAO(setupTestDB(t))

	require.NoError(t, dao.PutSessions(ctx, []types.SessionRecord{
		{
			SessionID: "1",
			UpdatedAt: "2025-07-01T10:00:00",
			Messages:  []types.HistoryEntry{{Question: "q", Answer: "a"}},
			Documents: []types.DocumentRecord{{DocID: "d1", Metadata: types.DocumentMetadata{FileName: "a.pdf"}}},
		},
		{SessionID: "2"},
	}))

	got, err := dao.GetSession(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "q", got.Messages[0].Question)
	assert.Equal(t, "a.pdf", got.Documents[0].Metadata.FileName)
	assert.Equal(t, "2025-07-01T10:00:00", got.UpdatedAt)

	// upsert replaces the snapshot
	require.NoError(t, dao.PutSessions(ctx, []types.SessionRecord{{SessionID: "1"}}))
	got, err = dao.GetSession(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, got.Messages)

	all, err := dao.ListSessions(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, dao.DeleteSession(ctx, "2"))
	_, err = dao.GetSession(ctx, "2")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
