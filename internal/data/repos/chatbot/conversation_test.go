package chatbot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/learnlab-assistant/internal/data/repos/testutil"
	types "github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/platform/dbctx"
)

func TestConversationRepo_CreateAndLookup(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewConversationRepo(db, testutil.Logger(t))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	row, err := repo.Create(dbc, &types.Conversation{
		UserID:          "u1",
		UserRole:        types.RoleStudent,
		IsActive:        true,
		LastInteraction: now,
	})
	require.NoError(t, err)
	require.NotEmpty(t, row.SessionToken)

	got, err := repo.GetByToken(dbc, row.SessionToken)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "u1", got.UserID)
	require.Empty(t, got.ContextMap())

	missing, err := repo.GetByToken(dbc, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, repo.UpdateFields(dbc, row.ID, map[string]interface{}{"is_active": false}))
	active, err := repo.GetActiveByToken(dbc, row.SessionToken)
	require.NoError(t, err)
	require.Nil(t, active)
}

func TestConversationRepo_LatestActiveByUser(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewConversationRepo(db, testutil.Logger(t))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := testutil.SeedConversation(t, ctx, db, "u1", types.RoleStudent, base.Add(-2*time.Hour))
	recent := testutil.SeedConversation(t, ctx, db, "u1", types.RoleStudent, base.Add(-10*time.Minute))
	_ = testutil.SeedConversation(t, ctx, db, "u2", types.RoleStudent, base.Add(-1*time.Minute))

	got, err := repo.LatestActiveByUser(dbc, "u1", base.Add(-30*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, recent.SessionToken, got.SessionToken)

	got, err = repo.LatestActiveByUser(dbc, "u1", base.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Nil(t, got)

	list, err := repo.ListActiveByUser(dbc, "u1", 5)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, recent.SessionToken, list[0].SessionToken)
	require.Equal(t, old.SessionToken, list[1].SessionToken)
}

func TestConversationRepo_LockByTokenRequiresTx(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewConversationRepo(db, testutil.Logger(t))

	row := testutil.SeedConversation(t, ctx, db, "u1", types.RoleAdmin, time.Now().UTC())

	_, err := repo.LockByToken(dbctx.Context{Ctx: ctx}, row.SessionToken)
	require.Error(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.LockByToken(dbctx.Context{Ctx: ctx, Tx: tx}, row.SessionToken)
		require.NoError(t, err)
		require.NotNil(t, locked)
		require.Equal(t, row.ID, locked.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestConversationRepo_DeactivateIdleBefore(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewConversationRepo(db, testutil.Logger(t))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stale := testutil.SeedConversation(t, ctx, db, "u1", types.RoleStudent, now.Add(-40*24*time.Hour))
	fresh := testutil.SeedConversation(t, ctx, db, "u1", types.RoleInstructor, now.Add(-1*time.Hour))

	n, err := repo.DeactivateIdleBefore(dbc, now.Add(-30*24*time.Hour), now)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := repo.GetByToken(dbc, stale.SessionToken)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	got, err = repo.GetByToken(dbc, fresh.SessionToken)
	require.NoError(t, err)
	require.True(t, got.IsActive)

	n, err = repo.DeactivateIdleBefore(dbc, now.Add(-30*24*time.Hour), now)
	require.NoError(t, err)
	require.Zero(t, n)

	active, err := repo.CountActive(dbc)
	require.NoError(t, err)
	require.Equal(t, int64(1), active)

	byRole, err := repo.CountByRoleSince(dbc, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), byRole[types.RoleStudent])
	require.Equal(t, int64(1), byRole[types.RoleInstructor])
}
