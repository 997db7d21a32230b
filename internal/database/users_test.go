package database

import (
	"context"
	"testing"

	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserUpsertAndSoftDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	admin := &models.User{Name: "Admin", Email: " Admin@TravelHub.com ", Role: models.RoleAdmin}
	require.NoError(t, db.UpsertUser(ctx, admin))
	require.NotEmpty(t, admin.ID)
	assert.Equal(t, "admin@travelhub.com", admin.Email)
	assert.False(t, admin.CreatedAt.IsZero())

	again := &models.User{Name: "Site Admin", Email: "admin@travelhub.com", Role: models.RoleAdmin}
	require.NoError(t, db.UpsertUser(ctx, again))
	assert.Equal(t, admin.ID, again.ID)
	assert.Equal(t, "Site Admin", again.Name)

	byEmail, err := db.GetUserByEmail(ctx, "ADMIN@travelhub.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, byEmail.ID)
	assert.True(t, byEmail.IsAdmin())

	require.NoError(t, db.SoftDeleteUser(ctx, admin.ID))
	deleted, err := db.GetUser(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted())
	assert.ErrorIs(t, db.SoftDeleteUser(ctx, admin.ID), domain.ErrNotFound)

	require.NoError(t, db.UpsertUser(ctx, &models.User{Name: "Admin", Email: "admin@travelhub.com", Role: models.RoleAdmin}))
	revived, err := db.GetUser(ctx, admin.ID)
	require.NoError(t, err)
	assert.False(t, revived.IsDeleted())

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = db.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
