package repositories_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"studentrecords/internal/apperrors"
	"studentrecords/internal/database"
	"studentrecords/internal/models"
	"studentrecords/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func TestUserRepositories(t *testing.T) {
	db, err := database.OpenGORM(sqlite.Open(filepath.Join(t.TempDir(), "users.db")))
	require.NoError(t, err)

	repos := map[string]repositories.UserRepository{
		"memory": repositories.NewMockUserRepository(),
		"sqlite": repositories.NewGORMUserRepository(db),
	}

	for name, repo := range repos {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			user := &models.User{Name: "Admin", Email: "admin@x.com", Password: "hash"}
			require.NoError(t, repo.Create(ctx, user))
			assert.NotEmpty(t, user.ID)

			byEmail, err := repo.GetByEmail(ctx, "admin@x.com")
			require.NoError(t, err)
			assert.Equal(t, user.ID, byEmail.ID)
			assert.Equal(t, "hash", byEmail.Password)

			byID, err := repo.GetByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, "Admin", byID.Name)

			err = repo.Create(ctx, &models.User{Name: "Copy", Email: "admin@x.com", Password: "x"})
			assert.True(t, errors.Is(err, apperrors.ErrUserEmailRegistered), "got %v", err)

			_, err = repo.GetByID(ctx, "missing")
			assert.True(t, errors.Is(err, apperrors.ErrUserNotFound))
		})
	}
}
