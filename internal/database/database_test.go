package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"studentrecords/internal/config"
	"studentrecords/internal/database"
	"studentrecords/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	stores, err := database.Open(context.Background(), &config.Config{StorageDriver: config.DriverMemory})
	require.NoError(t, err)
	assert.NotNil(t, stores.Students)
	assert.NotNil(t, stores.Users)
	assert.NoError(t, stores.Close(context.Background()))
}

func TestOpen_SQLiteMigratesSchema(t *testing.T) {
	cfg := &config.Config{
		StorageDriver: config.DriverSQLite,
		DatabaseDSN:   filepath.Join(t.TempDir(), "students.db"),
	}
	stores, err := database.Open(context.Background(), cfg)
	require.NoError(t, err)
	defer stores.Close(context.Background())

	ctx := context.Background()
	student := &models.Student{FirstName: "Jane", LastName: "Doe", Email: "jane@x.com", Gender: models.GenderFemale}
	require.NoError(t, stores.Students.Create(ctx, student))

	got, err := stores.Students.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", got.Email)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := database.Open(context.Background(), &config.Config{StorageDriver: "cassandra"})
	assert.Error(t, err)
}
