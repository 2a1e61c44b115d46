package database

import (
	"context"
	"fmt"
	"time"

	"studentrecords/internal/config"
	"studentrecords/internal/logger"
	"studentrecords/internal/models"
	"studentrecords/internal/repositories"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const connectTimeout = 10 * time.Second

// Stores bundles the repositories backed by one storage driver.
type Stores struct {
	Students repositories.StudentRepository
	Users    repositories.UserRepository
	close    func(ctx context.Context) error
}

// Close releases the underlying connection.
func (s *Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Open connects to the configured storage driver and prepares its schema.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return &Stores{
			Students: repositories.NewMockStudentRepository(),
			Users:    repositories.NewMockUserRepository(),
		}, nil
	case config.DriverSQLite:
		return openGORM(sqlite.Open(cfg.DatabaseDSN))
	case config.DriverPostgres:
		return openGORM(postgres.Open(cfg.DatabaseDSN))
	case config.DriverMongo:
		return openMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// OpenGORM opens a GORM connection and migrates the student and user tables.
func OpenGORM(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.Student{}, &models.User{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return db, nil
}

func openGORM(dialector gorm.Dialector) (*Stores, error) {
	db, err := OpenGORM(dialector)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("dialect", dialector.Name()).Msg("database connected")

	return &Stores{
		Students: repositories.NewGORMStudentRepository(db),
		Users:    repositories.NewGORMUserRepository(db),
		close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}, nil
}

func openMongo(ctx context.Context, uri, dbName string) (*Stores, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	students := repositories.NewMongoStudentRepository(db)
	users := repositories.NewMongoUserRepository(db)
	if err := students.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	if err := users.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	logger.Info().Str("database", dbName).Msg("MongoDB connected")

	return &Stores{
		Students: students,
		Users:    users,
		close:    client.Disconnect,
	}, nil
}
