// Package testutil spins up a throwaway postgres for integration tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/featureboard/backend/internal/models"
)

// NewTestDB starts a postgres container, migrates the schema and returns a
// gorm handle. The container is torn down with the test.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("featureboard_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("connect gorm: %v", err)
	}

	err = db.AutoMigrate(&models.User{}, &models.Feature{}, &models.Vote{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}

var userSeq int

// CreateUser inserts a user with a unique name and the given role.
func CreateUser(t testing.TB, db *gorm.DB, role models.Role) models.User {
	t.Helper()

	userSeq++
	user := models.User{
		Username: fmt.Sprintf("user%d", userSeq),
		Email:    fmt.Sprintf("user%d@example.com", userSeq),
		Password: "not-a-real-hash",
		Role:     role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreateFeature inserts a feature owned by owner in the given status.
func CreateFeature(t testing.TB, db *gorm.DB, owner models.User, status models.FeatureStatus) models.Feature {
	t.Helper()

	feature := models.Feature{
		Title:       "feature owned by " + owner.Username,
		Body:        "test feature",
		OwnerUserID: owner.ID,
		Status:      status,
	}
	if err := db.Create(&feature).Error; err != nil {
		t.Fatalf("create feature: %v", err)
	}
	return feature
}
