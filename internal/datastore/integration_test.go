package datastore

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

var (
	testDatabaseURL string
	skipIntegration bool
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	var container *postgres.PostgresContainer
	var containerErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				containerErr = fmt.Errorf("docker not available: %v", r)
			}
		}()
		container, containerErr = postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("pipeline_test"),
			postgres.WithUsername("pipeline"),
			postgres.WithPassword("pipeline"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			),
		)
	}()

	if containerErr != nil {
		fmt.Printf("docker not available, skipping datastore integration tests: %v\n", containerErr)
		skipIntegration = true
		m.Run()
		return
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Printf("failed to read container connection string: %v\n", err)
		skipIntegration = true
		m.Run()
		return
	}
	testDatabaseURL = dsn

	code := m.Run()
	_ = container.Terminate(ctx)
	if code != 0 {
		panic(fmt.Sprintf("tests failed with code %d", code))
	}
}

func TestOpenMigrateAndPing(t *testing.T) {
	if skipIntegration {
		t.Skip("docker not available")
	}

	store, err := Open(testDatabaseURL, false, nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Migrate())
	require.NoError(t, store.Ping())

	var tableNames []string
	require.NoError(t, store.DB.Raw(
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'public'",
	).Scan(&tableNames).Error)
	require.Contains(t, tableNames, "devices")
	require.Contains(t, tableNames, "dialogues")
}

func TestTransactionRollsBackOnError(t *testing.T) {
	if skipIntegration {
		t.Skip("docker not available")
	}

	store, err := Open(testDatabaseURL, false, nil)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate())

	device := &Device{
		DeviceID:   uuid.New(),
		PointID:    uuid.New(),
		RegisterID: uuid.New(),
		TokenHash:  "tok-rollback",
	}
	txErr := store.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(device).Error; err != nil {
			return err
		}
		return fmt.Errorf("forced rollback")
	})
	require.Error(t, txErr)

	var count int64
	require.NoError(t, store.DB.Model(&Device{}).Where("token_hash = ?", "tok-rollback").Count(&count).Error)
	require.Zero(t, count)
}
