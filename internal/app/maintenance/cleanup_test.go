package maintenance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/adiwibawa/emailgate/internal/app/maintenance"
	"github.com/adiwibawa/emailgate/internal/database"
	"github.com/adiwibawa/emailgate/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver: "sqlite",
		DSN:    "file:" + t.Name() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func seedPending(t *testing.T, db *gorm.DB, email, hash string, expires time.Time) {
	t.Helper()
	record := models.EmailRecord{
		Email:           email,
		VerifyTokenHash: &hash,
		TokenExpiresAt:  &expires,
	}
	require.NoError(t, db.Create(&record).Error)
}

func TestSweepExpiredTokens(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	seedPending(t, db, "stale@example.com", "hash-stale", now.Add(-time.Minute))
	seedPending(t, db, "fresh@example.com", "hash-fresh", now.Add(time.Hour))

	swept, err := maintenance.SweepExpiredTokens(context.Background(), db, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, swept)

	// The stale record survives with its token cleared.
	var stale models.EmailRecord
	require.NoError(t, db.Where("email = ?", "stale@example.com").First(&stale).Error)
	require.False(t, stale.IsVerified)
	require.Nil(t, stale.VerifyTokenHash)
	require.Nil(t, stale.TokenExpiresAt)

	var fresh models.EmailRecord
	require.NoError(t, db.Where("email = ?", "fresh@example.com").First(&fresh).Error)
	require.NotNil(t, fresh.VerifyTokenHash)
	require.Equal(t, "hash-fresh", *fresh.VerifyTokenHash)
}

func TestSweepSkipsVerifiedRecords(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	record := models.EmailRecord{Email: "done@example.com", IsVerified: true}
	require.NoError(t, db.Create(&record).Error)

	swept, err := maintenance.SweepExpiredTokens(context.Background(), db, now)
	require.NoError(t, err)
	require.Zero(t, swept)
}

func TestSweeperRunOnce(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	seedPending(t, db, "stale@example.com", "hash-stale", now.Add(-time.Minute))

	sweeper := maintenance.NewSweeper(db, maintenance.WithNow(func() time.Time { return now }))
	require.NoError(t, sweeper.RunOnce(context.Background()))

	var record models.EmailRecord
	require.NoError(t, db.Where("email = ?", "stale@example.com").First(&record).Error)
	require.Nil(t, record.VerifyTokenHash)
}

func TestSweeperStartStop(t *testing.T) {
	db := openTestDB(t)

	sweeper := maintenance.NewSweeper(db, maintenance.WithSchedule("@every 1h"))
	require.NoError(t, sweeper.Start())

	done := sweeper.Stop()
	select {
	case <-done.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop in time")
	}
}

func TestSweeperNilDatabase(t *testing.T) {
	sweeper := maintenance.NewSweeper(nil)
	require.NoError(t, sweeper.Start())
	require.NoError(t, sweeper.RunOnce(context.Background()))
}
