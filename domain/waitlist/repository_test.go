package waitlist

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/akeren/clothiq-api/internal/models"
	apperrors "github.com/akeren/clothiq-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database,
	// which also serialises writes.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.WaitlistEntry{}))
	return db
}

func TestWaitlistRepository_CreateAndCount(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t))
	ctx := context.Background()

	count, err := repo.CountEntries(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	entry, err := repo.CreateEntry(ctx, "first@example.com")
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, "first@example.com", entry.Email)
	assert.False(t, entry.CreatedAt.IsZero())

	_, err = repo.CreateEntry(ctx, "second@example.com")
	require.NoError(t, err)

	count, err = repo.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestWaitlistRepository_DuplicateIsConflict(t *testing.T) {
	repo := NewWaitlistRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.CreateEntry(ctx, "dup@example.com")
	require.NoError(t, err)

	entry, err := repo.CreateEntry(ctx, "dup@example.com")

	assert.Nil(t, entry)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	count, err := repo.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// newSharedFileDB opens a file-backed database with several connections so
// concurrent inserts reach sqlite at the same time.
func newSharedFileDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "waitlist.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.WaitlistEntry{}))
	return db
}

func TestWaitlistRepository_ConcurrentDuplicates(t *testing.T) {
	repo := NewWaitlistRepository(newSharedFileDB(t))
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateEntry(ctx, "race@example.com")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case apperrors.IsType(err, apperrors.ErrorTypeConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)
}
