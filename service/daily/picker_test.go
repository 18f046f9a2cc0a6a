package daily

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/memeland/memeland-server/cmd/apperrors"
	"github.com/memeland/memeland-server/cmd/models"
	"github.com/memeland/memeland-server/service/cache"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&models.Meme{}, &models.MemeOfTheDay{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func seedMemeAt(t *testing.T, database *gorm.DB, id string, createdAt time.Time) {
	t.Helper()
	err := database.Create(&models.Meme{
		ID:           id,
		Title:        "meme " + id,
		FileName:     id + ".png",
		OriginalName: id + ".png",
		FilePath:     "uploads/memes/" + id + ".png",
		UserID:       "owner",
		CreatedAt:    createdAt,
	}).Error
	if err != nil {
		t.Fatalf("failed to seed meme: %v", err)
	}
}

func fixedNow(value time.Time) func() time.Time {
	return func() time.Time { return value }
}

// Day number 5 with a pool of 3 memes selects index 5 mod 3 = 2.
func TestDeterministicSelection(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)

	epoch := time.Date(1970, 1, 1, 12, 0, 0, 0, time.UTC)
	seedMemeAt(t, database, "a", epoch)
	seedMemeAt(t, database, "b", epoch.AddDate(0, 0, 1))
	seedMemeAt(t, database, "c", epoch.AddDate(0, 0, 2))

	picker := NewPicker(database, nil)
	picker.now = fixedNow(time.Date(1970, 1, 6, 15, 4, 5, 0, time.UTC))

	memeID, err := picker.MemeOfTheDay(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "c", memeID)
}

func TestIdempotentAcrossCalls(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)

	seedMemeAt(t, database, "a", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))
	seedMemeAt(t, database, "b", time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC))

	picker := NewPicker(database, nil)
	picker.now = fixedNow(time.Date(1970, 1, 6, 8, 0, 0, 0, time.UTC))

	first, err := picker.MemeOfTheDay(ctx)
	assert.NoError(t, err)
	second, err := picker.MemeOfTheDay(ctx)
	assert.NoError(t, err)
	assert.Equal(t, first, second)

	var recordCount int64
	database.Model(&models.MemeOfTheDay{}).Count(&recordCount)
	assert.Equal(t, int64(1), recordCount)
}

func TestExistingRecordWins(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)

	seedMemeAt(t, database, "a", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))
	seedMemeAt(t, database, "b", time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC))

	// a concurrent caller already persisted today's pick
	err := database.Create(&models.MemeOfTheDay{Day: "1970-01-06", MemeID: "b"}).Error
	assert.NoError(t, err)

	picker := NewPicker(database, nil)
	picker.now = fixedNow(time.Date(1970, 1, 6, 8, 0, 0, 0, time.UTC))

	memeID, err := picker.MemeOfTheDay(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "b", memeID)
}

func TestEmptyPool(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)

	picker := NewPicker(database, nil)
	picker.now = fixedNow(time.Date(1970, 1, 6, 8, 0, 0, 0, time.UTC))

	_, err := picker.MemeOfTheDay(ctx)
	assert.Equal(t, apperrors.KindNoContent, apperrors.KindOf(err))
}

func TestMemesCreatedTodayAreExcluded(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)

	// only meme exists but was uploaded today, so the pool is empty
	seedMemeAt(t, database, "fresh", time.Date(1970, 1, 6, 10, 0, 0, 0, time.UTC))

	picker := NewPicker(database, nil)
	picker.now = fixedNow(time.Date(1970, 1, 6, 12, 0, 0, 0, time.UTC))

	_, err := picker.MemeOfTheDay(ctx)
	assert.Equal(t, apperrors.KindNoContent, apperrors.KindOf(err))
}

func TestNewDayNewSelection(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)

	seedMemeAt(t, database, "a", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))
	seedMemeAt(t, database, "b", time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC))

	picker := NewPicker(database, nil)

	picker.now = fixedNow(time.Date(1970, 1, 6, 8, 0, 0, 0, time.UTC))
	day6, err := picker.MemeOfTheDay(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "b", day6) // day 5 mod 2 = 1

	picker.now = fixedNow(time.Date(1970, 1, 7, 8, 0, 0, 0, time.UTC))
	day7, err := picker.MemeOfTheDay(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "a", day7) // day 6 mod 2 = 0

	var recordCount int64
	database.Model(&models.MemeOfTheDay{}).Count(&recordCount)
	assert.Equal(t, int64(2), recordCount)
}

// Two first-of-day callers race past the day-lookup miss; the one whose
// insert hits the primary key adopts the committed pick instead of its own.
func TestDuplicateInsertRecovery(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "daily.db")

	database, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&models.Meme{}, &models.MemeOfTheDay{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	rival, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open rival connection: %v", err)
	}

	seedMemeAt(t, database, "a", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))
	seedMemeAt(t, database, "b", time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC))

	// commit a rival pick between the picker's day-lookup miss and its own
	// insert, through a second connection so it survives the failed create
	raced := false
	err = database.Callback().Create().Before("gorm:create").Register("rival_pick", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "meme_of_the_days" {
			return
		}
		raced = true
		if err := rival.Create(&models.MemeOfTheDay{Day: "1970-01-06", MemeID: "a"}).Error; err != nil {
			t.Errorf("failed to commit rival pick: %v", err)
		}
	})
	assert.NoError(t, err)

	picker := NewPicker(database, nil)
	picker.now = fixedNow(time.Date(1970, 1, 6, 8, 0, 0, 0, time.UTC))

	memeID, err := picker.MemeOfTheDay(ctx)
	assert.NoError(t, err)
	assert.True(t, raced)
	// day 5 mod 2 would have picked "b"; the loser returns the winner's "a"
	assert.Equal(t, "a", memeID)

	var records []models.MemeOfTheDay
	assert.NoError(t, database.Find(&records).Error)
	if assert.Len(t, records, 1) {
		assert.Equal(t, "a", records[0].MemeID)
	}
}

func TestCacheServesRepeatedLookups(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)

	seedMemeAt(t, database, "a", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))

	mr := miniredis.RunT(t)
	redisCache := cache.NewRedisCache(mr.Addr(), "", 0)

	picker := NewPicker(database, redisCache)
	picker.now = fixedNow(time.Date(1970, 1, 6, 8, 0, 0, 0, time.UTC))

	first, err := picker.MemeOfTheDay(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "a", first)

	// drop the persisted row: a cache hit must still answer
	assert.NoError(t, database.Where("day = ?", "1970-01-06").Delete(&models.MemeOfTheDay{}).Error)

	second, err := picker.MemeOfTheDay(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "a", second)
}
