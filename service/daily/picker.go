package daily

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/memeland/memeland-server/cmd/apperrors"
	"github.com/memeland/memeland-server/cmd/models"
	"github.com/memeland/memeland-server/service/cache"
)

const dayFormat = "2006-01-02"

// Picker selects the meme of the day. The pick is deterministic for a given
// day and meme pool, idempotent across repeated calls and process restarts,
// and persisted under a date-keyed row so concurrent first callers cannot
// produce two picks for the same day.
type Picker struct {
	db    *gorm.DB
	cache *cache.RedisCache

	// now is swapped out in tests to simulate days.
	now func() time.Time
}

// NewPicker creates a Picker. redisCache may be nil to disable caching.
func NewPicker(db *gorm.DB, redisCache *cache.RedisCache) *Picker {
	return &Picker{db: db, cache: redisCache, now: time.Now}
}

// MemeOfTheDay returns today's meme ID, selecting and persisting one if
// today has no record yet.
//
// Pool policy: candidates are memes created strictly before today's
// UTC midnight, ordered by creation time then ID. Memes uploaded today
// become eligible tomorrow.
func (p *Picker) MemeOfTheDay(ctx context.Context) (string, error) {
	today := p.startOfToday()
	day := today.Format(dayFormat)

	if p.cache != nil {
		if memeID, err := p.cache.GetMemeOfTheDay(ctx, day); err == nil && memeID != "" {
			return memeID, nil
		}
	}

	var record models.MemeOfTheDay
	err := p.db.WithContext(ctx).First(&record, "day = ?", day).Error
	if err == nil {
		p.cacheResult(ctx, day, record.MemeID, today)
		return record.MemeID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	memeID, err := p.selectForDay(ctx, today)
	if err != nil {
		return "", err
	}

	record = models.MemeOfTheDay{Day: day, MemeID: memeID}
	if err := p.db.WithContext(ctx).Create(&record).Error; err != nil {
		if apperrors.IsDuplicateKey(err) {
			// A concurrent caller inserted first; its pick wins.
			if err := p.db.WithContext(ctx).First(&record, "day = ?", day).Error; err != nil {
				return "", err
			}
			p.cacheResult(ctx, day, record.MemeID, today)
			return record.MemeID, nil
		}
		return "", err
	}

	p.cacheResult(ctx, day, memeID, today)
	return memeID, nil
}

// selectForDay picks pool[dayNumber mod len(pool)], where dayNumber counts
// days since the Unix epoch. The stable pool ordering makes the result
// independent of which caller computes it.
func (p *Picker) selectForDay(ctx context.Context, today time.Time) (string, error) {
	var pool []models.Meme
	err := p.db.WithContext(ctx).
		Select("id").
		Where("created_at < ?", today).
		Order("created_at ASC, id ASC").
		Find(&pool).Error
	if err != nil {
		return "", err
	}
	if len(pool) == 0 {
		return "", apperrors.NoContent("No memes found")
	}

	dayNumber := today.Unix() / (24 * 60 * 60)
	index := int(dayNumber % int64(len(pool)))
	return pool[index].ID, nil
}

func (p *Picker) startOfToday() time.Time {
	now := p.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (p *Picker) cacheResult(ctx context.Context, day, memeID string, today time.Time) {
	if p.cache == nil {
		return
	}
	ttl := today.Add(24 * time.Hour).Sub(p.now().UTC())
	if ttl <= 0 {
		return
	}
	if err := p.cache.SetMemeOfTheDay(ctx, day, memeID, ttl); err != nil {
		log.Printf("failed to cache meme of the day: %v", err)
	}
}
