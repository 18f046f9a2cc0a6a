package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/memeland/memeland-server/cmd/apperrors"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(apperrors.Validation("bad input")))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(apperrors.NotFound("gone")))
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(apperrors.Conflict("taken")))
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(errors.New("disk on fire")))

	wrapped := fmt.Errorf("creating user: %w", apperrors.Conflict("taken"))
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(wrapped))
}

func TestFromDB(t *testing.T) {
	assert.NoError(t, apperrors.FromDB(nil, "", ""))

	err := apperrors.FromDB(gorm.ErrRecordNotFound, "Meme not found", "")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.Equal(t, "Meme not found", err.Error())

	err = apperrors.FromDB(gorm.ErrDuplicatedKey, "", "Username already exists")
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, apperrors.FromDB(plain, "", ""))
}

func TestIsDuplicateKeyAgainstRealConstraint(t *testing.T) {
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	type account struct {
		ID   string `gorm:"primaryKey"`
		Name string `gorm:"uniqueIndex"`
	}
	assert.NoError(t, database.AutoMigrate(&account{}))

	assert.NoError(t, database.Create(&account{ID: "1", Name: "alice"}).Error)
	dupErr := database.Create(&account{ID: "2", Name: "alice"}).Error
	assert.Error(t, dupErr)
	assert.True(t, apperrors.IsDuplicateKey(dupErr))

	assert.False(t, apperrors.IsDuplicateKey(nil))
	assert.False(t, apperrors.IsDuplicateKey(errors.New("timeout")))
}
