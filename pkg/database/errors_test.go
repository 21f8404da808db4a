package database

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, Translate(nil, "video"))

	err := Translate(gorm.ErrRecordNotFound, "video")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, "video not found: resource not found", err.Error())

	err = Translate(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), "user")
	assert.Equal(t, http.StatusConflict, apperror.MapErrorToStatus(err))

	assert.ErrorIs(t, Translate(gorm.ErrForeignKeyViolated, "comment"), apperror.ErrNotFound)

	other := errors.New("connection refused")
	assert.Equal(t, other, Translate(other, "video"))
}
