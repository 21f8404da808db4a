package database

import (
	"errors"
	"fmt"

	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"gorm.io/gorm"
)

// Translate maps gorm errors onto apperror sentinels. what names the entity
// for the message, e.g. "video".
func Translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s not found: %w", what, apperror.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s already exists: %w", what, apperror.ErrConflict)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s references a missing record: %w", what, apperror.ErrNotFound)
	}
	return err
}
