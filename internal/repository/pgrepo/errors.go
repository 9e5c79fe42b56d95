package pgrepo

import (
	"errors"
	"fmt"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode = "23505"
	checkViolationCode  = "23514"
)

func convertErr(err error, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("[repository/%s] %w", msg, domain.ErrRecordNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		errType := domain.ErrUnknown
		switch {
		case isUniqueViolationErr(pgErr):
			errType = domain.ErrDuplicateKey
		case pgErr.Code == checkViolationCode:
			// единственный check в схеме на деньгах - неотрицательный баланс.
			errType = domain.ErrInsufficientFunds
		}
		return fmt.Errorf("[repository/%s] %w: %s", msg, errType, pgErr.Message)
	}

	return fmt.Errorf("[repository/%s] %w: %s", msg, domain.ErrUnknown, err.Error())
}

// convertErrSentinel оборачивает доменную ошибку в репозиторный контекст, когда условный
// UPDATE не затронул строк и причина известна вызывающему.
func convertErrSentinel(sentinel error, msg string, args ...any) error {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return fmt.Errorf("[repository/%s] %w", msg, sentinel)
}

func isUniqueViolationErr(err *pgconn.PgError) bool {
	return err.Code == uniqueViolationCode
}
