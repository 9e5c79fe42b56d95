package pgrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/repository/repoargs"
	"github.com/avkozlov/edumarket/pkg/uow"
	"github.com/jackc/pgx/v5"
)

type PurchaseRepository struct {
	db uow.DBTX
}

func NewPurchaseRepository(db uow.DBTX) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

const purchaseColumns = `id, created_at, updated_at, user_id, course_id, type, amount::text,
	currency, method, status, COALESCE(provider_ref, ''), access_granted, access_expires_at,
	files, purchased_at, refunded_at`

func (r *PurchaseRepository) Create(ctx context.Context, args repoargs.PurchaseCreate) (*domain.Purchase, error) {
	filesJSON, marshalErr := marshalFiles(args.Files)
	if marshalErr != nil {
		return nil, convertErr(marshalErr, "creating purchase")
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO purchases
			(user_id, course_id, type, amount, currency, method, status, provider_ref,
			 access_granted, access_expires_at, files, purchased_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''),
			$7 = 'completed', $9, $10, CASE WHEN $7 = 'completed' THEN now() END)
		RETURNING `+purchaseColumns,
		args.UserID, args.CourseID, args.Type, args.Amount.String(), args.Currency,
		args.Method, args.Status, args.ProviderRef, args.AccessExpiresAt, filesJSON,
	)
	purchase, err := scanPurchase(row)
	if err != nil {
		return nil, convertErr(err, "creating purchase")
	}
	return purchase, nil
}

func (r *PurchaseRepository) FindByID(ctx context.Context, id int64) (*domain.Purchase, error) {
	row := r.db.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id)
	purchase, err := scanPurchase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, convertErrSentinel(domain.ErrPurchaseNotFound, "finding purchase %d", id)
		}
		return nil, convertErr(err, "finding purchase %d", id)
	}
	return purchase, nil
}

// FindCompleted ищет завершенную покупку по ключу уникальности (юзер, курс, тип).
func (r *PurchaseRepository) FindCompleted(
	ctx context.Context,
	userID, courseID int64,
	purchaseType domain.PurchaseType,
) (*domain.Purchase, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+purchaseColumns+`
		FROM purchases
		WHERE user_id = $1 AND course_id = $2 AND type = $3 AND status = 'completed'`,
		userID, courseID, purchaseType,
	)
	purchase, err := scanPurchase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, convertErrSentinel(domain.ErrPurchaseNotFound,
				"finding completed purchase of user %d for course %d", userID, courseID)
		}
		return nil, convertErr(err, "finding completed purchase of user %d for course %d", userID, courseID)
	}
	return purchase, nil
}

// FindGrantedForUpdate берет строковую блокировку на покупку с действующим доступом.
// Используется в выдаче файлов: проверка окна доступа и инкремент счетчика скачиваний
// проходят под одной блокировкой, чтобы не гоняться с параллельным рефандом.
func (r *PurchaseRepository) FindGrantedForUpdate(
	ctx context.Context,
	userID, courseID int64,
) (*domain.Purchase, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+purchaseColumns+`
		FROM purchases
		WHERE user_id = $1 AND course_id = $2 AND status = 'completed' AND access_granted
		FOR UPDATE`,
		userID, courseID,
	)
	purchase, err := scanPurchase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, convertErrSentinel(domain.ErrPurchaseNotFound,
				"finding granted purchase of user %d for course %d", userID, courseID)
		}
		return nil, convertErr(err, "finding granted purchase of user %d for course %d", userID, courseID)
	}
	return purchase, nil
}

func (r *PurchaseRepository) FindByProviderRef(ctx context.Context, providerRef string) (*domain.Purchase, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE provider_ref = $1`,
		providerRef,
	)
	purchase, err := scanPurchase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, convertErrSentinel(domain.ErrPurchaseNotFound,
				"finding purchase by provider ref %s", providerRef)
		}
		return nil, convertErr(err, "finding purchase by provider ref %s", providerRef)
	}
	return purchase, nil
}

// CompletePending переводит pending покупку в completed, выдает доступ и фиксирует
// снимок файлов. Повторный вызов - no-op (условие по статусу), поэтому финализация
// оплаченной шлюзом покупки безопасно ретраится.
func (r *PurchaseRepository) CompletePending(
	ctx context.Context,
	id int64,
	files []domain.PurchasedFile,
) (*domain.Purchase, error) {
	filesJSON, marshalErr := marshalFiles(files)
	if marshalErr != nil {
		return nil, convertErr(marshalErr, "completing purchase %d", id)
	}

	row := r.db.QueryRow(ctx, `
		UPDATE purchases
		SET status = 'completed', access_granted = true, files = $1,
			purchased_at = now(), updated_at = now()
		WHERE id = $2 AND status = 'pending'
		RETURNING `+purchaseColumns,
		filesJSON, id,
	)
	purchase, err := scanPurchase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.FindByID(ctx, id)
		}
		return nil, convertErr(err, "completing purchase %d", id)
	}
	return purchase, nil
}

// MarkFailed переводит pending покупку в failed.
func (r *PurchaseRepository) MarkFailed(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE purchases SET status = 'failed', updated_at = now()
		WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return convertErr(err, "failing purchase %d", id)
	}
	if tag.RowsAffected() == 0 {
		return convertErrSentinel(domain.ErrPurchaseNotFound, "failing purchase %d", id)
	}
	return nil
}

// Revoke переводит завершенную покупку в refunded и навсегда отзывает доступ.
func (r *PurchaseRepository) Revoke(ctx context.Context, id int64) (*domain.Purchase, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE purchases
		SET status = 'refunded', access_granted = false, refunded_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'completed'
		RETURNING `+purchaseColumns,
		id,
	)
	purchase, err := scanPurchase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, convertErrSentinel(domain.ErrPurchaseNotFound, "revoking purchase %d", id)
		}
		return nil, convertErr(err, "revoking purchase %d", id)
	}
	return purchase, nil
}

// UpdateFiles перезаписывает снимок файлов покупки (счетчики скачиваний).
func (r *PurchaseRepository) UpdateFiles(ctx context.Context, id int64, files []domain.PurchasedFile) error {
	filesJSON, marshalErr := marshalFiles(files)
	if marshalErr != nil {
		return convertErr(marshalErr, "updating files of purchase %d", id)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE purchases SET files = $1, updated_at = now() WHERE id = $2`,
		filesJSON, id,
	)
	if err != nil {
		return convertErr(err, "updating files of purchase %d", id)
	}
	if tag.RowsAffected() == 0 {
		return convertErrSentinel(domain.ErrPurchaseNotFound, "updating files of purchase %d", id)
	}
	return nil
}

func (r *PurchaseRepository) GetByUserID(ctx context.Context, userID int64) ([]domain.Purchase, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+purchaseColumns+`
		FROM purchases WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, convertErr(err, "purchases of user %d", userID)
	}
	defer rows.Close()

	var purchases []domain.Purchase
	for rows.Next() {
		purchase, scanErr := scanPurchase(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "purchases of user %d", userID)
		}
		purchases = append(purchases, *purchase)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "purchases of user %d", userID)
	}
	return purchases, nil
}

func marshalFiles(files []domain.PurchasedFile) ([]byte, error) {
	if files == nil {
		files = []domain.PurchasedFile{}
	}
	raw, err := json.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("marshal purchased files: %s", err.Error())
	}
	return raw, nil
}

func scanPurchase(row rowScanner) (*domain.Purchase, error) {
	var purchase domain.Purchase
	var rawAmount string
	var rawFiles []byte
	err := row.Scan(
		&purchase.ID,
		&purchase.CreatedAt,
		&purchase.UpdatedAt,
		&purchase.UserID,
		&purchase.CourseID,
		&purchase.Type,
		&rawAmount,
		&purchase.Currency,
		&purchase.Method,
		&purchase.Status,
		&purchase.ProviderRef,
		&purchase.AccessGranted,
		&purchase.AccessExpiresAt,
		&rawFiles,
		&purchase.PurchasedAt,
		&purchase.RefundedAt,
	)
	if err != nil {
		return nil, err
	}
	amount, parseErr := parseDecimal(rawAmount)
	if parseErr != nil {
		return nil, parseErr
	}
	purchase.Amount = amount

	if len(rawFiles) > 0 {
		if jsonErr := json.Unmarshal(rawFiles, &purchase.Files); jsonErr != nil {
			return nil, fmt.Errorf("unmarshal purchased files: %s", jsonErr.Error())
		}
	}
	return &purchase, nil
}
