package pgrepo

import (
	"context"
	"errors"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/repository/repoargs"
	"github.com/avkozlov/edumarket/pkg/uow"
	"github.com/jackc/pgx/v5"
)

type TransactionRepository struct {
	db uow.DBTX
}

func NewTransactionRepository(db uow.DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, created_at, updated_at, wallet_id, type, amount::text, currency,
	description, status, method, COALESCE(provider_ref, ''), COALESCE(related_course_id, 0),
	COALESCE(related_user_id, 0), processed_at`

func (r *TransactionRepository) Create(
	ctx context.Context,
	args repoargs.TransactionCreate,
) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO transactions
			(wallet_id, type, amount, currency, description, status, method,
			 provider_ref, related_course_id, related_user_id, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, 0), NULLIF($10, 0),
			CASE WHEN $6 = 'completed' THEN now() END)
		RETURNING `+transactionColumns,
		args.WalletID, args.Type, args.Amount.String(), args.Currency, args.Description,
		args.Status, args.Method, args.ProviderRef, args.RelatedCourseID, args.RelatedUserID,
	)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "creating transaction")
	}
	return transaction, nil
}

// FindByProviderRef ищет транзакцию по внешней ссылке провайдера (ключ идемпотентности).
// Ссылка глобально уникальна, поэтому поиск не требует знания кошелька.
func (r *TransactionRepository) FindByProviderRef(ctx context.Context, providerRef string) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE provider_ref = $1`,
		providerRef,
	)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "finding transaction by provider ref %s", providerRef)
	}
	return transaction, nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "finding transaction %d", id)
	}
	return transaction, nil
}

// UpdatePendingStatus переводит транзакцию из pending в терминальный статус.
// Условие status = 'pending' в WHERE гарантирует, что завершенная транзакция
// никогда не будет изменена. Возвращает ErrTransactionNotPending если строка не затронута.
func (r *TransactionRepository) UpdatePendingStatus(
	ctx context.Context,
	id int64,
	status domain.TransactionStatus,
) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE transactions
		SET status = $1, updated_at = now(),
			processed_at = CASE WHEN $1 = 'completed' THEN now() ELSE processed_at END
		WHERE id = $2 AND status = 'pending'
		RETURNING `+transactionColumns,
		status, id,
	)
	transaction, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, convertErrSentinel(domain.ErrTransactionNotPending, "updating transaction %d status", id)
		}
		return nil, convertErr(err, "updating transaction %d status", id)
	}
	return transaction, nil
}

// GetHistory возвращает страницу транзакций кошелька в обратном хронологическом порядке.
func (r *TransactionRepository) GetHistory(
	ctx context.Context,
	walletID int64,
	filter repoargs.TransactionFilter,
) ([]domain.Transaction, error) {
	limit, limitErr := safeConvertUintToInt32(filter.Limit)
	if limitErr != nil {
		return nil, convertErr(limitErr, "transactions history")
	}
	offset, offsetErr := safeConvertUintToInt32(filter.Page * filter.Limit)
	if offsetErr != nil {
		return nil, convertErr(offsetErr, "transactions history")
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE wallet_id = $1 AND ($2 = '' OR type = $2::transaction_type)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`,
		walletID, string(filter.Type), limit, offset,
	)
	if err != nil {
		return nil, convertErr(err, "transactions history of wallet %d", walletID)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		transaction, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "transactions history of wallet %d", walletID)
		}
		transactions = append(transactions, *transaction)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "transactions history of wallet %d", walletID)
	}
	return transactions, nil
}

// GetPendingByMethods возвращает pending транзакции внешних шлюзов для фоновой сверки.
func (r *TransactionRepository) GetPendingByMethods(
	ctx context.Context,
	methods []domain.PaymentMethod,
	limit uint,
) ([]domain.Transaction, error) {
	limit32, limitErr := safeConvertUintToInt32(limit)
	if limitErr != nil {
		return nil, convertErr(limitErr, "pending transactions")
	}
	var methodNames = make([]string, len(methods))
	for i, method := range methods {
		methodNames[i] = string(method)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE status = 'pending' AND provider_ref IS NOT NULL AND method = ANY($1)
		ORDER BY created_at
		LIMIT $2`,
		methodNames, limit32,
	)
	if err != nil {
		return nil, convertErr(err, "pending transactions")
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		transaction, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "pending transactions")
		}
		transactions = append(transactions, *transaction)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "pending transactions")
	}
	return transactions, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var transaction domain.Transaction
	var rawAmount string
	err := row.Scan(
		&transaction.ID,
		&transaction.CreatedAt,
		&transaction.UpdatedAt,
		&transaction.WalletID,
		&transaction.Type,
		&rawAmount,
		&transaction.Currency,
		&transaction.Description,
		&transaction.Status,
		&transaction.Method,
		&transaction.ProviderRef,
		&transaction.RelatedCourseID,
		&transaction.RelatedUserID,
		&transaction.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	amount, parseErr := parseDecimal(rawAmount)
	if parseErr != nil {
		return nil, parseErr
	}
	transaction.Amount = amount
	return &transaction, nil
}
