package pgrepo

import (
	"context"
	"errors"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/repository/repoargs"
	"github.com/avkozlov/edumarket/pkg/uow"
	"github.com/jackc/pgx/v5"
)

type PayoutRepository struct {
	db uow.DBTX
}

func NewPayoutRepository(db uow.DBTX) *PayoutRepository {
	return &PayoutRepository{db: db}
}

const payoutColumns = `id, created_at, updated_at, user_id, amount::text, currency, method,
	destination, status, COALESCE(reference, ''), COALESCE(notes, ''), processed_at`

func (r *PayoutRepository) Create(ctx context.Context, args repoargs.PayoutCreate) (*domain.PayoutRequest, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO payout_requests (user_id, amount, currency, method, destination)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+payoutColumns,
		args.UserID, args.Amount.String(), args.Currency, args.Method, args.Destination,
	)
	request, err := scanPayout(row)
	if err != nil {
		return nil, convertErr(err, "creating payout request")
	}
	return request, nil
}

func (r *PayoutRepository) FindByID(ctx context.Context, id int64) (*domain.PayoutRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+payoutColumns+` FROM payout_requests WHERE id = $1`, id)
	request, err := scanPayout(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, convertErrSentinel(domain.ErrPayoutNotFound, "finding payout request %d", id)
		}
		return nil, convertErr(err, "finding payout request %d", id)
	}
	return request, nil
}

// FindForUpdate берет строковую блокировку на заявку. Параллельные решения админов
// по одной заявке сериализуются на этой блокировке.
func (r *PayoutRepository) FindForUpdate(ctx context.Context, id int64) (*domain.PayoutRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+payoutColumns+` FROM payout_requests WHERE id = $1 FOR UPDATE`, id)
	request, err := scanPayout(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, convertErrSentinel(domain.ErrPayoutNotFound, "locking payout request %d", id)
		}
		return nil, convertErr(err, "locking payout request %d", id)
	}
	return request, nil
}

// Resolve переводит pending заявку в терминальный статус решения админа.
func (r *PayoutRepository) Resolve(
	ctx context.Context,
	id int64,
	status domain.PayoutStatus,
	reference, notes string,
) (*domain.PayoutRequest, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE payout_requests
		SET status = $1, reference = NULLIF($2, ''), notes = NULLIF($3, ''),
			processed_at = now(), updated_at = now()
		WHERE id = $4 AND status = 'pending'
		RETURNING `+payoutColumns,
		status, reference, notes, id,
	)
	request, err := scanPayout(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, convertErrSentinel(domain.ErrPayoutNotPending, "resolving payout request %d", id)
		}
		return nil, convertErr(err, "resolving payout request %d", id)
	}
	return request, nil
}

// MarkPaid подтверждает завершение внешнего перевода: approved -> paid.
func (r *PayoutRepository) MarkPaid(ctx context.Context, id int64, reference string) (*domain.PayoutRequest, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE payout_requests
		SET status = 'paid', reference = COALESCE(NULLIF($1, ''), reference), updated_at = now()
		WHERE id = $2 AND status = 'approved'
		RETURNING `+payoutColumns,
		reference, id,
	)
	request, err := scanPayout(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, convertErrSentinel(domain.ErrPayoutNotPending, "marking payout request %d paid", id)
		}
		return nil, convertErr(err, "marking payout request %d paid", id)
	}
	return request, nil
}

func (r *PayoutRepository) GetByUserID(ctx context.Context, userID int64) ([]domain.PayoutRequest, error) {
	return r.list(ctx, `SELECT `+payoutColumns+` FROM payout_requests WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *PayoutRepository) GetByStatus(ctx context.Context, status domain.PayoutStatus) ([]domain.PayoutRequest, error) {
	return r.list(ctx, `SELECT `+payoutColumns+` FROM payout_requests WHERE status = $1 ORDER BY created_at`, status)
}

func (r *PayoutRepository) list(ctx context.Context, query string, arg any) ([]domain.PayoutRequest, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, convertErr(err, "listing payout requests")
	}
	defer rows.Close()

	var requests []domain.PayoutRequest
	for rows.Next() {
		request, scanErr := scanPayout(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "listing payout requests")
		}
		requests = append(requests, *request)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "listing payout requests")
	}
	return requests, nil
}

func scanPayout(row rowScanner) (*domain.PayoutRequest, error) {
	var request domain.PayoutRequest
	var rawAmount string
	err := row.Scan(
		&request.ID,
		&request.CreatedAt,
		&request.UpdatedAt,
		&request.UserID,
		&rawAmount,
		&request.Currency,
		&request.Method,
		&request.Destination,
		&request.Status,
		&request.Reference,
		&request.Notes,
		&request.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	amount, parseErr := parseDecimal(rawAmount)
	if parseErr != nil {
		return nil, parseErr
	}
	request.Amount = amount
	return &request, nil
}
