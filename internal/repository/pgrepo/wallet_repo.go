package pgrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/pkg/uow"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type WalletRepository struct {
	db uow.DBTX
}

func NewWalletRepository(db uow.DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

const walletColumns = `id, created_at, updated_at, user_id, balance::text, currency, is_active`

// GetOrCreate возвращает кошелек юзера, создавая его с нулевым балансом при первом обращении.
// Вставка идемпотентна за счет ON CONFLICT DO NOTHING по уникальному user_id.
func (r *WalletRepository) GetOrCreate(ctx context.Context, userID int64, currency string) (*domain.Wallet, error) {
	_, execErr := r.db.Exec(ctx, `
		INSERT INTO wallets (user_id, currency)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, currency,
	)
	if execErr != nil {
		return nil, convertErr(execErr, "creating wallet for user %d", userID)
	}
	return r.FindByUserID(ctx, userID)
}

func (r *WalletRepository) FindByUserID(ctx context.Context, userID int64) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	wallet, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("[repository/finding wallet of user %d] %w", userID, domain.ErrWalletNotFound)
		}
		return nil, convertErr(err, "finding wallet of user %d", userID)
	}
	return wallet, nil
}

func (r *WalletRepository) FindByID(ctx context.Context, id int64) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	wallet, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("[repository/finding wallet %d] %w", id, domain.ErrWalletNotFound)
		}
		return nil, convertErr(err, "finding wallet %d", id)
	}
	return wallet, nil
}

// Credit безусловно увеличивает баланс активного кошелька.
func (r *WalletRepository) Credit(ctx context.Context, walletID int64, amount decimal.Decimal) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE wallets
		SET balance = balance + $1, updated_at = now()
		WHERE id = $2 AND is_active
		RETURNING `+walletColumns,
		amount.String(), walletID,
	)
	wallet, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyMissingUpdate(ctx, walletID)
		}
		return nil, convertErr(err, "crediting wallet %d", walletID)
	}
	return wallet, nil
}

// Debit уменьшает баланс условным обновлением: строка затрагивается только когда
// balance >= amount. Проверка достаточности средств и само списание - один SQL оператор,
// поэтому параллельные дебеты не могут увести баланс в минус.
func (r *WalletRepository) Debit(ctx context.Context, walletID int64, amount decimal.Decimal) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE wallets
		SET balance = balance - $1, updated_at = now()
		WHERE id = $2 AND is_active AND balance >= $1
		RETURNING `+walletColumns,
		amount.String(), walletID,
	)
	wallet, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			classified := r.classifyMissingUpdate(ctx, walletID)
			if errors.Is(classified, domain.ErrWalletNotFound) || errors.Is(classified, domain.ErrWalletInactive) {
				return nil, classified
			}
			return nil, fmt.Errorf("[repository/debiting wallet %d] %w", walletID, domain.ErrInsufficientFunds)
		}
		return nil, convertErr(err, "debiting wallet %d", walletID)
	}
	return wallet, nil
}

// classifyMissingUpdate выясняет, почему условный UPDATE не затронул ни одной строки.
func (r *WalletRepository) classifyMissingUpdate(ctx context.Context, walletID int64) error {
	wallet, findErr := r.FindByID(ctx, walletID)
	if findErr != nil {
		return findErr
	}
	if !wallet.IsActive {
		return fmt.Errorf("[repository/updating wallet %d] %w", walletID, domain.ErrWalletInactive)
	}
	return fmt.Errorf("[repository/updating wallet %d] %w", walletID, domain.ErrInsufficientFunds)
}

func scanWallet(row rowScanner) (*domain.Wallet, error) {
	var wallet domain.Wallet
	var rawBalance string
	err := row.Scan(
		&wallet.ID,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
		&wallet.UserID,
		&rawBalance,
		&wallet.Currency,
		&wallet.IsActive,
	)
	if err != nil {
		return nil, err
	}
	balance, parseErr := parseDecimal(rawBalance)
	if parseErr != nil {
		return nil, parseErr
	}
	wallet.Balance = balance
	return &wallet, nil
}
