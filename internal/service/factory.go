package service

import (
	"fmt"

	"github.com/avkozlov/edumarket/pkg/uow"
)

type AppServices struct {
	UserService        *UserService
	WalletService      *WalletService
	TransactionService *TransactionService
	PurchaseService    *PurchaseService
	PayoutService      *PayoutService
}

func Factory(unitOfWork uow.UOW, hasher PasswordHasher, gateway PaymentGateway, jwtSecret []byte) (*AppServices, error) {
	userService, userServiceErr := NewUserService(unitOfWork, hasher, jwtSecret)
	if userServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", userServiceErr.Error())
	}

	walletService, walletServiceErr := NewWalletService(unitOfWork)
	if walletServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", walletServiceErr.Error())
	}

	transactionService, transactionServiceErr := NewTransactionService(unitOfWork)
	if transactionServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", transactionServiceErr.Error())
	}

	purchaseService, purchaseServiceErr := NewPurchaseService(unitOfWork, gateway)
	if purchaseServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", purchaseServiceErr.Error())
	}

	payoutService, payoutServiceErr := NewPayoutService(unitOfWork)
	if payoutServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", payoutServiceErr.Error())
	}

	return &AppServices{
		UserService:        userService,
		WalletService:      walletService,
		TransactionService: transactionService,
		PurchaseService:    purchaseService,
		PayoutService:      payoutService,
	}, nil
}
