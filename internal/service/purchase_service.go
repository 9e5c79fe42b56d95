package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avkozlov/edumarket/internal/domain"
	"github.com/avkozlov/edumarket/internal/repository/repoargs"
	"github.com/avkozlov/edumarket/pkg/uow"
	"github.com/shopspring/decimal"
)

const (
	// RefundWindow - срок, в течение которого завершенная покупка подлежит возврату.
	RefundWindow = 30 * 24 * time.Hour

	// DefaultSessionAccessLead - если вызывающий не задал срок доступа для курса
	// с живой сессией, доступ открывается до момента за 24 часа до её начала.
	DefaultSessionAccessLead = 24 * time.Hour
)

// PurchaseService управляет покупками и правами доступа к курсам. Баланс он сам
// не трогает: все денежные эффекты идут через TransactionService или через
// леджерные репозитории внутри одной транзакции БД.
type PurchaseService struct {
	uow          uow.UOW
	purchaseRepo PurchaseRepository
	courseRepo   CourseRepository
	gateway      PaymentGateway
}

func NewPurchaseService(u uow.UOW, gateway PaymentGateway) (*PurchaseService, error) {
	purchaseRepo, purchaseRepoErr := uow.GetRepositoryAs[PurchaseRepository](u, uow.RepositoryName(repoargs.PurchaseRepoName))
	if purchaseRepoErr != nil {
		return nil, purchaseRepoErr
	}
	courseRepo, courseRepoErr := uow.GetRepositoryAs[CourseRepository](u, uow.RepositoryName(repoargs.CourseRepoName))
	if courseRepoErr != nil {
		return nil, courseRepoErr
	}
	return &PurchaseService{
		uow:          u,
		purchaseRepo: purchaseRepo,
		courseRepo:   courseRepo,
		gateway:      gateway,
	}, nil
}

type PurchaseCourseArgs struct {
	UserID          int64
	CourseID        int64
	Type            domain.PurchaseType
	Method          domain.PaymentMethod
	AccessExpiresAt *time.Time
}

// PurchaseCourse покупает курс.
//
// Алгоритм работы:
//  1. Курс должен продаваться, повторная покупка того же (юзер, курс, тип) отклоняется
//     с AlreadyPurchasedError до какого-либо списания.
//  2. Оплата кошельком: списание, проводка и выдача доступа - одна транзакция БД.
//  3. Оплата шлюзом: создается платеж на стороне провайдера и pending пара
//     покупка+транзакция; права выдаются позже, после подтверждения итога платежа.
func (s *PurchaseService) PurchaseCourse(ctx context.Context, args PurchaseCourseArgs) (*domain.Purchase, error) {
	course, courseErr := s.courseRepo.FindByID(ctx, args.CourseID)
	if courseErr != nil {
		return nil, courseErr //nolint:wrapcheck
	}
	if !course.ForSale {
		return nil, domain.ErrCourseNotForSale
	}

	if existing, findErr := s.purchaseRepo.FindCompleted(ctx, args.UserID, args.CourseID, args.Type); findErr == nil {
		return nil, domain.NewAlreadyPurchasedError(existing)
	} else if !errors.Is(findErr, domain.ErrPurchaseNotFound) {
		return nil, findErr //nolint:wrapcheck
	}

	accessExpiresAt := resolveAccessExpiry(args.AccessExpiresAt, course)

	if args.Method.IsGateway() && course.Price.IsPositive() {
		return s.beginGatewayPurchase(ctx, args, course, accessExpiresAt)
	}
	return s.purchaseWithWallet(ctx, args, course, accessExpiresAt)
}

// purchaseWithWallet проводит покупку за счет внутреннего кошелька (или бесплатную).
func (s *PurchaseService) purchaseWithWallet(
	ctx context.Context,
	args PurchaseCourseArgs,
	course *domain.Course,
	accessExpiresAt *time.Time,
) (*domain.Purchase, error) {
	var result *domain.Purchase
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		purchased, purchaseErr := s.purchaseCourseInTx(c, tx, args, course, accessExpiresAt)
		if purchaseErr != nil {
			return purchaseErr
		}
		result = purchased
		return nil
	})

	if txErr != nil {
		if errors.Is(txErr, domain.ErrDuplicateKey) {
			// Проиграли гонку за право: покупка уже проведена параллельным запросом.
			existing, findErr := s.purchaseRepo.FindCompleted(ctx, args.UserID, args.CourseID, args.Type)
			if findErr != nil {
				return nil, fmt.Errorf("purchasing course %d: %w", args.CourseID, findErr)
			}
			return nil, domain.NewAlreadyPurchasedError(existing)
		}
		return nil, fmt.Errorf("purchasing course %d: %w", args.CourseID, txErr)
	}
	return result, nil
}

// purchaseCourseInTx - общий для одиночной покупки и корзины шаг: списание с кошелька,
// проводка и завершенная покупка со снимком файлов, все внутри переданной транзакции.
func (s *PurchaseService) purchaseCourseInTx(
	ctx context.Context,
	tx uow.TX,
	args PurchaseCourseArgs,
	course *domain.Course,
	accessExpiresAt *time.Time,
) (*domain.Purchase, error) {
	walletRepo, walletRepoErr := uow.GetAs[WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
	if walletRepoErr != nil {
		return nil, walletRepoErr //nolint:wrapcheck
	}
	txRepo, txRepoErr := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
	if txRepoErr != nil {
		return nil, txRepoErr //nolint:wrapcheck
	}
	purchaseRepo, purchaseRepoErr := uow.GetAs[PurchaseRepository](tx, uow.RepositoryName(repoargs.PurchaseRepoName))
	if purchaseRepoErr != nil {
		return nil, purchaseRepoErr //nolint:wrapcheck
	}

	wallet, walletErr := walletRepo.GetOrCreate(ctx, args.UserID, course.Currency)
	if walletErr != nil {
		return nil, walletErr //nolint:wrapcheck
	}

	if course.Price.IsPositive() {
		if _, debitErr := walletRepo.Debit(ctx, wallet.ID, course.Price); debitErr != nil {
			return nil, debitErr //nolint:wrapcheck
		}
		if _, createErr := txRepo.Create(ctx, repoargs.TransactionCreate{
			WalletID:        wallet.ID,
			Type:            domain.TransactionPurchase,
			Amount:          course.Price,
			Currency:        course.Currency,
			Description:     fmt.Sprintf("Purchase of course %q", course.Title),
			Status:          domain.TransactionStatusCompleted,
			Method:          domain.MethodWallet,
			RelatedCourseID: course.ID,
		}); createErr != nil {
			return nil, createErr //nolint:wrapcheck
		}
	}

	purchased, purchaseErr := purchaseRepo.Create(ctx, repoargs.PurchaseCreate{
		UserID:          args.UserID,
		CourseID:        course.ID,
		Type:            args.Type,
		Amount:          course.Price,
		Currency:        course.Currency,
		Method:          domain.MethodWallet,
		Status:          domain.PurchaseStatusCompleted,
		AccessExpiresAt: accessExpiresAt,
		Files:           snapshotFiles(course),
	})
	if purchaseErr != nil {
		return nil, purchaseErr //nolint:wrapcheck
	}
	return purchased, nil
}

// beginGatewayPurchase создает платеж у провайдера и pending пару покупка+транзакция,
// связанные общей ссылкой провайдера. Доступ будет выдан после подтверждения оплаты.
func (s *PurchaseService) beginGatewayPurchase(
	ctx context.Context,
	args PurchaseCourseArgs,
	course *domain.Course,
	accessExpiresAt *time.Time,
) (*domain.Purchase, error) {
	providerRef, paymentErr := s.gateway.CreatePayment(
		ctx, args.Method, course.Price, course.Currency, fmt.Sprintf("Course %q", course.Title),
	)
	if paymentErr != nil {
		return nil, fmt.Errorf("creating %s payment for course %d: %w", args.Method, course.ID, paymentErr)
	}

	var result *domain.Purchase
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		txRepo, txRepoErr := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		if txRepoErr != nil {
			return txRepoErr //nolint:wrapcheck
		}
		purchaseRepo, purchaseRepoErr := uow.GetAs[PurchaseRepository](tx, uow.RepositoryName(repoargs.PurchaseRepoName))
		if purchaseRepoErr != nil {
			return purchaseRepoErr //nolint:wrapcheck
		}
		walletRepo, walletRepoErr := uow.GetAs[WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
		if walletRepoErr != nil {
			return walletRepoErr //nolint:wrapcheck
		}

		wallet, walletErr := walletRepo.GetOrCreate(c, args.UserID, course.Currency)
		if walletErr != nil {
			return walletErr //nolint:wrapcheck
		}

		if _, createErr := txRepo.Create(c, repoargs.TransactionCreate{
			WalletID:        wallet.ID,
			Type:            domain.TransactionPurchase,
			Amount:          course.Price,
			Currency:        course.Currency,
			Description:     fmt.Sprintf("Purchase of course %q", course.Title),
			Status:          domain.TransactionStatusPending,
			Method:          args.Method,
			ProviderRef:     providerRef,
			RelatedCourseID: course.ID,
		}); createErr != nil {
			return createErr //nolint:wrapcheck
		}

		purchased, purchaseErr := purchaseRepo.Create(c, repoargs.PurchaseCreate{
			UserID:          args.UserID,
			CourseID:        course.ID,
			Type:            args.Type,
			Amount:          course.Price,
			Currency:        course.Currency,
			Method:          args.Method,
			Status:          domain.PurchaseStatusPending,
			ProviderRef:     providerRef,
			AccessExpiresAt: accessExpiresAt,
		})
		if purchaseErr != nil {
			return purchaseErr //nolint:wrapcheck
		}
		result = purchased
		return nil
	})

	if txErr != nil {
		return nil, fmt.Errorf("purchasing course %d via %s: %w", args.CourseID, args.Method, txErr)
	}
	return result, nil
}

// FinalizePaid выдает права по покупке, оплаченной через внешний шлюз. Вызывается
// после того, как леджер провел соответствующую транзакцию. Повторный вызов
// безопасен: завершенная покупка возвращается как есть, поэтому запись прав можно
// ретраить не опасаясь повторного списания.
func (s *PurchaseService) FinalizePaid(ctx context.Context, providerRef string) (*domain.Purchase, error) {
	var result *domain.Purchase
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		purchaseRepo, purchaseRepoErr := uow.GetAs[PurchaseRepository](tx, uow.RepositoryName(repoargs.PurchaseRepoName))
		if purchaseRepoErr != nil {
			return purchaseRepoErr //nolint:wrapcheck
		}
		courseRepo, courseRepoErr := uow.GetAs[CourseRepository](tx, uow.RepositoryName(repoargs.CourseRepoName))
		if courseRepoErr != nil {
			return courseRepoErr //nolint:wrapcheck
		}

		purchase, findErr := purchaseRepo.FindByProviderRef(c, providerRef)
		if findErr != nil {
			return findErr //nolint:wrapcheck
		}

		course, courseErr := courseRepo.FindByID(c, purchase.CourseID)
		if courseErr != nil {
			return courseErr //nolint:wrapcheck
		}

		completed, completeErr := purchaseRepo.CompletePending(c, purchase.ID, snapshotFiles(course))
		if completeErr != nil {
			return completeErr //nolint:wrapcheck
		}
		result = completed
		return nil
	})

	if txErr != nil {
		return nil, fmt.Errorf("finalizing purchase %s: %w", providerRef, txErr)
	}
	return result, nil
}

// FailByProviderRef помечает pending покупку проваленной после отказа провайдера.
func (s *PurchaseService) FailByProviderRef(ctx context.Context, providerRef string) error {
	purchase, findErr := s.purchaseRepo.FindByProviderRef(ctx, providerRef)
	if findErr != nil {
		return findErr //nolint:wrapcheck
	}
	if purchase.Status != domain.PurchaseStatusPending {
		return nil
	}
	if failErr := s.purchaseRepo.MarkFailed(ctx, purchase.ID); failErr != nil {
		if errors.Is(failErr, domain.ErrPurchaseNotFound) {
			return nil
		}
		return failErr //nolint:wrapcheck
	}
	return nil
}

type CartResult struct {
	Purchased []domain.Purchase
	SkippedID []int64
	Total     decimal.Decimal
}

// PurchaseCart покупает набор курсов за счет внутреннего кошелька.
//
// Уже купленные и снятые с продажи курсы пропускаются, а не валят всю корзину.
// Остальное - одна транзакция БД: единое списание общей суммы, по-курсовые проводки
// и права выдаются все вместе или не выдаются вовсе. Исходная схема "списали сумму,
// а права пишем по одному" оставляла окно с деньгами без прав; здесь выбран строгий
// вариант все-или-ничего.
func (s *PurchaseService) PurchaseCart(ctx context.Context, userID int64, courseIDs []int64) (*CartResult, error) {
	if len(courseIDs) == 0 {
		return &CartResult{Total: decimal.Zero}, nil
	}

	courses, coursesErr := s.courseRepo.FindManyByIDs(ctx, courseIDs)
	if coursesErr != nil {
		return nil, coursesErr //nolint:wrapcheck
	}

	result := &CartResult{Total: decimal.Zero}
	var payable []domain.Course
	for _, course := range courses {
		if !course.ForSale {
			result.SkippedID = append(result.SkippedID, course.ID)
			continue
		}
		_, findErr := s.purchaseRepo.FindCompleted(ctx, userID, course.ID, domain.PurchaseFullCourse)
		if findErr == nil {
			result.SkippedID = append(result.SkippedID, course.ID)
			continue
		}
		if !errors.Is(findErr, domain.ErrPurchaseNotFound) {
			return nil, findErr //nolint:wrapcheck
		}
		payable = append(payable, course)
		result.Total = result.Total.Add(course.Price)
	}

	if len(payable) == 0 {
		return result, nil
	}

	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		for i := range payable {
			course := payable[i]
			purchased, purchaseErr := s.purchaseCourseInTx(c, tx, PurchaseCourseArgs{
				UserID:   userID,
				CourseID: course.ID,
				Type:     domain.PurchaseFullCourse,
				Method:   domain.MethodWallet,
			}, &course, resolveAccessExpiry(nil, &course))
			if purchaseErr != nil {
				return purchaseErr
			}
			result.Purchased = append(result.Purchased, *purchased)
		}
		return nil
	})

	if txErr != nil {
		result.Purchased = nil
		if errors.Is(txErr, domain.ErrDuplicateKey) {
			return nil, fmt.Errorf("purchasing cart: %w", domain.NewAlreadyPurchasedError(&domain.Purchase{UserID: userID}))
		}
		return nil, fmt.Errorf("purchasing cart: %w", txErr)
	}
	return result, nil
}

// Download выдает файл из снимка покупки и увеличивает счетчик скачиваний.
// Проверка доступа и инкремент идут под строковой блокировкой покупки: параллельный
// рефанд либо дождется выдачи, либо отберет доступ до неё - но не между проверкой и записью.
func (s *PurchaseService) Download(ctx context.Context, userID, courseID, fileID int64) (*domain.PurchasedFile, error) {
	var result *domain.PurchasedFile
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		purchaseRepo, purchaseRepoErr := uow.GetAs[PurchaseRepository](tx, uow.RepositoryName(repoargs.PurchaseRepoName))
		if purchaseRepoErr != nil {
			return purchaseRepoErr //nolint:wrapcheck
		}

		purchase, findErr := purchaseRepo.FindGrantedForUpdate(c, userID, courseID)
		if findErr != nil {
			return findErr //nolint:wrapcheck
		}

		if purchase.AccessExpiresAt != nil && time.Now().After(*purchase.AccessExpiresAt) {
			return domain.ErrAccessExpired
		}

		fileIdx := -1
		for i := range purchase.Files {
			if purchase.Files[i].FileID == fileID {
				fileIdx = i
				break
			}
		}
		if fileIdx < 0 {
			return domain.ErrRecordNotFound
		}

		now := time.Now()
		purchase.Files[fileIdx].DownloadCount++
		purchase.Files[fileIdx].LastDownloaded = &now

		if updateErr := purchaseRepo.UpdateFiles(c, purchase.ID, purchase.Files); updateErr != nil {
			return updateErr //nolint:wrapcheck
		}

		file := purchase.Files[fileIdx]
		result = &file
		return nil
	})

	if txErr != nil {
		return nil, fmt.Errorf("downloading file %d of course %d: %w", fileID, courseID, txErr)
	}
	return result, nil
}

// Refund возвращает завершенную покупку в пределах окна возврата. Доступ отзывается
// навсегда; если платили кошельком, исходная сумма зачисляется обратно refund транзакцией.
func (s *PurchaseService) Refund(ctx context.Context, userID, purchaseID int64) (*domain.Purchase, error) {
	var result *domain.Purchase
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		purchaseRepo, purchaseRepoErr := uow.GetAs[PurchaseRepository](tx, uow.RepositoryName(repoargs.PurchaseRepoName))
		if purchaseRepoErr != nil {
			return purchaseRepoErr //nolint:wrapcheck
		}

		purchase, findErr := purchaseRepo.FindByID(c, purchaseID)
		if findErr != nil {
			return findErr //nolint:wrapcheck
		}
		// чужую покупку не раскрываем, отвечаем как на несуществующую.
		if purchase.UserID != userID {
			return domain.ErrPurchaseNotFound
		}
		if purchase.Status != domain.PurchaseStatusCompleted {
			return domain.ErrPurchaseNotFound
		}
		if purchase.PurchasedAt == nil || time.Since(*purchase.PurchasedAt) > RefundWindow {
			return domain.ErrRefundWindowExpired
		}

		revoked, revokeErr := purchaseRepo.Revoke(c, purchase.ID)
		if revokeErr != nil {
			return revokeErr //nolint:wrapcheck
		}

		if purchase.Method == domain.MethodWallet && purchase.Amount.IsPositive() {
			if creditErr := s.creditRefund(c, tx, revoked); creditErr != nil {
				return creditErr
			}
		}
		result = revoked
		return nil
	})

	if txErr != nil {
		return nil, fmt.Errorf("refunding purchase %d: %w", purchaseID, txErr)
	}
	return result, nil
}

func (s *PurchaseService) creditRefund(ctx context.Context, tx uow.TX, purchase *domain.Purchase) error {
	walletRepo, walletRepoErr := uow.GetAs[WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
	if walletRepoErr != nil {
		return walletRepoErr //nolint:wrapcheck
	}
	txRepo, txRepoErr := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
	if txRepoErr != nil {
		return txRepoErr //nolint:wrapcheck
	}

	wallet, walletErr := walletRepo.GetOrCreate(ctx, purchase.UserID, purchase.Currency)
	if walletErr != nil {
		return walletErr //nolint:wrapcheck
	}
	if _, creditErr := walletRepo.Credit(ctx, wallet.ID, purchase.Amount); creditErr != nil {
		return creditErr //nolint:wrapcheck
	}
	if _, createErr := txRepo.Create(ctx, repoargs.TransactionCreate{
		WalletID:        wallet.ID,
		Type:            domain.TransactionRefund,
		Amount:          purchase.Amount,
		Currency:        purchase.Currency,
		Description:     fmt.Sprintf("Refund of purchase %d", purchase.ID),
		Status:          domain.TransactionStatusCompleted,
		Method:          domain.MethodWallet,
		RelatedCourseID: purchase.CourseID,
	}); createErr != nil {
		return createErr //nolint:wrapcheck
	}
	return nil
}

// GetByUserID возвращает покупки юзера, новые первыми.
func (s *PurchaseService) GetByUserID(ctx context.Context, userID int64) ([]domain.Purchase, error) {
	purchases, err := s.purchaseRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return purchases, nil
}

// resolveAccessExpiry вычисляет срок доступа: явный от вызывающего, иначе для курсов
// с живой сессией - за сутки до её начала.
func resolveAccessExpiry(explicit *time.Time, course *domain.Course) *time.Time {
	if explicit != nil {
		return explicit
	}
	if course.SessionStartsAt != nil {
		expiry := course.SessionStartsAt.Add(-DefaultSessionAccessLead)
		return &expiry
	}
	return nil
}

func snapshotFiles(course *domain.Course) []domain.PurchasedFile {
	var files = make([]domain.PurchasedFile, len(course.Files))
	for i, file := range course.Files {
		files[i] = domain.PurchasedFile{
			FileID:   file.ID,
			Filename: file.Name,
			FileType: file.FileType,
			FileURL:  file.URL,
		}
	}
	return files
}
