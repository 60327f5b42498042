package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/phrazzld/bankcards-api/internal/domain"
	"github.com/phrazzld/bankcards-api/internal/platform/logger"
	"github.com/phrazzld/bankcards-api/internal/store"
	"github.com/shopspring/decimal"
)

// TransferInput names the two cards and the amount to move.
type TransferInput struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// TransferService moves money between two cards of the same owner and
// exposes the transfer history.
type TransferService interface {
	// Transfer debits From and credits To by Amount and records the
	// transfer, atomically. Fails with NotFound if either card is missing
	// and with InvalidRequest for a self-transfer, a foreign card, a card
	// that is not ACTIVE, or an amount that is not positive or exceeds the
	// source balance.
	Transfer(ctx context.Context, principal domain.Principal, input TransferInput) (*domain.Transfer, error)

	// List returns all transfers, newest first.
	List(ctx context.Context) ([]*domain.Transfer, error)

	// ListMine returns the principal's transfers, newest first.
	ListMine(ctx context.Context, principal domain.Principal) ([]*domain.Transfer, error)
}

type transferServiceImpl struct {
	db        *sql.DB
	cards     store.CardStore
	transfers store.TransferStore
	timeFunc  func() time.Time
	logger    *slog.Logger
}

var _ TransferService = (*transferServiceImpl)(nil)

// NewTransferService creates a new TransferService.
// It returns an error if any of the required dependencies are nil.
func NewTransferService(
	db *sql.DB,
	cards store.CardStore,
	transfers store.TransferStore,
	logger *slog.Logger,
) (TransferService, error) {
	if db == nil {
		return nil, nilDependency("db")
	}
	if cards == nil {
		return nil, nilDependency("cards")
	}
	if transfers == nil {
		return nil, nilDependency("transfers")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &transferServiceImpl{
		db:        db,
		cards:     cards,
		transfers: transfers,
		timeFunc:  time.Now,
		logger:    logger.With(slog.String("component", "transfer_service")),
	}, nil
}

// Transfer implements TransferService.Transfer.
//
// Both card rows are locked in ascending card-number order so that two
// transfers crossing the same pair cannot deadlock. A business rejection
// still commits the transaction, which keeps any expiration corrections
// made while validating; the money movement only happens on success.
func (s *transferServiceImpl) Transfer(
	ctx context.Context,
	principal domain.Principal,
	input TransferInput,
) (*domain.Transfer, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.timeFunc()

	var (
		result    *domain.Transfer
		rejection error
	)
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)
		transfers := s.transfers.WithTx(tx)

		from, to, err := lockPair(ctx, cards, input.From, input.To)
		if err != nil {
			return err
		}
		if err := heal(ctx, cards, from, now); err != nil {
			return err
		}
		if to != from {
			if err := heal(ctx, cards, to, now); err != nil {
				return err
			}
		}

		if rejection = validateTransfer(principal, from, to, input.Amount); rejection != nil {
			return nil
		}

		from.Balance = from.Balance.Sub(input.Amount)
		to.Balance = to.Balance.Add(input.Amount)
		if err := cards.Update(ctx, from); err != nil {
			return err
		}
		if err := cards.Update(ctx, to); err != nil {
			return err
		}

		transfer := &domain.Transfer{
			UserEmail:      principal.Email,
			FromCardNumber: from.Number,
			ToCardNumber:   to.Number,
			Amount:         input.Amount,
			CreatedAt:      now.UTC(),
		}
		if err := transfers.Create(ctx, transfer); err != nil {
			return err
		}
		result = transfer
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err, "transfer", "transfer")
	}
	if rejection != nil {
		log.Debug("transfer rejected",
			slog.String("from", domain.MaskCardNumber(input.From)),
			slog.String("to", domain.MaskCardNumber(input.To)),
			slog.String("reason", rejection.Error()))
		return nil, rejection
	}

	log.Info("transfer completed",
		slog.Int64("transfer_id", result.ID),
		slog.String("from", domain.MaskCardNumber(result.FromCardNumber)),
		slog.String("to", domain.MaskCardNumber(result.ToCardNumber)),
		slog.String("amount", result.Amount.StringFixed(2)))
	return result, nil
}

// lockPair loads both cards FOR UPDATE in ascending number order. When the
// numbers are equal the row is locked once and returned twice.
func lockPair(ctx context.Context, cards store.CardStore, fromNumber, toNumber string) (*domain.Card, *domain.Card, error) {
	if fromNumber == toNumber {
		card, err := cards.GetByNumberForUpdate(ctx, fromNumber)
		if err != nil {
			return nil, nil, err
		}
		return card, card, nil
	}

	first, second := fromNumber, toNumber
	if second < first {
		first, second = second, first
	}
	a, err := cards.GetByNumberForUpdate(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := cards.GetByNumberForUpdate(ctx, second)
	if err != nil {
		return nil, nil, err
	}
	if a.Number == fromNumber {
		return a, b, nil
	}
	return b, a, nil
}

// validateTransfer applies the business checks in order; the first failure
// wins.
func validateTransfer(principal domain.Principal, from, to *domain.Card, amount decimal.Decimal) error {
	if from.Number == to.Number {
		return domain.Errorf(domain.ErrInvalidRequest, "cannot transfer to the same card")
	}
	if !from.OwnedBy(principal.Email) || !to.OwnedBy(principal.Email) {
		return domain.Errorf(domain.ErrInvalidRequest, "both cards must belong to the current user")
	}
	if from.Status != domain.CardStatusActive || to.Status != domain.CardStatusActive {
		return domain.Errorf(domain.ErrInvalidRequest, "both cards must be active")
	}
	if !amount.IsPositive() {
		return domain.Errorf(domain.ErrInvalidRequest, "amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return domain.Errorf(domain.ErrInvalidRequest, "amount must have at most two decimal places")
	}
	if amount.GreaterThan(from.Balance) {
		return domain.Errorf(domain.ErrInvalidRequest, "insufficient funds")
	}
	return nil
}

// List implements TransferService.List
func (s *transferServiceImpl) List(ctx context.Context) ([]*domain.Transfer, error) {
	transfers, err := s.transfers.List(ctx)
	if err != nil {
		return nil, translateStoreError(err, "transfer", "list")
	}
	return transfers, nil
}

// ListMine implements TransferService.ListMine
func (s *transferServiceImpl) ListMine(ctx context.Context, principal domain.Principal) ([]*domain.Transfer, error) {
	transfers, err := s.transfers.ListByUser(ctx, principal.Email)
	if err != nil {
		return nil, translateStoreError(err, "transfer", "list")
	}
	return transfers, nil
}
