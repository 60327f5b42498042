package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/bankcards-api/internal/domain"
	"github.com/phrazzld/bankcards-api/internal/platform/logger"
	"github.com/phrazzld/bankcards-api/internal/store"
	"github.com/shopspring/decimal"
)

// CreateCardInput describes a card an administrator issues.
type CreateCardInput struct {
	Number         string
	OwnerEmail     string
	ValidityMonths int
	Balance        decimal.Decimal
}

// CardService provides card administration and the owner's view of cards.
type CardService interface {
	// Create issues an ACTIVE card to an existing user.
	Create(ctx context.Context, input CreateCardInput) (*domain.Card, error)

	// Block sets a card to BLOCKED. Expired cards yield Conflict.
	Block(ctx context.Context, number string) (*domain.Card, error)

	// Activate sets a card to ACTIVE and clears any block request.
	// Expired cards yield Conflict.
	Activate(ctx context.Context, number string) (*domain.Card, error)

	// Delete removes a card.
	Delete(ctx context.Context, number string) error

	// List returns every card.
	List(ctx context.Context) ([]*domain.Card, error)

	// ListMine returns the principal's cards.
	ListMine(ctx context.Context, principal domain.Principal) ([]*domain.Card, error)

	// Get returns one of the principal's cards. Foreign cards are NotFound.
	Get(ctx context.Context, principal domain.Principal, number string) (*domain.Card, error)

	// RequestBlock flags one of the principal's cards for blocking by an
	// administrator.
	RequestBlock(ctx context.Context, principal domain.Principal, number string) (*domain.Card, error)

	// TotalBalance sums the balances of the principal's ACTIVE cards.
	TotalBalance(ctx context.Context, principal domain.Principal) (decimal.Decimal, error)

	// ExpireDue marks every card past its expiration date as EXPIRED and
	// returns how many changed.
	ExpireDue(ctx context.Context) (int64, error)
}

type cardServiceImpl struct {
	cards    store.CardStore
	users    store.UserStore
	timeFunc func() time.Time
	logger   *slog.Logger
}

var _ CardService = (*cardServiceImpl)(nil)

// NewCardService creates a new CardService.
// It returns an error if any of the required dependencies are nil.
func NewCardService(
	cards store.CardStore,
	users store.UserStore,
	logger *slog.Logger,
) (CardService, error) {
	if cards == nil {
		return nil, nilDependency("cards")
	}
	if users == nil {
		return nil, nilDependency("users")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &cardServiceImpl{
		cards:    cards,
		users:    users,
		timeFunc: time.Now,
		logger:   logger.With(slog.String("component", "card_service")),
	}, nil
}

// Create implements CardService.Create
func (s *cardServiceImpl) Create(ctx context.Context, input CreateCardInput) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	owner, err := s.users.GetByEmail(ctx, input.OwnerEmail)
	if err != nil {
		return nil, translateStoreError(err, "card", "create")
	}

	card, err := domain.NewCard(input.Number, owner, input.ValidityMonths, input.Balance, s.timeFunc())
	if err != nil {
		return nil, err
	}

	exists, err := s.cards.ExistsByNumber(ctx, card.Number)
	if err != nil {
		return nil, translateStoreError(err, "card", "create")
	}
	if exists {
		return nil, domain.Errorf(domain.ErrConflict, "card with this number already exists")
	}

	if err := s.cards.Create(ctx, card); err != nil {
		return nil, translateStoreError(err, "card", "create")
	}

	log.Info("card issued",
		slog.String("card", card.Masked()),
		slog.Int("validity_months", input.ValidityMonths))
	return card, nil
}

// Block implements CardService.Block
func (s *cardServiceImpl) Block(ctx context.Context, number string) (*domain.Card, error) {
	return s.setStatus(ctx, number, "block", func(card *domain.Card) {
		card.Status = domain.CardStatusBlocked
	})
}

// Activate implements CardService.Activate
func (s *cardServiceImpl) Activate(ctx context.Context, number string) (*domain.Card, error) {
	return s.setStatus(ctx, number, "activate", func(card *domain.Card) {
		card.Status = domain.CardStatusActive
		card.BlockRequested = false
	})
}

func (s *cardServiceImpl) setStatus(
	ctx context.Context,
	number, operation string,
	apply func(*domain.Card),
) (*domain.Card, error) {
	card, err := s.load(ctx, number, operation)
	if err != nil {
		return nil, err
	}
	if card.Status == domain.CardStatusExpired {
		return nil, domain.Errorf(domain.ErrConflict, "card is expired")
	}

	apply(card)
	if err := s.cards.Update(ctx, card); err != nil {
		return nil, translateStoreError(err, "card", operation)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("card status changed",
		slog.String("card", card.Masked()),
		slog.String("status", string(card.Status)))
	return card, nil
}

// Delete implements CardService.Delete
func (s *cardServiceImpl) Delete(ctx context.Context, number string) error {
	if err := s.cards.Delete(ctx, number); err != nil {
		return translateStoreError(err, "card", "delete")
	}
	return nil
}

// List implements CardService.List
func (s *cardServiceImpl) List(ctx context.Context) ([]*domain.Card, error) {
	cards, err := s.cards.List(ctx)
	if err != nil {
		return nil, translateStoreError(err, "card", "list")
	}
	return s.healAll(ctx, cards, "list")
}

// ListMine implements CardService.ListMine
func (s *cardServiceImpl) ListMine(ctx context.Context, principal domain.Principal) ([]*domain.Card, error) {
	cards, err := s.cards.ListByOwner(ctx, principal.Email)
	if err != nil {
		return nil, translateStoreError(err, "card", "list")
	}
	return s.healAll(ctx, cards, "list")
}

// Get implements CardService.Get
func (s *cardServiceImpl) Get(
	ctx context.Context,
	principal domain.Principal,
	number string,
) (*domain.Card, error) {
	return s.loadOwned(ctx, principal, number, "get")
}

// RequestBlock implements CardService.RequestBlock
func (s *cardServiceImpl) RequestBlock(
	ctx context.Context,
	principal domain.Principal,
	number string,
) (*domain.Card, error) {
	card, err := s.loadOwned(ctx, principal, number, "request_block")
	if err != nil {
		return nil, err
	}
	if card.Status == domain.CardStatusExpired {
		return nil, domain.Errorf(domain.ErrInvalidRequest, "card is expired")
	}

	card.BlockRequested = true
	if err := s.cards.Update(ctx, card); err != nil {
		return nil, translateStoreError(err, "card", "request_block")
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("card block requested",
		slog.String("card", card.Masked()))
	return card, nil
}

// TotalBalance implements CardService.TotalBalance
func (s *cardServiceImpl) TotalBalance(ctx context.Context, principal domain.Principal) (decimal.Decimal, error) {
	cards, err := s.ListMine(ctx, principal)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, card := range cards {
		if card.Status == domain.CardStatusActive {
			total = total.Add(card.Balance)
		}
	}
	return total, nil
}

// ExpireDue implements CardService.ExpireDue
func (s *cardServiceImpl) ExpireDue(ctx context.Context) (int64, error) {
	n, err := s.cards.ExpireDue(ctx, s.timeFunc())
	if err != nil {
		return 0, translateStoreError(err, "card", "expire")
	}
	return n, nil
}

// load fetches a card and applies the expiration self-heal.
func (s *cardServiceImpl) load(ctx context.Context, number, operation string) (*domain.Card, error) {
	card, err := s.cards.GetByNumber(ctx, number)
	if err != nil {
		return nil, translateStoreError(err, "card", operation)
	}
	if err := heal(ctx, s.cards, card, s.timeFunc()); err != nil {
		return nil, translateStoreError(err, "card", operation)
	}
	return card, nil
}

func (s *cardServiceImpl) loadOwned(
	ctx context.Context,
	principal domain.Principal,
	number, operation string,
) (*domain.Card, error) {
	card, err := s.cards.GetByNumber(ctx, number)
	if err != nil {
		return nil, translateStoreError(err, "card", operation)
	}
	if !card.OwnedBy(principal.Email) {
		return nil, errCardNotFound
	}
	if err := heal(ctx, s.cards, card, s.timeFunc()); err != nil {
		return nil, translateStoreError(err, "card", operation)
	}
	return card, nil
}

func (s *cardServiceImpl) healAll(ctx context.Context, cards []*domain.Card, operation string) ([]*domain.Card, error) {
	now := s.timeFunc()
	for _, card := range cards {
		if err := heal(ctx, s.cards, card, now); err != nil {
			return nil, translateStoreError(err, "card", operation)
		}
	}
	return cards, nil
}

// heal persists the EXPIRED status of a card whose expiration date has
// passed. Cards that need no correction cause no write.
func heal(ctx context.Context, cards store.CardStore, card *domain.Card, now time.Time) error {
	if !card.RefreshStatus(now) {
		return nil
	}
	if err := cards.Update(ctx, card); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("card expired on access",
		slog.String("card", card.Masked()),
		slog.Time("expiration_date", card.ExpirationDate))
	return nil
}
