package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/models"
	"github.com/property-shares/backend/internal/rbac"
)

const defaultReplayPageSize = 200

type Options struct {
	MinSaleWindow       time.Duration
	MaxSaleWindow       time.Duration
	MinProposalDuration time.Duration
	MaxProposalDuration time.Duration
	// WeightPolicy is models.WeightAtVoteTime or models.WeightAtCreation.
	WeightPolicy   string
	ReplayPageSize int
}

func DefaultOptions() Options {
	return Options{
		MinSaleWindow:       time.Hour,
		MaxSaleWindow:       90 * 24 * time.Hour,
		MinProposalDuration: time.Hour,
		MaxProposalDuration: 30 * 24 * time.Hour,
		WeightPolicy:        models.WeightAtVoteTime,
		ReplayPageSize:      defaultReplayPageSize,
	}
}

// Engine is the share ledger. Its state is a projection of the journal:
// every mutation validates and stages events under the owning locks, appends
// them to the journal and only then applies them. A failed append leaves the
// state untouched.
//
// Lock order: regMu / adminMu, then property locks in ascending id order,
// then mu. mu is a leaf and is never held while acquiring another lock.
type Engine struct {
	journal  Journal
	clock    Clock
	identity IdentityChecker
	rates    RateSource
	opts     Options
	log      *zap.Logger

	regMu   sync.Mutex
	adminMu sync.Mutex

	mu            sync.RWMutex
	requests      map[uuid.UUID]*models.PropertyRequest
	requestOrder  []uuid.UUID
	properties    map[uuid.UUID]*propertyState
	propertyOrder []uuid.UUID
	settings      models.Settings
	paymentRefs   map[string]struct{}
	pendingRefs   map[string]struct{}
	listingIndex  map[uuid.UUID]uuid.UUID
	proposalIndex map[uuid.UUID]uuid.UUID
	lastSeq       int64
}

type propertyState struct {
	mu       sync.RWMutex
	property models.Property

	balances map[string]uint64
	issued   uint64

	orders   []*models.Order
	reserved uint64
	claims   map[string]*models.PendingClaim

	listings     map[uuid.UUID]*models.Listing
	listingOrder []uuid.UUID
	listed       map[string]uint64

	periods     []*models.RentPeriod
	rentClaimed map[string]uint64

	proposals     map[uuid.UUID]*proposalState
	proposalOrder []uuid.UUID
}

type proposalState struct {
	proposal models.Proposal
	votes    map[string]models.Vote
	snapshot map[string]uint64
}

func newPropertyState(p models.Property) *propertyState {
	return &propertyState{
		property:    p,
		balances:    make(map[string]uint64),
		claims:      make(map[string]*models.PendingClaim),
		listings:    make(map[uuid.UUID]*models.Listing),
		listed:      make(map[string]uint64),
		rentClaimed: make(map[string]uint64),
		proposals:   make(map[uuid.UUID]*proposalState),
	}
}

func New(journal Journal, clock Clock, identity IdentityChecker, rates RateSource, opts Options, log *zap.Logger) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	if identity == nil {
		identity = AllowAll{}
	}
	if rates == nil {
		rates = StableOnly{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ReplayPageSize <= 0 {
		opts.ReplayPageSize = defaultReplayPageSize
	}
	if opts.WeightPolicy == "" {
		opts.WeightPolicy = models.WeightAtVoteTime
	}
	return &Engine{
		journal:       journal,
		clock:         clock,
		identity:      identity,
		rates:         rates,
		opts:          opts,
		log:           log,
		requests:      make(map[uuid.UUID]*models.PropertyRequest),
		properties:    make(map[uuid.UUID]*propertyState),
		settings:      models.Settings{Roles: make(map[string][]string)},
		paymentRefs:   make(map[string]struct{}),
		pendingRefs:   make(map[string]struct{}),
		listingIndex:  make(map[uuid.UUID]uuid.UUID),
		proposalIndex: make(map[uuid.UUID]uuid.UUID),
	}
}

// Replay applies every journal event after the last applied one, in pages.
// It must finish before the engine serves mutations.
func (e *Engine) Replay(ctx context.Context) (int, error) {
	e.regMu.Lock()
	defer e.regMu.Unlock()
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	after := e.LastSeq()
	applied := 0
	for {
		page, err := e.journal.Load(ctx, after, e.opts.ReplayPageSize)
		if err != nil {
			return applied, fmt.Errorf("load journal after %d: %w", after, err)
		}
		for i := range page {
			if err := e.apply(&page[i]); err != nil {
				return applied, fmt.Errorf("replay event %d (%s): %w", page[i].Seq, page[i].Type, err)
			}
			after = page[i].Seq
			applied++
		}
		if len(page) < e.opts.ReplayPageSize {
			return applied, nil
		}
	}
}

// LastSeq returns the sequence number of the last applied event.
func (e *Engine) LastSeq() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSeq
}

// Now is the ledger clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// batch collects the events of one operation.
type batch struct {
	at     time.Time
	events []models.LedgerEvent
	err    error
}

func (e *Engine) newBatch() *batch {
	return &batch{at: e.clock.Now()}
}

func (b *batch) add(typ string, propertyID *uuid.UUID, holder string, amount uint64, payload any) {
	if b.err != nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		b.err = fmt.Errorf("encode %s: %w", typ, err)
		return
	}
	b.events = append(b.events, models.LedgerEvent{
		Type:       typ,
		PropertyID: propertyID,
		Holder:     holder,
		Amount:     amount,
		Payload:    raw,
		CreatedAt:  b.at,
	})
}

// commit appends the batch to the journal and applies it. The caller holds
// every lock the batch's events touch.
func (e *Engine) commit(ctx context.Context, b *batch) ([]models.LedgerEvent, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.events) == 0 {
		return nil, nil
	}
	stored, err := e.journal.Append(ctx, b.events)
	if err != nil {
		return nil, fmt.Errorf("append to journal: %w", err)
	}
	for i := range stored {
		if err := e.apply(&stored[i]); err != nil {
			e.log.Error("journaled event could not be applied",
				zap.Int64("seq", stored[i].Seq),
				zap.String("type", stored[i].Type),
				zap.Error(err),
			)
			return stored, fail(ErrInconsistent, "event %d (%s): %v", stored[i].Seq, stored[i].Type, err)
		}
	}
	return stored, nil
}

func (e *Engine) lookup(id uuid.UUID) (*propertyState, error) {
	e.mu.RLock()
	ps, ok := e.properties[id]
	e.mu.RUnlock()
	if !ok {
		return nil, fail(ErrPropertyNotFound, "property %s", id)
	}
	return ps, nil
}

func (e *Engine) checkActive() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.settings.Paused {
		return fail(ErrPaused, "ledger is paused")
	}
	return nil
}

func (e *Engine) authorize(actor, permission string) error {
	if actor == "" {
		return fail(ErrUnauthorized, "actor is required")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.settings.Owner != "" && actor == e.settings.Owner {
		return nil
	}
	if rbac.IsOwnerOperation(permission) {
		return fail(ErrNotOwner, "%s is reserved to the ledger owner", permission)
	}
	if rbac.AnyHasPermission(e.settings.Roles[actor], permission) {
		return nil
	}
	return fail(ErrUnauthorized, "%s lacks permission %s", actor, permission)
}

// Can reports whether actor holds permission.
func (e *Engine) Can(actor, permission string) bool {
	return e.authorize(actor, permission) == nil
}

func (e *Engine) requireVerified(ctx context.Context, holder string) error {
	ok, err := e.identity.IsVerified(ctx, holder)
	if err != nil {
		return fmt.Errorf("check identity of %s: %w", holder, err)
	}
	if !ok {
		return fail(ErrIdentityNotVerified, "holder %s is not identity-verified", holder)
	}
	return nil
}

// reserveReference marks a payment reference as in flight so concurrent
// operations cannot spend it twice. The returned release must always run;
// a committed reference stays consumed through apply.
func (e *Engine) reserveReference(p models.Payment) (func(), error) {
	if p.Amount == 0 {
		return func() {}, nil
	}
	if p.Reference == "" {
		return nil, fail(ErrPaymentMismatch, "payment reference is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, used := e.paymentRefs[p.Reference]; used {
		return nil, fail(ErrPaymentMismatch, "payment %q already consumed", p.Reference)
	}
	if _, inFlight := e.pendingRefs[p.Reference]; inFlight {
		return nil, fail(ErrPaymentMismatch, "payment %q already consumed", p.Reference)
	}
	e.pendingRefs[p.Reference] = struct{}{}
	return func() {
		e.mu.Lock()
		delete(e.pendingRefs, p.Reference)
		e.mu.Unlock()
	}, nil
}

// checkPayment verifies a payment fact against the expected amount in the
// stable currency.
func checkPayment(p models.Payment, payer string, amount uint64) error {
	if p.Currency != models.CurrencyStable {
		return fail(ErrPaymentMismatch, "payment currency %q, want %s", p.Currency, models.CurrencyStable)
	}
	if p.Payer != payer {
		return fail(ErrPaymentMismatch, "payment made by %q, want %q", p.Payer, payer)
	}
	if p.Amount != amount {
		return fail(ErrPaymentMismatch, "payment of %d, want %d", p.Amount, amount)
	}
	return nil
}

func idRef(id uuid.UUID) *uuid.UUID {
	return &id
}

func timeRef(t time.Time) *time.Time {
	return &t
}
