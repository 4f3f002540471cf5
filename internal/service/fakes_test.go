package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"fabrisys/internal/model"
	"fabrisys/internal/repository"
	"fabrisys/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// In-memory repositories. DB() returns nil so runTx calls fn(nil) directly:
// there is no rollback, tests of failing operations only assert the error.

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// ── Sessions ─────────────────────────────────────────────────────────────────

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]model.CashSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]model.CashSession)}
}

func (r *fakeSessionRepo) CreateTx(_ *gorm.DB, s *model.CashSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.sessions {
		if other.LocationID == s.LocationID && other.Status == model.SessionOpen {
			return repository.ErrDuplicate
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sessions[s.ID] = *s
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CashSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *fakeSessionRepo) FindByIDForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.CashSession, error) {
	return r.FindByID(context.Background(), id)
}

func (r *fakeSessionRepo) FindOpenByLocation(_ context.Context, locationID uuid.UUID) (*model.CashSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.LocationID == locationID && s.Status == model.SessionOpen {
			found := s
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSessionRepo) AddSalesTotalTx(_ *gorm.DB, id uuid.UUID, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Status != model.SessionOpen {
		return repository.ErrNotOpen
	}
	s.SystemSalesTotal = s.SystemSalesTotal.Add(amount)
	r.sessions[id] = s
	return nil
}

func (r *fakeSessionRepo) CloseTx(_ *gorm.DB, s *model.CashSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[s.ID]
	if !ok || stored.Status != model.SessionOpen {
		return repository.ErrNotOpen
	}
	s.Status = model.SessionClosed
	r.sessions[s.ID] = *s
	return nil
}

func (r *fakeSessionRepo) List(_ context.Context, f repository.SessionFilter) ([]model.CashSession, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.CashSession
	for _, s := range r.sessions {
		if f.OrganizationID != uuid.Nil && s.OrganizationID != f.OrganizationID {
			continue
		}
		if f.LocationID != nil && s.LocationID != *f.LocationID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out, int64(len(out)), nil
}

func (r *fakeSessionRepo) DB() *gorm.DB { return nil }

func (r *fakeSessionRepo) get(id uuid.UUID) model.CashSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// ── Sales ────────────────────────────────────────────────────────────────────

type fakeSaleRepo struct {
	mu    sync.Mutex
	sales []model.SaleTransaction
}

func (r *fakeSaleRepo) CreateTx(_ *gorm.DB, s *model.SaleTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Consolidated {
		for _, other := range r.sales {
			if other.SessionID == s.SessionID && other.Consolidated {
				return repository.ErrDuplicate
			}
		}
	}
	r.sales = append(r.sales, *s)
	return nil
}

func (r *fakeSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.SaleTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sales {
		if s.ID == id {
			found := s
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSaleRepo) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.SaleTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SaleTransaction
	for _, s := range r.sales {
		if s.SessionID == sessionID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSaleRepo) SumNetTotalTx(_ *gorm.DB, sessionID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, s := range r.sales {
		if s.SessionID == sessionID {
			total = total.Add(s.NetTotal)
		}
	}
	return total, nil
}

func (r *fakeSaleRepo) HasConsolidatedTx(_ *gorm.DB, sessionID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sales {
		if s.SessionID == sessionID && s.Consolidated {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSaleRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sales)
}

// ── Catalog ──────────────────────────────────────────────────────────────────

type fakeProductRepo struct {
	products map[uuid.UUID]model.Product
}

func (r *fakeProductRepo) Create(_ context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = *p
	return nil
}

func (r *fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *fakeProductRepo) FindByIDsTx(_ *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	out := make(map[uuid.UUID]model.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeLocationRepo struct {
	locations map[uuid.UUID]model.Location
}

func (r *fakeLocationRepo) Create(_ context.Context, l *model.Location) error {
	r.locations[l.ID] = *l
	return nil
}

func (r *fakeLocationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Location, error) {
	l, ok := r.locations[id]
	if !ok || !l.Active {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

type fakePromotionRepo struct {
	promotions []model.Promotion
	err        error
}

func (r *fakePromotionRepo) Create(_ context.Context, p *model.Promotion) error {
	r.promotions = append(r.promotions, *p)
	return nil
}

func (r *fakePromotionRepo) ListActive(_ context.Context, _ time.Time) ([]model.Promotion, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.promotions, nil
}

// ── Stock ────────────────────────────────────────────────────────────────────

type stockKey struct{ location, product uuid.UUID }

type fakeStockRepo struct {
	mu      sync.Mutex
	entries map[stockKey]decimal.Decimal
}

func (r *fakeStockRepo) DecrementTx(_ *gorm.DB, locationID, productID uuid.UUID, qty decimal.Decimal, allowNegative bool) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := stockKey{locationID, productID}
	cur, ok := r.entries[k]
	if !ok {
		return decimal.Zero, repository.ErrNotFound
	}
	if !allowNegative && cur.LessThan(qty) {
		return decimal.Zero, repository.ErrInsufficientStock
	}
	after := cur.Sub(qty)
	r.entries[k] = after
	return after, nil
}

func (r *fakeStockRepo) Find(_ context.Context, locationID, productID uuid.UUID) (*model.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.entries[stockKey{locationID, productID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.StockEntry{LocationID: locationID, ProductID: productID, QuantityOnHand: q}, nil
}

func (r *fakeStockRepo) ListByLocationTx(_ *gorm.DB, locationID uuid.UUID) ([]model.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockEntry
	for k, q := range r.entries {
		if k.location == locationID {
			out = append(out, model.StockEntry{LocationID: k.location, ProductID: k.product, QuantityOnHand: q})
		}
	}
	return out, nil
}

func (r *fakeStockRepo) Upsert(_ context.Context, e *model.StockEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[stockKey{e.LocationID, e.ProductID}] = e.QuantityOnHand
	return nil
}

func (r *fakeStockRepo) qty(locationID, productID uuid.UUID) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[stockKey{locationID, productID}]
}

type fakeMovementRepo struct {
	mu        sync.Mutex
	movements []model.StockMovement
}

func (r *fakeMovementRepo) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *m)
	return nil
}

func (r *fakeMovementRepo) List(_ context.Context, f repository.StockMovementFilter) ([]model.StockMovement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockMovement
	for _, m := range r.movements {
		if f.OrganizationID != uuid.Nil && m.OrganizationID != f.OrganizationID {
			continue
		}
		if f.LocationID != nil && m.LocationID != *f.LocationID {
			continue
		}
		if f.SessionID != nil && (m.SessionID == nil || *m.SessionID != *f.SessionID) {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

// ── Inventory counts ─────────────────────────────────────────────────────────

type fakeCountRepo struct {
	rows map[uuid.UUID]map[uuid.UUID]model.InventoryCount
}

func (r *fakeCountRepo) CreateBatchTx(_ *gorm.DB, rows []model.InventoryCount) error {
	for _, row := range rows {
		if r.rows[row.SessionID] == nil {
			r.rows[row.SessionID] = make(map[uuid.UUID]model.InventoryCount)
		}
		r.rows[row.SessionID][row.ProductID] = row
	}
	return nil
}

func (r *fakeCountRepo) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.InventoryCount, error) {
	out := make([]model.InventoryCount, 0, len(r.rows[sessionID]))
	for _, row := range r.rows[sessionID] {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID.String() < out[j].ProductID.String() })
	return out, nil
}

func (r *fakeCountRepo) ListBySessionTx(_ *gorm.DB, sessionID uuid.UUID) ([]model.InventoryCount, error) {
	return r.ListBySession(context.Background(), sessionID)
}

func (r *fakeCountRepo) SetCountedTx(_ *gorm.DB, sessionID, productID uuid.UUID, qty decimal.Decimal, by uuid.UUID, at time.Time) error {
	row, ok := r.rows[sessionID][productID]
	if !ok {
		return repository.ErrNotFound
	}
	row.CountedQty, row.CountedBy, row.CountedAt = &qty, &by, &at
	r.rows[sessionID][productID] = row
	return nil
}

func (r *fakeCountRepo) DeleteBySessionTx(_ *gorm.DB, sessionID uuid.UUID) error {
	delete(r.rows, sessionID)
	return nil
}

// ── Loyalty ──────────────────────────────────────────────────────────────────

type fakeLoyaltyRepo struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
	failWith error
	calls    int
}

func (r *fakeLoyaltyRepo) ApplyDelta(_ context.Context, customerID uuid.UUID, delta int64, _ string, _ *uuid.UUID, enforceBalance bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failWith != nil {
		return 0, r.failWith
	}
	next := r.balances[customerID] + delta
	if enforceBalance && next < 0 {
		return 0, repository.ErrInsufficientPoints
	}
	r.balances[customerID] = next
	return next, nil
}

func (r *fakeLoyaltyRepo) FindAccount(_ context.Context, customerID uuid.UUID) (*model.LoyaltyAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[customerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.LoyaltyAccount{CustomerID: customerID, PointsBalance: b}, nil
}

// ── Notifier ─────────────────────────────────────────────────────────────────

type recordingNotifier struct {
	mu     sync.Mutex
	events []service.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev service.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

var (
	_ repository.SessionRepository        = (*fakeSessionRepo)(nil)
	_ repository.SaleRepository           = (*fakeSaleRepo)(nil)
	_ repository.ProductRepository        = (*fakeProductRepo)(nil)
	_ repository.LocationRepository       = (*fakeLocationRepo)(nil)
	_ repository.PromotionRepository      = (*fakePromotionRepo)(nil)
	_ repository.StockRepository          = (*fakeStockRepo)(nil)
	_ repository.StockMovementRepository  = (*fakeMovementRepo)(nil)
	_ repository.InventoryCountRepository = (*fakeCountRepo)(nil)
	_ repository.LoyaltyRepository        = (*fakeLoyaltyRepo)(nil)
)

// ── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	sessions   *fakeSessionRepo
	sales      *fakeSaleRepo
	products   *fakeProductRepo
	locations  *fakeLocationRepo
	promotions *fakePromotionRepo
	stock      *fakeStockRepo
	movements  *fakeMovementRepo
	counts     *fakeCountRepo
	loyalty    *fakeLoyaltyRepo
	notifier   *recordingNotifier

	sessionSvc service.SessionService
	saleSvc    service.SaleService

	org      uuid.UUID
	location uuid.UUID
	actor    service.ActorContext
}

type fixtureOpts struct {
	allowNegative bool
	enforcePoints bool
	defaultMode   model.OperatingMode
	actorCaps     []service.Capability
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, fixtureOpts{allowNegative: true})
}

func newFixtureWith(t *testing.T, o fixtureOpts) *fixture {
	t.Helper()
	f := &fixture{
		sessions:   newFakeSessionRepo(),
		sales:      &fakeSaleRepo{},
		products:   &fakeProductRepo{products: make(map[uuid.UUID]model.Product)},
		locations:  &fakeLocationRepo{locations: make(map[uuid.UUID]model.Location)},
		promotions: &fakePromotionRepo{},
		stock:      &fakeStockRepo{entries: make(map[stockKey]decimal.Decimal)},
		movements:  &fakeMovementRepo{},
		counts:     &fakeCountRepo{rows: make(map[uuid.UUID]map[uuid.UUID]model.InventoryCount)},
		loyalty:    &fakeLoyaltyRepo{balances: make(map[uuid.UUID]int64)},
		notifier:   &recordingNotifier{},
		org:        uuid.New(),
		location:   uuid.New(),
	}
	mode := o.defaultMode
	if mode == "" {
		mode = model.ModeStandard
	}
	f.locations.locations[f.location] = model.Location{
		ID: f.location, OrganizationID: f.org, Name: "Kiosk", DefaultMode: mode, Active: true,
	}
	f.actor = service.ActorContext{
		OperatorID:     uuid.New(),
		OrganizationID: f.org,
		LocationID:     f.location,
		Capabilities:   o.actorCaps,
	}

	ledger := service.NewStockLedger(f.stock, f.movements, o.allowNegative)
	loyalty := service.NewLoyaltyLedger(f.loyalty, o.enforcePoints)
	promos := service.NewPromotionEngine(f.promotions)
	reconciler := service.NewReconciler(f.sales, f.products, ledger, promos)

	f.sessionSvc = service.NewSessionService(f.sessions, f.sales, f.locations, f.stock, f.counts, reconciler, f.notifier)
	f.saleSvc = service.NewSaleService(f.sessions, f.sales, f.products, ledger, loyalty, f.notifier)
	return f
}

// addLocation registers another STANDARD location owned by org.
func (f *fixture) addLocation(org uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.locations.locations[id] = model.Location{
		ID: id, OrganizationID: org, Name: "L-" + id.String()[:4], DefaultMode: model.ModeStandard, Active: true,
	}
	return id
}

// addProduct creates an active product priced at price with qty on hand at
// the fixture location.
func (f *fixture) addProduct(price, qty string) uuid.UUID {
	id := uuid.New()
	f.products.products[id] = model.Product{ID: id, Name: "P-" + id.String()[:4], SalePrice: dec(price), UnitID: "un", Active: true}
	f.stock.entries[stockKey{f.location, id}] = dec(qty)
	return id
}

func (f *fixture) open(t *testing.T, float string, mode model.OperatingMode) *model.CashSession {
	t.Helper()
	s, err := f.sessionSvc.Open(context.Background(), f.actor, service.OpenSessionInput{
		LocationID:    f.location,
		OpeningFloat:  decPtr(float),
		OperatingMode: mode,
	})
	require.NoError(t, err)
	return s
}

var errBoom = errors.New("boom")
