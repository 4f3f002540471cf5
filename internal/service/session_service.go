package service

import (
	"context"
	"errors"
	"sort"

	"fabrisys/internal/apierror"
	"fabrisys/internal/model"
	"fabrisys/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OpenSessionInput struct {
	LocationID   uuid.UUID
	OpeningFloat *decimal.Decimal
	// OperatingMode falls back to the location default when empty.
	OperatingMode model.OperatingMode
	Notes         *string
}

// PaymentDeclaration is what the operator counted per payment method.
type PaymentDeclaration struct {
	Cash decimal.Decimal
	Pix  decimal.Decimal
	Card decimal.Decimal
}

func (p PaymentDeclaration) Total() decimal.Decimal {
	return p.Cash.Add(p.Pix).Add(p.Card)
}

type CloseSessionInput struct {
	// InformedTotal may be omitted when Payments is given.
	InformedTotal *decimal.Decimal
	Payments      *PaymentDeclaration
	// Counts are merged over the counts already submitted for the session.
	Counts map[uuid.UUID]decimal.Decimal
	Notes  *string
}

type CloseSessionResult struct {
	Session          *model.CashSession
	ConsolidatedSale *model.SaleTransaction // INVENTORY_COUNT only
	VariancePercent  decimal.Decimal
	Promotion        SideEffectResult
}

// CountSheet lists the inventory snapshot of a session and the products
// still waiting for a physical count.
type CountSheet struct {
	SessionID uuid.UUID
	Rows      []model.InventoryCount
	Uncounted []uuid.UUID
}

type SessionService interface {
	Open(ctx context.Context, actor ActorContext, in OpenSessionInput) (*model.CashSession, error)
	Close(ctx context.Context, actor ActorContext, sessionID uuid.UUID, in CloseSessionInput) (*CloseSessionResult, error)
	Get(ctx context.Context, actor ActorContext, sessionID uuid.UUID) (*model.CashSession, error)
	GetActive(ctx context.Context, actor ActorContext, locationID uuid.UUID) (*model.CashSession, error)
	History(ctx context.Context, actor ActorContext, filter repository.SessionFilter) ([]model.CashSession, int64, error)
	SubmitCounts(ctx context.Context, actor ActorContext, sessionID uuid.UUID, counts map[uuid.UUID]decimal.Decimal) (*CountSheet, error)
	CountSheet(ctx context.Context, actor ActorContext, sessionID uuid.UUID) (*CountSheet, error)
}

type sessionService struct {
	sessions   repository.SessionRepository
	sales      repository.SaleRepository
	locations  repository.LocationRepository
	stock      repository.StockRepository
	counts     repository.InventoryCountRepository
	reconciler *Reconciler
	notifier   Notifier
}

func NewSessionService(
	sessions repository.SessionRepository,
	sales repository.SaleRepository,
	locations repository.LocationRepository,
	stock repository.StockRepository,
	counts repository.InventoryCountRepository,
	reconciler *Reconciler,
	notifier Notifier,
) SessionService {
	return &sessionService{
		sessions:   sessions,
		sales:      sales,
		locations:  locations,
		stock:      stock,
		counts:     counts,
		reconciler: reconciler,
		notifier:   notifier,
	}
}

// ── Open ──────────────────────────────────────────────────────────────────────
// The pre-check gives a friendly error; the partial unique index
// uq_cash_sessions_open_location is what actually guarantees one OPEN
// session per location.

func (s *sessionService) Open(ctx context.Context, actor ActorContext, in OpenSessionInput) (*model.CashSession, error) {
	if in.OpeningFloat == nil {
		return nil, apierror.Invalid("opening float is required")
	}
	if in.OpeningFloat.IsNegative() {
		return nil, apierror.Invalid("opening float must not be negative")
	}
	if exceedsScale(*in.OpeningFloat, moneyScale) {
		return nil, apierror.Invalid("opening float has more than 2 decimal places")
	}

	loc, err := s.locations.FindByID(ctx, in.LocationID)
	if err != nil {
		return nil, lookup("location", in.LocationID, err)
	}
	if err := actor.authorizeOrganization(loc.OrganizationID); err != nil {
		return nil, err
	}
	if err := actor.authorizeLocation(in.LocationID); err != nil {
		return nil, err
	}
	mode := in.OperatingMode
	if mode == "" {
		mode = loc.DefaultMode
	}
	if !mode.Valid() {
		return nil, apierror.Invalidf("unknown operating mode %q", mode)
	}

	existing, err := s.sessions.FindOpenByLocation(ctx, in.LocationID)
	switch {
	case err == nil:
		return nil, openConflict(existing.ID)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, persistence("check open session", err)
	}

	session := &model.CashSession{
		ID:               uuid.New(),
		LocationID:       in.LocationID,
		OrganizationID:   loc.OrganizationID,
		OperatingMode:    mode,
		OpenedBy:         actor.OperatorID,
		OpenedAt:         now(),
		OpeningFloat:     *in.OpeningFloat,
		SystemSalesTotal: decimal.Zero,
		DiscountTotal:    decimal.Zero,
		Status:           model.SessionOpen,
		Notes:            in.Notes,
	}

	txErr := runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		if err := s.sessions.CreateTx(tx, session); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return openConflict(uuid.Nil)
			}
			return persistence("open session", err)
		}
		if mode != model.ModeInventoryCount {
			return nil
		}

		entries, err := s.stock.ListByLocationTx(tx, in.LocationID)
		if err != nil {
			return persistence("snapshot stock", err)
		}
		rows := make([]model.InventoryCount, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, model.InventoryCount{
				SessionID:       session.ID,
				ProductID:       e.ProductID,
				SystemQtyAtOpen: e.QuantityOnHand,
			})
		}
		return persistence("snapshot stock", s.counts.CreateBatchTx(tx, rows))
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("location_id", session.LocationID.String()).
		Str("mode", string(session.OperatingMode)).
		Msg("session opened")

	publish(ctx, s.notifier, Event{
		Type:       EventSessionOpened,
		SessionID:  session.ID,
		LocationID: session.LocationID,
		OperatorID: actor.OperatorID,
		Session:    session,
	})
	return session, nil
}

func openConflict(existing uuid.UUID) error {
	e := apierror.Conflict("location already has an open session")
	if existing != uuid.Nil {
		e = e.WithDetail("session_id", existing.String())
	}
	return e
}

// ── Close ─────────────────────────────────────────────────────────────────────
// One transaction, session row locked FOR UPDATE:
//   1. INVENTORY_COUNT: merge counts, reconcile, drop the count sheet
//      STANDARD: sum the net totals of the session's sales
//   2. Compute the variance
//   3. OPEN -> CLOSED, conditional on the row still being OPEN

func (s *sessionService) Close(ctx context.Context, actor ActorContext, sessionID uuid.UUID, in CloseSessionInput) (*CloseSessionResult, error) {
	informed, err := informedTotal(in)
	if err != nil {
		return nil, err
	}
	if err := validateCounts(in.Counts); err != nil {
		return nil, err
	}

	result := &CloseSessionResult{Promotion: sideEffectSkipped()}
	txErr := runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		session, err := s.sessions.FindByIDForUpdateTx(tx, sessionID)
		if err != nil {
			return lookup("session", sessionID, err)
		}
		if err := actor.authorizeSession(session); err != nil {
			return err
		}
		if !session.IsOpen() {
			return apierror.Conflict("session is not open").WithDetail("session_id", session.ID.String())
		}

		switch session.OperatingMode {
		case model.ModeInventoryCount:
			sheet, err := s.counts.ListBySessionTx(tx, session.ID)
			if err != nil {
				return persistence("load count sheet", err)
			}
			sheet, err = mergeCounts(actor, sheet, in.Counts)
			if err != nil {
				return err
			}
			rec, err := s.reconciler.ReconcileTx(ctx, tx, session, actor.OperatorID, sheet)
			if err != nil {
				return err
			}
			session.SystemSalesTotal = rec.GrossTotal
			session.DiscountTotal = rec.DiscountTotal
			result.ConsolidatedSale = rec.Sale
			result.Promotion = rec.Promotion
			if err := s.counts.DeleteBySessionTx(tx, session.ID); err != nil {
				return persistence("discard count sheet", err)
			}
		default:
			total, err := s.sales.SumNetTotalTx(tx, session.ID)
			if err != nil {
				return persistence("sum sales", err)
			}
			session.SystemSalesTotal = total
			session.DiscountTotal = decimal.Zero
		}

		v := CalculateVariance(VarianceInput{
			OpeningFloat:     session.OpeningFloat,
			SystemSalesTotal: session.SystemSalesTotal,
			DiscountTotal:    session.DiscountTotal,
			InformedTotal:    informed,
		})

		closedAt := now()
		closedBy := actor.OperatorID
		session.ClosedBy = &closedBy
		session.ClosedAt = &closedAt
		session.InformedTotal = &informed
		if in.Payments != nil {
			cash, pix, card := in.Payments.Cash, in.Payments.Pix, in.Payments.Card
			session.InformedCash, session.InformedPix, session.InformedCard = &cash, &pix, &card
		}
		session.ExpectedTotal = &v.ExpectedTotal
		session.Variance = &v.Variance
		session.VarianceClass = &v.Class
		if in.Notes != nil {
			session.Notes = in.Notes
		}

		if err := s.sessions.CloseTx(tx, session); err != nil {
			if errors.Is(err, repository.ErrNotOpen) {
				return apierror.Conflict("session was closed concurrently")
			}
			return persistence("close session", err)
		}
		result.Session = session
		result.VariancePercent = v.Percent
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	session := result.Session
	log.Info().
		Str("session_id", session.ID.String()).
		Str("system_sales_total", session.SystemSalesTotal.StringFixed(2)).
		Str("variance", session.Variance.StringFixed(2)).
		Str("class", *session.VarianceClass).
		Msg("session closed")

	publishSideEffectFailure(ctx, s.notifier, session, actor, nil, "promotion_lookup", result.Promotion)
	publish(ctx, s.notifier, Event{
		Type:       EventSessionClosed,
		SessionID:  session.ID,
		LocationID: session.LocationID,
		OperatorID: actor.OperatorID,
		Session:    session,
	})
	return result, nil
}

// informedTotal resolves the declared total from the explicit figure and/or
// the per-method breakdown. Amounts are cents; more precision is rejected
// so the stored breakdown always sums to the stored total.
func informedTotal(in CloseSessionInput) (decimal.Decimal, error) {
	if in.Payments != nil {
		p := in.Payments
		if p.Cash.IsNegative() || p.Pix.IsNegative() || p.Card.IsNegative() {
			return decimal.Zero, apierror.Invalid("declared payments must not be negative")
		}
		if exceedsScale(p.Cash, moneyScale) || exceedsScale(p.Pix, moneyScale) || exceedsScale(p.Card, moneyScale) {
			return decimal.Zero, apierror.Invalid("declared payments have more than 2 decimal places")
		}
		sum := p.Total()
		if in.InformedTotal != nil && !in.InformedTotal.Equal(sum) {
			return decimal.Zero, apierror.Invalid("informed total does not match the declared payments").
				WithDetail("payments_total", sum.StringFixed(2))
		}
		return sum, nil
	}
	if in.InformedTotal == nil {
		return decimal.Zero, apierror.Invalid("informed total is required")
	}
	if in.InformedTotal.IsNegative() {
		return decimal.Zero, apierror.Invalid("informed total must not be negative")
	}
	if exceedsScale(*in.InformedTotal, moneyScale) {
		return decimal.Zero, apierror.Invalid("informed total has more than 2 decimal places")
	}
	return *in.InformedTotal, nil
}

// validateCounts rejects negative counts and counts finer than the
// quantity column.
func validateCounts(counts map[uuid.UUID]decimal.Decimal) error {
	for productID, qty := range counts {
		if qty.IsNegative() {
			return apierror.Invalid("counted quantity must not be negative").
				WithDetail("product_id", productID.String())
		}
		if exceedsScale(qty, quantityScale) {
			return apierror.Invalid("counted quantity has more than 3 decimal places").
				WithDetail("product_id", productID.String())
		}
	}
	return nil
}

// mergeCounts applies counts over sheet. Changing a count already on the
// sheet requires CAN_OVERRIDE_COUNT.
func mergeCounts(actor ActorContext, sheet []model.InventoryCount, counts map[uuid.UUID]decimal.Decimal) ([]model.InventoryCount, error) {
	if len(counts) == 0 {
		return sheet, nil
	}
	index := make(map[uuid.UUID]int, len(sheet))
	for i, row := range sheet {
		index[row.ProductID] = i
	}
	at := now()
	for productID, qty := range counts {
		i, ok := index[productID]
		if !ok {
			return nil, apierror.Invalid("product is not on the count sheet").
				WithDetail("product_id", productID.String())
		}
		row := &sheet[i]
		if row.CountedQty != nil && !row.CountedQty.Equal(qty) && !actor.Can(CapOverrideCount) {
			return nil, apierror.Forbidden("overriding a submitted count requires CAN_OVERRIDE_COUNT").
				WithDetail("product_id", productID.String())
		}
		q := qty
		by := actor.OperatorID
		row.CountedQty = &q
		row.CountedBy = &by
		row.CountedAt = &at
	}
	return sheet, nil
}

// ── Counts ────────────────────────────────────────────────────────────────────

func (s *sessionService) SubmitCounts(ctx context.Context, actor ActorContext, sessionID uuid.UUID, counts map[uuid.UUID]decimal.Decimal) (*CountSheet, error) {
	if len(counts) == 0 {
		return nil, apierror.Invalid("no counts submitted")
	}
	if err := validateCounts(counts); err != nil {
		return nil, err
	}

	var sheet []model.InventoryCount
	txErr := runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		session, err := s.sessions.FindByIDForUpdateTx(tx, sessionID)
		if err != nil {
			return lookup("session", sessionID, err)
		}
		if err := actor.authorizeSession(session); err != nil {
			return err
		}
		if !session.IsOpen() {
			return apierror.Conflict("session is not open")
		}
		if session.OperatingMode != model.ModeInventoryCount {
			return apierror.Conflict("session is not in inventory-count mode")
		}

		rows, err := s.counts.ListBySessionTx(tx, sessionID)
		if err != nil {
			return persistence("load count sheet", err)
		}
		merged, err := mergeCounts(actor, rows, counts)
		if err != nil {
			return err
		}
		for _, row := range merged {
			if _, touched := counts[row.ProductID]; !touched {
				continue
			}
			if err := s.counts.SetCountedTx(tx, sessionID, row.ProductID, *row.CountedQty, *row.CountedBy, *row.CountedAt); err != nil {
				return persistence("save count", err)
			}
		}
		sheet = merged
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return buildCountSheet(sessionID, sheet), nil
}

func (s *sessionService) CountSheet(ctx context.Context, actor ActorContext, sessionID uuid.UUID) (*CountSheet, error) {
	session, err := s.Get(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OperatingMode != model.ModeInventoryCount {
		return nil, apierror.Conflict("session is not in inventory-count mode")
	}
	rows, err := s.counts.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, persistence("load count sheet", err)
	}
	return buildCountSheet(sessionID, rows), nil
}

func buildCountSheet(sessionID uuid.UUID, rows []model.InventoryCount) *CountSheet {
	sheet := &CountSheet{SessionID: sessionID, Rows: rows, Uncounted: []uuid.UUID{}}
	for _, row := range rows {
		if row.CountedQty == nil {
			sheet.Uncounted = append(sheet.Uncounted, row.ProductID)
		}
	}
	sort.Slice(sheet.Uncounted, func(i, j int) bool {
		return sheet.Uncounted[i].String() < sheet.Uncounted[j].String()
	})
	return sheet
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *sessionService) Get(ctx context.Context, actor ActorContext, sessionID uuid.UUID) (*model.CashSession, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, lookup("session", sessionID, err)
	}
	if err := actor.authorizeSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) GetActive(ctx context.Context, actor ActorContext, locationID uuid.UUID) (*model.CashSession, error) {
	if locationID == uuid.Nil {
		locationID = actor.LocationID
	}
	if err := actor.authorizeLocation(locationID); err != nil {
		return nil, err
	}
	session, err := s.sessions.FindOpenByLocation(ctx, locationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.NotFound("open session", locationID)
		}
		return nil, persistence("load open session", err)
	}
	if err := actor.authorizeOrganization(session.OrganizationID); err != nil {
		return nil, err
	}
	return session, nil
}

// History lists sessions of the actor's location, or of any location of the
// actor's organization for actors holding CAN_OPEN_ANY_LOCATION.
func (s *sessionService) History(ctx context.Context, actor ActorContext, filter repository.SessionFilter) ([]model.CashSession, int64, error) {
	filter.OrganizationID = actor.OrganizationID
	if filter.LocationID == nil && !actor.Can(CapOpenAnyLocation) {
		loc := actor.LocationID
		filter.LocationID = &loc
	}
	if filter.LocationID != nil {
		if err := actor.authorizeLocation(*filter.LocationID); err != nil {
			return nil, 0, err
		}
	}
	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, 0, persistence("list sessions", err)
	}
	return sessions, total, nil
}
