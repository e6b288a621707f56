package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fuelpoint/fuelpoint-server/internal/store"
)

var (
	ErrShiftNotFound      = errors.New("shift not found")
	ErrInvalidClosing     = errors.New("closing reading must be a positive value")
	ErrClosingBelowOpen   = errors.New("closing reading must be greater than opening reading")
	ErrNegativeCash       = errors.New("cash remaining must be zero or greater")
	ErrStaffRequired      = errors.New("a staff member must be selected for the new shift")
	ErrStaffOnActiveShift = errors.New("selected staff member is already on an active shift")
	ErrSessionNotReady    = errors.New("session is not ready for submission")
	ErrLoadDegraded       = errors.New("shift data could not be loaded")
)

// CommitError marks a failed write inside the end-shift sequence. There is
// no distributed transaction: steps before the failed one stay applied, so
// the operator must verify state manually before retrying.
type CommitError struct {
	Step string
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit step %q failed, earlier steps may already be applied: %v", e.Step, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

type SessionState string

const (
	StateLoading    SessionState = "loading"
	StateReady      SessionState = "ready"
	StateSubmitting SessionState = "submitting"
	StateCompleted  SessionState = "completed"
	StateFailed     SessionState = "failed"
)

const (
	maxLoadAttempts = 5
	baseRetryDelay  = time.Second
	maxRetryDelay   = 10 * time.Second
	maxRetryJitter  = time.Second
)

// EndShiftForm is the operator's closing input. Closing readings and testing
// fuel are keyed by canonical fuel type, one entry per nozzle.
type EndShiftForm struct {
	ClosingReadings   map[string]float64 `json:"closing_readings"`
	TestingFuelByType map[string]float64 `json:"testing_fuel_by_type"`
	CardSales         float64            `json:"card_sales"`
	UPISales          float64            `json:"upi_sales"`
	CashSales         float64            `json:"cash_sales"`
	IndentSales       float64            `json:"indent_sales"`
	Expenses          float64            `json:"expenses"`
	CashRemaining     float64            `json:"cash_remaining"`
	StartNextShift    bool               `json:"start_next_shift"`
	NextStaffID       string             `json:"next_staff_id"`
	NextCashGiven     float64            `json:"next_cash_given"`
}

type EndShiftService struct {
	shifts           store.ShiftStore
	readings         store.ReadingStore
	consumables      store.ConsumableStore
	shiftConsumables store.ShiftConsumableStore
	fuelSettings     store.FuelSettingStore
	sales            *SalesAggregator
	logger           *slog.Logger
}

func NewEndShiftService(
	shifts store.ShiftStore,
	readings store.ReadingStore,
	consumables store.ConsumableStore,
	shiftConsumables store.ShiftConsumableStore,
	fuelSettings store.FuelSettingStore,
	sales *SalesAggregator,
	logger *slog.Logger,
) *EndShiftService {
	return &EndShiftService{
		shifts:           shifts,
		readings:         readings,
		consumables:      consumables,
		shiftConsumables: shiftConsumables,
		fuelSettings:     fuelSettings,
		sales:            sales,
		logger:           logger,
	}
}

// EndShiftSession drives one end-of-shift operation through
// loading → ready → submitting → completed | failed. All state is reloaded
// from the stores on Load; derived figures are computed on read so they can
// never go stale against the form.
type EndShiftSession struct {
	svc     *EndShiftService
	shiftID string

	state            SessionState
	shift            *store.Shift
	readings         []*store.Reading
	ledger           *ConsumableLedger
	fuelPrices       map[string]float64
	indentSales      float64
	editingCompleted bool
	dataLoaded       bool
	loadErr          error

	form EndShiftForm

	// test seams for the retry loop
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

func (s *EndShiftService) NewSession(shiftID string) *EndShiftSession {
	return &EndShiftSession{
		svc:     s,
		shiftID: shiftID,
		state:   StateLoading,
		form: EndShiftForm{
			ClosingReadings:   map[string]float64{},
			TestingFuelByType: map[string]float64{},
		},
		sleep:  sleepCtx,
		jitter: func() time.Duration { return time.Duration(rand.Int63n(int64(maxRetryJitter))) },
	}
}

func (s *EndShiftService) GetShift(id string) (*store.Shift, error) {
	return s.shifts.GetByID(id)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Load fetches the shift and its dependent records, retrying transient
// failures with capped exponential backoff. After the attempt budget is
// spent the session is marked loaded anyway, in a degraded failed state,
// so callers are never stuck waiting. Retries are strictly sequential; the
// attempt counter travels by value through the loop, not via recursion.
func (s *EndShiftSession) Load(ctx context.Context) error {
	if s.state != StateLoading {
		return fmt.Errorf("load called in state %s", s.state)
	}

	var lastErr error
	for attempt := 0; attempt < maxLoadAttempts; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay << (attempt - 1)
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			delay += s.jitter()
			s.svc.logger.Warn("retrying shift data load",
				"shift_id", s.shiftID, "attempt", attempt+1, "delay", delay, "error", lastErr)
			if err := s.sleep(ctx, delay); err != nil {
				s.fail(err)
				return err
			}
		}

		err := s.loadOnce()
		if err == nil {
			s.dataLoaded = true
			s.state = StateReady
			return nil
		}
		if errors.Is(err, ErrShiftNotFound) {
			s.fail(err)
			return err
		}
		lastErr = err
	}

	// Budget exhausted: degrade rather than retry forever. The data is
	// flagged loaded so the caller can render the error instead of a
	// spinner.
	err := fmt.Errorf("%w after %d attempts: %v", ErrLoadDegraded, maxLoadAttempts, lastErr)
	s.fail(err)
	return err
}

func (s *EndShiftSession) fail(err error) {
	s.dataLoaded = true
	s.loadErr = err
	s.state = StateFailed
}

func (s *EndShiftSession) loadOnce() error {
	shift, err := s.svc.shifts.GetByID(s.shiftID)
	if err != nil {
		return fmt.Errorf("fetching shift: %w", err)
	}
	if shift == nil {
		return ErrShiftNotFound
	}

	var (
		readings []*store.Reading
		ledger   *ConsumableLedger
		settings []*store.FuelSetting
	)

	// The dependent fetches are independent of each other, only the shift
	// row itself had to come first.
	g := new(errgroup.Group)
	g.Go(func() error {
		var err error
		readings, err = s.svc.readings.ListByShift(s.shiftID)
		if err != nil {
			return fmt.Errorf("fetching readings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ledger, err = LoadConsumableLedger(s.svc.shiftConsumables, s.shiftID)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = s.svc.fuelSettings.List()
		if err != nil {
			return fmt.Errorf("fetching fuel prices: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	prices := make(map[string]float64, len(settings))
	for _, fs := range settings {
		prices[NormalizeFuelType(fs.FuelType)] = fs.CurrentPrice
	}

	s.shift = shift
	s.readings = readings
	s.ledger = ledger
	s.fuelPrices = prices
	s.editingCompleted = shift.Status == store.ShiftCompleted && shift.EndTime != nil

	// Indent lookup is best-effort and must not block the workflow; the
	// aggregator falls back to the value already on the reading row.
	s.indentSales = s.svc.sales.IndentSales(shift.StaffID, shift.StartTime, shift.EndTime, s.storedIndentSales(readings))
	s.form.IndentSales = s.indentSales

	if s.editingCompleted {
		s.seedFormFromReadings(readings)
	}

	return nil
}

func (s *EndShiftSession) storedIndentSales(readings []*store.Reading) float64 {
	for _, r := range readings {
		if r.IndentSales != nil {
			return *r.IndentSales
		}
	}
	return 0
}

// seedFormFromReadings preloads the form with the persisted closing values
// when the operator is editing an already-completed shift.
func (s *EndShiftSession) seedFormFromReadings(readings []*store.Reading) {
	for _, r := range readings {
		ft := NormalizeFuelType(r.FuelType)
		if r.ClosingReading != nil {
			s.form.ClosingReadings[ft] = *r.ClosingReading
		}
		if r.TestingFuel != nil {
			s.form.TestingFuelByType[ft] = *r.TestingFuel
		}
		if r.CardSales != nil {
			s.form.CardSales = *r.CardSales
		}
		if r.UPISales != nil {
			s.form.UPISales = *r.UPISales
		}
		if r.CashSales != nil {
			s.form.CashSales = *r.CashSales
		}
		if r.IndentSales != nil {
			s.form.IndentSales = *r.IndentSales
		}
		if r.Expenses != nil {
			s.form.Expenses = *r.Expenses
		}
		if r.CashRemaining != nil {
			s.form.CashRemaining = *r.CashRemaining
		}
	}
}

func (s *EndShiftSession) State() SessionState { return s.state }
func (s *EndShiftSession) DataLoaded() bool    { return s.dataLoaded }
func (s *EndShiftSession) LoadErr() error      { return s.loadErr }
func (s *EndShiftSession) Shift() *store.Shift { return s.shift }
func (s *EndShiftSession) Form() EndShiftForm  { return s.form }

func (s *EndShiftSession) Readings() []*store.Reading { return s.readings }

func (s *EndShiftSession) Ledger() *ConsumableLedger { return s.ledger }

func (s *EndShiftSession) EditingCompleted() bool { return s.editingCompleted }

func (s *EndShiftSession) FuelPrices() map[string]float64 { return s.fuelPrices }

// ApplyForm replaces the operator input. Derived values (usage, totals,
// reconciliation) are recomputed on every read, so applying a form is all
// the "reactivity" the session needs.
func (s *EndShiftSession) ApplyForm(form EndShiftForm) {
	if form.ClosingReadings == nil {
		form.ClosingReadings = map[string]float64{}
	}
	if form.TestingFuelByType == nil {
		form.TestingFuelByType = map[string]float64{}
	}
	s.form = form
}

// FuelUsage derives dispensed litres from the stored openings and the
// form's closing values.
func (s *EndShiftSession) FuelUsage() FuelUsage {
	patched := make([]*store.Reading, 0, len(s.readings))
	for _, r := range s.readings {
		c := *r
		if closing, ok := s.form.ClosingReadings[NormalizeFuelType(r.FuelType)]; ok && closing > 0 {
			c.ClosingReading = &closing
		}
		patched = append(patched, &c)
	}
	return CalculateFuelUsage(patched)
}

func (s *EndShiftSession) TotalSales() float64 {
	return SalesBreakdown{
		CardSales:   s.form.CardSales,
		UPISales:    s.form.UPISales,
		CashSales:   s.form.CashSales,
		IndentSales: s.form.IndentSales,
	}.Total()
}

func (s *EndShiftSession) CashReconciliation() CashReconciliation {
	return ReconcileCash(s.form.CashSales, s.form.CashRemaining, s.form.Expenses)
}

func (s *EndShiftSession) ExpectedSaleAmount() float64 {
	sellable := SellableLitres(s.FuelUsage(), s.form.TestingFuelByType)
	return ExpectedSaleAmount(sellable, s.fuelPrices)
}

// Validate gates the transition from ready to submitting. Failures are
// user-correctable and leave the session in ready.
func (s *EndShiftSession) Validate() error {
	if s.state != StateReady {
		return ErrSessionNotReady
	}

	for _, r := range s.readings {
		closing := s.form.ClosingReadings[NormalizeFuelType(r.FuelType)]
		if closing <= 0 {
			return fmt.Errorf("%w (%s)", ErrInvalidClosing, r.FuelType)
		}
		// Any positive value is accepted when editing historical data;
		// an active shift must advance the meter.
		if !s.editingCompleted && closing <= r.OpeningReading {
			return fmt.Errorf("%w (%s: opening %.2f)", ErrClosingBelowOpen, r.FuelType, r.OpeningReading)
		}
	}

	if s.form.CashRemaining < 0 {
		return ErrNegativeCash
	}

	if s.form.StartNextShift && !s.editingCompleted {
		if s.form.NextStaffID == "" {
			return ErrStaffRequired
		}
		activeIDs, err := s.svc.shifts.ListActiveStaffIDs()
		if err != nil {
			return fmt.Errorf("checking active shifts: %w", err)
		}
		for _, id := range activeIDs {
			if id == s.form.NextStaffID {
				return ErrStaffOnActiveShift
			}
		}
	}

	return nil
}

// EndShiftResult reports what the commit sequence produced.
type EndShiftResult struct {
	Shift          *store.Shift       `json:"shift"`
	NextShift      *store.Shift       `json:"next_shift,omitempty"`
	FuelUsage      FuelUsage          `json:"fuel_usage"`
	TotalSales     float64            `json:"total_sales"`
	Reconciliation CashReconciliation `json:"reconciliation"`
	ConsumedValue  float64            `json:"consumed_value"`
}

// Submit runs the commit sequence. Each step is a separate remote write
// with no surrounding transaction: ordering matters, a failure aborts the
// remaining steps, and nothing is rolled back. Every step's outcome is
// logged so a half-applied sequence can be reconciled by hand. Writes are
// never auto-retried; a retry here could double-apply cash or inventory
// side effects. Once started the sequence is not cancellable.
func (s *EndShiftSession) Submit() (*EndShiftResult, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.state = StateSubmitting

	log := s.svc.logger.With("shift_id", s.shiftID)
	now := time.Now()
	consumedValue := s.ledger.ConsumedValue()

	// Step 1: close the shift record. Skipped when editing a shift that
	// is already completed.
	if !s.editingCompleted {
		patch := store.ShiftEndPatch{EndTime: now, CashRemaining: s.form.CashRemaining}
		if err := s.svc.shifts.UpdateEnd(s.shiftID, patch); err != nil {
			return nil, s.commitFailed(log, "close shift", err)
		}
		log.Info("shift closed", "end_time", now)
	}

	// Step 2: write closing values to each nozzle's reading row.
	for _, r := range s.readings {
		ft := NormalizeFuelType(r.FuelType)
		patch := store.ReadingClosePatch{
			ClosingReading:     s.form.ClosingReadings[ft],
			CashRemaining:      s.form.CashRemaining,
			CardSales:          s.form.CardSales,
			UPISales:           s.form.UPISales,
			CashSales:          s.form.CashSales,
			IndentSales:        s.form.IndentSales,
			Expenses:           s.form.Expenses,
			ConsumableExpenses: consumedValue,
			TestingFuel:        s.form.TestingFuelByType[ft],
		}
		if err := s.svc.readings.UpdateClosing(s.shiftID, r.FuelType, patch); err != nil {
			return nil, s.commitFailed(log, "update readings", err)
		}
	}
	log.Info("readings updated", "nozzles", len(s.readings), "consumable_expenses", consumedValue)

	// Step 3: consumable returns.
	if !s.editingCompleted {
		if err := s.ledger.Commit(s.svc.consumables, s.svc.shiftConsumables, s.shiftID); err != nil {
			return nil, s.commitFailed(log, "return consumables", err)
		}
		log.Info("consumable returns applied", "items", len(s.ledger.Allocated()))
	}

	// Step 4: optional successor shift with the meter carried forward.
	var nextShift *store.Shift
	if s.form.StartNextShift && !s.editingCompleted {
		var err error
		nextShift, err = s.startSuccessor(now)
		if err != nil {
			return nil, s.commitFailed(log, "start next shift", err)
		}
		log.Info("successor shift started",
			"next_shift_id", nextShift.ID, "staff_id", nextShift.StaffID, "shift_type", nextShift.ShiftType)
	}

	s.state = StateCompleted
	closedShift, err := s.svc.shifts.GetByID(s.shiftID)
	if err != nil || closedShift == nil {
		// The commit already succeeded; return what we know.
		closedShift = s.shift
	}

	return &EndShiftResult{
		Shift:          closedShift,
		NextShift:      nextShift,
		FuelUsage:      s.FuelUsage(),
		TotalSales:     s.TotalSales(),
		Reconciliation: s.CashReconciliation(),
		ConsumedValue:  consumedValue,
	}, nil
}

func (s *EndShiftSession) commitFailed(log *slog.Logger, step string, err error) error {
	s.state = StateFailed
	cerr := &CommitError{Step: step, Err: err}
	log.Error("end-shift commit aborted", "step", step, "error", err)
	return cerr
}

func (s *EndShiftSession) startSuccessor(now time.Time) (*store.Shift, error) {
	next := &store.Shift{
		StaffID:   s.form.NextStaffID,
		PumpID:    s.shift.PumpID,
		ShiftType: NextShiftType(s.shift.ShiftType),
		StartTime: now,
		Status:    store.ShiftActive,
	}
	if err := s.svc.shifts.Insert(next); err != nil {
		return nil, fmt.Errorf("inserting shift: %w", err)
	}

	// One companion reading per nozzle, opened at exactly the closing
	// value just recorded, so the meter trail has no gap.
	for _, r := range s.readings {
		reading := &store.Reading{
			ShiftID:        next.ID,
			StaffID:        next.StaffID,
			PumpID:         next.PumpID,
			FuelType:       r.FuelType,
			Date:           now,
			OpeningReading: s.form.ClosingReadings[NormalizeFuelType(r.FuelType)],
			CashGiven:      s.form.NextCashGiven,
		}
		if err := s.svc.readings.Insert(reading); err != nil {
			return nil, fmt.Errorf("inserting reading for %s: %w", r.FuelType, err)
		}
	}

	return next, nil
}

// NextShiftType rotates the roster: morning→evening→night→morning, with the
// single day shift handing over to night. Unrecognized values fall back to
// day so the rotation is total.
func NextShiftType(current store.ShiftType) store.ShiftType {
	switch current {
	case store.ShiftMorning:
		return store.ShiftEvening
	case store.ShiftEvening:
		return store.ShiftNight
	case store.ShiftNight:
		return store.ShiftMorning
	case store.ShiftDay:
		return store.ShiftNight
	default:
		return store.ShiftDay
	}
}
