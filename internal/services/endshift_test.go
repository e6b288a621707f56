package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelpoint/fuelpoint-server/internal/store"
	"github.com/fuelpoint/fuelpoint-server/internal/store/memory"
)

type endShiftFixture struct {
	mem     *memory.Store
	svc     *EndShiftService
	shift   *store.Shift
	oil     *store.Consumable
	reading *store.Reading
}

func newEndShiftFixture(t *testing.T) *endShiftFixture {
	t.Helper()

	mem := memory.New()

	require.NoError(t, mem.Staff().Insert(&store.Staff{ID: "staff-1", Name: "Ravi", Role: "staff"}))
	require.NoError(t, mem.Staff().Insert(&store.Staff{ID: "staff-2", Name: "Suresh", Role: "staff"}))
	require.NoError(t, mem.Staff().Insert(&store.Staff{ID: "staff-3", Name: "Meena", Role: "staff"}))

	start := time.Now().Add(-8 * time.Hour)
	shift := &store.Shift{
		ID:        "shift-1",
		StaffID:   "staff-1",
		PumpID:    "P1",
		ShiftType: store.ShiftMorning,
		StartTime: start,
		Status:    store.ShiftActive,
	}
	require.NoError(t, mem.Shifts().Insert(shift))

	// staff-3 is busy on another pump and must stay unselectable.
	require.NoError(t, mem.Shifts().Insert(&store.Shift{
		ID:        "shift-other",
		StaffID:   "staff-3",
		PumpID:    "P2",
		ShiftType: store.ShiftMorning,
		StartTime: start,
		Status:    store.ShiftActive,
	}))

	reading := &store.Reading{
		ShiftID:        "shift-1",
		StaffID:        "staff-1",
		PumpID:         "P1",
		FuelType:       "petrol",
		OpeningReading: 12345.0,
		CashGiven:      2000,
	}
	require.NoError(t, mem.Readings().Insert(reading))

	mem.SeedFuelSetting(store.FuelSetting{FuelType: "petrol", CurrentPrice: 100})

	oil := &store.Consumable{Name: "Engine Oil 1L", Unit: "bottle", PricePerUnit: 50, Quantity: 90}
	mem.SeedConsumable(oil)
	require.NoError(t, mem.ShiftConsumables().Allocate(&store.ShiftConsumable{
		ShiftID:           "shift-1",
		ConsumableID:      oil.ID,
		QuantityAllocated: 10,
	}))

	require.NoError(t, mem.Transactions().Insert(&store.IndentTransaction{
		StaffID:   "staff-1",
		Amount:    1500,
		FuelType:  "petrol",
		Source:    "indent",
		CreatedAt: start.Add(time.Hour),
	}))

	svc := NewEndShiftService(
		mem.Shifts(),
		mem.Readings(),
		mem.Consumables(),
		mem.ShiftConsumables(),
		mem.FuelSettings(),
		NewSalesAggregator(mem.Transactions(), discardLogger()),
		discardLogger(),
	)

	return &endShiftFixture{mem: mem, svc: svc, shift: shift, oil: oil, reading: reading}
}

// loadedSession builds a ready session with instant sleeps and no jitter.
func (f *endShiftFixture) loadedSession(t *testing.T) *EndShiftSession {
	t.Helper()

	s := f.svc.NewSession(f.shift.ID)
	stubRetryTiming(s, nil)
	require.NoError(t, s.Load(context.Background()))
	require.Equal(t, StateReady, s.State())
	return s
}

// stubRetryTiming removes real delays and records each backoff the loop asked for.
func stubRetryTiming(s *EndShiftSession, delays *[]time.Duration) {
	s.sleep = func(_ context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return nil
	}
	s.jitter = func() time.Duration { return 0 }
}

func validForm() EndShiftForm {
	return EndShiftForm{
		ClosingReadings:   map[string]float64{"petrol": 12840.0},
		TestingFuelByType: map[string]float64{"petrol": 5},
		CardSales:         1200,
		UPISales:          800,
		CashSales:         5000,
		IndentSales:       1500,
		Expenses:          200,
		CashRemaining:     4600,
	}
}

type flakyShiftStore struct {
	store.ShiftStore
	failures int
	calls    int
}

func (f *flakyShiftStore) GetByID(id string) (*store.Shift, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	return f.ShiftStore.GetByID(id)
}

type failUpdateEndStore struct {
	store.ShiftStore
}

func (f *failUpdateEndStore) UpdateEnd(string, store.ShiftEndPatch) error {
	return errors.New("write timeout")
}

type failReadingUpdateStore struct {
	store.ReadingStore
}

func (f *failReadingUpdateStore) UpdateClosing(string, string, store.ReadingClosePatch) error {
	return errors.New("write timeout")
}

func TestEndShiftSession_Load(t *testing.T) {
	f := newEndShiftFixture(t)
	s := f.loadedSession(t)

	assert.True(t, s.DataLoaded())
	assert.NoError(t, s.LoadErr())
	assert.False(t, s.EditingCompleted())
	require.NotNil(t, s.Shift())
	assert.Equal(t, "shift-1", s.Shift().ID)
	require.Len(t, s.Readings(), 1)
	assert.Equal(t, 12345.0, s.Readings()[0].OpeningReading)
	assert.Equal(t, map[string]float64{"petrol": 100}, s.FuelPrices())
	require.Len(t, s.Ledger().Allocated(), 1)

	// The indent figure from the transaction ledger lands in the form.
	assert.Equal(t, 1500.0, s.Form().IndentSales)
}

func TestEndShiftSession_LoadShiftNotFound(t *testing.T) {
	f := newEndShiftFixture(t)

	flaky := &flakyShiftStore{ShiftStore: f.mem.Shifts()}
	f.svc.shifts = flaky

	s := f.svc.NewSession("no-such-shift")
	var delays []time.Duration
	stubRetryTiming(s, &delays)

	err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrShiftNotFound)
	assert.Equal(t, StateFailed, s.State())
	assert.True(t, s.DataLoaded())

	// A missing shift is permanent; the retry budget must not be spent on it.
	assert.Equal(t, 1, flaky.calls)
	assert.Empty(t, delays)
}

func TestEndShiftSession_LoadRetriesTransientFailures(t *testing.T) {
	f := newEndShiftFixture(t)

	flaky := &flakyShiftStore{ShiftStore: f.mem.Shifts(), failures: 2}
	f.svc.shifts = flaky

	s := f.svc.NewSession(f.shift.ID)
	var delays []time.Duration
	stubRetryTiming(s, &delays)

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, 3, flaky.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestEndShiftSession_LoadBudgetExhausted(t *testing.T) {
	f := newEndShiftFixture(t)

	flaky := &flakyShiftStore{ShiftStore: f.mem.Shifts(), failures: 100}
	f.svc.shifts = flaky

	s := f.svc.NewSession(f.shift.ID)
	var delays []time.Duration
	stubRetryTiming(s, &delays)

	err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrLoadDegraded)

	// Exactly five attempts, doubling the delay each time.
	assert.Equal(t, 5, flaky.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, delays)

	// Degraded, not stuck: the session reports loaded with the error attached.
	assert.Equal(t, StateFailed, s.State())
	assert.True(t, s.DataLoaded())
	assert.ErrorIs(t, s.LoadErr(), ErrLoadDegraded)
}

func TestEndShiftSession_LoadCancelledDuringBackoff(t *testing.T) {
	f := newEndShiftFixture(t)

	flaky := &flakyShiftStore{ShiftStore: f.mem.Shifts(), failures: 100}
	f.svc.shifts = flaky

	ctx, cancel := context.WithCancel(context.Background())
	s := f.svc.NewSession(f.shift.ID)
	s.jitter = func() time.Duration { return 0 }
	s.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := s.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, s.State())
}

func TestEndShiftSession_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(form *EndShiftForm)
		wantErr error
	}{
		{
			name:    "valid form",
			mutate:  func(form *EndShiftForm) {},
			wantErr: nil,
		},
		{
			name:    "missing closing reading",
			mutate:  func(form *EndShiftForm) { delete(form.ClosingReadings, "petrol") },
			wantErr: ErrInvalidClosing,
		},
		{
			name:    "closing below opening",
			mutate:  func(form *EndShiftForm) { form.ClosingReadings["petrol"] = 12000 },
			wantErr: ErrClosingBelowOpen,
		},
		{
			name:    "closing equal to opening",
			mutate:  func(form *EndShiftForm) { form.ClosingReadings["petrol"] = 12345.0 },
			wantErr: ErrClosingBelowOpen,
		},
		{
			name:    "negative cash remaining",
			mutate:  func(form *EndShiftForm) { form.CashRemaining = -1 },
			wantErr: ErrNegativeCash,
		},
		{
			name: "next shift without staff",
			mutate: func(form *EndShiftForm) {
				form.StartNextShift = true
			},
			wantErr: ErrStaffRequired,
		},
		{
			name: "next staff already on an active shift",
			mutate: func(form *EndShiftForm) {
				form.StartNextShift = true
				form.NextStaffID = "staff-3"
			},
			wantErr: ErrStaffOnActiveShift,
		},
		{
			name: "outgoing staff cannot hand over to themselves",
			mutate: func(form *EndShiftForm) {
				form.StartNextShift = true
				form.NextStaffID = "staff-1"
			},
			wantErr: ErrStaffOnActiveShift,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEndShiftFixture(t)
			s := f.loadedSession(t)

			form := validForm()
			tt.mutate(&form)
			s.ApplyForm(form)

			err := s.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, StateReady, s.State(), "validation failures must leave the session ready")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEndShiftSession_DerivedFigures(t *testing.T) {
	f := newEndShiftFixture(t)
	s := f.loadedSession(t)
	s.ApplyForm(validForm())

	usage := s.FuelUsage()
	assert.Equal(t, 495.0, usage.ByType["petrol"])
	assert.Equal(t, 495.0, usage.TotalLitres)

	assert.Equal(t, 8500.0, s.TotalSales())

	rec := s.CashReconciliation()
	assert.Equal(t, 5000.0, rec.Expected)
	assert.Equal(t, -200.0, rec.Difference)

	// 495 dispensed less 5 testing litres at 100/l.
	assert.Equal(t, 490*100.0, s.ExpectedSaleAmount())
}

func TestEndShiftSession_Submit(t *testing.T) {
	f := newEndShiftFixture(t)
	s := f.loadedSession(t)
	s.ApplyForm(validForm())
	require.NoError(t, s.Ledger().SetReturned(f.oil.ID, 3))

	result, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, s.State())

	// Step 1: the shift record is closed.
	closed, err := f.mem.Shifts().GetByID("shift-1")
	require.NoError(t, err)
	assert.Equal(t, store.ShiftCompleted, closed.Status)
	require.NotNil(t, closed.EndTime)
	require.NotNil(t, closed.CashRemaining)
	assert.Equal(t, 4600.0, *closed.CashRemaining)

	// Step 2: the nozzle reading carries the closing figures.
	readings, err := f.mem.Readings().ListByShift("shift-1")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	r := readings[0]
	require.NotNil(t, r.ClosingReading)
	assert.Equal(t, 12840.0, *r.ClosingReading)
	require.NotNil(t, r.TestingFuel)
	assert.Equal(t, 5.0, *r.TestingFuel)
	require.NotNil(t, r.ConsumableExpenses)
	assert.Equal(t, 350.0, *r.ConsumableExpenses)
	require.NotNil(t, r.IndentSales)
	assert.Equal(t, 1500.0, *r.IndentSales)

	// Step 3: returns restocked and the allocation settled.
	c, err := f.mem.Consumables().GetByID(f.oil.ID)
	require.NoError(t, err)
	assert.Equal(t, 93.0, c.Quantity)

	// No successor was requested.
	assert.Nil(t, result.NextShift)

	assert.Equal(t, 495.0, result.FuelUsage.TotalLitres)
	assert.Equal(t, 8500.0, result.TotalSales)
	assert.Equal(t, -200.0, result.Reconciliation.Difference)
	assert.Equal(t, 350.0, result.ConsumedValue)
}

func TestEndShiftSession_SubmitStartsSuccessor(t *testing.T) {
	f := newEndShiftFixture(t)
	s := f.loadedSession(t)

	form := validForm()
	form.StartNextShift = true
	form.NextStaffID = "staff-2"
	form.NextCashGiven = 500
	s.ApplyForm(form)

	result, err := s.Submit()
	require.NoError(t, err)
	require.NotNil(t, result.NextShift)

	next := result.NextShift
	assert.Equal(t, "staff-2", next.StaffID)
	assert.Equal(t, "P1", next.PumpID)
	assert.Equal(t, store.ShiftEvening, next.ShiftType, "morning hands over to evening")
	assert.Equal(t, store.ShiftActive, next.Status)

	// The companion reading opens exactly where the old shift closed.
	readings, err := f.mem.Readings().ListByShift(next.ID)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "petrol", readings[0].FuelType)
	assert.Equal(t, 12840.0, readings[0].OpeningReading)
	assert.Nil(t, readings[0].ClosingReading)
	assert.Equal(t, 500.0, readings[0].CashGiven)
}

func TestEndShiftSession_SubmitFirstStepFails(t *testing.T) {
	f := newEndShiftFixture(t)
	s := f.loadedSession(t)

	f.svc.shifts = &failUpdateEndStore{ShiftStore: f.mem.Shifts()}

	form := validForm()
	form.StartNextShift = true
	form.NextStaffID = "staff-2"
	s.ApplyForm(form)

	_, err := s.Submit()

	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, "close shift", commitErr.Step)
	assert.Equal(t, StateFailed, s.State())

	// Later steps never ran: readings untouched, no successor shift.
	readings, err := f.mem.Readings().ListByShift("shift-1")
	require.NoError(t, err)
	assert.Nil(t, readings[0].ClosingReading)

	active, err := f.mem.Shifts().ListActive()
	require.NoError(t, err)
	for _, sh := range active {
		assert.NotEqual(t, "staff-2", sh.StaffID)
	}
}

func TestEndShiftSession_SubmitMidSequenceFailureKeepsEarlierSteps(t *testing.T) {
	f := newEndShiftFixture(t)
	s := f.loadedSession(t)
	s.ApplyForm(validForm())
	require.NoError(t, s.Ledger().SetReturned(f.oil.ID, 3))

	f.svc.readings = &failReadingUpdateStore{ReadingStore: f.mem.Readings()}

	_, err := s.Submit()

	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, "update readings", commitErr.Step)

	// There is no rollback: the shift stayed closed even though the
	// sequence aborted right after.
	closed, err := f.mem.Shifts().GetByID("shift-1")
	require.NoError(t, err)
	assert.Equal(t, store.ShiftCompleted, closed.Status)

	// The return never happened.
	c, err := f.mem.Consumables().GetByID(f.oil.ID)
	require.NoError(t, err)
	assert.Equal(t, 90.0, c.Quantity)
}

func TestEndShiftSession_EditCompletedShift(t *testing.T) {
	f := newEndShiftFixture(t)

	// Close the shift through the normal flow first.
	s := f.loadedSession(t)
	s.ApplyForm(validForm())
	require.NoError(t, s.Ledger().SetReturned(f.oil.ID, 3))
	_, err := s.Submit()
	require.NoError(t, err)

	closedOnce, err := f.mem.Shifts().GetByID("shift-1")
	require.NoError(t, err)
	firstEndTime := *closedOnce.EndTime

	settled, err := f.mem.Readings().ListByShift("shift-1")
	require.NoError(t, err)
	require.NotNil(t, settled[0].ConsumableExpenses)
	assert.Equal(t, 350.0, *settled[0].ConsumableExpenses)

	// Reopen the record for correction.
	edit := f.svc.NewSession("shift-1")
	stubRetryTiming(edit, nil)
	require.NoError(t, edit.Load(context.Background()))
	require.True(t, edit.EditingCompleted())

	// The ledger comes back seeded with the settled returns, so a recompute
	// of the consumed value matches the audited figure.
	assert.Equal(t, 3.0, edit.Ledger().Returned(f.oil.ID))
	assert.Equal(t, 350.0, edit.Ledger().ConsumedValue())

	// The form comes back prefilled from the persisted readings.
	form := edit.Form()
	assert.Equal(t, 12840.0, form.ClosingReadings["petrol"])
	assert.Equal(t, 5000.0, form.CashSales)
	assert.Equal(t, 4600.0, form.CashRemaining)

	// Correct the closing meter downward. On an active shift this would be
	// rejected; on a completed one any positive value is accepted.
	form.ClosingReadings["petrol"] = 12500.0
	edit.ApplyForm(form)
	require.NoError(t, edit.Validate())

	result, err := edit.Submit()
	require.NoError(t, err)
	assert.Equal(t, 155.0, result.FuelUsage.TotalLitres)

	// Editing only rewrites readings; the close timestamp and the settled
	// consumables are left alone.
	reloaded, err := f.mem.Shifts().GetByID("shift-1")
	require.NoError(t, err)
	assert.Equal(t, firstEndTime, *reloaded.EndTime)

	c, err := f.mem.Consumables().GetByID(f.oil.ID)
	require.NoError(t, err)
	assert.Equal(t, 93.0, c.Quantity, "returns must not be applied twice")

	readings, err := f.mem.Readings().ListByShift("shift-1")
	require.NoError(t, err)
	require.NotNil(t, readings[0].ClosingReading)
	assert.Equal(t, 12500.0, *readings[0].ClosingReading)

	// The edit rewrites the row, but the consumable expense it carries is
	// the same settled figure, not a zeroed one.
	require.NotNil(t, readings[0].ConsumableExpenses)
	assert.Equal(t, 350.0, *readings[0].ConsumableExpenses)
}

func TestNextShiftType(t *testing.T) {
	tests := []struct {
		current store.ShiftType
		want    store.ShiftType
	}{
		{current: store.ShiftMorning, want: store.ShiftEvening},
		{current: store.ShiftEvening, want: store.ShiftNight},
		{current: store.ShiftNight, want: store.ShiftMorning},
		{current: store.ShiftDay, want: store.ShiftNight},
		{current: store.ShiftType("graveyard"), want: store.ShiftDay},
		{current: store.ShiftType(""), want: store.ShiftDay},
	}

	for _, tt := range tests {
		t.Run(string(tt.current), func(t *testing.T) {
			assert.Equal(t, tt.want, NextShiftType(tt.current))
		})
	}
}
