package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fuelpoint/fuelpoint-server/internal/services"
	"github.com/fuelpoint/fuelpoint-server/internal/utils"
)

type EndShiftHandler struct {
	service *services.EndShiftService
	logger  *slog.Logger
}

func NewEndShiftHandler(s *services.EndShiftService, l *slog.Logger) *EndShiftHandler {
	return &EndShiftHandler{service: s, logger: l}
}

// HandleGetEndShiftSummary godoc
// @Summary      Load the end-of-shift summary
// @Description  Loads the shift, its readings, allocated consumables and fuel rates, retrying transient store failures. A degraded response carries the load error instead of failing the request.
// @Tags         end-shift
// @Produce      json
// @Param        id   path      string   true  "Shift ID"
// @Success      200  {object}  EndShiftSummaryResponse
// @Failure      404  {object}  utils.APIResponse
// @Failure      500  {object}  utils.APIResponse
// @Security     BearerAuth
// @Router       /api/v1/shifts/{id}/end [get]
func (h *EndShiftHandler) HandleGetEndShiftSummary(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ReadIDParam(r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid shift ID")
		return
	}

	session := h.service.NewSession(id)
	if err := session.Load(r.Context()); err != nil {
		if errors.Is(err, services.ErrShiftNotFound) {
			utils.Error(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("loading end-shift session", "error", err, "shift_id", id)
		utils.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	utils.OK(w, http.StatusOK, summaryFromSession(session), "", nil)
}

func summaryFromSession(session *services.EndShiftSession) EndShiftSummaryResponse {
	resp := EndShiftSummaryResponse{
		FuelPrices:       session.FuelPrices(),
		Form:             session.Form(),
		EditingCompleted: session.EditingCompleted(),
	}
	if shift := session.Shift(); shift != nil {
		resp.Shift = *shift
	}
	for _, rd := range session.Readings() {
		resp.Readings = append(resp.Readings, *rd)
	}
	if ledger := session.Ledger(); ledger != nil {
		for _, sc := range ledger.Allocated() {
			resp.Consumables = append(resp.Consumables, *sc)
		}
	}
	if session.State() == services.StateReady {
		resp.FuelUsage = session.FuelUsage()
	}
	if err := session.LoadErr(); err != nil {
		resp.Degraded = true
		resp.DegradedReason = err.Error()
	}
	return resp
}

// HandleSubmitEndShift godoc
// @Summary      Submit the end-of-shift form
// @Description  Validates the closing form and runs the commit sequence: close the shift, patch readings, process consumable returns and optionally open the successor shift. Steps already applied are not rolled back on failure.
// @Tags         end-shift
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "Shift ID"
// @Param        body  body      services.EndShiftForm  true  "Closing form"
// @Success      200   {object}  EndShiftResultResponse
// @Failure      400   {object}  utils.APIResponse
// @Failure      404   {object}  utils.APIResponse
// @Failure      409   {object}  utils.APIResponse
// @Failure      500   {object}  utils.APIResponse
// @Failure      502   {object}  utils.APIResponse "Commit step failed, earlier steps may be applied"
// @Security     BearerAuth
// @Router       /api/v1/shifts/{id}/end [post]
func (h *EndShiftHandler) HandleSubmitEndShift(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ReadIDParam(r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid shift ID")
		return
	}

	var form services.EndShiftForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	session := h.service.NewSession(id)
	if err := session.Load(r.Context()); err != nil {
		if errors.Is(err, services.ErrShiftNotFound) {
			utils.Error(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("loading end-shift session", "error", err, "shift_id", id)
		utils.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	// A degraded load means readings or rates are missing; submitting on
	// top of that could write zeros over real meters.
	if session.State() != services.StateReady {
		utils.Error(w, http.StatusConflict, services.ErrLoadDegraded.Error())
		return
	}

	session.ApplyForm(form)

	result, err := session.Submit()
	if err != nil {
		var commitErr *services.CommitError
		switch {
		case errors.Is(err, services.ErrInvalidClosing),
			errors.Is(err, services.ErrClosingBelowOpen),
			errors.Is(err, services.ErrNegativeCash),
			errors.Is(err, services.ErrStaffRequired):
			utils.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrStaffOnActiveShift):
			utils.Error(w, http.StatusConflict, err.Error())
		case errors.As(err, &commitErr):
			// The failed step is named and earlier steps may have been
			// applied; the operator needs the full message, not a
			// generic 500.
			h.logger.Error("end-shift commit failed", "error", err, "shift_id", id, "step", commitErr.Step)
			utils.Error(w, http.StatusBadGateway, err.Error())
		default:
			h.logger.Error("submitting end-shift", "error", err, "shift_id", id)
			utils.Error(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	utils.OK(w, http.StatusOK, utils.Envelope{"result": result}, "", nil)
}

// HandleReconciliationPreview godoc
// @Summary      Preview a cash reconciliation
// @Description  Computes expected cash and the shortage or excess for arbitrary figures without touching the shift.
// @Tags         end-shift
// @Produce      json
// @Param        id              path      string   true   "Shift ID"
// @Param        cash_sales      query     number   false  "Recorded cash sales"
// @Param        cash_remaining  query     number   false  "Counted cash in hand"
// @Param        expenses        query     number   false  "Cash expenses"
// @Success      200  {object}  ReconciliationResponse
// @Failure      404  {object}  utils.APIResponse
// @Security     BearerAuth
// @Router       /api/v1/shifts/{id}/reconciliation [get]
func (h *EndShiftHandler) HandleReconciliationPreview(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ReadIDParam(r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid shift ID")
		return
	}

	shift, err := h.service.GetShift(id)
	if err != nil {
		h.logger.Error("getting shift", "error", err, "shift_id", id)
		utils.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if shift == nil {
		utils.Error(w, http.StatusNotFound, "shift not found")
		return
	}

	q := r.URL.Query()
	cashSales := parseFloatParam(q.Get("cash_sales"))
	cashRemaining := parseFloatParam(q.Get("cash_remaining"))
	expenses := parseFloatParam(q.Get("expenses"))

	rec := services.ReconcileCash(cashSales, cashRemaining, expenses)
	utils.OK(w, http.StatusOK, utils.Envelope{"reconciliation": rec}, "", nil)
}

func parseFloatParam(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
