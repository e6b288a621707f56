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

type ShiftHandler struct {
	service *services.ShiftService
	logger  *slog.Logger
}

func NewShiftHandler(s *services.ShiftService, l *slog.Logger) *ShiftHandler {
	return &ShiftHandler{service: s, logger: l}
}

// HandleStartShift godoc
// @Summary      Start a new shift
// @Description  Opens a shift for a staff member, creating one reading per fuel type with carried-forward opening readings.
// @Tags         shifts
// @Accept       json
// @Produce      json
// @Param        body  body      services.StartShiftRequest  true  "Shift data"
// @Success      201   {object}  ShiftResponse
// @Failure      400   {object}  utils.APIResponse
// @Failure      404   {object}  utils.APIResponse
// @Failure      409   {object}  utils.APIResponse
// @Failure      500   {object}  utils.APIResponse
// @Security     BearerAuth
// @Router       /api/v1/shifts [post]
func (h *ShiftHandler) HandleStartShift(w http.ResponseWriter, r *http.Request) {
	var req services.StartShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	shift, err := h.service.StartShift(req)
	if err != nil {
		var verrs utils.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			utils.Fail(w, http.StatusBadRequest, "validation failed", verrs)
		case errors.Is(err, services.ErrStaffNotFound):
			utils.Error(w, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrStaffOnActiveShift):
			utils.Error(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("starting shift", "error", err)
			utils.Error(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	utils.OK(w, http.StatusCreated, utils.Envelope{"shift": shift}, "", nil)
}

// HandleListActiveShifts godoc
// @Summary      List active shifts
// @Tags         shifts
// @Produce      json
// @Success      200  {object}  ShiftsResponse
// @Failure      500  {object}  utils.APIResponse
// @Security     BearerAuth
// @Router       /api/v1/shifts/active [get]
func (h *ShiftHandler) HandleListActiveShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.service.ListActiveShifts()
	if err != nil {
		h.logger.Error("listing active shifts", "error", err)
		utils.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	utils.OK(w, http.StatusOK, utils.Envelope{"shifts": shifts}, "", nil)
}

// HandleListCompletedShifts godoc
// @Summary      List completed shifts
// @Description  Responds with a page of completed shifts, newest first.
// @Tags         shifts
// @Produce      json
// @Param        page  query     int  false  "Page number (1-based)"
// @Success      200   {object}  ShiftsResponse
// @Failure      500   {object}  utils.APIResponse
// @Security     BearerAuth
// @Router       /api/v1/shifts/completed [get]
func (h *ShiftHandler) HandleListCompletedShifts(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	shifts, err := h.service.ListCompletedShifts(page)
	if err != nil {
		h.logger.Error("listing completed shifts", "error", err)
		utils.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	utils.OK(w, http.StatusOK, utils.Envelope{"shifts": shifts}, "", nil)
}

// HandleGetShift godoc
// @Summary      Get a single shift
// @Tags         shifts
// @Produce      json
// @Param        id   path      string   true  "Shift ID"
// @Success      200  {object}  ShiftResponse
// @Failure      404  {object}  utils.APIResponse
// @Failure      500  {object}  utils.APIResponse
// @Security     BearerAuth
// @Router       /api/v1/shifts/{id} [get]
func (h *ShiftHandler) HandleGetShift(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ReadIDParam(r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid shift ID")
		return
	}
	shift, err := h.service.GetShift(id)
	if err != nil {
		h.logger.Error("getting shift", "error", err)
		utils.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if shift == nil {
		utils.Error(w, http.StatusNotFound, "shift not found")
		return
	}
	utils.OK(w, http.StatusOK, utils.Envelope{"shift": shift}, "", nil)
}

// HandleDeleteShift godoc
// @Summary      Delete an active shift
// @Description  Removes an active shift, its readings and its consumable allocations, re-crediting allocated stock.
// @Tags         shifts
// @Produce      json
// @Param        id   path      string   true  "Shift ID"
// @Success      200  {object}  utils.APIResponse
// @Failure      400  {object}  utils.APIResponse
// @Failure      404  {object}  utils.APIResponse
// @Failure      500  {object}  utils.APIResponse
// @Security     BearerAuth
// @Router       /api/v1/shifts/{id} [delete]
func (h *ShiftHandler) HandleDeleteShift(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ReadIDParam(r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid shift ID")
		return
	}

	if err := h.service.DeleteShift(id); err != nil {
		switch {
		case errors.Is(err, services.ErrShiftNotFound):
			utils.Error(w, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrShiftNotActive):
			utils.Error(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("deleting shift", "error", err, "shift_id", id)
			utils.Error(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	utils.OK(w, http.StatusOK, nil, "shift deleted", nil)
}

// HandleAllocateConsumables godoc
// @Summary      Allocate consumables to a shift
// @Description  Hands out consumable stock to a shift, decrementing inventory.
// @Tags         shifts
// @Accept       json
// @Produce      json
// @Param        id    path      string                               true  "Shift ID"
// @Param        body  body      []services.AllocateConsumableRequest true  "Allocations"
// @Success      201   {object}  ShiftConsumablesResponse
// @Failure      400   {object}  utils.APIResponse
// @Failure      404   {object}  utils.APIResponse
// @Failure      500   {object}  utils.APIResponse
// @Security     BearerAuth
// @Router       /api/v1/shifts/{id}/consumables [post]
func (h *ShiftHandler) HandleAllocateConsumables(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ReadIDParam(r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid shift ID")
		return
	}

	var items []services.AllocateConsumableRequest
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	allocated, err := h.service.AllocateConsumables(id, items)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrShiftNotFound), errors.Is(err, services.ErrConsumableNotListed):
			utils.Error(w, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrShiftNotActive),
			errors.Is(err, services.ErrInvalidAllocation),
			errors.Is(err, services.ErrInsufficientStock):
			utils.Error(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("allocating consumables", "error", err, "shift_id", id)
			utils.Error(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	utils.OK(w, http.StatusCreated, utils.Envelope{"consumables": allocated}, "", nil)
}

// HandleListStaff godoc
// @Summary      List all staff
// @Tags         staff
// @Produce      json
// @Success      200  {object}  StaffListResponse
// @Failure      500  {object}  utils.APIResponse
// @Security     BearerAuth
// @Router       /api/v1/staff [get]
func (h *ShiftHandler) HandleListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.service.ListStaff()
	if err != nil {
		h.logger.Error("listing staff", "error", err)
		utils.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	utils.OK(w, http.StatusOK, utils.Envelope{"staff": staff}, "", nil)
}

// HandleSelectableStaff godoc
// @Summary      List staff selectable for a new shift
// @Description  Staff already on an active shift are filtered out.
// @Tags         staff
// @Produce      json
// @Success      200  {object}  StaffListResponse
// @Failure      500  {object}  utils.APIResponse
// @Security     BearerAuth
// @Router       /api/v1/staff/selectable [get]
func (h *ShiftHandler) HandleSelectableStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.service.SelectableStaff()
	if err != nil {
		h.logger.Error("listing selectable staff", "error", err)
		utils.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	utils.OK(w, http.StatusOK, utils.Envelope{"staff": staff}, "", nil)
}
