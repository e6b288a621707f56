package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/fuelpoint/fuelpoint-server/internal/services"
	"github.com/fuelpoint/fuelpoint-server/internal/store"
	"github.com/fuelpoint/fuelpoint-server/internal/utils"
)

type updateFuelPriceRequest struct {
	Price float64 `json:"price"`
}

type FuelSettingHandler struct {
	store  store.FuelSettingStore
	logger *slog.Logger
}

func NewFuelSettingHandler(s store.FuelSettingStore, l *slog.Logger) *FuelSettingHandler {
	return &FuelSettingHandler{store: s, logger: l}
}

// HandleListFuelSettings godoc
// @Summary      List fuel settings
// @Description  Responds with the configured fuel types, current rates and tank levels.
// @Tags         fuel_settings
// @Produce      json
// @Success      200  {object}  FuelSettingsResponse
// @Failure      500  {object}  utils.APIResponse
// @Security     BearerAuth
// @Router       /api/v1/fuel_settings [get]
func (h *FuelSettingHandler) HandleListFuelSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.List()
	if err != nil {
		h.logger.Error("listing fuel settings", "error", err)
		utils.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	utils.OK(w, http.StatusOK, utils.Envelope{"fuel_settings": settings}, "", nil)
}

// HandleUpdateFuelPrice godoc
// @Summary      Update a fuel price
// @Description  Sets the per-litre rate for a fuel type. Admin only.
// @Tags         fuel_settings
// @Accept       json
// @Produce      json
// @Param        fuel_type  path      string                  true  "Fuel type"
// @Param        body       body      updateFuelPriceRequest  true  "New price"
// @Success      200  {object}  utils.APIResponse
// @Failure      400  {object}  utils.APIResponse
// @Failure      404  {object}  utils.APIResponse
// @Failure      500  {object}  utils.APIResponse
// @Security     BearerAuth
// @Router       /api/v1/fuel_settings/{fuel_type}/price [put]
func (h *FuelSettingHandler) HandleUpdateFuelPrice(w http.ResponseWriter, r *http.Request) {
	fuelType := services.NormalizeFuelType(chi.URLParam(r, "fuel_type"))

	var req updateFuelPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Price <= 0 {
		utils.Fail(w, http.StatusBadRequest, "validation failed", []utils.FieldError{
			{Field: "price", Message: "must be greater than 0"},
		})
		return
	}

	if err := h.store.UpdatePrice(fuelType, req.Price); err != nil {
		if errors.Is(err, store.ErrFuelTypeNotFound) {
			utils.Error(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("updating fuel price", "error", err, "fuel_type", fuelType)
		utils.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	utils.OK(w, http.StatusOK, nil, "fuel price updated", nil)
}
