package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sfdfinance/finance-core/internal/core/ports"
)

// SubsidyHandler handles HTTP requests for subsidy pool management.
type SubsidyHandler struct {
	service ports.SubsidyService
}

func NewSubsidyHandler(service ports.SubsidyService) *SubsidyHandler {
	return &SubsidyHandler{service: service}
}

type createPoolRequest struct {
	InstitutionID     string `json:"institution_id" validate:"required"`
	AllocatedAmount   int64  `json:"allocated_amount" validate:"required,gt=0"`
	Currency          string `json:"currency" validate:"required,len=3"`
	LowThreshold      int64  `json:"low_threshold" validate:"gte=0"`
	CriticalThreshold int64  `json:"critical_threshold" validate:"gte=0"`
}

type consumeRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

type revokeRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"required"`
}

// Create registers a new subsidy pool.
//
// @Summary      Create a subsidy pool
// @Tags         subsidies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createPoolRequest  true  "Pool details"
// @Success      201   {object}  domain.SubsidyPool
// @Failure      400   {object}  errorResponse
// @Router       /v1/subsidy-pools [post]
func (h *SubsidyHandler) Create(c echo.Context) error {
	var req createPoolRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	actorID, _, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	pool, err := h.service.CreatePool(c.Request().Context(), ports.CreatePoolInput{
		InstitutionID:     req.InstitutionID,
		AllocatedAmount:   req.AllocatedAmount,
		Currency:          req.Currency,
		LowThreshold:      req.LowThreshold,
		CriticalThreshold: req.CriticalThreshold,
		ActorID:           actorID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, pool)
}

// Consume draws down a pool.
//
// @Summary      Consume from a subsidy pool
// @Tags         subsidies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Pool ID"
// @Param        body  body      consumeRequest  true  "Consumption details"
// @Success      200   {object}  domain.SubsidyPool
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/subsidy-pools/{id}/consume [post]
func (h *SubsidyHandler) Consume(c echo.Context) error {
	var req consumeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	actorID, _, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	pool, err := h.service.Consume(c.Request().Context(), ports.ConsumeInput{
		PoolID:  c.Param("id"),
		Amount:  req.Amount,
		ActorID: actorID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, pool)
}

// Revoke gives consumption back to a pool.
//
// @Summary      Revoke consumption from a subsidy pool
// @Tags         subsidies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Pool ID"
// @Param        body  body      revokeRequest  true  "Revocation details"
// @Success      200   {object}  domain.SubsidyPool
// @Failure      404   {object}  errorResponse
// @Router       /v1/subsidy-pools/{id}/revoke [post]
func (h *SubsidyHandler) Revoke(c echo.Context) error {
	var req revokeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	actorID, _, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	pool, err := h.service.Revoke(c.Request().Context(), ports.RevokeInput{
		PoolID:  c.Param("id"),
		Amount:  req.Amount,
		Reason:  req.Reason,
		ActorID: actorID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, pool)
}

// Get returns one pool with its usage and thresholds.
//
// @Summary      Get a subsidy pool
// @Tags         subsidies
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Pool ID"
// @Success      200  {object}  domain.SubsidyPool
// @Failure      404  {object}  errorResponse
// @Router       /v1/subsidy-pools/{id} [get]
func (h *SubsidyHandler) Get(c echo.Context) error {
	pool, err := h.service.GetPool(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pool)
}
