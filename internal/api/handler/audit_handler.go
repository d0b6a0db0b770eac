package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sfdfinance/finance-core/internal/core/domain"
	"github.com/sfdfinance/finance-core/internal/core/ports"
)

// AuditHandler exposes the append-only audit trail for reads.
type AuditHandler struct {
	audit ports.AuditRepository
}

func NewAuditHandler(audit ports.AuditRepository) *AuditHandler {
	return &AuditHandler{audit: audit}
}

var auditEntityTypes = map[string]domain.EntityType{
	string(domain.EntityAccount):     domain.EntityAccount,
	string(domain.EntityTransfer):    domain.EntityTransfer,
	string(domain.EntityLoanRequest): domain.EntityLoanRequest,
	string(domain.EntitySubsidyPool): domain.EntitySubsidyPool,
}

// Query returns the audit entries for one entity, oldest first.
//
// @Summary      Query the audit trail for an entity
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        entity_type  path      string  true  "Entity type (account, transfer, loan_request, subsidy_pool)"
// @Param        entity_id    path      string  true  "Entity ID"
// @Success      200          {array}   domain.AuditLogEntry
// @Failure      400          {object}  errorResponse
// @Router       /v1/audit/{entity_type}/{entity_id} [get]
func (h *AuditHandler) Query(c echo.Context) error {
	entityType, ok := auditEntityTypes[c.Param("entity_type")]
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown entity type")
	}

	entries, err := h.audit.Query(c.Request().Context(), entityType, c.Param("entity_id"))
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []*domain.AuditLogEntry{}
	}

	return c.JSON(http.StatusOK, entries)
}
