package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sfdfinance/finance-core/internal/api/middleware"
	"github.com/sfdfinance/finance-core/internal/core/domain"
)

// ctxClaims extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call:
//   - actor_id and role must be non-empty (presence proves the middleware ran).
//   - officer role requires a non-empty institution_id; without it the JWT is
//     structurally valid but operationally unusable, so reject with 401.
func ctxClaims(c echo.Context) (actorID, role, institutionID string, err error) {
	actorID, _ = c.Get(middleware.ClaimActorID).(string)
	role, _ = c.Get(middleware.ClaimRole).(string)
	if actorID == "" || role == "" {
		return "", "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	institutionID, _ = c.Get(middleware.ClaimInstitution).(string)
	if role == domain.RoleOfficer && institutionID == "" {
		return "", "", "", echo.NewHTTPError(http.StatusUnauthorized, "token missing institution identity")
	}

	return actorID, role, institutionID, nil
}
