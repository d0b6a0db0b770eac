package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sfdfinance/finance-core/internal/core/domain"
	"github.com/sfdfinance/finance-core/internal/core/ports"
)

// LedgerHandler handles HTTP requests for accounts and transfers.
type LedgerHandler struct {
	service ports.LedgerService
}

func NewLedgerHandler(service ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

type transferRequest struct {
	FromAccountID string `json:"from_account_id" validate:"required"`
	ToAccountID   string `json:"to_account_id" validate:"required"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
}

type openAccountsRequest struct {
	Currency string `json:"currency" validate:"required,len=3"`
}

type balanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

// Transfer executes an atomic funds movement between two accounts.
//
// @Summary      Transfer funds between accounts
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string           false  "Idempotency key; replays return the original transfer"
// @Param        body             body      transferRequest  true   "Transfer details"
// @Success      201              {object}  domain.Transfer
// @Failure      400              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /v1/transfers [post]
func (h *LedgerHandler) Transfer(c echo.Context) error {
	var req transferRequest
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

	transfer, err := h.service.Transfer(c.Request().Context(), ports.TransferInput{
		FromAccountID:  req.FromAccountID,
		ToAccountID:    req.ToAccountID,
		Amount:         req.Amount,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
		ActorID:        actorID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, transfer)
}

// Get returns one account.
//
// @Summary      Get an account
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  domain.Account
// @Failure      404  {object}  errorResponse
// @Router       /v1/accounts/{id} [get]
func (h *LedgerHandler) Get(c echo.Context) error {
	account, err := h.service.GetAccount(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// Balance returns the current balance of one account.
//
// @Summary      Get an account balance
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  balanceResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/accounts/{id}/balance [get]
func (h *LedgerHandler) Balance(c echo.Context) error {
	accountID := c.Param("id")
	balance, err := h.service.GetBalance(c.Request().Context(), accountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, balanceResponse{AccountID: accountID, Balance: balance})
}

// OpenAccounts provisions the standard account set for an institution.
//
// @Summary      Open the standard accounts for an institution
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        institution_id  path      string               true  "Institution ID"
// @Param        body            body      openAccountsRequest  true  "Account set details"
// @Success      201             {array}   domain.Account
// @Failure      400             {object}  errorResponse
// @Router       /v1/institutions/{institution_id}/accounts [post]
func (h *LedgerHandler) OpenAccounts(c echo.Context) error {
	var req openAccountsRequest
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

	accounts, err := h.service.OpenAccounts(c.Request().Context(), ports.OpenAccountsInput{
		InstitutionID: c.Param("institution_id"),
		Currency:      req.Currency,
		ActorID:       actorID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, accounts)
}

// Freeze blocks an account from participating in transfers.
//
// @Summary      Freeze an account
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  domain.Account
// @Failure      404  {object}  errorResponse
// @Router       /v1/accounts/{id}/freeze [post]
func (h *LedgerHandler) Freeze(c echo.Context) error {
	return h.setStatus(c, domain.AccountFrozen)
}

// Unfreeze reactivates a frozen account.
//
// @Summary      Unfreeze an account
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  domain.Account
// @Failure      404  {object}  errorResponse
// @Router       /v1/accounts/{id}/unfreeze [post]
func (h *LedgerHandler) Unfreeze(c echo.Context) error {
	return h.setStatus(c, domain.AccountActive)
}

func (h *LedgerHandler) setStatus(c echo.Context, status domain.AccountStatus) error {
	actorID, _, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var account *domain.Account
	if status == domain.AccountFrozen {
		account, err = h.service.FreezeAccount(c.Request().Context(), c.Param("id"), actorID)
	} else {
		account, err = h.service.UnfreezeAccount(c.Request().Context(), c.Param("id"), actorID)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, account)
}
