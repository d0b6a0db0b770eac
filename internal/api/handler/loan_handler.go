package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sfdfinance/finance-core/internal/core/domain"
	"github.com/sfdfinance/finance-core/internal/core/ports"
)

// LoanHandler handles HTTP requests for the loan request lifecycle.
type LoanHandler struct {
	service ports.LoanService
}

func NewLoanHandler(service ports.LoanService) *LoanHandler {
	return &LoanHandler{service: service}
}

type submitLoanRequest struct {
	InstitutionID  string   `json:"institution_id" validate:"required"`
	ClientID       string   `json:"client_id" validate:"required"`
	Amount         int64    `json:"amount" validate:"required,gt=0"`
	Currency       string   `json:"currency" validate:"required,len=3"`
	DurationMonths int      `json:"duration_months" validate:"required,gt=0"`
	Purpose        string   `json:"purpose" validate:"required"`
	MonthlyIncome  int64    `json:"monthly_income" validate:"required,gt=0"`
	FundingSource  string   `json:"funding_source" validate:"required,oneof=internal subsidy"`
	SubsidyID      string   `json:"subsidy_id"`
	Documents      []string `json:"documents" validate:"required,min=1"`
}

type transitionRequest struct {
	Event                 string `json:"event" validate:"required"`
	DisbursementAccountID string `json:"disbursement_account_id"`
	Note                  string `json:"note"`
}

type verifyDocumentRequest struct {
	Document string `json:"document" validate:"required"`
}

// Submit files a new loan request and moves it to submitted.
//
// @Summary      Submit a loan request
// @Tags         loans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      submitLoanRequest  true  "Loan request details"
// @Success      201   {object}  domain.LoanRequest
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/loan-requests [post]
func (h *LoanHandler) Submit(c echo.Context) error {
	var req submitLoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	actorID, role, institutionID, err := ctxClaims(c)
	if err != nil {
		return err
	}
	// Officers may only file for their own institution.
	if role == domain.RoleOfficer && institutionID != req.InstitutionID {
		return domain.ErrForbidden
	}

	loan, err := h.service.Submit(c.Request().Context(), ports.SubmitLoanInput{
		InstitutionID:  req.InstitutionID,
		ClientID:       req.ClientID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		DurationMonths: req.DurationMonths,
		Purpose:        req.Purpose,
		MonthlyIncome:  req.MonthlyIncome,
		FundingSource:  domain.FundingSource(req.FundingSource),
		SubsidyID:      req.SubsidyID,
		Documents:      req.Documents,
		ActorID:        actorID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, loan)
}

// Transition fires one lifecycle event against a loan request.
//
// @Summary      Apply a lifecycle event to a loan request
// @Tags         loans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Loan request ID"
// @Param        body  body      transitionRequest  true  "Event details"
// @Success      200   {object}  domain.LoanRequest
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/loan-requests/{id}/transitions [post]
func (h *LoanHandler) Transition(c echo.Context) error {
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	actorID, role, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	loan, err := h.service.Transition(c.Request().Context(), ports.TransitionInput{
		LoanID:                c.Param("id"),
		Event:                 domain.LoanEvent(req.Event),
		ActorID:               actorID,
		Role:                  role,
		DisbursementAccountID: req.DisbursementAccountID,
		Note:                  req.Note,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loan)
}

// VerifyDocument checks off one required document during verification.
//
// @Summary      Mark a loan document as verified
// @Tags         loans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "Loan request ID"
// @Param        body  body      verifyDocumentRequest  true  "Document name"
// @Success      200   {object}  domain.LoanRequest
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/loan-requests/{id}/documents/verify [post]
func (h *LoanHandler) VerifyDocument(c echo.Context) error {
	var req verifyDocumentRequest
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

	loan, err := h.service.VerifyDocument(c.Request().Context(), ports.VerifyDocumentInput{
		LoanID:   c.Param("id"),
		Document: req.Document,
		ActorID:  actorID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loan)
}

// Get returns one loan request with its full transition history.
//
// @Summary      Get a loan request
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Loan request ID"
// @Success      200  {object}  domain.LoanRequest
// @Failure      404  {object}  errorResponse
// @Router       /v1/loan-requests/{id} [get]
func (h *LoanHandler) Get(c echo.Context) error {
	loan, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loan)
}
