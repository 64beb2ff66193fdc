package server

import (
	"time"

	"github.com/gin-gonic/gin"
)

type generateInvoiceRequest struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// GenerateInvoice godoc
// @Summary Aggregate rated usage for a period into a pending invoice
// @Tags invoice
// @Accept json
// @Produce json
// @Router /api/accounts/{id}/invoices [post]
func (s *Server) GenerateInvoice(c *gin.Context) {
	accountID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req generateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	inv, err := s.invoiceSvc.Generate(c.Request.Context(), accountID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, inv)
}

// ListInvoices godoc
// @Summary List invoices for an account
// @Tags invoice
// @Produce json
// @Router /api/accounts/{id}/invoices [get]
func (s *Server) ListInvoices(c *gin.Context) {
	accountID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	invoices, err := s.invoiceSvc.ListByAccount(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, invoices, len(invoices))
}

// GetInvoice godoc
// @Summary Fetch one invoice with its line items
// @Tags invoice
// @Produce json
// @Router /api/invoices/{id} [get]
func (s *Server) GetInvoice(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, inv)
}

// PayInvoice godoc
// @Summary Settle a pending invoice and credit the wallet
// @Tags invoice
// @Produce json
// @Router /api/invoices/{id}/pay [post]
func (s *Server) PayInvoice(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	inv, err := s.invoiceSvc.Pay(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, inv)
}

// CancelInvoice godoc
// @Summary Cancel a pending or overdue invoice
// @Tags invoice
// @Produce json
// @Router /api/invoices/{id}/cancel [post]
func (s *Server) CancelInvoice(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	inv, err := s.invoiceSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, inv)
}
