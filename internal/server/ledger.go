package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	ledgerdomain "github.com/voxbilllabs/voxbill/internal/ledger/domain"
)

type creditRequest struct {
	Amount string `json:"amount"`
	Note   string `json:"note"`
}

// CreditAccount godoc
// @Summary Top an account wallet up
// @Tags ledger
// @Accept json
// @Produce json
// @Router /api/accounts/{id}/credit [post]
func (s *Server) CreditAccount(c *gin.Context) {
	accountID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req creditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "must be a decimal string"))
		return
	}

	txn, err := s.ledgerSvc.Credit(c.Request.Context(), ledgerdomain.Entry{
		AccountID: accountID,
		Amount:    amount,
		Type:      ledgerdomain.TransactionCredit,
		Note:      strings.TrimSpace(req.Note),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	walletCreditsTotal.Inc()
	respondCreated(c, txn)
}

// GetLedgerHistory godoc
// @Summary List ledger transactions, newest first
// @Tags ledger
// @Produce json
// @Router /api/accounts/{id}/ledger [get]
func (s *Server) GetLedgerHistory(c *gin.Context) {
	accountID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	history, err := s.ledgerSvc.History(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, history, len(history))
}

// GetWallet godoc
// @Summary Show the wallet balance for an account
// @Tags ledger
// @Produce json
// @Router /api/accounts/{id}/wallet [get]
func (s *Server) GetWallet(c *gin.Context) {
	accountID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	wallet, err := s.ledgerSvc.GetWallet(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, wallet)
}
