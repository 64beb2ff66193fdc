package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	accountdomain "github.com/voxbilllabs/voxbill/internal/account/domain"
	invoicedomain "github.com/voxbilllabs/voxbill/internal/invoice/domain"
	ledgerdomain "github.com/voxbilllabs/voxbill/internal/ledger/domain"
	ratecarddomain "github.com/voxbilllabs/voxbill/internal/ratecard/domain"
	ratingdomain "github.com/voxbilllabs/voxbill/internal/rating/domain"
	tariffdomain "github.com/voxbilllabs/voxbill/internal/tariff/domain"
)

type validationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *validationError) Error() string {
	return e.Message
}

func newValidationError(field, code, message string) *validationError {
	return &validationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() *validationError {
	return newValidationError("body", "invalid_request", "request body could not be parsed")
}

// AbortWithError maps domain errors onto HTTP status codes. Unknown errors
// are reported as 500 without leaking internals to the caller.
func AbortWithError(c *gin.Context, err error) {
	var verr *validationError
	if errors.As(err, &verr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": verr})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ratecarddomain.ErrNoRateFound):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ratecarddomain.ErrInvalidRate),
		errors.Is(err, tariffdomain.ErrInvalidTariffConfig),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, invoicedomain.ErrInvalidInvoicePeriod),
		errors.Is(err, ratingdomain.ErrInvalidUsageRecord):
		status = http.StatusBadRequest
	case errors.Is(err, ledgerdomain.ErrWalletNotFound),
		errors.Is(err, accountdomain.ErrAccountNotFound),
		errors.Is(err, ratingdomain.ErrUsageRecordNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, tariffdomain.ErrPlanNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledgerdomain.ErrConcurrentUpdateConflict),
		errors.Is(err, invoicedomain.ErrInvalidInvoiceTransition),
		errors.Is(err, ratingdomain.ErrUsageAlreadyRated),
		errors.Is(err, tariffdomain.ErrPlanPredefined):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": "internal_error", "message": "internal server error"}})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": "domain_error", "message": err.Error()}})
}
