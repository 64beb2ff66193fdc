package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	ratingdomain "github.com/voxbilllabs/voxbill/internal/rating/domain"
)

func parseIDParam(c *gin.Context, name string) (snowflake.ID, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := snowflake.ParseString(raw)
	if err != nil || raw == "" {
		AbortWithError(c, newValidationError(name, "invalid_id", "must be a numeric id"))
		return 0, false
	}
	return id, true
}

type ingestUsageRequest struct {
	AccountID         string    `json:"account_id"`
	Kind              string    `json:"kind"`
	DestinationNumber string    `json:"destination_number"`
	DurationSeconds   int       `json:"duration_seconds"`
	MessageCount      int       `json:"message_count"`
	StartTime         time.Time `json:"start_time"`
	// Rate prices and bills the record in the same request.
	Rate bool `json:"rate"`
}

// IngestUsage godoc
// @Summary Ingest a completed call or SMS
// @Tags usage
// @Accept json
// @Produce json
// @Router /api/usage [post]
func (s *Server) IngestUsage(c *gin.Context) {
	var req ingestUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	accountID, err := snowflake.ParseString(strings.TrimSpace(req.AccountID))
	if err != nil {
		AbortWithError(c, newValidationError("account_id", "invalid_id", "must be a numeric id"))
		return
	}

	record := &ratingdomain.UsageRecord{
		AccountID:         accountID,
		Kind:              ratingdomain.UsageKind(req.Kind),
		DestinationNumber: strings.TrimSpace(req.DestinationNumber),
		DurationSeconds:   req.DurationSeconds,
		MessageCount:      req.MessageCount,
		StartTime:         req.StartTime,
	}
	if err := s.ratingSvc.Ingest(c.Request.Context(), record); err != nil {
		AbortWithError(c, err)
		return
	}

	if !req.Rate {
		respondCreated(c, record)
		return
	}

	result, err := s.ratingSvc.RateAndBill(c.Request.Context(), record.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	usageRatedTotal.WithLabelValues(string(result.Status)).Inc()
	respondCreated(c, gin.H{"record": record, "result": result})
}

// RateUsage godoc
// @Summary Rate a pending usage record and debit the wallet
// @Tags usage
// @Produce json
// @Router /api/usage/{id}/rate [post]
func (s *Server) RateUsage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := s.ratingSvc.RateAndBill(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	usageRatedTotal.WithLabelValues(string(result.Status)).Inc()
	respondData(c, result)
}
