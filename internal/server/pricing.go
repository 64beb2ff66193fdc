package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	ratecarddomain "github.com/voxbilllabs/voxbill/internal/ratecard/domain"
	tariffdomain "github.com/voxbilllabs/voxbill/internal/tariff/domain"
)

// ListRates godoc
// @Summary List the wholesale rate deck
// @Tags pricing
// @Produce json
// @Router /api/rates [get]
func (s *Server) ListRates(c *gin.Context) {
	rates, err := s.rateSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, rates, len(rates))
}

type saveRateRequest struct {
	DestinationCode   string `json:"destination_code"`
	DestinationName   string `json:"destination_name"`
	BuyPricePerMinute string `json:"buy_price_per_minute"`
	Active            *bool  `json:"active"`
}

// SaveRate godoc
// @Summary Create or overwrite a wholesale rate by destination code
// @Tags pricing
// @Accept json
// @Produce json
// @Router /api/rates [post]
func (s *Server) SaveRate(c *gin.Context) {
	var req saveRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	buyPrice, err := decimal.NewFromString(strings.TrimSpace(req.BuyPricePerMinute))
	if err != nil {
		AbortWithError(c, newValidationError("buy_price_per_minute", "invalid_amount", "must be a decimal string"))
		return
	}

	rate := &ratecarddomain.BaseRate{
		DestinationCode:   strings.TrimSpace(req.DestinationCode),
		DestinationName:   strings.TrimSpace(req.DestinationName),
		BuyPricePerMinute: buyPrice,
		Active:            true,
	}
	if req.Active != nil {
		rate.Active = *req.Active
	}
	if err := s.rateSvc.Save(c.Request.Context(), rate); err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, rate)
}

// ListTariffs godoc
// @Summary List tariff plans
// @Tags pricing
// @Produce json
// @Router /api/tariffs [get]
func (s *Server) ListTariffs(c *gin.Context) {
	plans, err := s.tariffSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, plans, len(plans))
}

type saveTariffRequest struct {
	ID                      string `json:"id"`
	Name                    string `json:"name"`
	PricingType             string `json:"pricing_type"`
	ProfitPercent           string `json:"profit_percent"`
	FixedProfit             string `json:"fixed_profit"`
	MinProfit               string `json:"min_profit"`
	MaxProfit               string `json:"max_profit"`
	// Precision is a pointer so an explicit 0 (whole currency units) is
	// distinguishable from an omitted field.
	Precision               *int   `json:"precision"`
	ChargingIntervalSeconds int    `json:"charging_interval_seconds"`
	SMSPrice                string `json:"sms_price"`
	Active                  *bool  `json:"active"`
}

func parseOptionalDecimal(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, newValidationError(field, "invalid_amount", "must be a decimal string")
	}
	return d, nil
}

// SaveTariff godoc
// @Summary Create or update a tariff plan
// @Tags pricing
// @Accept json
// @Produce json
// @Router /api/tariffs [post]
func (s *Server) SaveTariff(c *gin.Context) {
	var req saveTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	plan := &tariffdomain.Plan{
		Name:                    strings.TrimSpace(req.Name),
		PricingType:             tariffdomain.PricingType(req.PricingType),
		Precision:               tariffdomain.DefaultPrecision,
		ChargingIntervalSeconds: req.ChargingIntervalSeconds,
		Active:                  true,
	}
	if req.Precision != nil {
		plan.Precision = *req.Precision
	}
	if req.ID != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
		if err != nil {
			AbortWithError(c, newValidationError("id", "invalid_id", "must be a numeric id"))
			return
		}
		plan.ID = id
	}
	if req.Active != nil {
		plan.Active = *req.Active
	}

	var err error
	if plan.ProfitPercent, err = parseOptionalDecimal("profit_percent", req.ProfitPercent); err != nil {
		AbortWithError(c, err)
		return
	}
	if plan.FixedProfit, err = parseOptionalDecimal("fixed_profit", req.FixedProfit); err != nil {
		AbortWithError(c, err)
		return
	}
	if plan.MinProfit, err = parseOptionalDecimal("min_profit", req.MinProfit); err != nil {
		AbortWithError(c, err)
		return
	}
	if plan.MaxProfit, err = parseOptionalDecimal("max_profit", req.MaxProfit); err != nil {
		AbortWithError(c, err)
		return
	}
	if plan.SMSPrice, err = parseOptionalDecimal("sms_price", req.SMSPrice); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.tariffSvc.Save(c.Request.Context(), plan); err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, plan)
}

// DeleteTariff godoc
// @Summary Delete a non-predefined tariff plan
// @Tags pricing
// @Produce json
// @Router /api/tariffs/{id} [delete]
func (s *Server) DeleteTariff(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.tariffSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"deleted": id.String()})
}
