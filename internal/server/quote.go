package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	discountdomain "github.com/smallbiznis/quotient/internal/discount/domain"
	quotedomain "github.com/smallbiznis/quotient/internal/quote/domain"
)

func (s *Server) CreateQuote(c *gin.Context) {
	var req quotedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.quoteSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetQuote(c *gin.Context) {
	resp, err := s.quoteSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecomputeQuote(c *gin.Context) {
	resp, err := s.quoteSvc.Recompute(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SubmitQuote(c *gin.Context) {
	resp, err := s.quoteSvc.Submit(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (s *Server) TransitionQuote(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	next := quotedomain.QuoteStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !next.Known() {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.quoteSvc.Transition(c.Request.Context(), strings.TrimSpace(c.Param("id")), next)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddLineItem(c *gin.Context) {
	var req quotedomain.AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.quoteSvc.AddLineItem(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

func (s *Server) UpdateLineQuantity(c *gin.Context) {
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.quoteSvc.UpdateLineQuantity(
		c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("lineId")),
		req.Quantity,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveLineItem(c *gin.Context) {
	resp, err := s.quoteSvc.RemoveLineItem(
		c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("lineId")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type applyDiscountRequest struct {
	DiscountID string   `json:"discount_id"`
	LineItemID string   `json:"line_item_id"`
	Type       string   `json:"type"`
	Value      *float64 `json:"value"`
	Reason     string   `json:"reason"`
}

func (s *Server) ApplyDiscount(c *gin.Context) {
	var req applyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	svcReq := quotedomain.ApplyDiscountRequest{
		DiscountID: strings.TrimSpace(req.DiscountID),
		LineItemID: strings.TrimSpace(req.LineItemID),
	}
	if svcReq.DiscountID == "" {
		if req.Value == nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		svcReq.Manual = &discountdomain.ManualDiscount{
			Type:   discountdomain.DiscountType(strings.ToUpper(strings.TrimSpace(req.Type))),
			Value:  decimal.NewFromFloat(*req.Value),
			Reason: req.Reason,
		}
	}

	resp, err := s.quoteSvc.ApplyDiscount(c.Request.Context(), strings.TrimSpace(c.Param("id")), svcReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveDiscount(c *gin.Context) {
	resp, err := s.quoteSvc.RemoveDiscount(
		c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("appliedId")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
