package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"github.com/smallbiznis/quotient/internal/orgcontext"
	quotedomain "github.com/smallbiznis/quotient/internal/quote/domain"
)

func (s *Server) orgFromRequest(c *gin.Context) (snowflake.ID, bool) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, quotedomain.ErrInvalidOrganization)
	}
	return orgID, ok
}

func (s *Server) ListProducts(c *gin.Context) {
	orgID, ok := s.orgFromRequest(c)
	if !ok {
		return
	}

	products, err := s.catalogRepo.ListProducts(c.Request.Context(), s.db, orgID, nil)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": products})
}

func (s *Server) GetProduct(c *gin.Context) {
	orgID, ok := s.orgFromRequest(c)
	if !ok {
		return
	}

	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, catalogdomain.ErrInvalidID)
		return
	}

	product, err := s.catalogRepo.FindProduct(c.Request.Context(), s.db, orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if product == nil {
		AbortWithError(c, catalogdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (s *Server) ListPriceBookEntries(c *gin.Context) {
	orgID, ok := s.orgFromRequest(c)
	if !ok {
		return
	}

	priceBookID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, catalogdomain.ErrInvalidID)
		return
	}

	entries, err := s.catalogRepo.ListPriceBookEntries(c.Request.Context(), s.db, orgID, priceBookID, nil)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) GetPriceBookEntry(c *gin.Context) {
	orgID, ok := s.orgFromRequest(c)
	if !ok {
		return
	}

	priceBookID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, catalogdomain.ErrInvalidID)
		return
	}
	productID, err := snowflake.ParseString(strings.TrimSpace(c.Param("productId")))
	if err != nil {
		AbortWithError(c, catalogdomain.ErrInvalidID)
		return
	}

	entry, err := s.catalogRepo.FindPriceBookEntry(c.Request.Context(), s.db, orgID, priceBookID, productID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if entry == nil {
		AbortWithError(c, catalogdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entry})
}

func (s *Server) ListTaxRates(c *gin.Context) {
	orgID, ok := s.orgFromRequest(c)
	if !ok {
		return
	}

	rates, err := s.catalogRepo.ListTaxRates(c.Request.Context(), s.db, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rates})
}
