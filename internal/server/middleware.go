package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/quotient/internal/orgcontext"
	quotedomain "github.com/smallbiznis/quotient/internal/quote/domain"
)

const HeaderOrg = "X-Org-ID"

// OrgContext resolves the organization from the request header, falling
// back to the configured default org for single-tenant installs.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))
		if raw != "" {
			orgID, err := snowflake.ParseString(raw)
			if err != nil {
				AbortWithError(c, quotedomain.ErrInvalidOrganization)
				return
			}
			c.Request = c.Request.WithContext(orgcontext.WithOrgID(c.Request.Context(), orgID))
			c.Next()
			return
		}

		if s.cfg.DefaultOrgID != 0 {
			c.Request = c.Request.WithContext(orgcontext.WithOrgID(c.Request.Context(), snowflake.ID(s.cfg.DefaultOrgID)))
			c.Next()
			return
		}

		AbortWithError(c, quotedomain.ErrInvalidOrganization)
	}
}
