package server

import (
	"strings"

	"github.com/fakturo/fakturo/internal/merchantctx"
	"github.com/gin-gonic/gin"
)

const userIDHeader = "X-User-Id"

// MerchantRequired resolves the caller's merchant from the authenticated user
// identity and stores its ID on the request context. Authentication itself
// lives in the reverse proxy in front of us; the header carries the verified
// user ID.
func (s *Server) MerchantRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(userIDHeader))
		if userID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		m, err := s.merchantSvc.GetByUserID(c.Request.Context(), userID)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := merchantctx.WithMerchantID(c.Request.Context(), m.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
