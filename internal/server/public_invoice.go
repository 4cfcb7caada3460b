package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

func (s *Server) ViewPublicInvoice(c *gin.Context) {
	resp, err := s.publicInvoiceSvc.View(c.Request.Context(), c.Param("token"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PublicInvoicePaymentCode(c *gin.Context) {
	size := defaultQRSize
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxQRSize {
			AbortWithError(c, newValidationError("size", "invalid_size", "invalid size"))
			return
		}
		size = parsed
	}

	png, err := s.publicInvoiceSvc.PaymentCodePNG(c.Request.Context(), c.Param("token"), size)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) PublicInvoicePDF(c *gin.Context) {
	doc, err := s.publicInvoiceSvc.PDF(c.Request.Context(), c.Param("token"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", doc.InvoiceNumber))
	c.Data(http.StatusOK, "application/pdf", doc.Document)
}
