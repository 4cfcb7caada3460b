package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetDashboardStats(c *gin.Context) {
	resp, err := s.invoiceSvc.Dashboard(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	recent := make([]invoiceResponse, 0, len(resp.RecentInvoices))
	for _, inv := range resp.RecentInvoices {
		recent = append(recent, s.invoiceView(inv))
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"stats":           resp.Stats,
		"recent_invoices": recent,
	}})
}
