package server

import (
	"net/http"
	"strings"
	"time"

	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	recurringdomain "github.com/fakturo/fakturo/internal/recurring/domain"
	"github.com/fakturo/fakturo/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type createRecurringInvoiceRequest struct {
	CustomerID  string               `json:"customer_id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Amount      int64                `json:"amount"`
	DayOfMonth  int                  `json:"day_of_month"`
	StartsAt    *time.Time           `json:"starts_at"`
	EndsAt      *time.Time           `json:"ends_at"`
	Items       []invoiceItemRequest `json:"items"`
}

func (s *Server) CreateRecurringInvoice(c *gin.Context) {
	var req createRecurringInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items := make([]invoicedomain.InvoiceItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, invoicedomain.InvoiceItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
			Amount:   item.Amount,
		})
	}

	resp, err := s.recurringSvc.Create(c.Request.Context(), recurringdomain.CreateTemplateRequest{
		CustomerID:  req.CustomerID,
		Name:        req.Name,
		Description: req.Description,
		Amount:      req.Amount,
		DayOfMonth:  req.DayOfMonth,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Items:       items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRecurringInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CustomerID string `form:"customer_id"`
		ActiveOnly bool   `form:"active_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.recurringSvc.List(c.Request.Context(), recurringdomain.ListTemplateRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		CustomerID: strings.TrimSpace(query.CustomerID),
		ActiveOnly: query.ActiveOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRecurringInvoice(c *gin.Context) {
	resp, err := s.recurringSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateRecurringInvoiceRequest struct {
	Name        *string                      `json:"name"`
	Description *string                      `json:"description"`
	Amount      *int64                       `json:"amount"`
	DayOfMonth  *int                         `json:"day_of_month"`
	IsActive    *bool                        `json:"is_active"`
	EndsAt      recurringdomain.OptionalTime `json:"ends_at"`
	Items       *[]invoiceItemRequest        `json:"items"`
}

func (s *Server) UpdateRecurringInvoice(c *gin.Context) {
	var req updateRecurringInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var items *[]invoicedomain.InvoiceItem
	if req.Items != nil {
		converted := make([]invoicedomain.InvoiceItem, 0, len(*req.Items))
		for _, item := range *req.Items {
			converted = append(converted, invoicedomain.InvoiceItem{
				Name:     item.Name,
				Quantity: item.Quantity,
				Price:    item.Price,
				Amount:   item.Amount,
			})
		}
		items = &converted
	}

	resp, err := s.recurringSvc.Update(c.Request.Context(), c.Param("id"), recurringdomain.UpdateTemplateRequest{
		Name:        req.Name,
		Description: req.Description,
		Amount:      req.Amount,
		DayOfMonth:  req.DayOfMonth,
		IsActive:    req.IsActive,
		EndsAt:      req.EndsAt,
		Items:       items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteRecurringInvoice(c *gin.Context) {
	if err := s.recurringSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}
