package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	"github.com/fakturo/fakturo/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type invoiceItemRequest struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Price    int64  `json:"price"`
	Amount   int64  `json:"amount"`
}

type createInvoiceRequest struct {
	CustomerID  string               `json:"customer_id"`
	Amount      int64                `json:"amount"`
	Description string               `json:"description"`
	DueDate     *time.Time           `json:"due_date"`
	PeriodStart *time.Time           `json:"period_start"`
	PeriodEnd   *time.Time           `json:"period_end"`
	Items       []invoiceItemRequest `json:"items"`
}

// invoiceResponse decorates the stored invoice with its effective status, so
// consumers see overdue without the column ever holding it.
type invoiceResponse struct {
	invoicedomain.Invoice
	EffectiveStatus invoicedomain.InvoiceStatus `json:"effective_status"`
}

func (s *Server) invoiceView(inv invoicedomain.Invoice) invoiceResponse {
	return invoiceResponse{
		Invoice:         inv,
		EffectiveStatus: inv.EffectiveStatus(s.clock.Now()),
	}
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
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

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		CustomerID:  req.CustomerID,
		Amount:      req.Amount,
		Description: req.Description,
		DueDate:     req.DueDate,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Items:       items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s.invoiceView(resp)})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status     string `form:"status"`
		CustomerID string `form:"customer_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var status *invoicedomain.InvoiceStatus
	if raw := strings.TrimSpace(query.Status); raw != "" {
		st := invoicedomain.InvoiceStatus(raw)
		status = &st
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		Status:     status,
		CustomerID: strings.TrimSpace(query.CustomerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]invoiceResponse, 0, len(resp.Invoices))
	for _, inv := range resp.Invoices {
		views = append(views, s.invoiceView(inv))
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"invoices":        views,
		"next_page_token": resp.NextPageToken,
		"has_more":        resp.HasMore,
	}})
}

func (s *Server) GetInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s.invoiceView(resp)})
}

func (s *Server) GetInvoicePDF(c *gin.Context) {
	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	merchant, err := s.merchantSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reader, err := s.pdfProvider.GenerateInvoice(c.Request.Context(), invoice, merchant)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	doc, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", invoice.InvoiceNumber))
	c.Data(http.StatusOK, "application/pdf", doc)
}

func (s *Server) SendInvoice(c *gin.Context) {
	s.applyTransition(c, invoicedomain.InvoiceStatusSent)
}

func (s *Server) PayInvoice(c *gin.Context) {
	s.applyTransition(c, invoicedomain.InvoiceStatusPaid)
}

func (s *Server) CancelInvoice(c *gin.Context) {
	s.applyTransition(c, invoicedomain.InvoiceStatusCancelled)
}

func (s *Server) applyTransition(c *gin.Context, target invoicedomain.InvoiceStatus) {
	resp, err := s.invoiceSvc.ApplyTransition(c.Request.Context(), c.Param("id"), target)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s.invoiceView(resp)})
}
