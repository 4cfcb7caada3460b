package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/internal/clock"
	"github.com/fakturo/fakturo/internal/config"
	"github.com/fakturo/fakturo/internal/customer"
	customerdomain "github.com/fakturo/fakturo/internal/customer/domain"
	"github.com/fakturo/fakturo/internal/invoice"
	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	"github.com/fakturo/fakturo/internal/invoice/numbering"
	"github.com/fakturo/fakturo/internal/merchant"
	merchantdomain "github.com/fakturo/fakturo/internal/merchant/domain"
	"github.com/fakturo/fakturo/internal/observability"
	obsmetrics "github.com/fakturo/fakturo/internal/observability/metrics"
	"github.com/fakturo/fakturo/internal/providers"
	"github.com/fakturo/fakturo/internal/publicinvoice"
	"github.com/fakturo/fakturo/internal/recurring"
	recurringdomain "github.com/fakturo/fakturo/internal/recurring/domain"
	"github.com/fakturo/fakturo/internal/scheduler"
	"github.com/fakturo/fakturo/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var baseTime = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	app     *fx.App
	db      *gorm.DB
	clk     *clock.FakeClock
	httpSrv *httptest.Server
	baseURL string
}

var env *testEnv

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	var err error
	env, err = startEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		os.Exit(1)
	}

	code := m.Run()
	env.shutdown()
	os.Exit(code)
}

func startEnv() (*testEnv, error) {
	obsmetrics.ResetSchedulerMetricsForTest()

	conn, err := gorm.Open(sqlite.Open("file:fakturo_e2e?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// sqlite has no row locks; strip the clause so the claim query parses.
	stripForUpdate := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
			newSQL = strings.ReplaceAll(newSQL, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	if err := conn.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripForUpdate); err != nil {
		return nil, err
	}
	if err := conn.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripForUpdate); err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(
		&merchantdomain.Merchant{},
		&customerdomain.Customer{},
		&invoicedomain.Invoice{},
		&recurringdomain.Template{},
		&numbering.Sequence{},
	); err != nil {
		return nil, err
	}

	clk := clock.NewFakeClock(baseTime)
	cfg := config.Config{
		AppName:            "fakturo-e2e",
		HTTPAddr:           ":0",
		SchedulerEnabled:   false,
		SchedulerBatchSize: 10,
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}

	var (
		engine *gin.Engine
		srv    *server.Server
	)
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(config.NewNumberingConfigHolder),
		observability.Module,
		fx.Provide(func() *gorm.DB { return conn }),
		fx.Provide(func() clock.Clock { return clk }),
		fx.Provide(func() *snowflake.Node { return node }),

		merchant.Module,
		customer.Module,
		invoice.Module,
		recurring.Module,
		publicinvoice.Module,
		providers.Module,
		scheduler.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Populate(&engine, &srv),
	)
	if err := app.Err(); err != nil {
		return nil, err
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return nil, err
	}

	httpSrv := httptest.NewServer(engine)

	return &testEnv{
		app:     app,
		db:      conn,
		clk:     clk,
		httpSrv: httpSrv,
		baseURL: httpSrv.URL,
	}, nil
}

func (e *testEnv) shutdown() {
	if e == nil {
		return
	}
	if e.httpSrv != nil {
		e.httpSrv.Close()
	}
	if e.app != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = e.app.Stop(stopCtx)
	}
}

func resetDatabase(t *testing.T, conn *gorm.DB) {
	t.Helper()
	env.clk.Set(baseTime)
	for _, table := range []string{
		"invoices",
		"recurring_invoices",
		"invoice_sequences",
		"customers",
		"merchants",
	} {
		if err := conn.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
}

func doJSON(t *testing.T, method, url, userID string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, raw
}

func decodeData(t *testing.T, raw []byte, out any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("decode envelope: %v: %s", err, string(raw))
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("decode data: %v: %s", err, string(envelope.Data))
	}
}

func mustStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(body))
	}
}

type invoicePayload struct {
	ID              string     `json:"id"`
	InvoiceNumber   string     `json:"invoice_number"`
	PublicToken     string     `json:"public_token"`
	Status          string     `json:"status"`
	EffectiveStatus string     `json:"effective_status"`
	Amount          int64      `json:"amount"`
	PayerName       string     `json:"payer_name"`
	DueDate         *time.Time `json:"due_date"`
	PaidAt          *time.Time `json:"paid_at"`
}

func setupMerchant(t *testing.T, userID string) {
	t.Helper()

	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/v1/merchants", "", map[string]any{
		"user_id":   userID,
		"type":      "individual",
		"full_name": "Сидоров Алексей Петрович",
		"email":     "sidorov@example.ru",
		"inn":       "123456789012",
	})
	mustStatus(t, resp, body, http.StatusOK)

	resp, body = doJSON(t, http.MethodPatch, env.baseURL+"/v1/merchant", userID, map[string]any{
		"bank_name":         "АО Тинькофф Банк",
		"bank_bic":          "044525974",
		"bank_account":      "40802810800000123456",
		"bank_corr_account": "30101810145250000974",
	})
	mustStatus(t, resp, body, http.StatusOK)
}

func createCustomer(t *testing.T, userID, fullName string) string {
	t.Helper()

	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/v1/customers", userID, map[string]any{
		"full_name": fullName,
		"email":     "payer@example.ru",
	})
	mustStatus(t, resp, body, http.StatusOK)

	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, body, &created)
	if created.ID == "" {
		t.Fatalf("expected customer id: %s", string(body))
	}
	return created.ID
}

func TestE2E_HealthCheck(t *testing.T) {
	resp, err := http.Get(env.baseURL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestE2E_InvoiceLifecycle(t *testing.T) {
	resetDatabase(t, env.db)

	const userID = "user-lifecycle"
	setupMerchant(t, userID)
	customerID := createCustomer(t, userID, "Петров Петр Петрович")

	dueDate := baseTime.AddDate(0, 0, 14)
	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/v1/invoices", userID, map[string]any{
		"customer_id": customerID,
		"description": "Разработка сайта",
		"due_date":    dueDate,
		"items": []map[string]any{
			{"name": "Дизайн", "quantity": 1, "price": 150000, "amount": 150000},
			{"name": "Верстка", "quantity": 2, "price": 50000, "amount": 100000},
		},
	})
	mustStatus(t, resp, body, http.StatusOK)

	var inv invoicePayload
	decodeData(t, body, &inv)
	if inv.InvoiceNumber != "СЧ-2026-0001" {
		t.Fatalf("expected invoice number СЧ-2026-0001, got %q", inv.InvoiceNumber)
	}
	if inv.Status != "draft" || inv.Amount != 250000 {
		t.Fatalf("unexpected invoice: %+v", inv)
	}
	if inv.PublicToken == "" {
		t.Fatalf("expected public token")
	}

	// Drafts are not visible on the public link.
	resp, body = doJSON(t, http.MethodGet, env.baseURL+"/p/invoice/"+inv.PublicToken, "", nil)
	mustStatus(t, resp, body, http.StatusNotFound)

	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/v1/invoices/"+inv.ID+"/send", userID, nil)
	mustStatus(t, resp, body, http.StatusOK)
	decodeData(t, body, &inv)
	if inv.Status != "sent" {
		t.Fatalf("expected sent, got %q", inv.Status)
	}

	// The first public view flips the invoice to viewed and carries the
	// payment code since bank details are complete.
	var view struct {
		Status              string `json:"status"`
		InvoiceNumber       string `json:"invoice_number"`
		MerchantName        string `json:"merchant_name"`
		PaymentCode         string `json:"payment_code"`
		BankDetailsComplete bool   `json:"bank_details_complete"`
	}
	resp, body = doJSON(t, http.MethodGet, env.baseURL+"/p/invoice/"+inv.PublicToken, "", nil)
	mustStatus(t, resp, body, http.StatusOK)
	decodeData(t, body, &view)
	if view.Status != "viewed" {
		t.Fatalf("expected viewed, got %q", view.Status)
	}
	if !view.BankDetailsComplete || !strings.HasPrefix(view.PaymentCode, "ST00012|") {
		t.Fatalf("unexpected payment code: %+v", view)
	}
	if !strings.Contains(view.PaymentCode, "Sum=250000") {
		t.Fatalf("expected amount in kopecks in payment code: %q", view.PaymentCode)
	}

	resp, body = doJSON(t, http.MethodGet, env.baseURL+"/p/invoice/"+inv.PublicToken+"/payment-code.png", "", nil)
	mustStatus(t, resp, body, http.StatusOK)
	if len(body) < 8 || body[0] != 0x89 || string(body[1:4]) != "PNG" {
		t.Fatalf("expected PNG payload")
	}

	// The payer can download the PDF from the same token without a session.
	resp, body = doJSON(t, http.MethodGet, env.baseURL+"/p/invoice/"+inv.PublicToken+"/pdf", "", nil)
	mustStatus(t, resp, body, http.StatusOK)
	if len(body) < 4 || string(body[:4]) != "%PDF" {
		t.Fatalf("expected PDF payload")
	}

	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/v1/invoices/"+inv.ID+"/pay", userID, nil)
	mustStatus(t, resp, body, http.StatusOK)
	decodeData(t, body, &inv)
	if inv.Status != "paid" || inv.PaidAt == nil {
		t.Fatalf("expected paid invoice, got %+v", inv)
	}

	// Paid invoices never become overdue, even past the due date.
	env.clk.Advance(30 * 24 * time.Hour)
	resp, body = doJSON(t, http.MethodGet, env.baseURL+"/v1/invoices/"+inv.ID, userID, nil)
	mustStatus(t, resp, body, http.StatusOK)
	decodeData(t, body, &inv)
	if inv.EffectiveStatus != "paid" {
		t.Fatalf("expected effective status paid, got %q", inv.EffectiveStatus)
	}
}

func TestE2E_OverdueIsDerived(t *testing.T) {
	resetDatabase(t, env.db)

	const userID = "user-overdue"
	setupMerchant(t, userID)
	customerID := createCustomer(t, userID, "Петров Петр Петрович")

	dueDate := baseTime.AddDate(0, 0, 3)
	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/v1/invoices", userID, map[string]any{
		"customer_id": customerID,
		"amount":      90000,
		"description": "Консультация",
		"due_date":    dueDate,
	})
	mustStatus(t, resp, body, http.StatusOK)

	var inv invoicePayload
	decodeData(t, body, &inv)

	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/v1/invoices/"+inv.ID+"/send", userID, nil)
	mustStatus(t, resp, body, http.StatusOK)

	env.clk.Advance(5 * 24 * time.Hour)

	resp, body = doJSON(t, http.MethodGet, env.baseURL+"/v1/invoices/"+inv.ID, userID, nil)
	mustStatus(t, resp, body, http.StatusOK)
	decodeData(t, body, &inv)
	if inv.Status != "sent" {
		t.Fatalf("stored status must stay sent, got %q", inv.Status)
	}
	if inv.EffectiveStatus != "overdue" {
		t.Fatalf("expected derived overdue, got %q", inv.EffectiveStatus)
	}

	// Payment is still accepted after the due date.
	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/v1/invoices/"+inv.ID+"/pay", userID, nil)
	mustStatus(t, resp, body, http.StatusOK)
	decodeData(t, body, &inv)
	if inv.Status != "paid" {
		t.Fatalf("expected paid, got %q", inv.Status)
	}
}

func TestE2E_InvalidTransitionRejected(t *testing.T) {
	resetDatabase(t, env.db)

	const userID = "user-transition"
	setupMerchant(t, userID)
	customerID := createCustomer(t, userID, "Петров Петр Петрович")

	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/v1/invoices", userID, map[string]any{
		"customer_id": customerID,
		"amount":      50000,
	})
	mustStatus(t, resp, body, http.StatusOK)

	var inv invoicePayload
	decodeData(t, body, &inv)

	// Drafts cannot be paid directly.
	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/v1/invoices/"+inv.ID+"/pay", userID, nil)
	mustStatus(t, resp, body, http.StatusConflict)

	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/v1/invoices/"+inv.ID+"/cancel", userID, nil)
	mustStatus(t, resp, body, http.StatusOK)

	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/v1/invoices/"+inv.ID+"/send", userID, nil)
	mustStatus(t, resp, body, http.StatusConflict)
}

func TestE2E_RecurringGeneration(t *testing.T) {
	resetDatabase(t, env.db)

	const userID = "user-recurring"
	setupMerchant(t, userID)
	customerID := createCustomer(t, userID, "Петров Петр Петрович")

	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/v1/recurring-invoices", userID, map[string]any{
		"customer_id":  customerID,
		"name":         "Ежемесячное обслуживание",
		"amount":       120000,
		"day_of_month": 15,
	})
	mustStatus(t, resp, body, http.StatusOK)

	var tpl struct {
		ID               string     `json:"id"`
		NextGenerationAt *time.Time `json:"next_generation_at"`
	}
	decodeData(t, body, &tpl)
	if tpl.NextGenerationAt == nil || !tpl.NextGenerationAt.Equal(time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next generation slot: %+v", tpl.NextGenerationAt)
	}

	var run struct {
		Considered int `json:"considered"`
		Created    int `json:"created"`
	}

	// Nothing is due before the anchor day.
	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/admin/scheduler/run", "", nil)
	mustStatus(t, resp, body, http.StatusOK)
	decodeData(t, body, &run)
	if run.Created != 0 {
		t.Fatalf("expected no invoices before anchor day, got %d", run.Created)
	}

	env.clk.Advance(6 * 24 * time.Hour)

	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/admin/scheduler/run", "", nil)
	mustStatus(t, resp, body, http.StatusOK)
	decodeData(t, body, &run)
	if run.Considered != 1 || run.Created != 1 {
		t.Fatalf("expected one generated invoice, got %+v", run)
	}

	// A second pass in the same slot is a no-op.
	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/admin/scheduler/run", "", nil)
	mustStatus(t, resp, body, http.StatusOK)
	decodeData(t, body, &run)
	if run.Created != 0 {
		t.Fatalf("expected idempotent second pass, got %+v", run)
	}

	var list struct {
		Invoices []invoicePayload `json:"invoices"`
	}
	resp, body = doJSON(t, http.MethodGet, env.baseURL+"/v1/invoices", userID, nil)
	mustStatus(t, resp, body, http.StatusOK)
	decodeData(t, body, &list)
	if len(list.Invoices) != 1 {
		t.Fatalf("expected one invoice, got %d", len(list.Invoices))
	}
	got := list.Invoices[0]
	if got.Status != "draft" || got.Amount != 120000 || got.DueDate != nil {
		t.Fatalf("unexpected generated invoice: %+v", got)
	}
}
