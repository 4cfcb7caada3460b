package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/internal/clock"
	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	invoicerepo "github.com/fakturo/fakturo/internal/invoice/repository"
	merchantdomain "github.com/fakturo/fakturo/internal/merchant/domain"
	merchantrepo "github.com/fakturo/fakturo/internal/merchant/repository"
	pdfprovider "github.com/fakturo/fakturo/internal/providers/pdf"
	"github.com/fakturo/fakturo/internal/publicinvoice/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      domain.Service
	clock    *clock.FakeClock
	node     *snowflake.Node
	merchant merchantdomain.Merchant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&merchantdomain.Merchant{}, &invoicedomain.Invoice{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	merchant := merchantdomain.Merchant{
		ID:              node.Generate(),
		UserID:          "user-1",
		Type:            merchantdomain.MerchantTypeIndividual,
		FullName:        "ИП Сидоров Алексей Владимирович",
		Slug:            "ip-sidorov",
		INN:             "770708389371",
		BankName:        "АО Тинькофф Банк",
		BankBIC:         "044525974",
		BankAccount:     "40802810400000123456",
		BankCorrAccount: "30101810145250000974",
		IsActive:        true,
		CreatedAt:       fc.Now(),
		UpdatedAt:       fc.Now(),
	}
	require.NoError(t, db.Create(&merchant).Error)

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Clock:     fc,
		Invoices:  invoicerepo.Provide(),
		Merchants: merchantrepo.Provide(),
		PDF:       pdfprovider.New(),
	})

	return &fixture{db: db, svc: svc, clock: fc, node: node, merchant: merchant}
}

func (f *fixture) seedInvoice(t *testing.T, status invoicedomain.InvoiceStatus, mutate func(*invoicedomain.Invoice)) invoicedomain.Invoice {
	t.Helper()

	token, err := invoicedomain.NewPublicToken()
	require.NoError(t, err)

	inv := invoicedomain.Invoice{
		ID:            f.node.Generate(),
		MerchantID:    f.merchant.ID,
		CustomerID:    f.node.Generate(),
		InvoiceNumber: "СЧ-2026-0001",
		PublicToken:   token,
		PayerName:     "Иванов Петр Сергеевич",
		PayerAddress:  "г. Москва, ул. Ленина, д. 1",
		Amount:        150000,
		Description:   "Консультационные услуги",
		Status:        status,
		IssuedAt:      f.clock.Now(),
		CreatedAt:     f.clock.Now(),
		UpdatedAt:     f.clock.Now(),
	}
	if mutate != nil {
		mutate(&inv)
	}
	require.NoError(t, f.db.Create(&inv).Error)
	return inv
}

func (f *fixture) storedStatus(t *testing.T, id snowflake.ID) invoicedomain.InvoiceStatus {
	t.Helper()
	var inv invoicedomain.Invoice
	require.NoError(t, f.db.First(&inv, "id = ?", id).Error)
	return inv.Status
}

func TestView_FirstViewTransitions(t *testing.T) {
	f := newFixture(t)
	inv := f.seedInvoice(t, invoicedomain.InvoiceStatusSent, nil)

	view, err := f.svc.View(context.Background(), inv.PublicToken)
	require.NoError(t, err)

	assert.Equal(t, invoicedomain.InvoiceStatusViewed, view.Status)
	assert.Equal(t, invoicedomain.InvoiceStatusViewed, f.storedStatus(t, inv.ID))
	assert.Equal(t, "СЧ-2026-0001", view.InvoiceNumber)
	assert.Equal(t, "ИП Сидоров Алексей Владимирович", view.MerchantName)
	assert.True(t, view.BankDetailsComplete)
	assert.Contains(t, view.PaymentCode, "ST00012|Name=ИП Сидоров Алексей Владимирович")
	assert.Contains(t, view.PaymentCode, "|Sum=150000")
}

func TestView_RepeatViewStaysViewed(t *testing.T) {
	f := newFixture(t)
	inv := f.seedInvoice(t, invoicedomain.InvoiceStatusSent, nil)

	_, err := f.svc.View(context.Background(), inv.PublicToken)
	require.NoError(t, err)

	view, err := f.svc.View(context.Background(), inv.PublicToken)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusViewed, view.Status)
}

func TestView_ConcurrentFirstViews(t *testing.T) {
	f := newFixture(t)
	inv := f.seedInvoice(t, invoicedomain.InvoiceStatusSent, nil)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.View(context.Background(), inv.PublicToken)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, invoicedomain.InvoiceStatusViewed, f.storedStatus(t, inv.ID))
}

func TestView_PaidInvoiceDoesNotRegress(t *testing.T) {
	f := newFixture(t)
	paidAt := f.clock.Now()
	inv := f.seedInvoice(t, invoicedomain.InvoiceStatusPaid, func(inv *invoicedomain.Invoice) {
		inv.PaidAt = &paidAt
	})

	view, err := f.svc.View(context.Background(), inv.PublicToken)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, view.Status)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, f.storedStatus(t, inv.ID))
}

func TestView_OverdueIsDerivedNotStored(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	inv := f.seedInvoice(t, invoicedomain.InvoiceStatusViewed, func(inv *invoicedomain.Invoice) {
		inv.DueDate = &due
	})

	view, err := f.svc.View(context.Background(), inv.PublicToken)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusOverdue, view.Status)
	assert.Equal(t, invoicedomain.InvoiceStatusViewed, f.storedStatus(t, inv.ID))
}

func TestView_DraftAndUnknownUnavailable(t *testing.T) {
	f := newFixture(t)
	inv := f.seedInvoice(t, invoicedomain.InvoiceStatusDraft, nil)

	_, err := f.svc.View(context.Background(), inv.PublicToken)
	assert.ErrorIs(t, err, domain.ErrInvoiceUnavailable)

	_, err = f.svc.View(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, domain.ErrInvoiceUnavailable)

	_, err = f.svc.View(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvoiceUnavailable)
}

func TestView_IncompleteBankDetails(t *testing.T) {
	f := newFixture(t)
	f.merchant.BankAccount = ""
	require.NoError(t, f.db.Save(&f.merchant).Error)

	inv := f.seedInvoice(t, invoicedomain.InvoiceStatusSent, nil)

	view, err := f.svc.View(context.Background(), inv.PublicToken)
	require.NoError(t, err)
	assert.False(t, view.BankDetailsComplete)
	assert.Empty(t, view.PaymentCode)

	_, err = f.svc.PaymentCodePNG(context.Background(), inv.PublicToken, 256)
	assert.ErrorIs(t, err, domain.ErrPaymentCodeUnavailable)
}

func TestPaymentCodePNG(t *testing.T) {
	f := newFixture(t)
	inv := f.seedInvoice(t, invoicedomain.InvoiceStatusSent, nil)

	png, err := f.svc.PaymentCodePNG(context.Background(), inv.PublicToken, 256)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestPDF(t *testing.T) {
	f := newFixture(t)
	inv := f.seedInvoice(t, invoicedomain.InvoiceStatusSent, nil)

	doc, err := f.svc.PDF(context.Background(), inv.PublicToken)
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber, doc.InvoiceNumber)
	require.Greater(t, len(doc.Document), 4)
	assert.Equal(t, []byte("%PDF"), doc.Document[:4])

	// Downloading the document is not a view.
	assert.Equal(t, invoicedomain.InvoiceStatusSent, f.storedStatus(t, inv.ID))
}

func TestPDF_DraftUnavailable(t *testing.T) {
	f := newFixture(t)
	inv := f.seedInvoice(t, invoicedomain.InvoiceStatusDraft, nil)

	_, err := f.svc.PDF(context.Background(), inv.PublicToken)
	assert.ErrorIs(t, err, domain.ErrInvoiceUnavailable)
}
