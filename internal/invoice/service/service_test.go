package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/internal/clock"
	customerdomain "github.com/fakturo/fakturo/internal/customer/domain"
	customerrepo "github.com/fakturo/fakturo/internal/customer/repository"
	"github.com/fakturo/fakturo/internal/invoice/domain"
	"github.com/fakturo/fakturo/internal/invoice/numbering"
	invoicerepo "github.com/fakturo/fakturo/internal/invoice/repository"
	"github.com/fakturo/fakturo/internal/merchantctx"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      domain.Service
	repo     domain.Repository
	clock    *clock.FakeClock
	merchant snowflake.ID
	customer customerdomain.Customer
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.Customer{},
		&domain.Invoice{},
		&numbering.Sequence{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))
	custRepo := customerrepo.Provide()
	invRepo := invoicerepo.Provide()

	merchantID := node.Generate()
	customer := customerdomain.Customer{
		ID:           node.Generate(),
		MerchantID:   merchantID,
		FullName:     "Иванов Петр Сергеевич",
		LegalAddress: "г. Москва, ул. Ленина, д. 1",
		CreatedAt:    fc.Now(),
		UpdatedAt:    fc.Now(),
	}
	require.NoError(t, custRepo.Insert(context.Background(), db, &customer))

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fc,
		Repo:      invRepo,
		Customers: custRepo,
		Numbering: numbering.Provide(nil),
	})

	return &fixture{
		db:       db,
		svc:      svc,
		repo:     invRepo,
		clock:    fc,
		merchant: merchantID,
		customer: customer,
		ctx:      merchantctx.WithMerchantID(context.Background(), merchantID),
	}
}

func (f *fixture) createInvoice(t *testing.T) domain.Invoice {
	t.Helper()
	inv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		CustomerID:  f.customer.ID.String(),
		Amount:      150000,
		Description: "Консультационные услуги за февраль",
		Items: []domain.InvoiceItem{
			{Name: "Консультация", Quantity: 1, Price: 100000, Amount: 100000},
			{Name: "Сопровождение", Quantity: 2, Price: 25000, Amount: 50000},
		},
	})
	require.NoError(t, err)
	return inv
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	inv := f.createInvoice(t)

	assert.Equal(t, domain.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, int64(150000), inv.Amount)
	assert.Equal(t, "СЧ-2026-0001", inv.InvoiceNumber)
	assert.Equal(t, "Иванов Петр Сергеевич", inv.PayerName)
	assert.Equal(t, "г. Москва, ул. Ленина, д. 1", inv.PayerAddress)
	assert.NotEmpty(t, inv.PublicToken)
	assert.Nil(t, inv.PaidAt)

	second := f.createInvoice(t)
	assert.Equal(t, "СЧ-2026-0002", second.InvoiceNumber)
	assert.NotEqual(t, inv.PublicToken, second.PublicToken)
}

func TestCreate_SnapshotIsStable(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t)

	f.customer.FullName = "ООО Ромашка"
	require.NoError(t, f.db.Save(&f.customer).Error)

	got, err := f.svc.GetByID(f.ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Иванов Петр Сергеевич", got.PayerName)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  domain.CreateInvoiceRequest
		want error
	}{
		{
			name: "unknown customer",
			req: domain.CreateInvoiceRequest{
				CustomerID: snowflake.ID(999999999).String(),
				Amount:     100,
			},
			want: domain.ErrInvalidCustomer,
		},
		{
			name: "zero amount without items",
			req: domain.CreateInvoiceRequest{
				CustomerID: f.customer.ID.String(),
			},
			want: domain.ErrInvalidAmount,
		},
		{
			name: "declared total disagrees with line sum",
			req: domain.CreateInvoiceRequest{
				CustomerID: f.customer.ID.String(),
				Amount:     100,
				Items: []domain.InvoiceItem{
					{Name: "Услуга", Quantity: 1, Price: 200, Amount: 200},
				},
			},
			want: domain.ErrInvalidAmount,
		},
		{
			name: "line amount disagrees with quantity times price",
			req: domain.CreateInvoiceRequest{
				CustomerID: f.customer.ID.String(),
				Items: []domain.InvoiceItem{
					{Name: "Услуга", Quantity: 2, Price: 100, Amount: 100},
				},
			},
			want: domain.ErrInvalidItems,
		},
		{
			name: "nameless line",
			req: domain.CreateInvoiceRequest{
				CustomerID: f.customer.ID.String(),
				Items: []domain.InvoiceItem{
					{Name: "  ", Quantity: 1, Price: 100, Amount: 100},
				},
			},
			want: domain.ErrInvalidItems,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreate_ItemSumIsAuthoritative(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		CustomerID: f.customer.ID.String(),
		Items: []domain.InvoiceItem{
			{Name: "Аренда", Quantity: 3, Price: 50000, Amount: 150000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(150000), inv.Amount)
}

func TestApplyTransition_Lifecycle(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t)

	sent, err := f.svc.ApplyTransition(f.ctx, inv.ID.String(), domain.InvoiceStatusSent)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusSent, sent.Status)
	assert.Nil(t, sent.PaidAt)

	viewed, err := f.svc.ApplyTransition(f.ctx, inv.ID.String(), domain.InvoiceStatusViewed)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusViewed, viewed.Status)

	f.clock.Advance(48 * time.Hour)
	paid, err := f.svc.ApplyTransition(f.ctx, inv.ID.String(), domain.InvoiceStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.WithinDuration(t, f.clock.Now(), *paid.PaidAt, time.Second)
}

func TestApplyTransition_DraftCannotBePaid(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t)

	_, err := f.svc.ApplyTransition(f.ctx, inv.ID.String(), domain.InvoiceStatusPaid)
	var invalid *domain.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, domain.InvoiceStatusDraft, invalid.From)
	assert.Equal(t, domain.InvoiceStatusPaid, invalid.To)

	got, err := f.svc.GetByID(f.ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusDraft, got.Status)
}

func TestApplyTransition_TerminalStates(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t)

	_, err := f.svc.ApplyTransition(f.ctx, inv.ID.String(), domain.InvoiceStatusCancelled)
	require.NoError(t, err)

	_, err = f.svc.ApplyTransition(f.ctx, inv.ID.String(), domain.InvoiceStatusSent)
	var invalid *domain.InvalidTransitionError
	assert.True(t, errors.As(err, &invalid))
}

func TestApplyTransition_Idempotent(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t)

	_, err := f.svc.ApplyTransition(f.ctx, inv.ID.String(), domain.InvoiceStatusSent)
	require.NoError(t, err)

	again, err := f.svc.ApplyTransition(f.ctx, inv.ID.String(), domain.InvoiceStatusSent)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusSent, again.Status)
}

// The compare-and-set guard is what keeps two racing viewers from tripping
// over each other: once the row left the guard set the second writer must
// see zero rows affected instead of overwriting.
func TestTransitionStatus_GuardMiss(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t)
	ctx := context.Background()

	_, err := f.svc.ApplyTransition(f.ctx, inv.ID.String(), domain.InvoiceStatusSent)
	require.NoError(t, err)

	now := f.clock.Now().UTC()
	moved, err := f.repo.TransitionStatus(ctx, f.db, inv.ID,
		[]domain.InvoiceStatus{domain.InvoiceStatusSent}, domain.InvoiceStatusViewed, nil, now)
	require.NoError(t, err)
	assert.True(t, moved)

	// Second attempt models the losing side of the race.
	moved, err = f.repo.TransitionStatus(ctx, f.db, inv.ID,
		[]domain.InvoiceStatus{domain.InvoiceStatusSent}, domain.InvoiceStatusViewed, nil, now)
	require.NoError(t, err)
	assert.False(t, moved)

	got, err := f.svc.GetByID(f.ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusViewed, got.Status)
}

func TestGetByID_ScopedToMerchant(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	otherCtx := merchantctx.WithMerchantID(context.Background(), node.Generate())

	_, err = f.svc.GetByID(otherCtx, inv.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_FilterAndPaging(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		inv := f.createInvoice(t)
		f.clock.Advance(time.Second)
		if i == 0 {
			_, err := f.svc.ApplyTransition(f.ctx, inv.ID.String(), domain.InvoiceStatusSent)
			require.NoError(t, err)
		}
	}

	all, err := f.svc.List(f.ctx, domain.ListInvoiceRequest{PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, all.Invoices, 3)
	assert.False(t, all.HasMore)

	sent := domain.InvoiceStatusSent
	filtered, err := f.svc.List(f.ctx, domain.ListInvoiceRequest{PageSize: 10, Status: &sent})
	require.NoError(t, err)
	assert.Len(t, filtered.Invoices, 1)

	first, err := f.svc.List(f.ctx, domain.ListInvoiceRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, first.Invoices, 2)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	rest, err := f.svc.List(f.ctx, domain.ListInvoiceRequest{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, rest.Invoices, 1)
	assert.False(t, rest.HasMore)
}

func TestList_CursorRoundTrip(t *testing.T) {
	f := newFixture(t)

	// Two invoices share a creation instant so the second page exercises
	// the id tiebreak, not just the timestamp comparison.
	first := f.createInvoice(t)
	second := f.createInvoice(t)
	f.clock.Advance(time.Hour)
	third := f.createInvoice(t)

	page1, err := f.svc.List(f.ctx, domain.ListInvoiceRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page1.Invoices, 2)
	assert.True(t, page1.HasMore)
	require.NotEmpty(t, page1.NextPageToken)
	assert.Equal(t, third.ID, page1.Invoices[0].ID)
	assert.Equal(t, second.ID, page1.Invoices[1].ID)

	page2, err := f.svc.List(f.ctx, domain.ListInvoiceRequest{PageSize: 2, PageToken: page1.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page2.Invoices, 1)
	assert.False(t, page2.HasMore)
	assert.Equal(t, first.ID, page2.Invoices[0].ID)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)

	send := func(inv domain.Invoice) domain.Invoice {
		t.Helper()
		moved, err := f.svc.ApplyTransition(f.ctx, inv.ID.String(), domain.InvoiceStatusSent)
		require.NoError(t, err)
		return moved
	}
	pay := func(inv domain.Invoice) {
		t.Helper()
		_, err := f.svc.ApplyTransition(f.ctx, inv.ID.String(), domain.InvoiceStatusPaid)
		require.NoError(t, err)
	}

	// Paid in January: outside the current month's paid window.
	f.clock.Set(time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC))
	pay(send(f.createInvoice(t)))

	f.clock.Set(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))
	pending := send(f.createInvoice(t))

	due := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	overdueInv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		CustomerID:  f.customer.ID.String(),
		Amount:      40000,
		Description: "Продление лицензии",
		DueDate:     &due,
	})
	require.NoError(t, err)
	send(overdueInv)

	paidNow, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		CustomerID:  f.customer.ID.String(),
		Amount:      25000,
		Description: "Разовая консультация",
	})
	require.NoError(t, err)
	pay(send(paidNow))

	resp, err := f.svc.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, pending.Amount+overdueInv.Amount, resp.Stats.Pending)
	assert.Equal(t, paidNow.Amount, resp.Stats.Paid)
	assert.Equal(t, overdueInv.Amount, resp.Stats.Overdue)

	require.NotEmpty(t, resp.RecentInvoices)
	assert.LessOrEqual(t, len(resp.RecentInvoices), 10)
	assert.Equal(t, paidNow.ID, resp.RecentInvoices[0].ID)
}
