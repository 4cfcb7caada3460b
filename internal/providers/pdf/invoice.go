package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	merchantdomain "github.com/fakturo/fakturo/internal/merchant/domain"
	"github.com/fakturo/fakturo/internal/paymentcode"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const qrImageSize = 512

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, invoice invoicedomain.Invoice, merchant merchantdomain.Merchant) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Страница {current} из {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, fmt.Sprintf("Счет на оплату № %s", invoice.InvoiceNumber), props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	meta := []string{"Дата выставления: " + invoice.IssuedAt.Format("02.01.2006")}
	if invoice.DueDate != nil {
		meta = append(meta, "Оплатить до: "+invoice.DueDate.Format("02.01.2006"))
	}
	if invoice.PeriodStart != nil && invoice.PeriodEnd != nil {
		meta = append(meta, fmt.Sprintf("Период: %s — %s",
			invoice.PeriodStart.Format("02.01.2006"),
			invoice.PeriodEnd.Format("02.01.2006")))
	}
	metaCol := col.New(6)
	for i, line := range meta {
		metaCol.Add(text.New(line, props.Text{Top: float64(i * 5), Size: 9}))
	}
	m.AddRow(18, metaCol, col.New(6))

	m.AddRow(36,
		col.New(6).Add(
			text.New("Получатель", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.New(merchant.FullName, props.Text{Top: 5, Size: 9}),
			text.New(innLine(merchant), props.Text{Top: 10, Size: 9}),
			text.New(merchant.LegalAddress, props.Text{Top: 15, Size: 9}),
		),
		col.New(6).Add(
			text.New("Плательщик", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.New(invoice.PayerName, props.Text{Top: 5, Size: 9}),
			text.New(invoice.PayerAddress, props.Text{Top: 10, Size: 9}),
		),
	)

	if merchant.HasBankDetails() {
		m.AddRow(26,
			col.New(12).Add(
				text.New("Банковские реквизиты", props.Text{Style: fontstyle.Bold, Size: 9}),
				text.New(merchant.BankName, props.Text{Top: 5, Size: 9}),
				text.New("БИК "+merchant.BankBIC+", к/с "+merchant.BankCorrAccount, props.Text{Top: 10, Size: 9}),
				text.New("р/с "+merchant.BankAccount, props.Text{Top: 15, Size: 9}),
			),
		)
	}

	m.AddRow(10,
		text.NewCol(6, "Наименование", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Кол-во", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Цена", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Сумма", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if len(invoice.Items) == 0 {
		description := invoice.Description
		if strings.TrimSpace(description) == "" {
			description = "Оплата по счету"
		}
		m.AddRow(12,
			text.NewCol(6, description, props.Text{Size: 9}),
			text.NewCol(2, "1", props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, FormatRubles(invoice.Amount), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, FormatRubles(invoice.Amount), props.Text{Size: 9, Align: align.Right}),
		)
	}
	for _, item := range invoice.Items {
		m.AddRow(12,
			text.NewCol(6, item.Name, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, FormatRubles(item.Price), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, FormatRubles(item.Amount), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(12,
		col.New(8),
		text.NewCol(2, "Итого", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, FormatRubles(invoice.Amount), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	if merchant.HasBankDetails() {
		payment, err := paymentcode.FromInvoice(invoice, merchant)
		if err == nil {
			qr, qrErr := paymentcode.EncodeQR(paymentcode.Build(payment), qrImageSize)
			if qrErr == nil {
				m.AddRow(8, text.NewCol(12, "Оплата по QR-коду", props.Text{Style: fontstyle.Bold, Size: 9, Top: 4}))
				m.AddRow(45,
					image.NewFromBytesCol(4, qr, extension.Png, props.Rect{Percent: 90}),
					col.New(8),
				)
			}
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func innLine(m merchantdomain.Merchant) string {
	if m.INN == "" {
		return ""
	}
	if m.KPP != "" {
		return "ИНН " + m.INN + ", КПП " + m.KPP
	}
	return "ИНН " + m.INN
}

// FormatRubles renders a kopeck amount as "1 500,00 ₽".
func FormatRubles(kopecks int64) string {
	sign := ""
	if kopecks < 0 {
		sign = "-"
		kopecks = -kopecks
	}
	rub := kopecks / 100
	kop := kopecks % 100

	digits := fmt.Sprintf("%d", rub)
	var grouped strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteRune(' ')
		}
		grouped.WriteRune(r)
	}
	return fmt.Sprintf("%s%s,%02d ₽", sign, grouped.String(), kop)
}
