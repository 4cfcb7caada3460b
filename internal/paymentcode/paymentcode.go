// Package paymentcode serializes invoice payment details into the
// ГОСТ Р 56042-2014 two-dimensional payment code payload consumed by
// banking applications (СБП and bank mobile apps).
package paymentcode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	merchantdomain "github.com/fakturo/fakturo/internal/merchant/domain"
)

// FormatVersion is the payload prefix. ST00012 means UTF-8 encoded values
// (ST00011 is the legacy Windows-1251 variant and is not emitted).
const FormatVersion = "ST00012"

const delimiter = "|"

// ErrIncompleteBankDetails is returned by FromInvoice when the merchant is
// missing one of the banking fields required by the payload grammar.
// Build itself never fails; callers gate on this error.
var ErrIncompleteBankDetails = errors.New("incomplete_bank_details")

// Payment holds the fields of one payment code payload.
type Payment struct {
	// Payee (merchant).
	Name         string
	PersonalAcc  string
	BankName     string
	BIC          string
	CorrespAcc   string
	PayeeINN     string
	KPP          string

	// Payer, optional.
	LastName     string
	FirstName    string
	MiddleName   string
	PayerAddress string

	// Payment.
	Purpose string
	Sum     int64 // kopecks
}

// Build serializes the payment into the fixed-grammar payload. The output is
// fully deterministic: identical inputs yield byte-identical strings. Missing
// required payee fields are emitted as empty values; validity is the caller's
// concern (see FromInvoice).
func Build(p Payment) string {
	parts := []string{FormatVersion}

	parts = append(parts, "Name="+escape(p.Name))
	parts = append(parts, "PersonalAcc="+escape(p.PersonalAcc))
	parts = append(parts, "BankName="+escape(p.BankName))
	parts = append(parts, "BIC="+escape(p.BIC))
	parts = append(parts, "CorrespAcc="+escape(p.CorrespAcc))

	if p.PayeeINN != "" {
		parts = append(parts, "PayeeINN="+escape(p.PayeeINN))
	}
	if p.KPP != "" {
		parts = append(parts, "KPP="+escape(p.KPP))
	}
	if p.LastName != "" {
		parts = append(parts, "LastName="+escape(p.LastName))
	}
	if p.FirstName != "" {
		parts = append(parts, "FirstName="+escape(p.FirstName))
	}
	if p.MiddleName != "" {
		parts = append(parts, "MiddleName="+escape(p.MiddleName))
	}
	if p.PayerAddress != "" {
		parts = append(parts, "PayerAddress="+escape(p.PayerAddress))
	}

	parts = append(parts, "Purpose="+escape(p.Purpose))
	parts = append(parts, "Sum="+strconv.FormatInt(p.Sum, 10))

	return strings.Join(parts, delimiter)
}

// FromInvoice assembles a Payment from an invoice and its issuing merchant.
// Payer ФИО is split from the snapshotted payer name; the purpose line carries
// the invoice number and description. Returns ErrIncompleteBankDetails when the
// merchant cannot receive transfers yet.
func FromInvoice(inv invoicedomain.Invoice, m merchantdomain.Merchant) (Payment, error) {
	if !m.HasBankDetails() {
		return Payment{}, ErrIncompleteBankDetails
	}

	last, first, middle := SplitFullName(inv.PayerName)

	purpose := fmt.Sprintf("Оплата по счету %s", inv.InvoiceNumber)
	if desc := strings.TrimSpace(inv.Description); desc != "" {
		purpose = purpose + ". " + desc
	}

	return Payment{
		Name:         m.FullName,
		PersonalAcc:  m.BankAccount,
		BankName:     m.BankName,
		BIC:          m.BankBIC,
		CorrespAcc:   m.BankCorrAccount,
		PayeeINN:     m.INN,
		KPP:          m.KPP,
		LastName:     last,
		FirstName:    first,
		MiddleName:   middle,
		PayerAddress: inv.PayerAddress,
		Purpose:      purpose,
		Sum:          inv.Amount,
	}, nil
}

// SplitFullName splits a Russian-style full name "Фамилия Имя Отчество".
// The first token is the last name, the second the first name, any remaining
// tokens are joined into the middle name.
func SplitFullName(full string) (last, first, middle string) {
	fields := strings.Fields(full)
	if len(fields) > 0 {
		last = fields[0]
	}
	if len(fields) > 1 {
		first = fields[1]
	}
	if len(fields) > 2 {
		middle = strings.Join(fields[2:], " ")
	}
	return last, first, middle
}

// The delimiter is structurally significant and the downstream decoder assumes
// no unescaped occurrences, so it is removed rather than quoted.
func escape(value string) string {
	value = strings.ReplaceAll(value, delimiter, "")
	value = strings.ReplaceAll(value, "\r\n", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}
