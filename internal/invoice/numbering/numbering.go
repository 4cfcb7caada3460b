// Package numbering issues merchant-scoped monotonic invoice numbers.
// Numbers are unique per merchant and never reused; a generation failure is
// surfaced as an error and must abort the caller's unit of work.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/internal/config"
	"github.com/fakturo/fakturo/internal/invoice/format"
	"github.com/fakturo/fakturo/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// ErrSequence wraps sequence allocation failures.
var ErrSequence = errors.New("invoice_number_sequence_failed")

// Sequence is the per-merchant counter row behind invoice numbers.
type Sequence struct {
	MerchantID snowflake.ID `gorm:"primaryKey"`
	LastValue  int64        `gorm:"not null"`
}

// TableName sets the database table name.
func (Sequence) TableName() string { return "invoice_sequences" }

// Generator allocates the next invoice number for a merchant. Implementations
// must be safe under concurrent callers; the returned number reflects a
// committed increment only when the surrounding transaction commits.
type Generator interface {
	Next(ctx context.Context, tx *gorm.DB, merchantID snowflake.ID, issuedAt time.Time) (string, error)
}

type generator struct {
	numbering *config.NumberingConfigHolder
}

func Provide(holder *config.NumberingConfigHolder) Generator {
	return &generator{numbering: holder}
}

var Module = fx.Module("invoice.numbering",
	fx.Provide(Provide),
)

// Next increments the merchant's counter row and formats the number with the
// current numbering template. Runs inside the caller's transaction so the
// counter advance commits (or rolls back) together with the invoice insert.
func (g *generator) Next(ctx context.Context, tx *gorm.DB, merchantID snowflake.ID, issuedAt time.Time) (string, error) {
	seq, err := g.nextValue(ctx, tx, merchantID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSequence, err)
	}

	number, err := format.Number(g.template(), issuedAt, seq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSequence, err)
	}
	return number, nil
}

func (g *generator) nextValue(ctx context.Context, tx *gorm.DB, merchantID snowflake.ID) (int64, error) {
	res := tx.WithContext(ctx).Exec(
		`UPDATE invoice_sequences SET last_value = last_value + 1 WHERE merchant_id = ?`,
		merchantID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		err := tx.WithContext(ctx).Exec(
			`INSERT INTO invoice_sequences (merchant_id, last_value) VALUES (?, 1)`,
			merchantID,
		).Error
		if err != nil {
			if !db.IsDuplicateKeyErr(err) {
				return 0, err
			}
			// Lost the insert race; increment the row the winner created.
			retry := tx.WithContext(ctx).Exec(
				`UPDATE invoice_sequences SET last_value = last_value + 1 WHERE merchant_id = ?`,
				merchantID,
			)
			if retry.Error != nil {
				return 0, retry.Error
			}
		}
	}

	var seq int64
	err := tx.WithContext(ctx).Raw(
		`SELECT last_value FROM invoice_sequences WHERE merchant_id = ?`,
		merchantID,
	).Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	if seq <= 0 {
		return 0, fmt.Errorf("sequence row missing for merchant %s", merchantID)
	}
	return seq, nil
}

func (g *generator) template() string {
	if g.numbering == nil {
		return format.DefaultTemplate
	}
	return g.numbering.Get().Template
}
