package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	obsmetrics "github.com/fakturo/fakturo/internal/observability/metrics"
	recurringdomain "github.com/fakturo/fakturo/internal/recurring/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errTemplateClaimed marks a candidate another run locked first. Not a
// failure; the other run owns the generation.
var errTemplateClaimed = errors.New("template_claimed")

type TemplateFailure struct {
	TemplateID snowflake.ID `json:"template_id"`
	Err        string       `json:"error"`
}

// RunResult aggregates one scheduling pass. Considered counts templates that
// were due when the pass started; Created counts invoices committed.
type RunResult struct {
	Considered int               `json:"considered"`
	Created    int               `json:"created"`
	Failures   []TemplateFailure `json:"failures,omitempty"`
}

// ProcessRecurring materializes invoices for every due template. Templates
// fail independently: one broken template is recorded and skipped, the rest
// of the batch proceeds, and already-committed invoices stay committed. A
// failed template keeps its next_generation_at, so the next pass retries it
// (generation is at-least-once).
func (s *Scheduler) ProcessRecurring(ctx context.Context) (RunResult, error) {
	now := s.clock.Now().UTC()

	due, err := s.templates.ListDue(ctx, s.db, now, s.cfg.BatchSize)
	if err != nil {
		return RunResult{}, fmt.Errorf("list due templates: %w", err)
	}

	result := RunResult{Considered: len(due)}
	schedMetrics := obsmetrics.Scheduler()

	for _, candidate := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := s.generateFromTemplate(ctx, candidate.ID)
		switch {
		case err == nil:
			result.Created++
			schedMetrics.IncTemplateProcessed(obsmetrics.TemplateResultCreated)
		case errors.Is(err, errTemplateClaimed):
			s.log.Debug("template claimed elsewhere",
				zap.String("template_id", candidate.ID.String()),
			)
		default:
			result.Failures = append(result.Failures, TemplateFailure{
				TemplateID: candidate.ID,
				Err:        err.Error(),
			})
			schedMetrics.IncTemplateProcessed(obsmetrics.TemplateResultFailed)
			s.log.Warn("template generation failed",
				zap.String("template_id", candidate.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.log.Info("recurring invoices processed",
		zap.Int("considered", result.Considered),
		zap.Int("created", result.Created),
		zap.Int("failed", len(result.Failures)),
	)
	return result, nil
}

// generateFromTemplate runs one template's generation in a single
// transaction: claim, number, insert, schedule advance. The claim lock is
// held until commit, so an overlapping run skips this template instead of
// generating twice. Invoice insert committing strictly before the schedule
// advance becomes visible is what makes a crashed run retryable.
func (s *Scheduler) generateFromTemplate(ctx context.Context, id snowflake.ID) error {
	now := s.clock.Now().UTC()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tpl, err := s.templates.ClaimByID(ctx, tx, id, now)
		if err != nil {
			return fmt.Errorf("claim template: %w", err)
		}
		if tpl == nil {
			return errTemplateClaimed
		}

		customer, err := s.customers.FindByID(ctx, tx, tpl.MerchantID, tpl.CustomerID)
		if err != nil {
			return fmt.Errorf("load customer: %w", err)
		}
		if customer == nil {
			return fmt.Errorf("customer %s missing", tpl.CustomerID)
		}

		number, err := s.numbering.Next(ctx, tx, tpl.MerchantID, now)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}

		token, err := invoicedomain.NewPublicToken()
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}

		// The template name doubles as the description, and with it the
		// payment purpose, when no description was written.
		description := strings.TrimSpace(tpl.Description)
		if description == "" {
			description = tpl.Name
		}

		invoice := invoicedomain.Invoice{
			ID:            s.genID.Generate(),
			MerchantID:    tpl.MerchantID,
			CustomerID:    tpl.CustomerID,
			InvoiceNumber: number,
			PublicToken:   token,
			PayerName:     customer.FullName,
			PayerAddress:  customer.LegalAddress,
			Amount:        tpl.Amount,
			Description:   description,
			Status:        invoicedomain.InvoiceStatusDraft,
			IssuedAt:      now,
			Items:         tpl.Items,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.invoices.Insert(ctx, tx, &invoice); err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}

		next := nextSlot(tpl)
		if err := s.templates.AdvanceSchedule(ctx, tx, tpl.ID, now, next, now); err != nil {
			return fmt.Errorf("advance schedule: %w", err)
		}

		s.log.Info("invoice generated from template",
			zap.String("template_id", tpl.ID.String()),
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("invoice_number", invoice.InvoiceNumber),
		)
		return nil
	})
}

// nextSlot advances from the slot that was just consumed, not from the wall
// clock, keeping the cadence anchored. Templates past their end date come
// back nil and leave the schedule.
func nextSlot(tpl *recurringdomain.Template) *time.Time {
	next := recurringdomain.AdvanceGeneration(*tpl.NextGenerationAt, tpl.DayOfMonth)
	if tpl.EndsAt != nil && next.After(*tpl.EndsAt) {
		return nil
	}
	return &next
}
