package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/billing"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/domain/shared/valueobject"
	"github.com/pms/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// PaymentService provides application-level payment operations. Every
// mutation locks the invoice row, re-reads the authoritative payment sum,
// and reconciles the invoice inside the same transaction, so AmountPaid and
// Status can never drift from the payment set.
type PaymentService struct {
	scope       TransactionScope
	paymentRepo billing.PaymentRepository
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(scope TransactionScope, paymentRepo billing.PaymentRepository) *PaymentService {
	return &PaymentService{
		scope:       scope,
		paymentRepo: paymentRepo,
	}
}

// ApplyPayment records a payment against an invoice and reconciles the
// invoice in the same transaction. Payments exceeding the outstanding
// balance are rejected with both quantities so the caller can correct.
func (s *PaymentService) ApplyPayment(ctx context.Context, invoiceID uuid.UUID, req ApplyPaymentRequest, actorID uuid.UUID) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "apply_payment")
	defer span.End()

	telemetry.SetAttributes(span,
		"invoice_id", invoiceID.String(),
		"amount", req.Amount.String(),
		"method", string(req.Method),
	)

	var payment *billing.Payment
	var invoice *billing.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewNotFoundError("Invoice")
		}
		if !inv.Status.CanAcceptPayment() {
			return shared.NewDomainErrorf(shared.CodeInvalidState, "Cannot apply a payment to an invoice in %s status", inv.Status)
		}

		currentSum, err := repos.PaymentRepo().SumByInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		newSum := currentSum.Add(req.Amount)
		if newSum.GreaterThan(inv.TotalAmount) {
			return shared.NewConflictError(
				"Payment of %s would bring the paid total to %s, exceeding the invoice total %s",
				req.Amount.StringFixed(2), newSum.StringFixed(2), inv.TotalAmount.StringFixed(2),
			)
		}

		p, err := billing.NewPayment(invoiceID, valueobject.NewMoneyUSD(req.Amount), req.Date, req.Method, req.ReferenceNumber, actorID)
		if err != nil {
			return err
		}
		if err := repos.PaymentRepo().Save(ctx, p); err != nil {
			return err
		}

		if err := inv.Reconcile(newSum, time.Now()); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
			return err
		}

		payment = p
		invoice = inv
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.AddEvent(span, "payment_applied",
		"payment_id", payment.ID.String(),
		"invoice_status", invoice.Status.String(),
	)

	return &PaymentResult{Payment: ToPaymentResponse(payment), Invoice: ToInvoiceResponse(invoice)}, nil
}

// GetPayment gets a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, shared.NewNotFoundError("Payment")
	}
	return ToPaymentResponse(payment), nil
}

// ListPayments lists payments with filtering
func (s *PaymentService) ListPayments(ctx context.Context, filter PaymentListFilter) ([]PaymentResponse, int64, error) {
	domainFilter := billing.PaymentFilter{
		InvoiceID: filter.InvoiceID,
		Method:    filter.Method,
		ClaimID:   filter.ClaimID,
		From:      filter.From,
		To:        filter.To,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize

	payments, err := s.paymentRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.paymentRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, *ToPaymentResponse(&payments[i]))
	}
	return responses, total, nil
}

// UpdatePayment corrects a recorded payment. An amount change re-validates
// the overpayment constraint against the other payments on the invoice and
// reconciles the invoice, which may regress a PAID invoice.
func (s *PaymentService) UpdatePayment(ctx context.Context, id uuid.UUID, req UpdatePaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "update_payment")
	defer span.End()
	telemetry.SetAttributes(span, "payment_id", id.String())

	var payment *billing.Payment
	var invoice *billing.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PaymentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return shared.NewNotFoundError("Payment")
		}

		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, p.InvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewNotFoundError("Invoice")
		}

		if req.Amount != nil {
			currentSum, err := repos.PaymentRepo().SumByInvoice(ctx, p.InvoiceID)
			if err != nil {
				return err
			}
			othersSum := currentSum.Sub(p.Amount)
			newSum := othersSum.Add(*req.Amount)
			if newSum.GreaterThan(inv.TotalAmount) {
				return shared.NewConflictError(
					"Updated amount %s would bring the paid total to %s, exceeding the invoice total %s",
					req.Amount.StringFixed(2), newSum.StringFixed(2), inv.TotalAmount.StringFixed(2),
				)
			}
			if err := p.UpdateAmount(valueobject.NewMoneyUSD(*req.Amount)); err != nil {
				return err
			}
		}

		if req.Date != nil || req.Method != nil || req.ReferenceNumber != nil {
			date := p.Date
			if req.Date != nil {
				date = *req.Date
			}
			method := p.Method
			if req.Method != nil {
				method = *req.Method
			}
			reference := p.ReferenceNumber
			if req.ReferenceNumber != nil {
				reference = *req.ReferenceNumber
			}
			if err := p.UpdateDetails(date, method, reference); err != nil {
				return err
			}
		}

		if err := repos.PaymentRepo().Save(ctx, p); err != nil {
			return err
		}

		othersSum, err := sumExcluding(ctx, repos.PaymentRepo(), p.InvoiceID, p.ID)
		if err != nil {
			return err
		}
		if err := inv.Reconcile(othersSum.Add(p.Amount), time.Now()); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
			return err
		}

		payment = p
		invoice = inv
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return &PaymentResult{Payment: ToPaymentResponse(payment), Invoice: ToInvoiceResponse(invoice)}, nil
}

// sumExcluding totals the payments on an invoice, skipping one payment ID
func sumExcluding(ctx context.Context, repo billing.PaymentRepository, invoiceID, excludeID uuid.UUID) (decimal.Decimal, error) {
	payments, err := repo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for i := range payments {
		if payments[i].ID == excludeID {
			continue
		}
		sum = sum.Add(payments[i].Amount)
	}
	return sum, nil
}

// RemovePayment deletes a payment and reconciles the invoice in the same
// transaction. Removing the last payment from a PAID invoice regresses it
// through the normal derivation; the removal is recorded as a domain event
// for the audit trail.
func (s *PaymentService) RemovePayment(ctx context.Context, id uuid.UUID) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "remove_payment")
	defer span.End()
	telemetry.SetAttributes(span, "payment_id", id.String())

	var invoice *billing.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PaymentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return shared.NewNotFoundError("Payment")
		}

		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, p.InvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewNotFoundError("Invoice")
		}

		if err := repos.PaymentRepo().Delete(ctx, id); err != nil {
			return err
		}

		newSum, err := sumExcluding(ctx, repos.PaymentRepo(), p.InvoiceID, p.ID)
		if err != nil {
			return err
		}
		if err := inv.Reconcile(newSum, time.Now()); err != nil {
			return err
		}
		inv.AddDomainEvent(billing.NewPaymentRemovedEvent(p))
		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
			return err
		}

		invoice = inv
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.AddEvent(span, "payment_removed", "invoice_status", invoice.Status.String())

	return &PaymentResult{Invoice: ToInvoiceResponse(invoice)}, nil
}
