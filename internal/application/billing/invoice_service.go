package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/billing"
	"github.com/pms/backend/internal/domain/catalog"
	"github.com/pms/backend/internal/domain/funding"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/infrastructure/telemetry"
)

// InvoiceService provides application-level invoice operations
type InvoiceService struct {
	scope           TransactionScope
	invoiceRepo     billing.InvoiceRepository
	paymentRepo     billing.PaymentRepository
	claimRepo       billing.ClaimRepository
	serviceCodeRepo catalog.ServiceCodeRepository
	providerRepo    funding.InsuranceProviderRepository
	programRepo     funding.FundingProgramRepository
	clients         ClientDirectory
	notifier        NotificationRequester
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	scope TransactionScope,
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	claimRepo billing.ClaimRepository,
	serviceCodeRepo catalog.ServiceCodeRepository,
	providerRepo funding.InsuranceProviderRepository,
	programRepo funding.FundingProgramRepository,
	clients ClientDirectory,
	notifier NotificationRequester,
) *InvoiceService {
	return &InvoiceService{
		scope:           scope,
		invoiceRepo:     invoiceRepo,
		paymentRepo:     paymentRepo,
		claimRepo:       claimRepo,
		serviceCodeRepo: serviceCodeRepo,
		providerRepo:    providerRepo,
		programRepo:     programRepo,
		clients:         clients,
		notifier:        notifier,
	}
}

// buildLineItem resolves the service code reference and copies its current
// default rate unless the request overrides it. The copied rate is what
// insulates issued invoices from later catalog edits.
func (s *InvoiceService) buildLineItem(ctx context.Context, req LineItemRequest) (*billing.InvoiceLineItem, error) {
	sc, err := s.serviceCodeRepo.FindByID(ctx, req.ServiceCodeID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, shared.NewNotFoundError("Service code")
	}
	if !sc.IsActive() {
		return nil, shared.NewConflictError("Service code %s is inactive and cannot be billed", sc.Code)
	}

	rate := sc.DefaultRate
	if req.Rate != nil {
		rate = *req.Rate
	}
	description := req.Description
	if description == "" {
		description = sc.Description
	}

	return billing.NewInvoiceLineItem(sc.ID, description, req.Quantity, rate, req.DateOfService, req.BillToInsurance)
}

// validateFundingRefs checks the optional funding provider/program references
func (s *InvoiceService) validateFundingRefs(ctx context.Context, providerID, programID *uuid.UUID) error {
	if providerID != nil {
		provider, err := s.providerRepo.FindByID(ctx, *providerID)
		if err != nil {
			return err
		}
		if provider == nil {
			return shared.NewNotFoundError("Insurance provider")
		}
		if !provider.Active {
			return shared.NewConflictError("Insurance provider %s is inactive", provider.Name)
		}
	}
	if programID != nil {
		program, err := s.programRepo.FindByID(ctx, *programID)
		if err != nil {
			return err
		}
		if program == nil {
			return shared.NewNotFoundError("Funding program")
		}
		if !program.Active {
			return shared.NewConflictError("Funding program %s is inactive", program.Name)
		}
	}
	return nil
}

// CreateInvoice creates a DRAFT invoice with its line items. The invoice
// number is generated from the year-scoped sequence inside the insert
// transaction; if a concurrent creator wins the unique index race the whole
// transaction is retried once with a freshly computed number.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest, actorID uuid.UUID) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create_invoice")
	defer span.End()

	telemetry.SetAttributes(span,
		"client_id", req.ClientID.String(),
		"line_items", len(req.LineItems),
	)

	exists, err := s.clients.Exists(ctx, req.ClientID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to look up client: %w", err)
	}
	if !exists {
		err := shared.NewNotFoundError("Client")
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.validateFundingRefs(ctx, req.FundingProviderID, req.FundingProgramID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	items := make([]billing.InvoiceLineItem, 0, len(req.LineItems))
	for _, itemReq := range req.LineItems {
		item, err := s.buildLineItem(ctx, itemReq)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		items = append(items, *item)
	}

	var invoice *billing.Invoice
	create := func() error {
		inv, err := billing.NewInvoice(
			req.ClientID, req.IssueDate, req.DueDate, items,
			req.Tax, req.Discount,
			req.FundingProviderID, req.FundingProgramID,
			req.Notes, actorID,
		)
		if err != nil {
			return err
		}

		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			number, err := repos.InvoiceRepo().NextInvoiceNumber(ctx, inv.IssueDate.Year())
			if err != nil {
				return fmt.Errorf("failed to generate invoice number: %w", err)
			}
			if err := inv.AssignNumber(number); err != nil {
				return err
			}
			if err := repos.InvoiceRepo().Save(ctx, inv); err != nil {
				return err
			}
			invoice = inv
			return nil
		})
	}

	if err := create(); err != nil {
		// A concurrent creator may have taken the computed number; the
		// unique index on invoice_number rejects the insert. Recompute
		// and retry exactly once.
		if !isConcurrencyConflict(err) {
			telemetry.RecordError(span, err)
			return nil, err
		}
		telemetry.AddEvent(span, "invoice_number_collision_retry")
		if err := create(); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	telemetry.AddEvent(span, "invoice_created",
		"invoice_id", invoice.ID.String(),
		"invoice_number", invoice.InvoiceNumber,
	)

	return ToInvoiceResponse(invoice), nil
}

// isConcurrencyConflict reports whether the error carries the optimistic
// lock / unique race code from the persistence layer
func isConcurrencyConflict(err error) bool {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == shared.CodeConcurrencyConflict
	}
	return false
}

// GetInvoice gets an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewNotFoundError("Invoice")
	}
	return ToInvoiceResponse(invoice), nil
}

// GetInvoiceByNumber gets an invoice by its unique number
func (s *InvoiceService) GetInvoiceByNumber(ctx context.Context, number string) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewNotFoundError("Invoice")
	}
	return ToInvoiceResponse(invoice), nil
}

// ListInvoices lists invoices with filtering
func (s *InvoiceService) ListInvoices(ctx context.Context, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	domainFilter := billing.InvoiceFilter{
		ClientID:          filter.ClientID,
		Status:            filter.Status,
		FundingProviderID: filter.FundingProviderID,
		FundingProgramID:  filter.FundingProgramID,
		IssuedFrom:        filter.IssuedFrom,
		IssuedTo:          filter.IssuedTo,
		DueFrom:           filter.DueFrom,
		DueTo:             filter.DueTo,
		Overdue:           filter.Overdue,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search

	invoices, err := s.invoiceRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, *ToInvoiceResponse(&invoices[i]))
	}
	return responses, total, nil
}

// UpdateInvoice updates the mutable header fields of a DRAFT invoice
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	var invoice *billing.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewNotFoundError("Invoice")
		}

		if req.Tax != nil {
			if err := inv.SetTax(*req.Tax); err != nil {
				return err
			}
		}
		if req.Discount != nil {
			if err := inv.SetDiscount(*req.Discount); err != nil {
				return err
			}
		}
		if req.Notes != nil {
			inv.SetNotes(*req.Notes)
		}

		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(invoice), nil
}

// AddLineItem appends a line item to a DRAFT invoice
func (s *InvoiceService) AddLineItem(ctx context.Context, invoiceID uuid.UUID, req LineItemRequest) (*InvoiceResponse, error) {
	item, err := s.buildLineItem(ctx, req)
	if err != nil {
		return nil, err
	}

	var invoice *billing.Invoice
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewNotFoundError("Invoice")
		}
		if err := inv.AddLineItem(item); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(invoice), nil
}

// UpdateLineItem edits an owned line item of a DRAFT invoice
func (s *InvoiceService) UpdateLineItem(ctx context.Context, invoiceID, itemID uuid.UUID, req UpdateLineItemRequest) (*InvoiceResponse, error) {
	var invoice *billing.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewNotFoundError("Invoice")
		}
		if err := inv.UpdateLineItem(itemID, req.Description, req.Quantity, req.Rate, req.DateOfService, req.BillToInsurance); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(invoice), nil
}

// RemoveLineItem removes an owned line item from a DRAFT invoice
func (s *InvoiceService) RemoveLineItem(ctx context.Context, invoiceID, itemID uuid.UUID) (*InvoiceResponse, error) {
	var invoice *billing.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewNotFoundError("Invoice")
		}
		if err := inv.RemoveLineItem(itemID); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(invoice), nil
}

// SendInvoice transitions an invoice to SENT. When the request asks for a
// client notification it is recorded after the transition commits; a
// notification failure does not undo the send.
func (s *InvoiceService) SendInvoice(ctx context.Context, id uuid.UUID, req SendInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "send_invoice")
	defer span.End()
	telemetry.SetAttributes(span, "invoice_id", id.String())

	var invoice *billing.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewNotFoundError("Invoice")
		}
		if err := inv.Send(); err != nil {
			return err
		}
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

	if req.NotifyClient {
		if err := s.notifier.RequestInvoiceNotification(ctx, invoice.ID, invoice.InvoiceNumber, invoice.ClientID, invoice.DueDate); err != nil {
			telemetry.RecordError(span, err)
			telemetry.AddEvent(span, "notification_request_failed")
		}
	}

	return ToInvoiceResponse(invoice), nil
}

// CancelInvoice cancels an invoice with a reason, retaining line items and
// payments for audit
func (s *InvoiceService) CancelInvoice(ctx context.Context, id uuid.UUID, req CancelInvoiceRequest) (*InvoiceResponse, error) {
	var invoice *billing.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewNotFoundError("Invoice")
		}
		if err := inv.Cancel(req.Reason); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(invoice), nil
}

// DeleteInvoice deletes an invoice. Invoices with payments or claims cannot
// be deleted; they are cancelled instead so the audit history survives.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewNotFoundError("Invoice")
		}

		paymentCount, err := repos.PaymentRepo().CountByInvoice(ctx, id)
		if err != nil {
			return err
		}
		if err := inv.EnsureDeletable(paymentCount); err != nil {
			return err
		}

		claimCount, err := repos.ClaimRepo().Count(ctx, billing.ClaimFilter{InvoiceID: &id})
		if err != nil {
			return err
		}
		if claimCount > 0 {
			return shared.NewConflictError("Invoice has %d claim(s); cancel it instead of deleting", claimCount)
		}

		return repos.InvoiceRepo().Delete(ctx, id)
	})
}

// ListPaymentsForInvoice lists the payments recorded against an invoice in
// application order
func (s *InvoiceService) ListPaymentsForInvoice(ctx context.Context, invoiceID uuid.UUID) ([]PaymentResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewNotFoundError("Invoice")
	}

	payments, err := s.paymentRepo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	responses := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, *ToPaymentResponse(&payments[i]))
	}
	return responses, nil
}

// RefreshOverdueStatuses re-derives the status of every SENT invoice whose
// due date has passed. Intended to run on a daily schedule just after
// midnight; the derivation is the same one payments go through, so a
// mid-cycle payment can never be clobbered.
func (s *InvoiceService) RefreshOverdueStatuses(ctx context.Context, now time.Time) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "refresh_overdue_statuses")
	defer span.End()

	sent := billing.InvoiceStatusSent
	due := now
	filter := billing.InvoiceFilter{Status: &sent, DueTo: &due}
	filter.PageSize = -1

	candidates, err := s.invoiceRepo.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	updated := 0
	for i := range candidates {
		id := candidates[i].ID
		err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if inv == nil {
				return nil
			}

			paidTotal, err := repos.PaymentRepo().SumByInvoice(ctx, id)
			if err != nil {
				return err
			}
			before := inv.Status
			if err := inv.Reconcile(paidTotal, now); err != nil {
				return err
			}
			if inv.Status == before {
				return nil
			}
			if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
				return err
			}
			updated++
			return nil
		})
		if err != nil {
			telemetry.RecordError(span, err)
			return updated, err
		}
	}

	telemetry.AddEvent(span, "overdue_refresh_completed", "updated", updated)
	return updated, nil
}
