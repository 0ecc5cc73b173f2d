package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pms/backend/internal/domain/billing"
	"github.com/pms/backend/internal/domain/funding"
	"github.com/pms/backend/internal/domain/shared"
	"github.com/pms/backend/internal/domain/shared/valueobject"
	"github.com/pms/backend/internal/infrastructure/telemetry"
)

// ClaimService provides application-level insurance claim operations.
// Adjudication outcomes that pay the practice are turned into ledger
// payments inside the same transaction that records the response, so a
// claim can never be PAID without its matching payment row.
type ClaimService struct {
	scope        TransactionScope
	claimRepo    billing.ClaimRepository
	providerRepo funding.InsuranceProviderRepository
}

// NewClaimService creates a new ClaimService
func NewClaimService(
	scope TransactionScope,
	claimRepo billing.ClaimRepository,
	providerRepo funding.InsuranceProviderRepository,
) *ClaimService {
	return &ClaimService{
		scope:        scope,
		claimRepo:    claimRepo,
		providerRepo: providerRepo,
	}
}

// CreateClaim files a DRAFT claim over insurance-eligible line items of an
// invoice
func (s *ClaimService) CreateClaim(ctx context.Context, req CreateClaimRequest, actorID uuid.UUID) (*ClaimResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "claim", "create_claim")
	defer span.End()

	telemetry.SetAttributes(span,
		"invoice_id", req.InvoiceID.String(),
		"provider_id", req.InsuranceProviderID.String(),
	)

	provider, err := s.providerRepo.FindByID(ctx, req.InsuranceProviderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if provider == nil {
		err := shared.NewNotFoundError("Insurance provider")
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !provider.Active {
		err := shared.NewConflictError("Insurance provider %s is inactive", provider.Name)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var claim *billing.InsuranceClaim
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.InvoiceRepo().FindByID(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return shared.NewNotFoundError("Invoice")
		}

		c, err := billing.NewInsuranceClaim(
			invoice,
			req.InsuranceProviderID,
			req.PolicyNumber,
			req.BeneficiaryName,
			req.LineItemIDs,
			req.ClaimedAmount,
			req.AutoGeneratePayment,
			actorID,
		)
		if err != nil {
			return err
		}
		if err := repos.ClaimRepo().Save(ctx, c); err != nil {
			return err
		}
		claim = c
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return ToClaimResponse(claim), nil
}

// GetClaim gets a claim by ID
func (s *ClaimService) GetClaim(ctx context.Context, id uuid.UUID) (*ClaimResponse, error) {
	claim, err := s.claimRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, shared.NewNotFoundError("Claim")
	}
	return ToClaimResponse(claim), nil
}

// ListClaims lists claims with filtering
func (s *ClaimService) ListClaims(ctx context.Context, filter ClaimListFilter) ([]ClaimResponse, int64, error) {
	domainFilter := billing.ClaimFilter{
		InvoiceID:  filter.InvoiceID,
		ProviderID: filter.ProviderID,
		Status:     filter.Status,
		From:       filter.From,
		To:         filter.To,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize

	claims, err := s.claimRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.claimRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ClaimResponse, 0, len(claims))
	for i := range claims {
		responses = append(responses, *ToClaimResponse(&claims[i]))
	}
	return responses, total, nil
}

// UpdateClaimLineItems replaces the line-item set of a DRAFT claim
func (s *ClaimService) UpdateClaimLineItems(ctx context.Context, id uuid.UUID, req UpdateClaimLineItemsRequest) (*ClaimResponse, error) {
	var claim *billing.InsuranceClaim
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.ClaimRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return shared.NewNotFoundError("Claim")
		}

		invoice, err := repos.InvoiceRepo().FindByID(ctx, c.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return shared.NewNotFoundError("Invoice")
		}

		if err := c.UpdateLineItems(invoice, req.LineItemIDs); err != nil {
			return err
		}
		if err := repos.ClaimRepo().SaveWithLock(ctx, c); err != nil {
			return err
		}
		claim = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToClaimResponse(claim), nil
}

// SubmitClaim transitions a DRAFT claim to SUBMITTED and moves the invoice
// to PENDING_INSURANCE in the same transaction
func (s *ClaimService) SubmitClaim(ctx context.Context, id uuid.UUID) (*ClaimResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "claim", "submit_claim")
	defer span.End()
	telemetry.SetAttributes(span, "claim_id", id.String())

	var claim *billing.InsuranceClaim
	var invoice *billing.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.ClaimRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return shared.NewNotFoundError("Claim")
		}

		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, c.InvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewNotFoundError("Invoice")
		}

		if err := c.Submit(); err != nil {
			return err
		}
		if inv.Status != billing.InvoiceStatusPendingInsurance {
			if err := inv.MarkPendingInsurance(); err != nil {
				return err
			}
			if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
				return err
			}
		}
		if err := repos.ClaimRepo().SaveWithLock(ctx, c); err != nil {
			return err
		}

		claim = c
		invoice = inv
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return &ClaimResult{Claim: ToClaimResponse(claim), Invoice: ToInvoiceResponse(invoice)}, nil
}

// BeginClaimReview transitions a SUBMITTED or APPEALED claim to IN_REVIEW
func (s *ClaimService) BeginClaimReview(ctx context.Context, id uuid.UUID) (*ClaimResponse, error) {
	var claim *billing.InsuranceClaim
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.ClaimRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return shared.NewNotFoundError("Claim")
		}
		if err := c.BeginReview(); err != nil {
			return err
		}
		if err := repos.ClaimRepo().SaveWithLock(ctx, c); err != nil {
			return err
		}
		claim = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToClaimResponse(claim), nil
}

// RecordClaimResponse records the funding source's adjudication. A PAID
// outcome on a claim created with auto-generated payments creates the
// insurance payment, recorded against the acting user, and reconciles the
// invoice before the transaction commits; a DENIED outcome flags the
// invoice for client follow-up.
func (s *ClaimService) RecordClaimResponse(ctx context.Context, id uuid.UUID, req RecordClaimResponseRequest, actorID uuid.UUID) (*ClaimResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "claim", "record_claim_response")
	defer span.End()

	telemetry.SetAttributes(span,
		"claim_id", id.String(),
		"response_status", string(req.Status),
	)

	var claim *billing.InsuranceClaim
	var invoice *billing.Invoice
	var generated *billing.Payment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.ClaimRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return shared.NewNotFoundError("Claim")
		}

		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, c.InvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewNotFoundError("Invoice")
		}

		if err := c.RecordResponse(req.Status, req.ApprovedAmount, req.PaidAmount, req.ResponseDate); err != nil {
			return err
		}

		invoiceTouched := false
		for _, event := range c.GetDomainEvents() {
			paidEvent, ok := event.(*billing.ClaimPaidEvent)
			if !ok {
				continue
			}

			currentSum, err := repos.PaymentRepo().SumByInvoice(ctx, inv.ID)
			if err != nil {
				return err
			}
			newSum := currentSum.Add(paidEvent.Amount)
			if newSum.GreaterThan(inv.TotalAmount) {
				return shared.NewConflictError(
					"Insurance payment of %s would bring the paid total to %s, exceeding the invoice total %s",
					paidEvent.Amount.StringFixed(2), newSum.StringFixed(2), inv.TotalAmount.StringFixed(2),
				)
			}

			p, err := billing.NewPayment(inv.ID, valueobject.NewMoneyUSD(paidEvent.Amount), time.Now(), billing.PaymentMethodInsurance, c.PolicyNumber, actorID)
			if err != nil {
				return err
			}
			if err := p.LinkInsuranceClaim(c.ID); err != nil {
				return err
			}
			if err := repos.PaymentRepo().Save(ctx, p); err != nil {
				return err
			}

			if err := inv.Reconcile(newSum, time.Now()); err != nil {
				return err
			}
			invoiceTouched = true
			generated = p
		}

		if req.Status == billing.ClaimStatusDenied && inv.Status == billing.InvoiceStatusPendingInsurance {
			if err := inv.MarkInsuranceDenied(); err != nil {
				return err
			}
			invoiceTouched = true
		}

		if invoiceTouched {
			if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
				return err
			}
		}
		if err := repos.ClaimRepo().SaveWithLock(ctx, c); err != nil {
			return err
		}

		claim = c
		invoice = inv
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if generated != nil {
		telemetry.AddEvent(span, "insurance_payment_generated",
			"payment_id", generated.ID.String(),
			"amount", generated.Amount.String(),
		)
	}

	result := &ClaimResult{Claim: ToClaimResponse(claim), Invoice: ToInvoiceResponse(invoice)}
	if generated != nil {
		result.GeneratedPayment = ToPaymentResponse(generated)
	}
	return result, nil
}

// AppealClaim contests a DENIED or PARTIALLY_APPROVED adjudication and
// returns the invoice to PENDING_INSURANCE when the denial had flagged it
func (s *ClaimService) AppealClaim(ctx context.Context, id uuid.UUID, req AppealClaimRequest) (*ClaimResult, error) {
	var claim *billing.InsuranceClaim
	var invoice *billing.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.ClaimRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return shared.NewNotFoundError("Claim")
		}

		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, c.InvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewNotFoundError("Invoice")
		}

		if err := c.Appeal(req.Reason); err != nil {
			return err
		}
		if inv.Status == billing.InvoiceStatusInsuranceDenied {
			if err := inv.MarkPendingInsurance(); err != nil {
				return err
			}
			if err := repos.InvoiceRepo().SaveWithLock(ctx, inv); err != nil {
				return err
			}
		}
		if err := repos.ClaimRepo().SaveWithLock(ctx, c); err != nil {
			return err
		}

		claim = c
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ClaimResult{Claim: ToClaimResponse(claim), Invoice: ToInvoiceResponse(invoice)}, nil
}

// CloseClaim ends a claim without further payment
func (s *ClaimService) CloseClaim(ctx context.Context, id uuid.UUID) (*ClaimResponse, error) {
	var claim *billing.InsuranceClaim
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.ClaimRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return shared.NewNotFoundError("Claim")
		}
		if err := c.Close(); err != nil {
			return err
		}
		if err := repos.ClaimRepo().SaveWithLock(ctx, c); err != nil {
			return err
		}
		claim = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToClaimResponse(claim), nil
}

// DeleteClaim deletes a claim; only DRAFT claims can be deleted
func (s *ClaimService) DeleteClaim(ctx context.Context, id uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.ClaimRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return shared.NewNotFoundError("Claim")
		}
		if err := c.EnsureDeletable(); err != nil {
			return err
		}
		return repos.ClaimRepo().Delete(ctx, id)
	})
}
