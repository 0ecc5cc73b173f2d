package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"invoice_number": true,
	"client_id":      true,
	"issue_date":     true,
	"due_date":       true,
	"status":         true,
	"total_amount":   true,
	"amount_paid":    true,
	"sent_at":        true,
	"paid_at":        true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"invoice_id":       true,
	"amount":           true,
	"date":             true,
	"method":           true,
	"reference_number": true,
}

// ClaimSortFields contains allowed sort fields for insurance claims
var ClaimSortFields = map[string]bool{
	"id":                    true,
	"created_at":            true,
	"updated_at":            true,
	"invoice_id":            true,
	"insurance_provider_id": true,
	"policy_number":         true,
	"beneficiary_name":      true,
	"status":                true,
	"claimed_amount":        true,
	"approved_amount":       true,
	"paid_amount":           true,
	"submission_date":       true,
	"response_date":         true,
}

// ServiceCodeSortFields contains allowed sort fields for service codes
var ServiceCodeSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"code":          true,
	"description":   true,
	"default_rate":  true,
	"billable_unit": true,
	"active":        true,
}

// FundingSortFields contains allowed sort fields for insurance providers
// and funding programs
var FundingSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"active":     true,
}
