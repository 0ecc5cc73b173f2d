// Package notification records invoice notification requests. Delivery is
// owned by an external notification collaborator; the ledger only records
// that a notice was requested.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	appbilling "github.com/pms/backend/internal/application/billing"
	"go.uber.org/zap"
)

// LogNotificationRequester logs notification requests. It stands in for the
// external notification service integration; the ledger's contract is only
// that the request is recorded after the invoice transition commits.
type LogNotificationRequester struct {
	logger *zap.Logger
}

// NewLogNotificationRequester creates a new LogNotificationRequester
func NewLogNotificationRequester(logger *zap.Logger) *LogNotificationRequester {
	return &LogNotificationRequester{logger: logger}
}

// RequestInvoiceNotification records a request to notify a client about an invoice
func (n *LogNotificationRequester) RequestInvoiceNotification(_ context.Context, invoiceID uuid.UUID, invoiceNumber string, clientID uuid.UUID, dueDate time.Time) error {
	n.logger.Info("invoice notification requested",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("invoice_number", invoiceNumber),
		zap.String("client_id", clientID.String()),
		zap.Time("due_date", dueDate),
	)
	return nil
}

var _ appbilling.NotificationRequester = (*LogNotificationRequester)(nil)
