// Package audit records balance-affecting events as structured log lines.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types.
const (
	EventEntryCreated       = "ENTRY_CREATED"
	EventEntrySettled       = "ENTRY_SETTLED"
	EventDeposit            = "DEPOSIT"
	EventWithdrawal         = "WITHDRAWAL"
	EventWithdrawalResolved = "WITHDRAWAL_RESOLVED"
	EventRedemption         = "REDEMPTION"
	EventSignup             = "SIGNUP"
	EventUserDeactivated    = "USER_DEACTIVATED"
	EventReconcileMismatch  = "RECONCILE_MISMATCH"
	EventError              = "ERROR"
)

type AuditEvent struct {
	Timestamp     time.Time
	EventType     string
	UserID        uuid.UUID
	TransactionID uuid.UUID
	Amount        decimal.Decimal
	Status        string
	Details       map[string]string
}

type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger.With(slog.String("component", "audit")),
		now:    time.Now,
	}
}

// LogLedger records a committed balance change.
func (a *AuditLogger) LogLedger(eventType string, userID, transactionID uuid.UUID, amount decimal.Decimal, status string, details map[string]string) {
	a.log(AuditEvent{
		Timestamp:     a.now(),
		EventType:     eventType,
		UserID:        userID,
		TransactionID: transactionID,
		Amount:        amount,
		Status:        status,
		Details:       details,
	})
}

// LogOperation records an event that moves no money.
func (a *AuditLogger) LogOperation(eventType string, userID uuid.UUID, details map[string]string) {
	a.log(AuditEvent{
		Timestamp: a.now(),
		EventType: eventType,
		UserID:    userID,
		Status:    "SUCCESS",
		Details:   details,
	})
}

func (a *AuditLogger) LogError(operation string, userID uuid.UUID, err error) {
	a.log(AuditEvent{
		Timestamp: a.now(),
		EventType: EventError,
		UserID:    userID,
		Status:    "FAILED",
		Details: map[string]string{
			"operation": operation,
			"error":     err.Error(),
		},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	attrs := []any{
		slog.String("event_type", event.EventType),
		slog.Time("timestamp", event.Timestamp),
		slog.String("status", event.Status),
	}
	if event.UserID != uuid.Nil {
		attrs = append(attrs, slog.String("user_id", event.UserID.String()))
	}
	if event.TransactionID != uuid.Nil {
		attrs = append(attrs, slog.String("transaction_id", event.TransactionID.String()))
	}
	if !event.Amount.IsZero() {
		attrs = append(attrs, slog.String("amount", event.Amount.StringFixed(2)))
	}
	if len(event.Details) > 0 {
		details := make([]any, 0, len(event.Details))
		for k, v := range event.Details {
			details = append(details, slog.String(k, v))
		}
		attrs = append(attrs, slog.Group("details", details...))
	}

	level := slog.LevelInfo
	if event.EventType == EventError || event.EventType == EventReconcileMismatch {
		level = slog.LevelWarn
	}
	a.logger.Log(context.Background(), level, "AUDIT", attrs...)
}
