package logging

import (
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names a certificate lifecycle event.
type AuditEventType string

const (
	AuditPreCheckRejected       AuditEventType = "precheck_rejected"
	AuditOfflineValidation      AuditEventType = "offline_validation_started"
	AuditDocumentSubmitted      AuditEventType = "document_submitted"
	AuditCertificateCompleted   AuditEventType = "certificate_completed"
	AuditValidationFailed       AuditEventType = "validation_failed"
	AuditSystemFailure          AuditEventType = "system_failure"
	AuditLandingsEntryConfirmed AuditEventType = "landings_entry_confirmed"
)

// AuditEvent is a structured monitoring record for one certificate.
type AuditEvent struct {
	EventType      AuditEventType
	DocumentNumber string
	UserPrincipal  string
	Offline        bool
	Success        bool
	Duration       time.Duration
	Error          string
	Fields         map[string]interface{}
}

// AuditLogger writes audit events to the "audit" category of the process log.
type AuditLogger struct {
	requestID string
}

// Audit returns an audit logger with no request correlation.
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// AuditWithRequest returns an audit logger that tags events with a request id.
func AuditWithRequest(requestID string) *AuditLogger {
	return &AuditLogger{requestID: requestID}
}

// Log writes an audit event.
func (a *AuditLogger) Log(event AuditEvent) {
	fields := []zap.Field{
		zap.String("category", "audit"),
		zap.String("event", string(event.EventType)),
		zap.String("document_number", event.DocumentNumber),
		zap.Bool("success", event.Success),
	}
	if event.UserPrincipal != "" {
		fields = append(fields, zap.String("user", event.UserPrincipal))
	}
	if event.Offline {
		fields = append(fields, zap.Bool("offline", true))
	}
	if event.Duration > 0 {
		fields = append(fields, zap.Int64("dur_ms", event.Duration.Milliseconds()))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	if a.requestID != "" {
		fields = append(fields, zap.String("req", a.requestID))
	}
	for k, v := range event.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	Base().Info("audit", fields...)
}

// SystemFailure is a shorthand for the most operationally important event.
func (a *AuditLogger) SystemFailure(documentNumber string, err error) {
	a.Log(AuditEvent{
		EventType:      AuditSystemFailure,
		DocumentNumber: documentNumber,
		Error:          err.Error(),
	})
}
