package authclient

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authclient/session"
)

const (
	auditEventLogin          = "login"
	auditEventSignup         = "signup"
	auditEventRefresh        = "refresh"
	auditEventLogout         = "logout"
	auditEventSessionExpired = "session_expired"
)

// AuditErrorCode is the coarse failure class written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrNoSession       AuditErrorCode = "no_session"
	auditErrUnauthenticated AuditErrorCode = "unauthenticated"
	auditErrTransient       AuditErrorCode = "transient"
	auditErrSessionExpired  AuditErrorCode = "session_expired"
	auditErrNetwork         AuditErrorCode = "network"
	auditErrValidation      AuditErrorCode = "validation"
	auditErrRejected        AuditErrorCode = "rejected"
	auditErrStore           AuditErrorCode = "store_unavailable"
	auditErrCanceled        AuditErrorCode = "canceled"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var statusErr *StatusError
	switch {
	case errors.Is(err, ErrNoSession):
		return auditErrNoSession
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrTransient):
		return auditErrTransient
	case errors.Is(err, ErrNetwork):
		return auditErrNetwork
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.As(err, &statusErr), errors.Is(err, ErrUnexpectedTokenType):
		return auditErrRejected
	case errors.Is(err, session.ErrStoreUnavailable), errors.Is(err, session.ErrStoreCorrupt):
		return auditErrStore
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	default:
		return auditErrInternal
	}
}

// emitAudit builds the event lazily so disabled auditing costs nothing.
func emitAudit(
	ctx context.Context,
	d *auditDispatcher,
	eventType string,
	username string,
	requestID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if d == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Username:  username,
		RequestID: requestID,
		Success:   err == nil,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	d.Emit(ctx, event)
}
