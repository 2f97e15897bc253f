// Package ports defines the collaborator interfaces shared by the audit
// service and the capture detector.
package ports

import (
	"context"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/auditlog"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// AuditPoster delivers one audit record to the remote log endpoint.
type AuditPoster interface {
	Post(ctx context.Context, token string, record auditlog.Record) error
}

// TokenReader reads secrets from the token store. Get returns
// sentinel.ErrNotFound (possibly wrapped) when the key is absent.
type TokenReader interface {
	Get(ctx context.Context, key string) (string, error)
}
