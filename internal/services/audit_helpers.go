package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ashack/portfolio-sub000/pkg/logger"
)

// recordAudit logs the supplied entry while tolerating ledger failures. It is
// used on denial paths, where the denial itself must not fail because the
// blocked-attempt entry could not be written.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.Record(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("ledger write failed",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}
