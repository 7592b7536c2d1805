package archiver

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"ocingest/internal/dublincore"
	"ocingest/internal/logging"
)

// canonicalUUID accepts only the 36 character hyphenated form of an RFC 4122
// UUID, version 1 to 5.
func canonicalUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.Version() >= 1 && id.Version() <= 5 && id.Variant() == uuid.RFC4122
}

// resolveIdentifier decides the media package id. A requested identifier is
// kept only when it is a UUID that Opencast does not already know; otherwise
// a fresh UUID replaces it in the catalog. The source term keeps the
// requested value.
func (a *Archiver) resolveIdentifier(ctx context.Context, plan *Plan, logger *slog.Logger) (string, error) {
	logger = stageLogger(ctx, logger)
	requested, ok := plan.Catalog.Get(dublincore.TermIdentifier)
	if ok {
		reason, err := a.rejectIdentifier(ctx, requested)
		if err != nil {
			return "", err
		}
		if reason == "" {
			logger.Info("using requested identifier",
				logging.Args(logging.DecisionAttrs("identifier", "accepted", "valid and unused")...)...,
			)
			return requested, nil
		}
		logging.WarnWithContext(logger, "requested identifier rejected", "identifier_rejected",
			logging.String("requested", requested),
			logging.String("reason", reason),
			logging.String(logging.FieldImpact, "episode gets a generated identifier"),
		)
	}
	id := a.newID()
	plan.Catalog.Set(dublincore.TermIdentifier, id)
	return id, nil
}

func (a *Archiver) rejectIdentifier(ctx context.Context, requested string) (string, error) {
	if !canonicalUUID(requested) {
		return "not a UUID", nil
	}
	exists, err := a.remote.EventExists(ctx, requested)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "existence check failed: " + err.Error(), nil
	}
	if exists {
		return "already in use", nil
	}
	return "", nil
}
