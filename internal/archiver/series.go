package archiver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/beevik/etree"

	"ocingest/internal/acl"
	"ocingest/internal/dublincore"
	"ocingest/internal/logging"
	"ocingest/internal/services"
	"ocingest/internal/services/opencast"
)

// Series actions reported by syncSeries.
const (
	SeriesCreated   = "created"
	SeriesUpdated   = "updated"
	SeriesUnchanged = "unchanged"
)

// syncSeries creates the episode's series when Opencast does not know it, or
// merges the session's series principals into the existing ACL.
func (a *Archiver) syncSeries(ctx context.Context, plan *Plan, logger *slog.Logger) (string, error) {
	if plan.SeriesID == "" {
		return "", nil
	}
	logger = stageLogger(ctx, logger)
	rules := acl.ParseRoles(plan.Log, acl.SeriesKeys, a.cfg.ACL.SeriesReadRoles, a.cfg.ACL.SeriesWriteRoles)

	catalog, err := a.remote.FetchSeriesCatalog(ctx)
	switch {
	case errors.Is(err, services.ErrValidation):
		logging.WarnWithContext(logger, "series catalog unreadable; assuming series is new", "series_catalog_invalid",
			logging.Error(err),
			logging.String("series_id", plan.SeriesID),
		)
		catalog = nil
	case err != nil:
		return "", err
	}

	if !opencast.SeriesExists(catalog, plan.SeriesID) {
		return a.createSeries(ctx, plan, rules, logger)
	}
	if len(rules) == 0 {
		return SeriesUnchanged, nil
	}

	remote, err := a.remote.FetchSeriesACL(ctx, plan.SeriesID)
	if errors.Is(err, services.ErrNotFound) {
		remote, err = etree.NewDocument(), nil
	}
	if err != nil {
		return "", err
	}
	merged, added := acl.MergeIntoRemote(remote, rules)
	if added == 0 {
		logger.Info("series acl already up to date", logging.String("series_id", plan.SeriesID))
		return SeriesUnchanged, nil
	}
	body, err := acl.Encode(merged)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "series", "encode acl", plan.SeriesID, err)
	}
	if err := a.remote.UpdateSeriesACL(ctx, plan.SeriesID, body); err != nil {
		return "", err
	}
	logger.Info("series acl updated",
		logging.String(logging.FieldEventType, "series_acl_updated"),
		logging.String("series_id", plan.SeriesID),
		logging.Int("added", added),
	)
	return SeriesUpdated, nil
}

func (a *Archiver) createSeries(ctx context.Context, plan *Plan, rules []acl.Rule, logger *slog.Logger) (string, error) {
	catalog := dublincore.Resolve(dublincore.SeriesFields, dublincore.Inputs{Metadata: plan.Log, Bounds: plan.Bounds})
	dc, err := catalog.Encode()
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "series", "encode catalog", plan.SeriesID, err)
	}
	body, err := acl.Encode(acl.BuildSeriesDocument(rules))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "series", "encode acl", plan.SeriesID, err)
	}
	if err := a.remote.CreateSeries(ctx, dc, body); err != nil {
		return "", err
	}
	logger.Info("series created",
		logging.String(logging.FieldEventType, "series_created"),
		logging.String("series_id", plan.SeriesID),
		logging.Int("acl_rules", len(rules)),
	)
	return SeriesCreated, nil
}
