package archiver

import (
	"context"
	"log/slog"
	"os"

	"ocingest/internal/acl"
	"ocingest/internal/captions"
	"ocingest/internal/cutmarks"
	"ocingest/internal/logging"
	"ocingest/internal/services"
	"ocingest/internal/services/opencast"
	"ocingest/internal/tracks"
)

// NotesFlavor is the catalog flavor of the shared notes pad export.
const NotesFlavor = "etherpad/sharednotes"

// documents are the generated files in the scratch workspace. Empty paths
// were not generated.
type documents struct {
	CutMarks   string
	Captions   string
	ACL        string
	DublinCore []byte
}

func writeDocuments(plan *Plan, layout tracks.Layout) (documents, error) {
	var docs documents
	if err := cutmarks.Write(layout.CutMarksPath(), plan.CutMarks); err != nil {
		return docs, services.Wrap(services.ErrConfiguration, "documents", "write cut marks", layout.CutMarksPath(), err)
	}
	docs.CutMarks = layout.CutMarksPath()

	if plan.Captions != nil {
		if err := plan.Captions.Write(layout.CaptionsPath()); err != nil {
			return docs, services.Wrap(services.ErrConfiguration, "documents", "write captions", layout.CaptionsPath(), err)
		}
		docs.Captions = layout.CaptionsPath()
	}

	if len(plan.EpisodeACL) > 0 {
		data, err := acl.Encode(acl.BuildEpisodeDocument(plan.EpisodeACL))
		if err != nil {
			return docs, services.Wrap(services.ErrValidation, "documents", "encode acl", "", err)
		}
		if err := os.WriteFile(layout.ACLPath(), data, 0o644); err != nil {
			return docs, services.Wrap(services.ErrConfiguration, "documents", "write acl", layout.ACLPath(), err)
		}
		docs.ACL = layout.ACLPath()
	}

	dc, err := plan.Catalog.Encode()
	if err != nil {
		return docs, services.Wrap(services.ErrValidation, "documents", "encode catalog", "", err)
	}
	if err := os.WriteFile(layout.DublinCorePath(), dc, 0o644); err != nil {
		return docs, services.Wrap(services.ErrConfiguration, "documents", "write catalog", layout.DublinCorePath(), err)
	}
	docs.DublinCore = dc
	return docs, nil
}

// submit uploads the package in a fixed order and starts the workflow. A
// failed step aborts the run; nothing already uploaded is rolled back.
func (a *Archiver) submit(ctx context.Context, plan *Plan, docs documents, id string, logger *slog.Logger) (opencast.IngestResult, error) {
	logger = stageLogger(ctx, logger)
	mp, err := a.remote.CreateMediaPackage(ctx, id)
	if err != nil {
		return opencast.IngestResult{}, err
	}
	logger.Info("media package created", logging.String("media_package_id", mp.ID))

	for _, track := range plan.Tracks {
		mp, err = a.remote.AddPartialTrack(ctx, mp, string(track.Flavor), track.StartTimeMs, track.Path)
		if err != nil {
			return opencast.IngestResult{}, err
		}
		logger.Debug("track added",
			logging.String("flavor", string(track.Flavor)),
			logging.Int64("start_ms", track.StartTimeMs),
			logging.String("path", track.Path),
		)
	}

	if mp, err = a.remote.AddDCCatalog(ctx, mp, docs.DublinCore); err != nil {
		return opencast.IngestResult{}, err
	}
	if mp, err = a.remote.AddCatalog(ctx, mp, cutmarks.Flavor, docs.CutMarks); err != nil {
		return opencast.IngestResult{}, err
	}
	if docs.ACL != "" {
		if mp, err = a.remote.AddAttachment(ctx, mp, acl.EpisodeFlavor, docs.ACL); err != nil {
			return opencast.IngestResult{}, err
		}
	} else {
		logger.Info("no episode acl rules; skipping acl attachment")
	}
	if plan.NotesPath != "" {
		if mp, err = a.remote.AddCatalog(ctx, mp, NotesFlavor, plan.NotesPath); err != nil {
			return opencast.IngestResult{}, err
		}
	}
	if docs.Captions != "" {
		if mp, err = a.remote.AddCatalog(ctx, mp, captions.Flavor, docs.Captions); err != nil {
			return opencast.IngestResult{}, err
		}
	}

	result, err := a.remote.Ingest(ctx, mp, a.cfg.Opencast.Workflow)
	if err != nil {
		return opencast.IngestResult{}, err
	}
	if result.MediaPackageID == "" {
		result.MediaPackageID = mp.ID
	}
	logger.Info("ingest submitted",
		logging.String(logging.FieldEventType, "ingest_submitted"),
		logging.String("media_package_id", result.MediaPackageID),
		logging.String("workflow_id", result.WorkflowID),
		logging.String("workflow", a.cfg.Opencast.Workflow),
		logging.String("identifier", id),
	)
	return result, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
