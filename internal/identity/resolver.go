package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fileflows/internal/library"
	"fileflows/internal/logging"
	"fileflows/internal/store"
)

// Gateway is the part of the record store the resolver needs.
type Gateway interface {
	FindByPath(ctx context.Context, libraryName, path string) (*store.File, error)
	FindByFingerprint(ctx context.Context, fingerprint string) (*store.File, error)
	Update(ctx context.Context, file *store.File) error
}

// Classification is the resolver verdict for a candidate path.
type Classification struct {
	// Known means the path already has a record and must not be inserted.
	Known       bool
	Fingerprint string
	DuplicateOf *store.Reference
}

// Resolver decides whether a discovered path is new, a duplicate of existing
// content or an already recorded file.
type Resolver struct {
	store       Gateway
	logger      *slog.Logger
	fingerprint func(ctx context.Context, path string) (string, error)
}

// NewResolver constructs a resolver backed by gw.
func NewResolver(gw Gateway, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:       gw,
		logger:      logging.NewComponentLogger(logger, "identity"),
		fingerprint: Fingerprint,
	}
}

// Classify inspects entry for lib. When reprocessing of recreated files is
// enabled and the entry is newer than its record, the record is reset to
// unprocessed in place and reported as known. Records that are processing
// keep their state.
func (r *Resolver) Classify(ctx context.Context, lib library.Library, entry library.Entry) (Classification, error) {
	existing, err := r.store.FindByPath(ctx, lib.Name, entry.Path)
	if err != nil {
		return Classification{}, fmt.Errorf("classify %s: %w", entry.Path, err)
	}
	if existing != nil {
		if lib.ReprocessRecreatedFiles && entry.CreationTime.After(existing.CreationTime) {
			if err := r.resetRecreated(ctx, lib, entry, existing); err != nil {
				return Classification{}, err
			}
		}
		return Classification{Known: true, Fingerprint: existing.Fingerprint}, nil
	}

	if !lib.UseFingerprinting || entry.IsDir {
		return Classification{}, nil
	}

	fp := r.hash(ctx, lib, entry.Path)
	if fp == "" {
		return Classification{}, nil
	}
	match, err := r.store.FindByFingerprint(ctx, fp)
	if err != nil {
		return Classification{}, fmt.Errorf("classify %s: %w", entry.Path, err)
	}
	result := Classification{Fingerprint: fp}
	if match != nil {
		ref := match.Ref()
		result.DuplicateOf = &ref
		r.logger.Info("duplicate content detected",
			logging.Event("duplicate_detected"),
			logging.Library(lib.Name),
			logging.Path(entry.Path),
			logging.Int64("duplicate_of", match.ID),
			logging.String("duplicate_of_path", match.Path),
		)
	}
	return result, nil
}

func (r *Resolver) resetRecreated(ctx context.Context, lib library.Library, entry library.Entry, file *store.File) error {
	if file.Status == store.StatusProcessing {
		r.logRecreateSkipped(lib, file)
		return nil
	}
	file.CreationTime = entry.CreationTime
	file.LastWriteTime = entry.LastWriteTime
	file.OriginalSize = entry.Size
	file.Status = store.StatusUnprocessed
	file.FailureReason = ""
	file.DuplicateOf = nil
	file.FinalSize = 0
	file.ProcessingStarted = time.Time{}
	file.ProcessingEnded = time.Time{}
	if lib.UseFingerprinting && !entry.IsDir {
		file.Fingerprint = r.hash(ctx, lib, entry.Path)
	}
	if err := r.store.Update(ctx, file); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			// Claimed after the lookup.
			r.logRecreateSkipped(lib, file)
			return nil
		}
		return fmt.Errorf("reset recreated file %s: %w", entry.Path, err)
	}
	r.logger.Info("recreated file queued for reprocessing",
		logging.Event("file_recreated"),
		logging.Library(lib.Name),
		logging.FileID(file.ID),
		logging.Path(entry.Path),
	)
	return nil
}

func (r *Resolver) logRecreateSkipped(lib library.Library, file *store.File) {
	r.logger.Debug("recreated file is processing; reset skipped",
		logging.Library(lib.Name),
		logging.FileID(file.ID),
		logging.Path(file.Path),
	)
}

// hash fingerprints path. Failures are logged and produce an empty
// fingerprint so ingestion continues without duplicate detection.
func (r *Resolver) hash(ctx context.Context, lib library.Library, path string) string {
	fp, err := r.fingerprint(ctx, path)
	if err != nil {
		logging.WarnWithContext(r.logger, "fingerprint failed; ingesting without duplicate detection", "fingerprint_failed",
			logging.Library(lib.Name),
			logging.Path(path),
			logging.Error(err),
			logging.Impact("file cannot be matched against existing content"),
			logging.Hint("check that the file is readable"),
		)
		return ""
	}
	return fp
}
