package features

import (
	"context"
	"errors"

	"github.com/shoppulse/recsys-backend/internal/artifacts"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
	"github.com/shoppulse/recsys-backend/pkg/logger"
)

// LoadEncoder restores the persisted target encoder. A missing artifact is
// returned as a MISSING_ARTIFACT error so callers can decide whether that is
// fatal (inference) or a cue to fit fresh (training).
func LoadEncoder(ctx context.Context, store *artifacts.Store, object string) (*LabelEncoder, error) {
	data, err := store.Get(ctx, object)
	if err != nil {
		return nil, err
	}
	return UnmarshalArtifact(data)
}

// SaveEncoder persists the encoder artifact.
func SaveEncoder(ctx context.Context, store *artifacts.Store, object string, enc *LabelEncoder) error {
	data, err := enc.MarshalArtifact()
	if err != nil {
		return err
	}
	return store.Put(ctx, object, data)
}

// LoadOrFitEncoder prefers the persisted vocabulary; when none exists it fits
// one over the given categories and persists it for future runs. Any other
// load failure is surfaced, not papered over with a refit, so a transient
// storage outage cannot silently change the class vocabulary.
func LoadOrFitEncoder(ctx context.Context, store *artifacts.Store, object string, categories []string, logg *logger.Logger) (*LabelEncoder, error) {
	enc, err := LoadEncoder(ctx, store, object)
	if err == nil {
		return enc, nil
	}

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != apperrors.CodeMissingArtifact {
		return nil, err
	}

	if logg != nil {
		logg.Info(ctx, "no persisted label encoder found, fitting a fresh one")
	}
	enc, err = Fit(categories)
	if err != nil {
		return nil, err
	}
	if err := SaveEncoder(ctx, store, object, enc); err != nil {
		return nil, err
	}
	return enc, nil
}
