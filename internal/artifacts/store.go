// Package artifacts stores encoders and model checkpoints in object storage
// with a local directory acting as both write-through cache and fallback.
package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shoppulse/recsys-backend/pkg/config"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
	"github.com/shoppulse/recsys-backend/pkg/logger"
	"github.com/shoppulse/recsys-backend/pkg/storage/gcs"
)

// Blob is the remote object surface the store needs. *gcs.Bucket satisfies it.
type Blob interface {
	Get(ctx context.Context, object string) (io.ReadCloser, error)
	Put(ctx context.Context, object string, data io.Reader, contentType string) error
	Exists(ctx context.Context, object string) (bool, error)
	List(ctx context.Context, prefix string) ([]gcs.ObjectInfo, error)
}

type Store struct {
	blob     Blob // nil means local-only
	localDir string
	logg     *logger.Logger
}

func NewStore(blob Blob, cfg config.ArtifactsConfig, logg *logger.Logger) (*Store, error) {
	if cfg.LocalDir == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "artifacts local directory is required")
	}
	if err := os.MkdirAll(cfg.LocalDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifacts directory: %w", err)
	}
	return &Store{blob: blob, localDir: cfg.LocalDir, logg: logg}, nil
}

func (s *Store) localPath(object string) string {
	return filepath.Join(s.localDir, filepath.FromSlash(object))
}

// Put writes the artifact locally first, then uploads it. A failed upload is
// logged and reported but the local copy survives, so later reads still work.
func (s *Store) Put(ctx context.Context, object string, data []byte) error {
	path := s.localPath(object)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating artifact subdirectory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing artifact %q: %w", object, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalizing artifact %q: %w", object, err)
	}

	if s.blob == nil {
		return nil
	}
	if err := s.blob.Put(ctx, object, bytes.NewReader(data), contentTypeFor(object)); err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("artifact upload failed, local copy kept: %s", object))
		}
		return apperrors.Wrap(apperrors.CodeDependency, err, "uploading artifact "+object)
	}
	return nil
}

// Get fetches the artifact, preferring the remote copy and caching it locally.
// When the remote is unreachable or missing the object, the local cache is the
// fallback; a miss on both sides is a MISSING_ARTIFACT error.
func (s *Store) Get(ctx context.Context, object string) ([]byte, error) {
	if s.blob != nil {
		ok, err := s.blob.Exists(ctx, object)
		if err != nil && s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("artifact existence check failed, falling back to local cache: %s", object))
		}
		if err == nil && ok {
			rc, getErr := s.blob.Get(ctx, object)
			if getErr == nil {
				data, readErr := io.ReadAll(rc)
				_ = rc.Close()
				if readErr == nil {
					if cacheErr := s.cacheLocally(object, data); cacheErr != nil && s.logg != nil {
						s.logg.Warn(ctx, fmt.Sprintf("caching artifact locally failed: %s", object))
					}
					return data, nil
				}
			}
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("artifact download failed, falling back to local cache: %s", object))
			}
		}
	}

	data, err := os.ReadFile(s.localPath(object))
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.Wrap(apperrors.CodeMissingArtifact, err, "artifact not found: "+object)
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached artifact %q: %w", object, err)
	}
	return data, nil
}

// Exists reports whether the artifact is available from either side.
func (s *Store) Exists(ctx context.Context, object string) (bool, error) {
	if s.blob != nil {
		ok, err := s.blob.Exists(ctx, object)
		if err == nil && ok {
			return true, nil
		}
	}
	_, err := os.Stat(s.localPath(object))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// List returns the union of remote and locally cached artifact names under
// the prefix, sorted lexically.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	seen := map[string]struct{}{}

	if s.blob != nil {
		items, err := s.blob.List(ctx, prefix)
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("remote artifact listing failed, using local cache only: %s", prefix))
			}
		} else {
			for _, item := range items {
				seen[item.Name] = struct{}{}
			}
		}
	}

	root := s.localPath(prefix)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, os.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, relErr := filepath.Rel(s.localDir, path)
		if relErr != nil {
			return relErr
		}
		seen[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("walking local artifacts: %w", err)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Size reports the byte length of a locally cached artifact, used to verify
// checkpoints were written out.
func (s *Store) Size(object string) (int64, error) {
	info, err := os.Stat(s.localPath(object))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *Store) cacheLocally(object string, data []byte) error {
	path := s.localPath(object)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func contentTypeFor(object string) string {
	if strings.HasSuffix(object, ".json") {
		return "application/json"
	}
	return "application/octet-stream"
}
