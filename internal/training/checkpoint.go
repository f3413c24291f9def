package training

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"github.com/shoppulse/recsys-backend/internal/artifacts"
	"github.com/shoppulse/recsys-backend/internal/features"
	"github.com/shoppulse/recsys-backend/internal/model"
	"github.com/shoppulse/recsys-backend/pkg/enums"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
	"github.com/shoppulse/recsys-backend/pkg/logger"
)

var checkpointNameRe = regexp.MustCompile(`model-e(\d+)-(\d{14})\.gob$`)

// checkpointBundle is the gob payload: enough to rebuild the exact model
// without the training data.
type checkpointBundle struct {
	SchemaVersion int
	ModelKind     string
	Config        model.Config
	Params        []paramBlob
}

type paramBlob struct {
	Rows int
	Cols int
	Data []float64
}

// CheckpointManager names, stores and restores model snapshots.
type CheckpointManager struct {
	store  *artifacts.Store
	prefix string
	logg   *logger.Logger
	now    func() time.Time
}

func NewCheckpointManager(store *artifacts.Store, prefix string, logg *logger.Logger) *CheckpointManager {
	return &CheckpointManager{
		store:  store,
		prefix: prefix,
		logg:   logg,
		now:    time.Now,
	}
}

// Save persists the model as model-e{epoch}-{timestamp}.gob under the
// manager's prefix, then verifies the artifact landed and reports its size.
func (c *CheckpointManager) Save(ctx context.Context, m model.Classifier, kind enums.ModelKind, epoch int) (string, error) {
	bundle := checkpointBundle{
		SchemaVersion: features.SchemaVersion,
		ModelKind:     string(kind),
		Config:        m.Config(),
	}
	for _, p := range m.Params() {
		r, cols := p.Value.Dims()
		data := make([]float64, 0, r*cols)
		for i := 0; i < r; i++ {
			for j := 0; j < cols; j++ {
				data = append(data, p.Value.At(i, j))
			}
		}
		bundle.Params = append(bundle.Params, paramBlob{Rows: r, Cols: cols, Data: data})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(bundle); err != nil {
		return "", fmt.Errorf("encoding checkpoint: %w", err)
	}

	object := fmt.Sprintf("%smodel-e%d-%s.gob", c.prefix, epoch, c.now().UTC().Format("20060102150405"))
	if err := c.store.Put(ctx, object, buf.Bytes()); err != nil {
		return object, err
	}

	size, err := c.store.Size(object)
	if err != nil {
		return object, fmt.Errorf("verifying checkpoint %q: %w", object, err)
	}
	if size == 0 {
		return object, fmt.Errorf("checkpoint %q is empty", object)
	}
	if c.logg != nil {
		c.logg.Info(ctx, fmt.Sprintf("checkpoint saved: %s (%d bytes)", object, size))
	}
	return object, nil
}

// Load restores a classifier from a checkpoint object.
func (c *CheckpointManager) Load(ctx context.Context, object string) (model.Classifier, error) {
	data, err := c.store.Get(ctx, object)
	if err != nil {
		return nil, err
	}

	var bundle checkpointBundle
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&bundle); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "decoding checkpoint "+object)
	}
	if bundle.SchemaVersion != features.SchemaVersion {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("checkpoint schema version %d does not match current %d", bundle.SchemaVersion, features.SchemaVersion))
	}

	kind, err := enums.ParseModelKind(bundle.ModelKind)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "checkpoint model kind")
	}

	m, err := NewModelForKind(kind, bundle.Config, rand.New(rand.NewSource(0)))
	if err != nil {
		return nil, err
	}

	params := m.Params()
	if len(params) != len(bundle.Params) {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("checkpoint has %d tensors, model expects %d", len(bundle.Params), len(params)))
	}
	for i, blob := range bundle.Params {
		r, cols := params[i].Value.Dims()
		if r != blob.Rows || cols != blob.Cols {
			return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("checkpoint tensor %d is %dx%d, model expects %dx%d", i, blob.Rows, blob.Cols, r, cols))
		}
		idx := 0
		for row := 0; row < r; row++ {
			for col := 0; col < cols; col++ {
				params[i].Value.Set(row, col, blob.Data[idx])
				idx++
			}
		}
	}
	return m, nil
}

// Latest resolves the newest checkpoint by its embedded timestamp, breaking
// ties with the epoch number. No checkpoint at all is a MISSING_ARTIFACT
// error, which inference treats as fatal for the run.
func (c *CheckpointManager) Latest(ctx context.Context) (string, error) {
	names, err := c.store.List(ctx, c.prefix)
	if err != nil {
		return "", err
	}

	best := ""
	bestStamp := ""
	bestEpoch := -1
	for _, name := range names {
		m := checkpointNameRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		epoch := 0
		fmt.Sscanf(m[1], "%d", &epoch)
		stamp := m[2]
		if stamp > bestStamp || (stamp == bestStamp && epoch > bestEpoch) {
			best = name
			bestStamp = stamp
			bestEpoch = epoch
		}
	}

	if best == "" {
		return "", apperrors.New(apperrors.CodeMissingArtifact, "no model checkpoint found under "+c.prefix)
	}
	return best, nil
}
