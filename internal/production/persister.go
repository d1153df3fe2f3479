package production

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/comalice/actorchart/internal/core"
)

// FilePersister stores one checkpoint file per actor in a directory,
// encoded with a Codec.
type FilePersister struct {
	dir   string
	codec Codec
}

// NewFilePersister creates a FilePersister, ensuring the directory exists.
func NewFilePersister(dir string, codec Codec) (*FilePersister, error) {
	if codec == nil {
		codec = JSON
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &FilePersister{dir: dir, codec: codec}, nil
}

// NewJSONPersister is NewFilePersister with the JSON codec.
func NewJSONPersister(dir string) (*FilePersister, error) {
	return NewFilePersister(dir, JSON)
}

// NewYAMLPersister is NewFilePersister with the YAML codec.
func NewYAMLPersister(dir string) (*FilePersister, error) {
	return NewFilePersister(dir, YAML)
}

func (p *FilePersister) path(actorID string) (string, error) {
	if actorID == "" || strings.ContainsAny(actorID, `/\`) || actorID == "." || actorID == ".." {
		return "", fmt.Errorf("invalid actor id %q for file storage", actorID)
	}
	return filepath.Join(p.dir, actorID+"."+p.codec.Name()), nil
}

// Save writes the checkpoint to a temporary file and renames it into place,
// so a reader never sees a partial checkpoint.
func (p *FilePersister) Save(ctx context.Context, cp core.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn, err := p.path(cp.ActorID)
	if err != nil {
		return err
	}
	data, err := encodeCheckpoint(p.codec, cp)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(p.dir, "."+cp.ActorID+"-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", fn, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), fn); err != nil {
		return fmt.Errorf("rename to %s: %w", fn, err)
	}
	return nil
}

func (p *FilePersister) Load(ctx context.Context, actorID string) (core.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return core.Checkpoint{}, err
	}
	fn, err := p.path(actorID)
	if err != nil {
		return core.Checkpoint{}, err
	}
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.Checkpoint{}, fmt.Errorf("actor %q: %w", actorID, core.ErrCheckpointNotFound)
		}
		return core.Checkpoint{}, fmt.Errorf("read %s: %w", fn, err)
	}

	cp, err := decodeCheckpoint(p.codec, data)
	if err != nil {
		return core.Checkpoint{}, fmt.Errorf("%s: %w", fn, err)
	}
	cp.ActorID = actorID
	return cp, nil
}

// Delete removes the checkpoint of actorID. Deleting a missing checkpoint is not an error.
func (p *FilePersister) Delete(_ context.Context, actorID string) error {
	fn, err := p.path(actorID)
	if err != nil {
		return err
	}
	if err := os.Remove(fn); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", fn, err)
	}
	return nil
}

// Actors lists the ids that have a checkpoint in the directory.
func (p *FilePersister) Actors() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", p.dir, err)
	}
	ext := "." + p.codec.Name()
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if id, ok := strings.CutSuffix(name, ext); ok {
			out = append(out, id)
		}
	}
	return out, nil
}
