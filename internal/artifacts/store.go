// Package artifacts manages uploaded, temporary and generated binary artifacts.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fitcheck-workers/internal/common/config"
)

type Kind string

const (
	KindUpload    Kind = "upload"
	KindGenerated Kind = "generated"
	KindVideo     Kind = "video"
	KindTemp      Kind = "temp"
)

// ErrNotFound is returned by Read when the artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

type Artifact struct {
	Kind        Kind
	Name        string
	Location    string
	ContentType string
}

// Store persists artifacts by kind and name. Names are generated with a fresh
// unique id by callers, so concurrent units never write the same key.
type Store interface {
	Save(ctx context.Context, kind Kind, name string, data []byte, contentType string) (Artifact, error)
	Read(ctx context.Context, kind Kind, name string) ([]byte, error)
	Exists(ctx context.Context, kind Kind, name string) (bool, error)
	Remove(ctx context.Context, kind Kind, name string) error
}

// NewStore builds the backend selected by cfg.Backend.
func NewStore(ctx context.Context, cfg config.ArtifactsConfig) (Store, error) {
	switch cfg.Backend {
	case "", "fs":
		return NewFSStore(cfg)
	case "s3":
		return NewS3StoreFromConfig(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown artifacts backend %q", cfg.Backend)
	}
}

// FSStore keeps each kind in its own directory.
type FSStore struct {
	dirs map[Kind]string
}

func NewFSStore(cfg config.ArtifactsConfig) (*FSStore, error) {
	temp := cfg.TempDir
	if temp == "" {
		temp = cfg.UploadDir
	}
	s := &FSStore{dirs: map[Kind]string{
		KindUpload:    cfg.UploadDir,
		KindGenerated: cfg.GeneratedDir,
		KindVideo:     cfg.VideoDir,
		KindTemp:      temp,
	}}
	for kind, dir := range s.dirs {
		if dir == "" {
			return nil, fmt.Errorf("artifacts: no directory configured for %s", kind)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("artifacts: create %s dir: %w", kind, err)
		}
	}
	return s, nil
}

func (s *FSStore) path(kind Kind, name string) (string, error) {
	dir, ok := s.dirs[kind]
	if !ok {
		return "", fmt.Errorf("artifacts: unknown kind %q", kind)
	}
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("artifacts: invalid name %q", name)
	}
	return filepath.Join(dir, name), nil
}

func (s *FSStore) Save(_ context.Context, kind Kind, name string, data []byte, contentType string) (Artifact, error) {
	p, err := s.path(kind, name)
	if err != nil {
		return Artifact{}, err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write %s: %w", p, err)
	}
	return Artifact{Kind: kind, Name: name, Location: p, ContentType: contentType}, nil
}

func (s *FSStore) Read(_ context.Context, kind Kind, name string) ([]byte, error) {
	p, err := s.path(kind, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *FSStore) Exists(_ context.Context, kind Kind, name string) (bool, error) {
	p, err := s.path(kind, name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *FSStore) Remove(_ context.Context, kind Kind, name string) error {
	p, err := s.path(kind, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
