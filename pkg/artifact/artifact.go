package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	ErrNotFound    = errors.New("artifact not found")
	ErrInvalidName = errors.New("artifact name is invalid")
)

// Store yields named read-only artifacts: reference tables and model files.
type Store interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type Config struct {
	Backend   string        `envconfig:"BACKEND" default:"dir"`
	Root      string        `envconfig:"ROOT" default:"./data"`
	Endpoint  string        `envconfig:"ENDPOINT"`
	AccessKey string        `envconfig:"ACCESS_KEY" split_words:"true"`
	SecretKey string        `envconfig:"SECRET_KEY" split_words:"true"`
	Bucket    string        `envconfig:"BUCKET" default:"trademind"`
	Region    string        `envconfig:"REGION"`
	UseSSL    bool          `envconfig:"USE_SSL" split_words:"true" default:"false"`
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

func New(cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "dir":
		return NewDirStore(cfg.Root)
	case "minio":
		return NewMinIOStore(cfg)
	default:
		return nil, fmt.Errorf("artifact: unknown backend %q", cfg.Backend)
	}
}

// DirStore serves artifacts from a local directory.
type DirStore struct {
	root string
}

func NewDirStore(root string) (*DirStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("artifact: root dir is required")
	}
	return &DirStore{root: root}, nil
}

func (s *DirStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		return nil, fmt.Errorf("artifact: open %s: %w", clean, err)
	}
	return f, nil
}

// MinIOStore serves artifacts from a single bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(cfg Config) (*MinIOStore, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("artifact: minio endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("artifact: minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("artifact: create minio client: %w", err)
	}
	return &MinIOStore{client: client, bucket: bucket}, nil
}

func (s *MinIOStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	// GetObject is lazy; Stat forces the round trip so a missing key surfaces here.
	obj, err := s.client.GetObject(ctx, s.bucket, clean, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(clean, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, s.mapError(clean, err)
	}
	return obj, nil
}

func (s *MinIOStore) mapError(name string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, s.bucket, name)
	}
	return fmt.Errorf("artifact: get %s/%s: %w", s.bucket, name, err)
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	clean := filepath.ToSlash(filepath.Clean(name))
	if strings.HasPrefix(clean, "../") || clean == ".." || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrInvalidName, name)
	}
	return clean, nil
}
