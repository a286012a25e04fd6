// Package storage uploads exported documents to object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/smallbiznis/faktur/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// BlobStore is the narrow put-and-link interface the export path needs.
type BlobStore interface {
	Put(ctx context.Context, key string, content []byte) error
	PublicURL(key string) string
}

type ossStore struct {
	bucket    *oss.Bucket
	publicURL string
	endpoint  string
	name      string
}

func newOSSStore(cfg config.Config) (BlobStore, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSKeyID, cfg.OSSKeySecret)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &ossStore{
		bucket:    bucket,
		publicURL: cfg.OSSPublicURL,
		endpoint:  cfg.OSSEndpoint,
		name:      cfg.OSSBucket,
	}, nil
}

func (s *ossStore) Put(ctx context.Context, key string, content []byte) error {
	_ = ctx
	return s.bucket.PutObject(key, bytes.NewReader(content))
}

func (s *ossStore) PublicURL(key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(s.endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.name, endpoint, key)
}

// localStore writes objects to disk. Keys are slash-separated and must
// stay inside the root.
type localStore struct {
	root string
}

func (s *localStore) Put(ctx context.Context, key string, content []byte) error {
	_ = ctx
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return fmt.Errorf("storage key %q escapes root", key)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}

func (s *localStore) PublicURL(key string) string {
	return "/" + filepath.ToSlash(filepath.Base(s.root)) + "/" + key
}

// New returns the OSS-backed store, or a local-disk store when the
// bucket is not configured so export keeps working in dev.
func New(cfg config.Config, log *zap.Logger) (BlobStore, error) {
	if cfg.OSSEndpoint == "" || cfg.OSSBucket == "" {
		root, err := filepath.Abs(cfg.LocalStorageDir)
		if err != nil {
			return nil, err
		}
		log.Warn("object storage not configured, exports write to local disk",
			zap.String("dir", root),
		)
		return &localStore{root: root}, nil
	}
	return newOSSStore(cfg)
}

var Module = fx.Module("providers.storage",
	fx.Provide(New),
)
