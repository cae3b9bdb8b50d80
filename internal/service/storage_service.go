package service

import (
	"classhub_backend/internal/config"
	"classhub_backend/pkg/logger"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ObjectStore is where uploaded attachments and lesson videos end up.
type ObjectStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	PutFile(ctx context.Context, key string, localPath string, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

type localStore struct {
	root string
}

func (s *localStore) write(key string, reader io.Reader) error {
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, reader)
	return err
}

func (s *localStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	if err := s.write(key, reader); err != nil {
		return "", err
	}
	return s.URL(key), nil
}

func (s *localStore) PutFile(ctx context.Context, key string, localPath string, contentType string) (string, error) {
	if filepath.Clean(localPath) == filepath.Join(s.root, filepath.FromSlash(key)) {
		return s.URL(key), nil
	}
	src, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := s.write(key, src); err != nil {
		return "", err
	}
	return s.URL(key), nil
}

func (s *localStore) Remove(ctx context.Context, key string) error {
	return os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
}

func (s *localStore) URL(key string) string {
	return "/uploads/" + key
}

type minioStore struct {
	bucket string
	client *minio.Client
}

func newMinioStore(cfg *config.StorageConfig) (*minioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioStore{bucket: cfg.MinioBucket, client: client}, nil
}

func (s *minioStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return s.URL(key), nil
}

func (s *minioStore) PutFile(ctx context.Context, key string, localPath string, contentType string) (string, error) {
	_, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return s.URL(key), nil
}

func (s *minioStore) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *minioStore) URL(key string) string {
	return "/" + s.bucket + "/" + key
}

type ossStore struct {
	bucketName string
	endpoint   string
	client     *oss.Client
}

func newOSSStore(cfg *config.StorageConfig) (*ossStore, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &ossStore{bucketName: cfg.OSSBucket, endpoint: cfg.OSSEndpoint, client: client}, nil
}

func (s *ossStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	bucket, err := s.client.Bucket(s.bucketName)
	if err != nil {
		return "", err
	}
	if err := bucket.PutObject(key, reader, oss.ContentType(contentType)); err != nil {
		return "", err
	}
	return s.URL(key), nil
}

func (s *ossStore) PutFile(ctx context.Context, key string, localPath string, contentType string) (string, error) {
	bucket, err := s.client.Bucket(s.bucketName)
	if err != nil {
		return "", err
	}
	if err := bucket.PutObjectFromFile(key, localPath, oss.ContentType(contentType)); err != nil {
		return "", err
	}
	return s.URL(key), nil
}

func (s *ossStore) Remove(ctx context.Context, key string) error {
	bucket, err := s.client.Bucket(s.bucketName)
	if err != nil {
		return err
	}
	return bucket.DeleteObject(key)
}

func (s *ossStore) URL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", s.bucketName, s.endpoint, key)
}

type StorageService struct {
	Store ObjectStore
}

// NewStorageService picks the configured backend and falls back to local disk
// when the remote client cannot be built.
func NewStorageService(cfg *config.Config) *StorageService {
	var store ObjectStore
	switch cfg.Storage.Type {
	case "minio":
		s, err := newMinioStore(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("minio unavailable, using local storage", zap.Error(err))
		} else {
			store = s
		}
	case "oss":
		s, err := newOSSStore(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("oss unavailable, using local storage", zap.Error(err))
		} else {
			store = s
		}
	}

	if store == nil {
		store = &localStore{root: cfg.Storage.LocalPath}
	}
	return &StorageService{Store: store}
}

// ObjectKey builds a collision-free key such as "attachments/2024/05/<uuid>.pdf".
func ObjectKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(prefix, time.Now().Format("2006/01"), uuid.NewString()+ext)
}

func (s *StorageService) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	return s.Store.Put(ctx, key, reader, size, contentType)
}

func (s *StorageService) PutFile(ctx context.Context, key string, localPath string, contentType string) (string, error) {
	return s.Store.PutFile(ctx, key, localPath, contentType)
}

func (s *StorageService) Remove(ctx context.Context, key string) error {
	return s.Store.Remove(ctx, key)
}

func (s *StorageService) URL(key string) string {
	return s.Store.URL(key)
}
