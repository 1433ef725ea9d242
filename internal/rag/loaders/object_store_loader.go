package loaders

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"AgriPolicy/internal/config"
	"AgriPolicy/internal/rag/interfaces"
	"AgriPolicy/internal/rag/schema"
)

// ObjectStoreLoader implements the Loader interface for documents kept
// in an S3-compatible object store. It downloads the object to a
// temporary file and delegates extraction to the loader matching the
// object's format.
type ObjectStoreLoader struct {
	client *minio.Client
	bucket string
}

// NewObjectStoreLoader creates an ObjectStoreLoader from the object
// store configuration.
func NewObjectStoreLoader(cfg config.MinIOConfig) (*ObjectStoreLoader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}
	return &ObjectStoreLoader{client: client, bucket: cfg.Bucket}, nil
}

// Load downloads the object with the given key and extracts its text.
func (l *ObjectStoreLoader) Load(ctx context.Context, key string) (*schema.Document, error) {
	id := "s3://" + l.bucket + "/" + key

	obj, err := l.client.GetObject(ctx, l.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, &schema.IngestionError{DocumentID: id, Reason: "object fetch failed", Err: err}
	}
	defer obj.Close()

	tmp, err := os.CreateTemp("", "agripolicy-*"+filepath.Ext(key))
	if err != nil {
		return nil, &schema.IngestionError{DocumentID: id, Reason: "temp file failed", Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, obj); err != nil {
		tmp.Close()
		return nil, &schema.IngestionError{DocumentID: id, Reason: "download failed", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &schema.IngestionError{DocumentID: id, Reason: "temp file failed", Err: err}
	}

	doc, err := LoadFile(ctx, tmp.Name())
	if err != nil {
		if ing, ok := err.(*schema.IngestionError); ok {
			ing.DocumentID = id
		}
		return nil, err
	}

	// The delegate saw a temporary path; the stable identity is the
	// object's location.
	doc.ID = id
	doc.Metadata[schema.MetadataKeySourceName] = key
	return doc, nil
}

// compile-time check to ensure ObjectStoreLoader implements the Loader interface
var _ interfaces.Loader = (*ObjectStoreLoader)(nil)
