package klaviyo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"

	"klaviyo-sync/core/storage"
)

// FilePersister stores credentials in a JSON document on disk.
type FilePersister struct {
	Path string
}

// Load reads the document. A missing file yields an empty document.
func (p *FilePersister) Load(_ context.Context) (map[string]any, error) {
	data, err := os.ReadFile(p.Path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.Path, err)
	}
	return decodeDocument(data)
}

// Save merges updates into the document and replaces the file atomically.
func (p *FilePersister) Save(ctx context.Context, updates map[string]any) error {
	doc, err := p.Load(ctx)
	if err != nil {
		return err
	}
	for k, v := range updates {
		doc[k] = v
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	mode := os.FileMode(0o600)
	if info, err := os.Stat(p.Path); err == nil {
		mode = info.Mode().Perm()
	}
	return writeFileAtomic(p.Path, data, mode)
}

// writeFileAtomic writes to a sibling temp file and renames it over path, so
// readers never observe a partial document.
func writeFileAtomic(path string, data []byte, mode os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// ObjectPersister stores credentials as a JSON object in S3-compatible storage.
type ObjectPersister struct {
	Client storage.Client
	Bucket string
	Object string
}

// Load fetches the object. A missing object yields an empty document.
func (p *ObjectPersister) Load(ctx context.Context) (map[string]any, error) {
	obj, err := p.Client.GetObject(ctx, p.Bucket, p.Object, minio.GetObjectOptions{})
	if err != nil {
		if storage.IsNotFound(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("get %s/%s: %w", p.Bucket, p.Object, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if storage.IsNotFound(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read %s/%s: %w", p.Bucket, p.Object, err)
	}
	return decodeDocument(data)
}

// Check verifies the bucket is reachable and exists.
func (p *ObjectPersister) Check(ctx context.Context) error {
	ok, err := p.Client.BucketExists(ctx, p.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", p.Bucket, err)
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", p.Bucket)
	}
	return nil
}

// Save merges updates into the object and uploads the result in a single PUT.
func (p *ObjectPersister) Save(ctx context.Context, updates map[string]any) error {
	doc, err := p.Load(ctx)
	if err != nil {
		return err
	}
	for k, v := range updates {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	_, err = p.Client.PutObject(ctx, p.Bucket, p.Object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", p.Bucket, p.Object, err)
	}
	return nil
}

func decodeDocument(data []byte) (map[string]any, error) {
	doc := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode credentials document: %w", err)
	}
	return doc, nil
}
