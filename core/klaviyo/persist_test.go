package klaviyo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"klaviyo-sync/core/storage/mocks"
)

func TestFilePersister_SavePreservesUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"list_id":"L1","refresh_token":"old"}`), 0o640))

	p := &FilePersister{Path: path}
	err := p.Save(context.Background(), map[string]any{
		"access_token":  "new",
		"refresh_token": "r2",
		"expires_in":    int64(1700003600),
	})
	require.NoError(t, err)

	doc, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "L1", doc["list_id"])
	assert.Equal(t, "new", doc["access_token"])
	assert.Equal(t, "r2", doc["refresh_token"])
	assert.EqualValues(t, 1700003600, doc["expires_in"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestFilePersister_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	p := &FilePersister{Path: path}

	doc, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc)

	require.NoError(t, p.Save(context.Background(), map[string]any{"access_token": "at"}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFilePersister_CorruptDocumentIsNotOverwritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":`), 0o600))

	p := &FilePersister{Path: path}
	err := p.Save(context.Background(), map[string]any{"access_token": "at"})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":`, string(data))
}

func TestFilePersister_UnwritableDirectory(t *testing.T) {
	p := &FilePersister{Path: filepath.Join(t.TempDir(), "missing", "config.json")}
	err := p.Save(context.Background(), map[string]any{"access_token": "at"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create temp file")
}

func TestObjectPersister_Save(t *testing.T) {
	client := new(mocks.Client)
	existing := io.NopCloser(bytes.NewReader([]byte(`{"list_id":"L1","access_token":"old"}`)))
	client.On("GetObject", mock.Anything, "bucket", "creds.json", mock.Anything).Return(existing, nil)

	var uploaded []byte
	client.On("PutObject", mock.Anything, "bucket", "creds.json", mock.Anything, mock.Anything,
		mock.MatchedBy(func(opts minio.PutObjectOptions) bool { return opts.ContentType == "application/json" })).
		Run(func(args mock.Arguments) {
			data, err := io.ReadAll(args.Get(3).(io.Reader))
			require.NoError(t, err)
			uploaded = data
		}).
		Return(minio.UploadInfo{}, nil)

	p := &ObjectPersister{Client: client, Bucket: "bucket", Object: "creds.json"}
	require.NoError(t, p.Save(context.Background(), map[string]any{"access_token": "new"}))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(uploaded, &doc))
	assert.Equal(t, "L1", doc["list_id"])
	assert.Equal(t, "new", doc["access_token"])
	client.AssertExpectations(t)
}

func TestObjectPersister_MissingObject(t *testing.T) {
	client := new(mocks.Client)
	notFound := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	client.On("GetObject", mock.Anything, "bucket", "creds.json", mock.Anything).Return(nil, notFound)

	p := &ObjectPersister{Client: client, Bucket: "bucket", Object: "creds.json"}
	doc, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestObjectPersister_PutFails(t *testing.T) {
	client := new(mocks.Client)
	client.On("GetObject", mock.Anything, "bucket", "creds.json", mock.Anything).
		Return(io.NopCloser(bytes.NewReader(nil)), nil)
	client.On("PutObject", mock.Anything, "bucket", "creds.json", mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("access denied"))

	p := &ObjectPersister{Client: client, Bucket: "bucket", Object: "creds.json"}
	err := p.Save(context.Background(), map[string]any{"access_token": "new"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestObjectPersister_Check(t *testing.T) {
	tests := []struct {
		name    string
		exists  bool
		err     error
		wantErr string
	}{
		{name: "exists", exists: true},
		{name: "missing bucket", wantErr: "does not exist"},
		{name: "unreachable", err: errors.New("connection refused"), wantErr: "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mocks.Client)
			client.On("BucketExists", mock.Anything, "bucket").Return(tt.exists, tt.err)

			p := &ObjectPersister{Client: client, Bucket: "bucket", Object: "creds.json"}
			err := p.Check(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
