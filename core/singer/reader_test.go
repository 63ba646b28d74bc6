package singer

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{"type":"SCHEMA","stream":"contacts","schema":{},"key_properties":["id"]}

{"type":"RECORD","stream":"contacts","record":{"email":"a@x.com","name":"Ann Lee","addresses":[{"city":"Paris","postal_code":75001}]}}
{"type":"STATE","value":{"bookmarks":{}}}
`

func readAll(t *testing.T, r io.Reader) []Message {
	t.Helper()
	reader := NewReader(r)
	var out []Message
	for {
		msg, err := reader.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, msg)
	}
}

func TestReader_Next(t *testing.T) {
	msgs := readAll(t, strings.NewReader(sample))
	require.Len(t, msgs, 3)

	assert.Equal(t, TypeSchema, msgs[0].Type)
	assert.Nil(t, msgs[0].Record)

	assert.Equal(t, TypeRecord, msgs[1].Type)
	assert.Equal(t, "contacts", msgs[1].Stream)
	assert.Equal(t, "a@x.com", msgs[1].Record["email"])
	addresses, ok := msgs[1].Record["addresses"].([]any)
	require.True(t, ok)
	assert.Equal(t, float64(75001), addresses[0].(map[string]any)["postal_code"])

	assert.Equal(t, TypeState, msgs[2].Type)
}

func TestReader_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"malformed json", `{"type":`, "line 1"},
		{"missing type", `{"stream":"contacts"}`, "no type"},
		{"record not object", `{"type":"RECORD","stream":"contacts","record":[1]}`, "not an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(tt.input)).Next()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "input.jsonl")
	require.NoError(t, os.WriteFile(plain, []byte(sample), 0o600))

	compressed := filepath.Join(dir, "input.jsonl.gz")
	f, err := os.Create(compressed)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	for _, path := range []string{plain, compressed} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			rc, err := Open(path)
			require.NoError(t, err)
			defer rc.Close()
			assert.Len(t, readAll(t, rc), 3)
		})
	}

	_, err = Open(filepath.Join(dir, "missing.jsonl"))
	assert.Error(t, err)
}
