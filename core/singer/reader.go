package singer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/valyala/fastjson"
)

// MaxLineBytes bounds a single message line.
const MaxLineBytes = 10 * 1024 * 1024

// Message types.
const (
	TypeRecord = "RECORD"
	TypeSchema = "SCHEMA"
	TypeState  = "STATE"
)

// Message is one decoded line. Record is set only for RECORD messages.
type Message struct {
	Type   string
	Stream string
	Record map[string]any
}

// Reader decodes newline-delimited messages.
type Reader struct {
	scanner *bufio.Scanner
	parser  fastjson.Parser
	line    int
	buf     []byte
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxLineBytes)
	return &Reader{scanner: scanner}
}

// Next returns the next message, or io.EOF after the last one. Blank lines
// are skipped.
func (r *Reader) Next() (Message, error) {
	for r.scanner.Scan() {
		r.line++
		b := r.scanner.Bytes()
		if len(strings.TrimSpace(string(b))) == 0 {
			continue
		}

		v, err := r.parser.ParseBytes(b)
		if err != nil {
			return Message{}, fmt.Errorf("line %d: %w", r.line, err)
		}

		msg := Message{
			Type:   strings.ToUpper(string(v.GetStringBytes("type"))),
			Stream: string(v.GetStringBytes("stream")),
		}
		if msg.Type == "" {
			return Message{}, fmt.Errorf("line %d: message has no type", r.line)
		}
		if msg.Type != TypeRecord {
			return msg, nil
		}

		rec := v.Get("record")
		if rec == nil || rec.Type() != fastjson.TypeObject {
			return Message{}, fmt.Errorf("line %d: record is not an object", r.line)
		}
		r.buf = rec.MarshalTo(r.buf[:0])
		if err := json.Unmarshal(r.buf, &msg.Record); err != nil {
			return Message{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return msg, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Message{}, err
	}
	return Message{}, io.EOF
}

// Open opens path for reading. "" and "-" read stdin; a .gz suffix is
// decompressed.
func Open(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to open gzip input: %w", err)
	}
	return &gzipFile{Reader: zr, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	zerr := g.Reader.Close()
	ferr := g.file.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}
