// Package upload stores menu and chef images on local disk.
package upload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxSize is the largest accepted image, in bytes.
const MaxSize = 20 << 20

var (
	ErrTooLarge        = errors.New("image must be 20MB or smaller")
	ErrUnsupportedType = errors.New("only JPEG and PNG images are allowed")
	ErrEmpty           = errors.New("image is empty")
)

var allowedExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

var canonicalExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// Saved describes a stored file.
type Saved struct {
	Name     string `json:"filename"`
	URL      string `json:"url"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// Store writes uploads into Dir and serves them under BaseURL + "/uploads/".
type Store struct {
	dir     string
	baseURL string
}

func NewStore(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir is the directory files are written to.
func (s *Store) Dir() string { return s.dir }

// Save validates r as a JPEG or PNG named filename and writes it under a
// fresh unique name. Partially written files are removed on error.
func (s *Store) Save(r io.Reader, filename string) (Saved, error) {
	br, mime, err := sniff(r, filename)
	if err != nil {
		return Saved{}, err
	}

	name := uuid.NewString() + canonicalExt[mime]
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Saved{}, fmt.Errorf("create file: %w", err)
	}

	n, err := copyLimited(f, br)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path) //nolint:errcheck
		return Saved{}, err
	}

	return Saved{Name: name, URL: s.baseURL + "/uploads/" + name, MIMEType: mime, Size: n}, nil
}

// WithTempFile validates r, writes it to a temporary file and calls fn with
// the file's path and MIME type. The file is removed when WithTempFile
// returns, whatever fn does.
func WithTempFile(r io.Reader, filename string, fn func(path, mimeType string) error) error {
	br, mime, err := sniff(r, filename)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp("", "analyze-*"+canonicalExt[mime])
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name()) //nolint:errcheck

	_, err = copyLimited(f, br)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	return fn(f.Name(), mime)
}

// sniff checks the extension and the leading bytes of the content.
func sniff(r io.Reader, filename string) (*bufio.Reader, string, error) {
	extMIME, ok := allowedExt[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return nil, "", ErrUnsupportedType
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(head) == 0 {
		return nil, "", ErrEmpty
	}
	mime := http.DetectContentType(head)
	if mime != extMIME {
		return nil, "", ErrUnsupportedType
	}
	return br, mime, nil
}

func copyLimited(dst io.Writer, src io.Reader) (int64, error) {
	n, err := io.Copy(dst, io.LimitReader(src, MaxSize+1))
	if err != nil {
		return n, fmt.Errorf("write image: %w", err)
	}
	if n > MaxSize {
		return n, ErrTooLarge
	}
	return n, nil
}
