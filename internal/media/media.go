// Package media stores uploaded station pictures on the local filesystem.
package media

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Domenick1991/railbooking/config"
	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	StationsPrefix = "uploads/stations"
	MaxUploadSize  = 10 << 20
)

var errNotImage = domain.NewValidationError("image",
	"upload a valid image: the file you uploaded was either not an image or a corrupted image")

type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(cfg config.MediaConfig) *LocalStore {
	return &LocalStore{dir: cfg.Dir, baseURL: strings.TrimRight(cfg.BaseURL, "/")}
}

// Save writes an image under prefix and returns its media-relative path,
// e.g. "uploads/stations/central-station-<uuid>.png". Content that does not
// sniff as image/* is rejected with a validation error on field "image".
func (s *LocalStore) Save(prefix, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", domain.NewValidationError("image", "the submitted file is empty")
	}
	if len(data) > MaxUploadSize {
		return "", domain.NewValidationError("image", "file is larger than %d bytes", MaxUploadSize)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", errNotImage
	}

	rel := path.Join(prefix, fmt.Sprintf("%s-%s%s", Slugify(name), uuid.NewString(), mtype.Extension()))
	full := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return rel, nil
}

func (s *LocalStore) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// URL turns a stored path into the address it is served from.
func (s *LocalStore) URL(rel string) string {
	if rel == "" {
		return ""
	}
	return s.baseURL + "/" + rel
}

func (s *LocalStore) Dir() string {
	return s.dir
}

// Slugify transliterates name to a lowercase ASCII slug, falling back to "file".
func Slugify(name string) string {
	if s := slug.Make(name); s != "" {
		return s
	}
	return "file"
}
