package media

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Domenick1991/railbooking/config"
	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG: 1x1 transparent pixel
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestSlugify(t *testing.T) {
	testCases := map[string]string{
		"Central Station": "central-station",
		"  Minsk--Pass. ": "minsk-pass",
		"Гродно Вокзал":   "grodno-vokzal",
		"Москва":          "moskva",
		"***":             "file",
	}
	for in, want := range testCases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestLocalStore_Save(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(config.MediaConfig{Dir: dir, BaseURL: "/media/"})

	rel, err := s.Save(StationsPrefix, "Central Station", bytes.NewReader(pngPixel))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "uploads/stations/central-station-"), rel)
	assert.True(t, strings.HasSuffix(rel, ".png"), rel)

	stored, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, pngPixel, stored)
	assert.Equal(t, "/media/"+rel, s.URL(rel))
	assert.Empty(t, s.URL(""))

	require.NoError(t, s.Remove(rel))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, s.Remove(rel))
}

func TestLocalStore_SaveRejectsNonImages(t *testing.T) {
	s := NewLocalStore(config.MediaConfig{Dir: t.TempDir(), BaseURL: "/media"})

	for name, body := range map[string][]byte{
		"text":  []byte("definitely not a picture"),
		"pdf":   []byte("%PDF-1.4\n%âãÏÓ\n"),
		"empty": nil,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Save(StationsPrefix, "x", bytes.NewReader(body))
			var vErr *domain.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, "image", vErr.Field)
		})
	}
}
