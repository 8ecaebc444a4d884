package upload

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	// webp decoder for imaging.Decode
	_ "golang.org/x/image/webp"
)

// Store keeps uploaded photos on local disk under dir and serves them under
// urlPrefix.
type Store struct {
	dir       string
	urlPrefix string
}

// Saved is one stored upload.
type Saved struct {
	Path string
	URL  string
}

func NewStore(dir, urlPrefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &Store{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save writes r under a fresh random name keeping the original extension.
func (s *Store) Save(filename string, r io.Reader) (*Saved, error) {
	name := uuid.New().String() + extension(filename)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &Saved{Path: path, URL: s.urlPrefix + "/" + name}, nil
}

func extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || len(ext) > 6 {
		return ".jpg"
	}
	return ext
}

// DecodeImage reads a photo, honouring its EXIF orientation.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// OpenImage decodes the photo stored at path.
func OpenImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	return img, nil
}
