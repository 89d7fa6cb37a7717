package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/noah-isme/merrykids-api/pkg/config"
	appErrors "github.com/noah-isme/merrykids-api/pkg/errors"
)

// Category is the sub-directory a file is filed under.
type Category string

const (
	CategoryStaffPhotos   Category = "staff/photos"
	CategorySubmissions   Category = "admissions/submissions"
	CategoryAnnouncements Category = "admissions/announcements"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Upload is an incoming file.
type Upload struct {
	Filename string
	Reader   io.Reader
}

// File is the metadata of a stored file. Path is relative to the store root.
type File struct {
	OriginalName string
	StoredName   string
	Path         string
}

// LocalStorage persists uploads on disk under a base directory.
type LocalStorage struct {
	baseDir       string
	maxImageBytes int64
	maxPDFBytes   int64
	maxDimension  int
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(cfg config.StorageConfig) (*LocalStorage, error) {
	baseDir := cfg.UploadDir
	if baseDir == "" {
		baseDir = "./uploads"
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	s := &LocalStorage{
		baseDir:       abs,
		maxImageBytes: cfg.MaxImageBytes,
		maxPDFBytes:   cfg.MaxPDFBytes,
		maxDimension:  cfg.PhotoMaxDimension,
	}
	if s.maxImageBytes <= 0 {
		s.maxImageBytes = 5 << 20
	}
	if s.maxPDFBytes <= 0 {
		s.maxPDFBytes = 10 << 20
	}
	return s, nil
}

// StorePDF accepts PDF documents only.
func (s *LocalStorage) StorePDF(upload Upload, category Category) (*File, error) {
	data, err := readLimited(upload, s.maxPDFBytes)
	if err != nil {
		return nil, err
	}
	if !mimetype.Detect(data).Is("application/pdf") {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "only PDF files are allowed")
	}
	return s.write(category, ".pdf", upload.Filename, data)
}

// StoreImage accepts JPEG, PNG or WebP. JPEG and PNG are auto-oriented and
// downscaled to fit the configured bounding box.
func (s *LocalStorage) StoreImage(upload Upload, category Category) (*File, error) {
	data, err := readLimited(upload, s.maxImageBytes)
	if err != nil {
		return nil, err
	}
	mime := mimetype.Detect(data)
	ext, ok := imageExtensions[mime.String()]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "only JPEG, PNG or WebP images are allowed")
	}
	if ext != ".webp" {
		if data, err = s.normalize(data, ext); err != nil {
			return nil, err
		}
	}
	return s.write(category, ext, upload.Filename, data)
}

func (s *LocalStorage) normalize(data []byte, ext string) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidArgument.Code, appErrors.ErrInvalidArgument.Status, "image could not be decoded")
	}
	if s.maxDimension > 0 && exceeds(img.Bounds(), s.maxDimension) {
		img = imaging.Fit(img, s.maxDimension, s.maxDimension, imaging.Lanczos)
	}
	format := imaging.JPEG
	if ext == ".png" {
		format = imaging.PNG
	}
	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func exceeds(b image.Rectangle, limit int) bool {
	return b.Dx() > limit || b.Dy() > limit
}

func (s *LocalStorage) write(category Category, ext, original string, data []byte) (*File, error) {
	stored := uuid.NewString() + ext
	rel := filepath.ToSlash(filepath.Join(string(category), stored))
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("prepare upload directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}
	return &File{OriginalName: cleanName(original, ext), StoredName: stored, Path: rel}, nil
}

// Load reads a stored file. A missing file is an error, never an empty result.
func (s *LocalStorage) Load(rel string) ([]byte, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Wrap(err, appErrors.ErrFileMissing.Code, appErrors.ErrFileMissing.Status, appErrors.ErrFileMissing.Message)
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

// ContentType guesses the served content type from the stored extension.
func ContentType(rel string) string {
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func (s *LocalStorage) resolve(rel string) (string, error) {
	path := filepath.Join(s.baseDir, filepath.FromSlash(rel))
	if path != s.baseDir && !strings.HasPrefix(path, s.baseDir+string(os.PathSeparator)) {
		return "", appErrors.Clone(appErrors.ErrInvalidArgument, "invalid file path")
	}
	return path, nil
}

func readLimited(upload Upload, limit int64) ([]byte, error) {
	if upload.Reader == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "file is required")
	}
	data, err := io.ReadAll(io.LimitReader(upload.Reader, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "file is empty")
	}
	if int64(len(data)) > limit {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("file exceeds the %dMB limit", limit>>20))
	}
	return data, nil
}

func cleanName(original, ext string) string {
	name := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "upload" + ext
	}
	return name
}
