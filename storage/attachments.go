// Package storage keeps incident evidence files outside the database.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"dular-server/config"
)

// Object describes a stored file.
type Object struct {
	Key  string
	URL  string
	Mime string
	Size int64
}

// AttachmentStore saves a file under folder and returns where it lives.
type AttachmentStore interface {
	Put(ctx context.Context, folder, mime string, r io.Reader, size int64) (Object, error)
}

// New returns a Cloudinary store when credentials are configured and an
// in-memory store otherwise.
func New(cfg config.CloudinaryConfig) (AttachmentStore, error) {
	if !cfg.Enabled() {
		log.Println("⚠️ Cloudinary not configured, incident attachments are kept in memory")
		return NewMemoryStore(), nil
	}
	return NewCloudinaryStore(cfg)
}

// CloudinaryStore uploads attachments as private images.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cfg config.CloudinaryConfig) (*CloudinaryStore, error) {
	cloudinaryURL := fmt.Sprintf("cloudinary://%s:%s@%s", cfg.APIKey, cfg.APISecret, cfg.CloudName)
	log.Printf("🔧 Using Cloudinary URL: cloudinary://%s:***@%s", cfg.APIKey, cfg.CloudName)

	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: cfg.Folder}, nil
}

func (s *CloudinaryStore) Put(ctx context.Context, folder, mime string, r io.Reader, size int64) (Object, error) {
	key := uuid.NewString()
	overwrite := false
	up, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       s.folder + "/" + folder,
		PublicID:     key,
		Overwrite:    &overwrite,
		ResourceType: "image",
		Type:         "private",
	})
	if err != nil {
		return Object{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if up.Error.Message != "" {
		return Object{}, fmt.Errorf("cloudinary upload: %s", up.Error.Message)
	}
	return Object{Key: up.PublicID, URL: up.SecureURL, Mime: mime, Size: size}, nil
}

// MemoryStore keeps files in process memory. Used in tests and when no
// object storage is configured.
type MemoryStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, folder, mime string, r io.Reader, size int64) (Object, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return Object{}, err
	}
	key := folder + "/" + uuid.NewString()

	s.mu.Lock()
	s.files[key] = buf.Bytes()
	s.mu.Unlock()

	return Object{Key: key, URL: "memory://" + key, Mime: mime, Size: n}, nil
}

// Get returns a stored file.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[key]
	return b, ok
}

// Len reports how many files are stored.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}
