package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/socialnet/apiserver/types"
)

// ObjectStore is the part of storage.Storage the media service needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyForURL(url string) (string, bool)
}

// MediaFile is one uploaded file read from a multipart request.
type MediaFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// MediaService stores uploaded media in object storage.
type MediaService struct {
	objects ObjectStore
	folder  string
}

func NewMediaService(objects ObjectStore, folder string) *MediaService {
	return &MediaService{objects: objects, folder: strings.Trim(folder, "/")}
}

// Upload stores files one after another. When a file fails, the media stored
// so far is returned together with the error and is not removed.
func (s *MediaService) Upload(ctx context.Context, files []MediaFile) ([]types.Media, error) {
	if len(files) == 0 {
		return nil, ErrNoMedia
	}

	uploaded := make([]types.Media, 0, len(files))
	for _, file := range files {
		if len(file.Data) == 0 {
			return uploaded, ErrNoMedia
		}
		key := s.key(file.Filename)
		contentType := file.ContentType
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(file.Data)
		}

		if err := s.objects.Put(ctx, key, bytes.NewReader(file.Data), int64(len(file.Data)), contentType); err != nil {
			return uploaded, fmt.Errorf("upload %s: %w", file.Filename, err)
		}
		uploaded = append(uploaded, types.Media{URL: s.objects.PublicURL(key), PublicID: key})
	}
	return uploaded, nil
}

// Remove deletes the objects behind urls and returns how many it removed.
// URLs outside this deployment's bucket are skipped.
func (s *MediaService) Remove(ctx context.Context, urls []string) (int, error) {
	removed := 0
	for _, url := range urls {
		key, ok := s.objects.KeyForURL(url)
		if !ok {
			continue
		}
		if err := s.objects.Delete(ctx, key); err != nil {
			return removed, fmt.Errorf("delete %s: %w", key, err)
		}
		removed++
	}
	return removed, nil
}

func (s *MediaService) key(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	name := uuid.NewString() + ext
	if s.folder == "" {
		return name
	}
	return path.Join(s.folder, name)
}
