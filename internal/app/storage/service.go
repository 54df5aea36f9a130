/*
Package storage stores user-uploaded images in S3-compatible object storage.

Uploaded chat images are stored as-is and described by their public URL and dimensions;
avatars are centre-cropped to 50x50 JPEG first. Every upload is stored under a folder scoped
to the uploading user, so a URL can be traced back to its owner before it is accepted into a
message or group. Assets are released by URL or object key.
*/
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"livechat/internal/pkg/randx"
)

const (
	// FolderMessages holds images attached to chat messages.
	FolderMessages = "messages"

	// FolderAvatars holds user avatars.
	FolderAvatars = "avatars"

	// FolderGroups holds group images.
	FolderGroups = "groups"
)

// OwnerFolder returns the folder under which assets of kind folder uploaded by owner are stored.
func OwnerFolder(folder, owner string) string {
	return strings.Trim(folder, "/") + "/" + owner
}

// ErrForeignAsset is returned when asked to release a URL that does not belong to this store.
var ErrForeignAsset = errors.New("asset does not belong to this store")

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// PublicURL is the base URL under which stored objects are served.
	PublicURL string
}

// Asset is a stored image.
type Asset struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ObjectStore is the minimal blob API the service needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Service uploads and releases image assets.
type Service struct {
	objects   ObjectStore
	publicURL string
}

// NewService is the factory function for Service backed by S3-compatible storage.
func NewService(ctx context.Context, cfg ServiceConfig) (*Service, error) {
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewServiceWithStore(client, cfg.PublicURL), nil
}

// NewServiceWithStore builds a Service on top of an arbitrary ObjectStore.
func NewServiceWithStore(objects ObjectStore, publicURL string) *Service {
	return &Service{
		objects:   objects,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Upload stores an image under folder and returns its public URL and dimensions.
func (s *Service) Upload(ctx context.Context, data []byte, folder string) (Asset, error) {
	info, err := Probe(data)
	if err != nil {
		return Asset{}, err
	}

	u, err := s.put(ctx, data, folder, info.Ext, info.ContentType)
	if err != nil {
		return Asset{}, err
	}

	return Asset{URL: u, Width: info.Width, Height: info.Height}, nil
}

// UploadAvatar resizes an image to an avatar and stores it under folder.
func (s *Service) UploadAvatar(ctx context.Context, data []byte, folder string) (Asset, error) {
	resized, err := ResizeAvatar(data)
	if err != nil {
		return Asset{}, err
	}

	u, err := s.put(ctx, resized, folder, ".jpg", "image/jpeg")
	if err != nil {
		return Asset{}, err
	}

	return Asset{URL: u, Width: AvatarSize, Height: AvatarSize}, nil
}

func (s *Service) put(ctx context.Context, data []byte, folder, ext, contentType string) (string, error) {
	key, err := randx.AssetKey(folder, ext)
	if err != nil {
		return "", fmt.Errorf("generate asset key: %w", err)
	}

	if err := s.objects.Put(ctx, key, data, contentType); err != nil {
		return "", err
	}

	return s.publicURL + "/" + key, nil
}

// Release deletes the asset identified by a public URL or a bare object key. An empty
// reference is a no-op.
func (s *Service) Release(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}

	key, err := KeyFromURL(s.publicURL, ref)
	if err != nil {
		return err
	}

	return s.objects.Delete(ctx, key)
}

// Owns reports whether ref is the public URL of an asset this service stored for owner
// under folder. Bare keys and URLs of other hosts are never owned.
func (s *Service) Owns(ref, folder, owner string) bool {
	if owner == "" || strings.Contains(owner, "/") || s.publicURL == "" {
		return false
	}

	key, ok := strings.CutPrefix(ref, s.publicURL+"/")
	if !ok || strings.Contains(key, "..") {
		return false
	}

	name, ok := strings.CutPrefix(key, OwnerFolder(folder, owner)+"/")
	return ok && name != "" && !strings.ContainsAny(name, "/?#")
}

// KeyFromURL derives the object key from ref. ref may be a URL under publicURL or a key.
func KeyFromURL(publicURL, ref string) (string, error) {
	publicURL = strings.TrimRight(publicURL, "/")

	if publicURL != "" && strings.HasPrefix(ref, publicURL+"/") {
		key := strings.TrimPrefix(ref, publicURL+"/")
		if i := strings.IndexAny(key, "?#"); i >= 0 {
			key = key[:i]
		}
		if key == "" {
			return "", fmt.Errorf("%w: %s", ErrForeignAsset, ref)
		}
		return key, nil
	}

	if parsed, err := url.Parse(ref); err == nil && parsed.Scheme != "" {
		return "", fmt.Errorf("%w: %s", ErrForeignAsset, ref)
	}

	key := strings.TrimLeft(ref, "/")
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %s", ErrForeignAsset, ref)
	}
	return key, nil
}
