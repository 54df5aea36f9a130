package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	// AvatarSize is the edge length in pixels of user and group avatars.
	AvatarSize = 50

	// AvatarJPEGQuality is the JPEG quality used when encoding avatars.
	AvatarJPEGQuality = 100
)

// ErrUnsupportedImage is returned when data is not a decodable JPEG, PNG or GIF image.
var ErrUnsupportedImage = errors.New("unsupported image")

// ImageInfo describes a probed image.
type ImageInfo struct {
	Format      imaging.Format
	Ext         string
	ContentType string
	Width       int
	Height      int
}

var supportedFormats = map[string]ImageInfo{
	"jpeg": {Format: imaging.JPEG, Ext: ".jpg", ContentType: "image/jpeg"},
	"png":  {Format: imaging.PNG, Ext: ".png", ContentType: "image/png"},
	"gif":  {Format: imaging.GIF, Ext: ".gif", ContentType: "image/gif"},
}

// Probe reads the header of an image and reports its format and dimensions without
// decoding the pixels.
func Probe(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	info, ok := supportedFormats[format]
	if !ok {
		return ImageInfo{}, fmt.Errorf("%w: format %s", ErrUnsupportedImage, format)
	}

	info.Width = cfg.Width
	info.Height = cfg.Height
	return info, nil
}

// ResizeAvatar centre-crops data to an AvatarSize square and encodes it as JPEG.
func ResizeAvatar(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	resized := imaging.Fill(img, AvatarSize, AvatarSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(AvatarJPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}
