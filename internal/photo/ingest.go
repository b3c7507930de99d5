// Package photo turns uploaded profile pictures into stored thumbnails.
package photo

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"blog-server/internal/storage"
)

// ErrUnsupportedFormat is returned for uploads outside the allow-list or
// whose content is not a decodable image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

const (
	// MaxDimension bounds both sides of a stored photo.
	MaxDimension = 125
	// MaxUploadBytes caps how much of an upload is read.
	MaxUploadBytes = 8 << 20
	maxPixels      = 40_000_000
)

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Allowed reports whether filename carries an accepted image extension.
func Allowed(filename string) bool {
	_, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Ingestor validates, renames, downsizes and stores profile photos.
type Ingestor struct {
	store  storage.Service
	random io.Reader
}

func NewIngestor(store storage.Service) *Ingestor {
	return &Ingestor{store: store, random: rand.Reader}
}

// Ingest stores the image read from r and returns its new file name. The
// uploaded name only contributes its extension.
func (i *Ingestor) Ingest(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := contentTypes[ext]
	if !ok {
		return "", fmt.Errorf("%q: %w", filepath.Ext(filename), ErrUnsupportedFormat)
	}

	raw, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(raw) > MaxUploadBytes {
		return "", fmt.Errorf("upload exceeds %d bytes: %w", MaxUploadBytes, ErrUnsupportedFormat)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode image header: %w", ErrUnsupportedFormat)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return "", fmt.Errorf("image of %dx%d: %w", cfg.Width, cfg.Height, ErrUnsupportedFormat)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", ErrUnsupportedFormat)
	}

	var out bytes.Buffer
	thumb := Thumbnail(img, MaxDimension, MaxDimension)
	if contentType == "image/png" {
		err = png.Encode(&out, thumb)
	} else {
		err = jpeg.Encode(&out, thumb, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}

	name, err := i.randomName(ext)
	if err != nil {
		return "", err
	}
	if err := i.store.Put(ctx, name, &out, contentType); err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	return name, nil
}

// randomName returns 16 hex characters followed by ext.
func (i *Ingestor) randomName(ext string) (string, error) {
	b := make([]byte, 8)
	if _, err := io.ReadFull(i.random, b); err != nil {
		return "", fmt.Errorf("generate photo name: %w", err)
	}
	return hex.EncodeToString(b) + ext, nil
}

// Thumbnail shrinks img to fit within maxW x maxH keeping its aspect ratio.
// Images that already fit are returned unchanged.
func Thumbnail(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	nw, nh := maxW, maxH
	if w*maxH > h*maxW {
		nh = max(1, (h*maxW+w/2)/w)
	} else {
		nw = max(1, (w*maxH+h/2)/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
