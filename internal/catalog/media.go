// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package catalog

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Media directories relative to the media root.
const (
	programCardImageDir = "media/programs/card_images"
	courseImageDir      = "media/course/image"
)

var imageExtensions = map[string]string{
	"png":     "png",
	"jpeg":    "jpg",
	"jpg":     "jpg",
	"gif":     "gif",
	"webp":    "webp",
	"svg+xml": "svg",
}

// DecodedImage is the payload of an image data URI.
type DecodedImage struct {
	Ext  string
	Data []byte
}

// IsDataURI reports whether s looks like an image data URI.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:image/")
}

// DecodeImageDataURI parses data:image/<ext>;base64,<payload>.
func DecodeImageDataURI(uri string) (*DecodedImage, error) {
	rest, ok := strings.CutPrefix(uri, "data:image/")
	if !ok {
		return nil, ErrBadImageData
	}
	format, payload, ok := strings.Cut(rest, ";base64,")
	if !ok || payload == "" {
		return nil, ErrBadImageData
	}
	ext, ok := imageExtensions[strings.ToLower(format)]
	if !ok {
		return nil, ErrBadImageData
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImageData, err)
	}
	if len(data) == 0 {
		return nil, ErrBadImageData
	}
	return &DecodedImage{Ext: ext, Data: data}, nil
}

// saveImage writes img under dir and returns its public URL.
func (s *Service) saveImage(dir, prefix string, img *DecodedImage) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s.%s", prefix, hex.EncodeToString(suffix), img.Ext)

	target := filepath.Join(s.cfg.MediaRoot, filepath.FromSlash(dir))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(target, name), img.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return s.mediaURL(path.Join(dir, name)), nil
}

func (s *Service) mediaURL(rel string) string {
	base := s.cfg.MediaURL
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + rel
}

// readLocalMedia returns the bytes behind a media URL this service wrote.
// It returns false for URLs hosted elsewhere.
func (s *Service) readLocalMedia(url string) (string, []byte, bool) {
	base := s.mediaURL("")
	rel, ok := strings.CutPrefix(url, base)
	if !ok || base == "" || !strings.HasPrefix(rel, "media/") {
		return "", nil, false
	}
	clean := path.Clean(rel)
	if strings.HasPrefix(clean, "..") {
		return "", nil, false
	}
	data, err := os.ReadFile(filepath.Join(s.cfg.MediaRoot, filepath.FromSlash(clean)))
	if err != nil {
		return "", nil, false
	}
	return path.Base(clean), data, true
}
