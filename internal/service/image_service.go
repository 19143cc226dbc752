package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	"image/png"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/quantu99/Test-Beincom-BE/internal/config"
	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/observability"
	"github.com/quantu99/Test-Beincom-BE/internal/storage"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 5
	DefaultImageMaxDimension    = 2048
	DefaultImageQuality         = 82
)

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type UploadImageInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService validates post images and moves them in and out of the asset store.
type ImageService struct {
	store              storage.AssetStore
	maxUploadSizeBytes int64
	maxDimension       int
	quality            int
	now                func() time.Time
}

func NewImageService(store storage.AssetStore, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	maxDimension := DefaultImageMaxDimension
	quality := DefaultImageQuality

	if cfg != nil {
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
		if cfg.ImageMaxDimension > 0 {
			maxDimension = cfg.ImageMaxDimension
		}
		if cfg.ImageQuality > 0 && cfg.ImageQuality <= 100 {
			quality = cfg.ImageQuality
		}
	}

	return &ImageService{
		store:              store,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		maxDimension:       maxDimension,
		quality:            quality,
		now:                time.Now,
	}
}

// MaxUploadBytes is the largest accepted upload.
func (s *ImageService) MaxUploadBytes() int64 {
	return s.maxUploadSizeBytes
}

// Upload validates the file, downscales it when needed and stores it under a
// fresh key. Nothing is stored when validation fails.
func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (*models.UploadedImage, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}
	ext := strings.ToLower(filepath.Ext(in.Filename))
	if !allowedImageExtensions[ext] {
		return nil, models.NewValidationError("Invalid file type. Only jpg, jpeg, png, gif and webp images are allowed")
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return nil, models.NewValidationError("Invalid image type")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil || !isSupportedDecodedFormat(format) {
		return nil, models.NewValidationError("Invalid image file")
	}
	mimeType := decodedFormatToMime(format)
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, mimeType) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	data := in.Content
	if format != "gif" && (cfg.Width > s.maxDimension || cfg.Height > s.maxDimension) {
		data, err = s.downscale(in.Content, format)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	key := s.newKey(format)
	ctx, span := observability.GetTraceLayer().TraceAssetOperation(ctx, "upload", key)
	defer span.End()

	err = s.store.Upload(ctx, key, mimeType, data)
	observability.RecordAsset("upload", err)
	if err != nil {
		span.RecordError(err)
		return nil, models.NewInternalError(fmt.Errorf("upload image: %w", err))
	}
	span.SetAttributes(attribute.Int("asset.size_bytes", len(data)))

	return &models.UploadedImage{Filename: key, URL: s.store.PublicURL(key)}, nil
}

// Owns reports whether url is exactly the public URL of an object in the
// store this service uploads to.
func (s *ImageService) Owns(url string) bool {
	url = strings.TrimSpace(url)
	key := storage.KeyFromURL(url)
	if key == "" || storage.ValidateKey(key) != nil {
		return false
	}
	return url == s.store.PublicURL(key)
}

// Delete removes the asset behind a public URL. Empty URLs and URLs that do
// not point into the store are ignored.
func (s *ImageService) Delete(ctx context.Context, url string) error {
	if !s.Owns(url) {
		return nil
	}
	key := storage.KeyFromURL(url)
	ctx, span := observability.GetTraceLayer().TraceAssetOperation(ctx, "delete", key)
	defer span.End()

	err := s.store.Delete(ctx, key)
	observability.RecordAsset("delete", err)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete image %s: %w", key, err)
	}
	return nil
}

func (s *ImageService) newKey(format string) string {
	return fmt.Sprintf("post-%d-%s.%s", s.now().UnixMilli(), uuid.NewString(), formatExtension(format))
}

func (s *ImageService) downscale(content []byte, format string) ([]byte, error) {
	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	resized := resizeToFit(decoded, s.maxDimension, s.maxDimension)
	switch format {
	case "jpeg":
		return encodeJPEG(resized, s.quality)
	case "webp":
		return encodeWebP(resized, s.quality)
	default:
		return encodePNG(resized)
	}
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func formatExtension(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
