// Package media presents stored object keys to clients.
package media

import (
	"context"
	"path"
	"strings"
	"time"

	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/models"
)

const (
	TypeImage = "image"
	TypePDF   = "pdf"
	TypeDOCX  = "docx"
	TypeRTF   = "rtf"
	TypeTXT   = "txt"
	TypeVideo = "video"
	Type3D    = "3d"
	TypeFile  = "file"

	DefaultURLTTL = 5 * time.Minute
)

var typesByExt = map[string]string{
	".png":  TypeImage,
	".jpg":  TypeImage,
	".jpeg": TypeImage,
	".svg":  TypeImage,
	".webp": TypeImage,
	".pdf":  TypePDF,
	".docx": TypeDOCX,
	".rtf":  TypeRTF,
	".txt":  TypeTXT,
	".gif":  TypeVideo,
	".obj":  Type3D,
	".glb":  Type3D,
	".gltf": Type3D,
	".fbx":  Type3D,
}

// previewOrder is the preference used by PickPreview.
var previewOrder = []string{TypeImage, TypeVideo, TypePDF}

// Presigner issues time-limited GET urls.
type Presigner interface {
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// InferType classifies a key by its extension.
func InferType(key string) string {
	if t, ok := typesByExt[strings.ToLower(path.Ext(key))]; ok {
		return t
	}
	return TypeFile
}

// Describe presigns every key. A key that cannot be presigned keeps a nil URL.
func Describe(ctx context.Context, p Presigner, bucket string, keys []string, ttl time.Duration, log logger.Logger) []models.Media {
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	out := make([]models.Media, 0, len(keys))
	for _, k := range keys {
		m := models.Media{Key: k, Type: InferType(k)}
		url, err := p.PresignGet(ctx, bucket, k, ttl)
		if err != nil {
			log.Warn("presign failed", map[string]interface{}{
				"key":   k,
				"error": err.Error(),
			})
		} else {
			m.URL = &url
		}
		out = append(out, m)
	}
	return out
}

// PickPreview returns the url of the first image, else video, else pdf that has one.
func PickPreview(media []models.Media) *string {
	for _, want := range previewOrder {
		for _, m := range media {
			if m.Type == want && m.URL != nil {
				return m.URL
			}
		}
	}
	return nil
}
