package artifacts

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"fitcheck-workers/internal/common/errors"

	"github.com/google/uuid"
)

func hexID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func TempName() string {
	return fmt.Sprintf("temp_%s.jpg", hexID())
}

func GeneratedName(angle string) string {
	return fmt.Sprintf("generated_%s_%s.jpg", hexID(), angle)
}

func ErrorName() string {
	return fmt.Sprintf("error_%s.jpg", hexID())
}

func VideoName(angle string, now time.Time) string {
	return fmt.Sprintf("fitcheck_%s_%s_%d.mp4", angle, uuid.NewString()[:8], now.Unix())
}

// UploadName prefixes a sanitized client filename with a fresh id.
func UploadName(filename string) string {
	return fmt.Sprintf("%s_%s", hexID(), SanitizeFilename(filename))
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename strips directories and any character outside [A-Za-z0-9_.-].
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}

// AllowedExtension reports whether filename carries one of the allowed extensions.
func AllowedExtension(filename string, allowed []string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return false
	}
	ext := strings.ToLower(filename[idx+1:])
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// ResolveSource loads an uploaded image by id, rejecting ids that are not
// plain names or that do not exist.
func ResolveSource(ctx context.Context, store Store, imageID string) ([]byte, error) {
	if imageID == "" {
		return nil, errors.NewValidationError("image_id is required")
	}
	if imageID != filepath.Base(imageID) || strings.ContainsAny(imageID, `/\`) || imageID == ".." {
		return nil, errors.NewValidationError("image_id must be a plain file name")
	}

	ok, err := store.Exists(ctx, KindUpload, imageID)
	if err != nil {
		return nil, errors.NewArtifactReadFailedError(imageID, err)
	}
	if !ok {
		return nil, errors.NewImageNotFoundError(imageID)
	}

	data, err := store.Read(ctx, KindUpload, imageID)
	if err != nil {
		return nil, errors.NewArtifactReadFailedError(imageID, err)
	}
	return data, nil
}
