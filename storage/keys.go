package storage

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
var multipleSpaces = regexp.MustCompile(`\s+`)

// ObjectKey builds the storage path for an upload:
// {uploaderProfileID}/{uploadUnixMillis}-{sanitizedFilename}.
// The timestamp keeps same-named uploads from colliding.
func ObjectKey(profileID int64, filename string, at time.Time) string {
	return fmt.Sprintf("%d/%d-%s", profileID, at.UnixMilli(), sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	base := strings.TrimSpace(name)
	base = multipleSpaces.ReplaceAllString(base, "_")
	base = unsafeKeyChars.ReplaceAllString(base, "")

	maxLength := 150
	if len(base) > maxLength {
		base = base[:maxLength]
	}
	if base == "" {
		base = "upload.dat"
	}
	return base
}
