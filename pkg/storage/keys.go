package storage

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const maxFilenameLen = 80

// MediaKey places an upload under its property with a random prefix so two
// uploads of the same filename never collide.
func MediaKey(propertyID uuid.UUID, filename string) string {
	return path.Join("properties", propertyID.String(), "media", uuid.NewString()+"-"+SanitizeFilename(filename))
}

// DocumentKey is the stable location for a generated PDF.
func DocumentKey(kind string, id uuid.UUID) string {
	return path.Join("documents", kind, fmt.Sprintf("%s.pdf", id))
}

// BelongsToProperty reports whether key was issued by MediaKey for propertyID.
func BelongsToProperty(key string, propertyID uuid.UUID) bool {
	return strings.HasPrefix(key, path.Join("properties", propertyID.String(), "media")+"/")
}

// SanitizeFilename keeps letters, digits, dots, dashes and underscores.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), ".-")
	if len(out) > maxFilenameLen {
		out = out[len(out)-maxFilenameLen:]
	}
	if out == "" {
		return "file"
	}
	return out
}
