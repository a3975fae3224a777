package storage

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Object key folders.
const (
	FolderReceipts           = "receipts"
	FolderQRCodes            = "qrcodes"
	FolderEventImages        = "event_images"
	FolderAnnouncementImages = "announcement_images"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename strips directories and replaces characters outside
// [A-Za-z0-9._-] with underscores.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "upload"
	}
	if len(name) > 120 {
		ext := filepath.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:120-len(ext)] + ext
	}
	return name
}

// ObjectKey builds a collision-free key of the form folder/<uuidhex>_<name>.
func ObjectKey(folder, filename string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return folder + "/" + id + "_" + SanitizeFilename(filename)
}

// PublicURL joins the public base URL with an object key.
func PublicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
