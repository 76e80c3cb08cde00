package notion

import (
	"regexp"
	"strings"
)

var hexID = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// ParsePageID normalizes a caller-supplied page ID (dashed UUID, bare 32-hex,
// or a slugged tail like "My-Page-<hex32>") into canonical UUID form.
func ParsePageID(id string) (string, error) {
	raw := strings.ReplaceAll(id, "-", "")
	if len(raw) > 32 {
		raw = raw[len(raw)-32:]
	}
	if !hexID.MatchString(raw) {
		return "", ErrInvalidPageID
	}
	return toUUID(strings.ToLower(raw)), nil
}

func toUUID(raw string) string {
	return raw[0:8] + "-" + raw[8:12] + "-" + raw[12:16] + "-" + raw[16:20] + "-" + raw[20:]
}
