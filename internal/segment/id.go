package segment

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID builds SEG_<code>_<utc timestamp>_<6 hex>, where code abbreviates
// the trigger and the suffix comes from a time-ordered UUID.
func NewID(trigger string, now time.Time) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	hex := strings.ReplaceAll(id.String(), "-", "")
	return "SEG_" + TriggerCode(trigger) + "_" + now.UTC().Format("20060102T150405") + "_" + hex[len(hex)-6:]
}

// TriggerCode abbreviates a trigger id: initials for multi-word ids, the
// first three letters otherwise.
func TriggerCode(trigger string) string {
	parts := strings.FieldsFunc(strings.ToUpper(trigger), func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	switch {
	case len(parts) == 0:
		return "GEN"
	case len(parts) == 1:
		if len(parts[0]) > 3 {
			return parts[0][:3]
		}
		return parts[0]
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteByte(p[0])
	}
	return b.String()
}
