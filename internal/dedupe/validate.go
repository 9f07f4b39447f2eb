package dedupe

import (
	"strings"

	"github.com/sells-group/lead-engine/internal/model"
)

// Validate checks that a lead carries the minimum fields required for
// duplicate matching and persistence. It returns the rejection reason and
// false when the lead is unusable.
func Validate(l model.Lead) (string, bool) {
	switch {
	case strings.TrimSpace(l.OriginalAddress) == "":
		return "missing property address", false
	case strings.TrimSpace(l.City) == "":
		return "missing city", false
	case strings.TrimSpace(l.State) == "":
		return "missing state", false
	case strings.TrimSpace(l.ZipCode) == "":
		return "missing zip code", false
	}
	return "", true
}
