package parse

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"outpass-backend/internal/model"
)

var (
	sepRe   = regexp.MustCompile(`[\s_/&-]+`)
	aliases = map[string]model.Category{
		"medical":           model.CategoryMedical,
		"hospital":          model.CategoryMedical,
		"home visit":        model.CategoryHomeVisit,
		"home leave":        model.CategoryHomeVisit,
		"home":              model.CategoryHomeVisit,
		"academic":          model.CategoryAcademic,
		"academic event":    model.CategoryAcademic,
		"event":             model.CategoryAcademic,
		"personal":          model.CategoryPersonal,
		"personal shopping": model.CategoryPersonal,
		"shopping":          model.CategoryPersonal,
		"day out":           model.CategoryPersonal,
		"other":             model.CategoryOther,
	}
)

// ParseCategory normalizes a category as typed or picked in a form
// ("Medical", "Home Leave", "Academic/Event", "home-visit") to the enum.
func ParseCategory(raw string) (model.Category, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if c := model.Category(s); c.Valid() {
		return c, nil
	}
	s = strings.TrimSpace(sepRe.ReplaceAllString(s, " "))
	if c, ok := aliases[s]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown category: %q", raw)
}

// datetime-local input, with and without seconds.
var localLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05", "2006-01-02 15:04"}

// ParseWindowTime accepts RFC3339, or a zone-less local time interpreted in
// loc.
func ParseWindowTime(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time: %q", raw)
}
