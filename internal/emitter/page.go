package emitter

import "strings"

type Page struct {
	Category   string         `json:"category"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}

// FullName joins category and name when both are set.
func (p Page) FullName() string {
	c, n := strings.TrimSpace(p.Category), strings.TrimSpace(p.Name)
	switch {
	case c != "" && n != "":
		return c + " " + n
	case n != "":
		return n
	default:
		return c
	}
}

// EventName is the tracked name for a page view labelled title.
func EventName(title string) string {
	return "Viewed " + title + " Page"
}

// EmitPageTrack derives up to two tracks from one page view. The
// categorized and the named event are independent and may both fire.
func (e *Emitter) EmitPageTrack(p Page) {
	if strings.TrimSpace(p.Category) != "" && e.opts.TrackCategorizedPages {
		e.Track(EventName(strings.TrimSpace(p.Category)), p.Properties)
	}
	if strings.TrimSpace(p.Name) != "" && e.opts.TrackNamedPages {
		e.Track(EventName(p.FullName()), p.Properties)
	}
}
