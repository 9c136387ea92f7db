// Package location extracts place names from free-text queries and
// resolves them against a geocoding service.
package location

import (
	"context"
	"regexp"
	"strings"

	"astrogeo/internal/common/logger"
)

// Location is a place referenced by a query. Validated is true only
// when the geocoder confirmed the place and filled coordinates.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country,omitempty"`
	Raw       string  `json:"raw"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Validated bool    `json:"validated"`
}

// Label returns the display form of the location, with country when known.
func (l *Location) Label() string {
	if l.Country != "" {
		return l.Name + ", " + l.Country
	}
	return l.Name
}

// Geocoder resolves a candidate place name. A nil Location with a nil
// error means the candidate matched nothing.
type Geocoder interface {
	Resolve(ctx context.Context, candidate string) (*Location, error)
}

// stopwords are tokens the extraction patterns can capture that are
// never place names.
var stopwords = map[string]bool{
	"weather":       true,
	"temperature":   true,
	"climate":       true,
	"forecast":      true,
	"analysis":      true,
	"environmental": true,
	"air":           true,
	"quality":       true,
	"pollution":     true,
	"today":         true,
	"tomorrow":      true,
	"data":          true,
	"report":        true,
	"conditions":    true,
	"the":           true,
	"this":          true,
	"that":          true,
	"next":          true,
	"week":          true,
	"my":            true,
	"current":       true,
	"what":          true,
	"whats":         true,
	"how":           true,
	"tell":          true,
	"show":          true,
	"give":          true,
	"me":            true,
	"is":            true,
	"about":         true,
}

// Extraction patterns in priority order. Prepositional phrases win over
// bare capitalized words.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bin\s+([A-Za-z][A-Za-z .'-]*[A-Za-z.])`),
	regexp.MustCompile(`(?i)\bfor\s+([A-Za-z][A-Za-z .'-]*[A-Za-z.])`),
	regexp.MustCompile(`(?i)\bat\s+([A-Za-z][A-Za-z .'-]*[A-Za-z.])`),
	regexp.MustCompile(`(?i)\bof\s+([A-Za-z][A-Za-z .'-]*[A-Za-z.])`),
	regexp.MustCompile(`(?i)^([A-Za-z][A-Za-z .'-]*?)\s+(?:weather|climate|temperature|forecast|analysis|air quality|pollution)\b`),
	regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\b`),
}

// Extractor pulls a location out of a query and validates it through a
// geocoder when one is configured.
type Extractor struct {
	geocoder Geocoder
	log      logger.Logger
}

func NewExtractor(geocoder Geocoder, log logger.Logger) *Extractor {
	return &Extractor{geocoder: geocoder, log: log}
}

// Extract finds the most plausible location in the query, validating
// candidates in priority order until one resolves. Returns nil when
// nothing usable is found, and also when the geocoder confirms that no
// candidate matches a real place. Without a geocoder the best candidate
// is returned unvalidated; a transport error keeps the candidate it hit
// rather than dropping it.
func (e *Extractor) Extract(ctx context.Context, query string) *Location {
	candidates := Candidates(query)
	if len(candidates) == 0 {
		return nil
	}

	if e.geocoder == nil {
		return &Location{Name: candidates[0], Raw: candidates[0]}
	}

	for _, candidate := range candidates {
		resolved, err := e.geocoder.Resolve(ctx, candidate)
		if err != nil {
			e.log.Warn("geocoding failed, using raw candidate", map[string]interface{}{
				"candidate": candidate,
				"error":     err.Error(),
			})
			return &Location{Name: candidate, Raw: candidate}
		}
		if resolved != nil {
			resolved.Raw = candidate
			return resolved
		}
		e.log.Debug("geocoder found no match for candidate", map[string]interface{}{
			"candidate": candidate,
		})
	}
	return nil
}

// Candidates returns the pattern-matched, stopword-filtered place
// candidates in the query, deduplicated, in priority order.
func Candidates(query string) []string {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil
	}

	var candidates []string
	seen := map[string]bool{}
	for _, p := range patterns {
		for _, m := range p.FindAllStringSubmatch(trimmed, -1) {
			cleaned := clean(m[1])
			if cleaned == "" || seen[strings.ToLower(cleaned)] {
				continue
			}
			seen[strings.ToLower(cleaned)] = true
			candidates = append(candidates, cleaned)
		}
	}
	return candidates
}

func clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, ".,!?;:")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	// Drop leading stopword tokens, then reject candidates that are
	// stopwords all the way through.
	tokens := strings.Fields(s)
	start := 0
	for start < len(tokens) && stopwords[strings.ToLower(tokens[start])] {
		start++
	}
	end := len(tokens)
	for end > start && stopwords[strings.ToLower(tokens[end-1])] {
		end--
	}
	if start >= end {
		return ""
	}

	kept := tokens[start:end]
	for _, tok := range kept {
		if !stopwords[strings.ToLower(tok)] {
			return strings.Join(kept, " ")
		}
	}
	return ""
}
