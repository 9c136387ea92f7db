// Package intent maps free-text queries onto the fixed set of topic
// categories that drive data-source selection.
package intent

import "strings"

// Intent is one classified topic category.
type Intent string

const (
	Weather            Intent = "weather"
	AirQuality         Intent = "air_quality"
	AstronomyLive      Intent = "astronomy_live"
	AsteroidTracking   Intent = "asteroid_tracking"
	SpaceAgencyMission Intent = "space_agency"
	RegionalGeospatial Intent = "regional_geospatial"
	General            Intent = "general"
	OffTopic           Intent = "off_topic"
)

func (i Intent) String() string { return string(i) }

// NeedsLocation reports whether lookups for this intent require a
// resolved place name.
func (i Intent) NeedsLocation() bool {
	switch i {
	case Weather, AirQuality, RegionalGeospatial:
		return true
	}
	return false
}

// rule binds one intent to the keyword set that triggers it. Rules are
// evaluated in table order; the order fixes the display order of
// sections and which intent counts as primary.
type rule struct {
	intent   Intent
	keywords []string
}

var rules = []rule{
	{Weather, []string{
		"weather", "temperature", "climate", "forecast", "rainfall",
		"humidity", "monsoon", "heatwave",
	}},
	{AirQuality, []string{
		"air quality", "aqi", "pollution", "pm2.5", "pm10", "smog",
		"pollutant",
	}},
	{AstronomyLive, []string{
		"apod", "picture of the day", "nasa picture", "astronomy picture",
		"rover", "mars photo", "solar flare", "solar activity",
		"space weather", "sun activity",
	}},
	{AsteroidTracking, []string{
		"asteroid", "near earth", "near-earth", "space rock", "neo feed",
		"hazardous object",
	}},
	{SpaceAgencyMission, []string{
		"isro", "nasa", "esa", "spacex", "chandrayaan", "mangalyaan",
		"gaganyaan", "artemis", "apollo", "aryabhatta", "mission",
		"space agency", "space station",
	}},
	{RegionalGeospatial, []string{
		"bhuvan", "geospatial", "remote sensing", "satellite imagery",
		"earth observation", "land use", "cartosat", "resourcesat",
		"saphir", "ocm",
	}},
}

// domainMarkers are broad space/astronomy terms. A query carrying one
// of these but matching no rule still gets a knowledge-base lookup
// instead of being rejected.
var domainMarkers = []string{
	"space", "astronomy", "planet", "star", "galaxy", "universe",
	"cosmic", "celestial", "nebula", "meteor", "comet", "moon", "sun",
	"mars", "telescope", "orbit", "rocket", "spacecraft", "satellite",
	"solar",
}

// Classify maps text to an ordered, non-empty list of intents. All
// matching intents are included (multi-label); the first one is primary.
// A query with a domain marker but no rule match yields [General]; a
// query with no domain marker at all yields [OffTopic].
func Classify(text string) []Intent {
	normalized := strings.ToLower(text)

	var matched []Intent
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(normalized, kw) {
				matched = append(matched, r.intent)
				break
			}
		}
	}

	if len(matched) > 0 {
		return matched
	}

	for _, marker := range domainMarkers {
		if strings.Contains(normalized, marker) {
			return []Intent{General}
		}
	}

	return []Intent{OffTopic}
}

// FromHint maps an explicit category hint from the API surface to an
// Intent. Unknown hints are ignored by the caller.
func FromHint(hint string) (Intent, bool) {
	switch Intent(hint) {
	case Weather, AirQuality, AstronomyLive, AsteroidTracking,
		SpaceAgencyMission, RegionalGeospatial, General:
		return Intent(hint), true
	}
	return "", false
}
