// Package knowledge holds the static fallback texts served when live
// providers and the semantic index cannot answer.
package knowledge

import "strings"

// Entry is one static knowledge text.
type Entry struct {
	Topic string
	Title string
	Body  []string
}

// entries are keyed by the query keywords that select them, checked in
// order so the more specific topics win.
var entries = []struct {
	keywords []string
	entry    Entry
}{
	{
		keywords: []string{"isro", "chandrayaan", "mangalyaan", "gaganyaan", "aryabhatta"},
		entry: Entry{
			Topic: "isro",
			Title: "ISRO - Indian Space Research Organisation",
			Body: []string{
				"ISRO is India's national space agency, headquartered in Bengaluru.",
				"Landmark missions include Chandrayaan-3, which achieved the first soft landing near the lunar south pole in 2023, and the Mangalyaan Mars Orbiter Mission.",
				"ISRO operates the PSLV and GSLV launch vehicle families and runs an extensive Earth observation satellite program.",
			},
		},
	},
	{
		keywords: []string{"nasa", "artemis", "apollo"},
		entry: Entry{
			Topic: "nasa",
			Title: "NASA - National Aeronautics and Space Administration",
			Body: []string{
				"NASA is the United States space agency, established in 1958.",
				"Current flagship programs include the Artemis lunar campaign, the James Webb Space Telescope, and a fleet of Mars rovers and orbiters.",
				"NASA publishes open data feeds covering astronomy imagery, space weather, and near-earth object tracking.",
			},
		},
	},
	{
		keywords: []string{"esa"},
		entry: Entry{
			Topic: "esa",
			Title: "ESA - European Space Agency",
			Body: []string{
				"ESA is an intergovernmental space agency of 22 European member states.",
				"Notable programs include the Ariane launcher family, the Copernicus Earth observation constellation, and deep-space science missions such as JUICE.",
			},
		},
	},
	{
		keywords: []string{"mars", "rover"},
		entry: Entry{
			Topic: "mars",
			Title: "Mars Exploration",
			Body: []string{
				"Mars is the most explored planet beyond Earth, visited by orbiters, landers, and rovers.",
				"Active surface missions include NASA's Curiosity and Perseverance rovers, which return imagery and surface science from Gale and Jezero craters.",
			},
		},
	},
	{
		keywords: []string{"bhuvan", "geospatial", "remote sensing", "satellite"},
		entry: Entry{
			Topic: "bhuvan",
			Title: "Bhuvan Geospatial Portal",
			Body: []string{
				"Bhuvan is ISRO's national geospatial portal, operated by the National Remote Sensing Centre.",
				"It serves satellite imagery, thematic maps, and land-use data for India from the Cartosat and Resourcesat missions.",
			},
		},
	},
}

// generic is the last-resort entry when nothing else matches.
var generic = Entry{
	Topic: "space",
	Title: "Space and Earth Observation",
	Body: []string{
		"Space science spans astronomy, planetary exploration, and Earth observation.",
		"Agencies such as NASA, ISRO, and ESA publish open data on weather, imagery, and near-earth objects that this service draws on.",
	},
}

// Lookup returns the static entries whose keywords appear in the query,
// in definition order.
func Lookup(query string) []Entry {
	normalized := strings.ToLower(query)

	var matched []Entry
	for _, e := range entries {
		for _, kw := range e.keywords {
			if strings.Contains(normalized, kw) {
				matched = append(matched, e.entry)
				break
			}
		}
	}
	return matched
}

// Generic returns the last-resort entry.
func Generic() Entry {
	return generic
}

// offTopicDomains maps recognizable off-topic subjects to a label used
// in redirect messages.
var offTopicDomains = []struct {
	keywords []string
	label    string
}{
	{[]string{"news", "headline", "politics"}, "news"},
	{[]string{"cricket", "football", "sports", "match", "score"}, "sports"},
	{[]string{"recipe", "restaurant", "food", "pizza", "dining"}, "food and dining"},
	{[]string{"flight", "hotel", "travel", "tourism"}, "travel"},
	{[]string{"stock", "shares", "market", "crypto"}, "finance"},
}

// IdentifyOffTopicDomain labels what an off-topic query seems to be
// about, or "general information" when unrecognized.
func IdentifyOffTopicDomain(query string) string {
	normalized := strings.ToLower(query)
	for _, d := range offTopicDomains {
		for _, kw := range d.keywords {
			if strings.Contains(normalized, kw) {
				return d.label
			}
		}
	}
	return "general information"
}
