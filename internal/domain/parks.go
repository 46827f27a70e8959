package domain

import (
	"sort"
	"strings"
)

// parkVariants maps matchable name variants to canonical 4-letter park codes.
// Multiple variants may map to the same code.
var parkVariants = map[string]string{
	"yellowstone":           "yell",
	"yosemite":              "yose",
	"zion":                  "zion",
	"glacier":               "glac",
	"grand canyon":          "grca",
	"rocky mountain":        "romo",
	"great smoky":           "grsm",
	"great smoky mountains": "grsm",
	"acadia":                "acad",
	"olympic":               "olym",
	"grand teton":           "grte",
	"bryce canyon":          "brca",
	"arches":                "arch",
	"canyonlands":           "cany",
	"sequoia":               "seki",
	"kings canyon":          "seki",
	"death valley":          "deva",
	"joshua tree":           "jotr",
	"shenandoah":            "shen",
	"mount rainier":         "mora",
	"crater lake":           "crla",
}

// parkNames maps codes to full display names used in prompts and responses.
var parkNames = map[string]string{
	"yell": "Yellowstone National Park",
	"yose": "Yosemite National Park",
	"zion": "Zion National Park",
	"glac": "Glacier National Park",
	"grca": "Grand Canyon National Park",
	"romo": "Rocky Mountain National Park",
	"grsm": "Great Smoky Mountains National Park",
	"acad": "Acadia National Park",
	"olym": "Olympic National Park",
	"grte": "Grand Teton National Park",
	"brca": "Bryce Canyon National Park",
	"arch": "Arches National Park",
	"cany": "Canyonlands National Park",
	"seki": "Sequoia and Kings Canyon National Parks",
	"deva": "Death Valley National Park",
	"jotr": "Joshua Tree National Park",
	"shen": "Shenandoah National Park",
	"mora": "Mount Rainier National Park",
	"crla": "Crater Lake National Park",
}

type parkVariant struct {
	name string
	code string
}

// ParkRegistry resolves park-name mentions in free text to canonical codes.
// Matching is case-insensitive substring matching with longest-variant-wins,
// so a variant that is a substring of a longer matching variant never shadows
// it. Built once at process start and immutable afterwards, safe for
// unsynchronized concurrent reads.
type ParkRegistry struct {
	variants []parkVariant
	names    map[string]string
}

// NewParkRegistry builds the registry from the static variant tables.
func NewParkRegistry() *ParkRegistry {
	variants := make([]parkVariant, 0, len(parkVariants))
	for name, code := range parkVariants {
		variants = append(variants, parkVariant{name: name, code: code})
	}
	// Longest variant first; ties broken alphabetically for determinism.
	sort.Slice(variants, func(i, j int) bool {
		if len(variants[i].name) != len(variants[j].name) {
			return len(variants[i].name) > len(variants[j].name)
		}
		return variants[i].name < variants[j].name
	})

	names := make(map[string]string, len(parkNames))
	for code, name := range parkNames {
		names[code] = name
	}

	return &ParkRegistry{variants: variants, names: names}
}

// Find returns the code of the longest park-name variant contained in text.
func (r *ParkRegistry) Find(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, v := range r.variants {
		if strings.Contains(lower, v.name) {
			return v.code, true
		}
	}
	return "", false
}

// FindAll returns the distinct park codes mentioned anywhere in text, in
// longest-variant-first match order.
func (r *ParkRegistry) FindAll(text string) []string {
	lower := strings.ToLower(text)
	var codes []string
	seen := make(map[string]bool)
	for _, v := range r.variants {
		if !strings.Contains(lower, v.name) {
			continue
		}
		if !seen[v.code] {
			seen[v.code] = true
			codes = append(codes, v.code)
		}
	}
	return codes
}

// Known reports whether code is a registered park code.
func (r *ParkRegistry) Known(code string) bool {
	_, ok := r.names[code]
	return ok
}

// DisplayName returns the full park name for code, or the upper-cased code
// when the code is not registered.
func (r *ParkRegistry) DisplayName(code string) string {
	if name, ok := r.names[code]; ok {
		return name
	}
	return strings.ToUpper(code)
}

// Codes returns all registered park codes in alphabetical order.
func (r *ParkRegistry) Codes() []string {
	codes := make([]string, 0, len(r.names))
	for code := range r.names {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
