package covid

import "sort"

// NationalCode is the region code used for country-wide projections.
const NationalCode = "US"

// stateNames holds the canonical 50 states plus DC.
var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DC": "District of Columbia",
	"DE": "Delaware", "FL": "Florida", "GA": "Georgia", "HI": "Hawaii",
	"ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine",
	"MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska",
	"NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico",
	"NY": "New York", "NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island",
	"SC": "South Carolina", "SD": "South Dakota", "TN": "Tennessee", "TX": "Texas",
	"UT": "Utah", "VT": "Vermont", "VA": "Virginia", "WA": "Washington",
	"WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
}

var stateCodes = func() map[string]string {
	m := make(map[string]string, len(stateNames)+1)
	for code, name := range stateNames {
		m[name] = code
	}
	m["United States of America"] = NationalCode
	return m
}()

// IsState reports whether code is one of the 50 states or DC.
func IsState(code string) bool {
	_, ok := stateNames[code]
	return ok
}

// StateCodes returns the canonical codes in alphabetical order.
func StateCodes() []string {
	codes := make([]string, 0, len(stateNames))
	for c := range stateNames {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// RegionCode maps a free-text region name to a state code. Unmapped names
// are returned unchanged.
func RegionCode(name string) string {
	if code, ok := stateCodes[name]; ok {
		return code
	}
	return name
}
