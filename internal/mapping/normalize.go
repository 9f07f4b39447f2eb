package mapping

import (
	"regexp"
	"strings"
)

// suffixAbbreviations maps spelled-out street suffixes to their canonical
// abbreviations. Applied after uppercasing, whole words only.
var suffixAbbreviations = []struct {
	pattern *regexp.Regexp
	abbrev  string
}{
	{regexp.MustCompile(`\bSTREET\b`), "ST"},
	{regexp.MustCompile(`\bDRIVE\b`), "DR"},
	{regexp.MustCompile(`\bAVENUE\b`), "AVE"},
	{regexp.MustCompile(`\bBOULEVARD\b`), "BLVD"},
	{regexp.MustCompile(`\bROAD\b`), "RD"},
	{regexp.MustCompile(`\bLANE\b`), "LN"},
	{regexp.MustCompile(`\bCOURT\b`), "CT"},
	{regexp.MustCompile(`\bCIRCLE\b`), "CIR"},
	{regexp.MustCompile(`\bPLACE\b`), "PL"},
}

// NormalizeAddress canonicalizes a street address for exact-match duplicate
// keying: uppercase, street-suffix abbreviations, trimmed.
func NormalizeAddress(address string) string {
	if address == "" {
		return ""
	}
	out := strings.ToUpper(address)
	for _, s := range suffixAbbreviations {
		out = s.pattern.ReplaceAllString(out, s.abbrev)
	}
	return strings.TrimSpace(out)
}

// parcelIDTypeTaxKey is the Wisconsin-style tax key convention: ten digits
// grouped 3-4-3.
const parcelIDTypeTaxKey = "Tax Key Number"

var digitsOnly = regexp.MustCompile(`^\d+$`)

// FormatParcelID applies the market's parcel id convention. Unknown types
// and malformed values pass through unchanged; duplicate keying depends on
// this formatting being stable, not on it being universal.
func FormatParcelID(parcelID, parcelIDType string) string {
	if parcelID == "" {
		return ""
	}
	cleaned := strings.NewReplacer("-", "", " ", "").Replace(parcelID)

	if parcelIDType == parcelIDTypeTaxKey && len(cleaned) == 10 && digitsOnly.MatchString(cleaned) {
		return cleaned[0:3] + "-" + cleaned[3:7] + "-" + cleaned[7:10]
	}

	return parcelID
}

// FullName joins owner name parts, tolerating either being empty.
func FullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
