package policy

import (
	"regexp"
	"strings"
)

// regions maps the region codes used in regional.yml to NetBox regions.
// Order matters: "Latin America" also contains "America".
var regions = []struct {
	code  string
	slug  string
	match string
}{
	{"eu", "europe", "Europe"},
	{"latam", "latin-america-and-the-caribbean", "Latin"},
	{"na", "northern-america", "America"},
	{"apac", "asia", "Asia"},
}

// RegionCode converts a NetBox region name ("Southern Europe") to its
// policy code ("eu"). Unknown names are returned lowercased.
func RegionCode(netboxRegion string) string {
	for _, r := range regions {
		if strings.Contains(netboxRegion, r.match) {
			return r.code
		}
	}
	return strings.ToLower(netboxRegion)
}

// RegionSlug converts a policy region code to the NetBox region slug.
// Anything else is passed through as a slug.
func RegionSlug(code string) string {
	for _, r := range regions {
		if r.code == code {
			return r.slug
		}
	}
	return code
}

// RegionCodes lists the known policy region codes.
func RegionCodes() []string {
	out := make([]string, len(regions))
	for i, r := range regions {
		out[i] = r.code
	}
	return out
}

var popSiteName = regexp.MustCompile(`^[A-Z]{3}[0-9]{2}$`)

// SiteServer returns the data server of a POP site named like "IAD01", or
// "" for sites that are not POPs.
func SiteServer(siteName string) string {
	if !popSiteName.MatchString(siteName) {
		return ""
	}
	return "sub-" + strings.ToLower(siteName) + "-data01"
}
