package riot

import "strings"

// regionalRoutes maps platform routing values to the regional cluster serving
// account-v1 and match-v5.
var regionalRoutes = map[string]string{
	"br1":  "americas",
	"la1":  "americas",
	"la2":  "americas",
	"na1":  "americas",
	"eun1": "europe",
	"euw1": "europe",
	"me1":  "europe",
	"ru":   "europe",
	"tr1":  "europe",
	"jp1":  "asia",
	"kr":   "asia",
	"oc1":  "sea",
	"sg2":  "sea",
	"tw2":  "sea",
	"vn2":  "sea",
}

// aliases accepts the region names players commonly use.
var aliases = map[string]string{
	"br":   "br1",
	"eune": "eun1",
	"euw":  "euw1",
	"jp":   "jp1",
	"lan":  "la1",
	"las":  "la2",
	"me":   "me1",
	"na":   "na1",
	"oce":  "oc1",
	"sg":   "sg2",
	"tr":   "tr1",
	"tw":   "tw2",
	"vn":   "vn2",
}

// NormalizePlatform returns the platform routing value for region, or "" if unknown.
func NormalizePlatform(region string) string {
	r := strings.ToLower(strings.TrimSpace(region))
	if p, ok := aliases[r]; ok {
		r = p
	}
	if _, ok := regionalRoutes[r]; !ok {
		return ""
	}
	return r
}

// RegionalRoute returns the regional cluster for a platform routing value.
func RegionalRoute(platform string) string {
	return regionalRoutes[NormalizePlatform(platform)]
}
