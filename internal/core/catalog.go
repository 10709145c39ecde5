package core

import "strings"

// DefaultCategory tags subscriptions for services we do not recognize.
const DefaultCategory = "Other"

type serviceInfo struct {
	Canonical string
	Category  string
}

// knownServices canonicalizes popular service names and assigns a
// category. Keys are lowercase. The table mirrors what people actually
// subscribe to; anything else falls back to DefaultCategory.
var knownServices = map[string]serviceInfo{
	"netflix":         {"Netflix", "Streaming"},
	"hbo":             {"HBO Max", "Streaming"},
	"hbo max":         {"HBO Max", "Streaming"},
	"max":             {"HBO Max", "Streaming"},
	"disney":          {"Disney+", "Streaming"},
	"disney+":         {"Disney+", "Streaming"},
	"disney plus":     {"Disney+", "Streaming"},
	"viaplay":         {"Viaplay", "Streaming"},
	"prime":           {"Amazon Prime", "Streaming"},
	"amazon prime":    {"Amazon Prime", "Streaming"},
	"apple tv":        {"Apple TV+", "Streaming"},
	"apple tv+":       {"Apple TV+", "Streaming"},
	"youtube":         {"YouTube Premium", "Streaming"},
	"youtube premium": {"YouTube Premium", "Streaming"},
	"twitch":          {"Twitch", "Streaming"},
	"spotify":         {"Spotify", "Music"},
	"tidal":           {"Tidal", "Music"},
	"apple music":     {"Apple Music", "Music"},
	"yandex":          {"Yandex Plus", "Music"},
	"yandex plus":     {"Yandex Plus", "Music"},
	"icloud":          {"iCloud+", "Cloud"},
	"icloud+":         {"iCloud+", "Cloud"},
	"dropbox":         {"Dropbox", "Cloud"},
	"google one":      {"Google One", "Cloud"},
	"onedrive":        {"OneDrive", "Cloud"},
	"office":          {"Microsoft 365", "Software"},
	"office 365":      {"Microsoft 365", "Software"},
	"microsoft 365":   {"Microsoft 365", "Software"},
	"adobe":           {"Adobe Creative Cloud", "Software"},
	"photoshop":       {"Adobe Creative Cloud", "Software"},
	"github":          {"GitHub", "Software"},
	"jetbrains":       {"JetBrains", "Software"},
	"chatgpt":         {"ChatGPT Plus", "Software"},
	"openai":          {"ChatGPT Plus", "Software"},
	"nordvpn":         {"NordVPN", "Software"},
	"vpn":             {"VPN", "Software"},
	"sats":            {"SATS", "Fitness"},
	"gym":             {"Gym", "Fitness"},
	"strava":          {"Strava", "Fitness"},
	"duolingo":        {"Duolingo", "Education"},
	"audible":         {"Audible", "Education"},
	"storytel":        {"Storytel", "Education"},
	"telia":           {"Telia", "Telecom"},
	"telenor":         {"Telenor", "Telecom"},
	"ice":             {"Ice", "Telecom"},
	"ruter":           {"Ruter", "Transport"},
}

// LookupService resolves a raw name against the catalog. On a hit it
// returns the canonical spelling and category; on a miss it returns the
// input unchanged with DefaultCategory.
func LookupService(name string) (canonical, category string, known bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if info, ok := knownServices[key]; ok {
		return info.Canonical, info.Category, true
	}
	return strings.TrimSpace(name), DefaultCategory, false
}
