package integrations

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/linkedin"
)

// Platform is an ad network the dashboard can pull data from.
type Platform struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// OAuth is false for platforms connected with a plain API key.
	OAuth bool `json:"oauth"`

	endpoint      oauth2.Endpoint
	defaultScopes []string
}

var tiktokEndpoint = oauth2.Endpoint{
	AuthURL:  "https://business-api.tiktok.com/portal/auth",
	TokenURL: "https://business-api.tiktok.com/open_api/v1.3/oauth2/access_token/",
}

// Platforms in display order.
var Platforms = []Platform{
	{
		ID:            "google-ads",
		Name:          "Google Ads",
		OAuth:         true,
		endpoint:      google.Endpoint,
		defaultScopes: []string{"https://www.googleapis.com/auth/adwords"},
	},
	{
		ID:            "meta-ads",
		Name:          "Meta Ads",
		OAuth:         true,
		endpoint:      facebook.Endpoint,
		defaultScopes: []string{"ads_read"},
	},
	{
		ID:            "linkedin-ads",
		Name:          "LinkedIn Ads",
		OAuth:         true,
		endpoint:      linkedin.Endpoint,
		defaultScopes: []string{"r_ads", "r_ads_reporting"},
	},
	{
		ID:       "tiktok-ads",
		Name:     "TikTok Ads",
		OAuth:    true,
		endpoint: tiktokEndpoint,
	},
	{
		ID:   "custom-api",
		Name: "Custom API",
	},
}

// Lookup returns the platform with the given id.
func Lookup(id string) (Platform, bool) {
	for _, p := range Platforms {
		if p.ID == id {
			return p, true
		}
	}
	return Platform{}, false
}
