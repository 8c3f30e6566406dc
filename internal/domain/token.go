package domain

// TokenPair is one session's credentials: a short-lived access token and a
// longer-lived refresh token. The refresh token carries a unique id that the
// blacklist consumes on rotation or logout.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// AccessTTL / RefreshTTL are seconds until each token expires; cookie
	// transport uses them as max-age.
	AccessTTL  int `json:"expires_in"`
	RefreshTTL int `json:"-"`
}
