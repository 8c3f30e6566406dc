// Package tokens abstracts how the session pair travels between client and
// server: JSON body bearer tokens for API clients, httpOnly cookies for
// browsers. Handlers stay transport-agnostic behind the Adapter interface.
package tokens

import (
	"net/http"

	"github.com/farmhub/auth-api/internal/domain"
)

// Cookie names used by the cookie transport and expected back on requests.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Adapter writes an issued pair onto the response and reads the refresh
// token back off subsequent requests.
type Adapter interface {
	// Attach emits the pair on the response. It returns the part that
	// belongs in the JSON body, nil when the transport carries everything
	// out of band.
	Attach(w http.ResponseWriter, pair *domain.TokenPair) *domain.TokenPair
	// ExtractRefresh pulls the refresh token from the request, "" if absent.
	ExtractRefresh(r *http.Request) string
	// Clear removes any transport state the adapter previously set.
	Clear(w http.ResponseWriter)
}
