package tokens

import (
	"net/http"

	"github.com/farmhub/auth-api/internal/config"
	"github.com/farmhub/auth-api/internal/domain"
)

// CookieAdapter carries the pair in httpOnly cookies so browser clients never
// see token material from script. Max-Age tracks each token's TTL.
type CookieAdapter struct {
	secure   bool
	sameSite http.SameSite
	path     string
}

func NewCookieAdapter(cfg config.CookieConfig) *CookieAdapter {
	return &CookieAdapter{
		secure:   cfg.Secure,
		sameSite: parseSameSite(cfg.SameSite),
		path:     cfg.Path,
	}
}

func parseSameSite(s string) http.SameSite {
	switch s {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (a *CookieAdapter) Attach(w http.ResponseWriter, pair *domain.TokenPair) *domain.TokenPair {
	http.SetCookie(w, a.cookie(AccessCookie, pair.AccessToken, pair.AccessTTL))
	http.SetCookie(w, a.cookie(RefreshCookie, pair.RefreshToken, pair.RefreshTTL))
	return nil
}

func (a *CookieAdapter) ExtractRefresh(r *http.Request) string {
	c, err := r.Cookie(RefreshCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (a *CookieAdapter) Clear(w http.ResponseWriter) {
	http.SetCookie(w, a.cookie(AccessCookie, "", -1))
	http.SetCookie(w, a.cookie(RefreshCookie, "", -1))
}

func (a *CookieAdapter) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     a.path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: a.sameSite,
	}
}
