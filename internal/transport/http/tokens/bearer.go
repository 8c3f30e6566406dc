package tokens

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/farmhub/auth-api/internal/domain"
)

// BearerAdapter carries the pair in the JSON response body; clients present
// the refresh token back in a JSON request body.
type BearerAdapter struct{}

func NewBearerAdapter() *BearerAdapter { return &BearerAdapter{} }

func (a *BearerAdapter) Attach(_ http.ResponseWriter, pair *domain.TokenPair) *domain.TokenPair {
	return pair
}

// ExtractRefresh reads {"refresh_token": "..."} from the body. The body is
// restored so the handler can still decode the rest of the request.
func (a *BearerAdapter) ExtractRefresh(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.RefreshToken
}

func (a *BearerAdapter) Clear(http.ResponseWriter) {}
