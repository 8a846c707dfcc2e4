package token

import (
	"context"
	"net/http"
)

// Validator is the Token Validator component: it gates HTTP requests
// according to the configured mode, validating JWTs where required.
type Validator struct {
	secret    string
	mode      Mode
	evaluator *Evaluator
}

// NewValidator constructs a Validator. enabled=false and anonymousPull
// select ModeDisabled/ModeAnonymousPull/ModeStrict exactly as spec.md §4.3
// and §6 (AUTH_ENABLED, ANONYMOUS_PULL) describe.
func NewValidator(ctx context.Context, secret string, enabled, anonymousPull bool) (*Validator, error) {
	ev, err := NewEvaluator(ctx)
	if err != nil {
		return nil, err
	}
	mode := ModeStrict
	switch {
	case !enabled:
		mode = ModeDisabled
	case anonymousPull:
		mode = ModeAnonymousPull
	}
	return &Validator{secret: secret, mode: mode, evaluator: ev}, nil
}

// Middleware wraps an http.Handler, enforcing the configured authorization
// mode before delegating. A request carrying a valid token always has its
// claims injected into the context, even in disabled/anonymous-pull mode,
// so downstream handlers can still record "who pushed this" when a token
// happens to be present.
func (v *Validator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, extractErr := ExtractToken(r.Header.Get("Authorization"))
		hasToken := extractErr == nil

		var claims *Claims
		if hasToken {
			var err error
			claims, err = Validate(tokenString, v.secret)
			if err != nil {
				hasToken = false
			}
		}

		allowed, err := v.evaluator.Allow(r.Context(), Input{
			Mode:     v.mode,
			Method:   r.Method,
			HasToken: hasToken,
		})
		if err != nil || !allowed {
			SendChallenge(w)
			return
		}

		ctx := r.Context()
		if claims != nil {
			ctx = WithClaims(ctx, claims)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SendChallenge writes the 401 + WWW-Authenticate response mandated by
// spec.md §4.3. The header value is literal and must match exactly for
// client compatibility.
func SendChallenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="repo-worker",service="repo-worker"`)
	w.Header().Set("Docker-Distribution-Api-Version", "registry/2.0")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"errors":[{"code":"UNAUTHORIZED","message":"authentication required"}]}`)) //nolint:errcheck
}
