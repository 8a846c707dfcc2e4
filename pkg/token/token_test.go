package token

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func TestExtractTokenBearer(t *testing.T) {
	got, err := ExtractToken("Bearer abc.def.ghi")
	if err != nil {
		t.Fatalf("ExtractToken: %v", err)
	}
	if got != "abc.def.ghi" {
		t.Errorf("got %q", got)
	}
}

func TestExtractTokenBasicPasswordIsJWT(t *testing.T) {
	// base64("user:the-jwt") == dXNlcjp0aGUtand0
	got, err := ExtractToken("Basic dXNlcjp0aGUtand0")
	if err != nil {
		t.Fatalf("ExtractToken: %v", err)
	}
	if got != "the-jwt" {
		t.Errorf("got %q, want the-jwt", got)
	}
}

func TestExtractTokenNone(t *testing.T) {
	if _, err := ExtractToken(""); err != ErrNoCredentials {
		t.Errorf("err = %v, want ErrNoCredentials", err)
	}
}

func TestValidateRoundTrip(t *testing.T) {
	secret := "shh"
	raw := signToken(t, secret, jwt.MapClaims{
		"user_id": "u1",
		"email":   "u1@example.com",
		"roles":   []interface{}{"pusher"},
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	claims, err := Validate(raw, secret)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "u1@example.com" || len(claims.Roles) != 1 || claims.Roles[0] != "pusher" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	secret := "shh"
	raw := signToken(t, secret, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	if _, err := Validate(raw, secret); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestValidateRejectsMissingExpiration(t *testing.T) {
	secret := "shh"
	raw := signToken(t, secret, jwt.MapClaims{"user_id": "u1"})
	if _, err := Validate(raw, secret); err == nil {
		t.Error("expected error for missing exp claim")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	raw := signToken(t, "secret-a", jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	if _, err := Validate(raw, "secret-b"); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestEvaluatorModes(t *testing.T) {
	ev, err := NewEvaluator(context.Background())
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}

	cases := []struct {
		name     string
		in       Input
		wantAllow bool
	}{
		{"disabled allows write without token", Input{Mode: ModeDisabled, Method: "PUT", HasToken: false}, true},
		{"anonymous_pull allows GET without token", Input{Mode: ModeAnonymousPull, Method: "GET", HasToken: false}, true},
		{"anonymous_pull denies PUT without token", Input{Mode: ModeAnonymousPull, Method: "PUT", HasToken: false}, false},
		{"anonymous_pull allows PUT with token", Input{Mode: ModeAnonymousPull, Method: "PUT", HasToken: true}, true},
		{"strict denies GET without token", Input{Mode: ModeStrict, Method: "GET", HasToken: false}, false},
		{"strict allows GET with token", Input{Mode: ModeStrict, Method: "GET", HasToken: true}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			allowed, err := ev.Allow(context.Background(), c.in)
			if err != nil {
				t.Fatalf("Allow: %v", err)
			}
			if allowed != c.wantAllow {
				t.Errorf("Allow(%+v) = %v, want %v", c.in, allowed, c.wantAllow)
			}
		})
	}
}

func TestMiddlewareStrictModeChallenge(t *testing.T) {
	v, err := NewValidator(context.Background(), "shh", true, false)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	handler := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v2/ns/img/manifests/latest", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	want := `Bearer realm="repo-worker",service="repo-worker"`
	if got := rec.Header().Get("WWW-Authenticate"); got != want {
		t.Errorf("WWW-Authenticate = %q, want %q", got, want)
	}
}

func TestMiddlewareAnonymousPullAllowsRead(t *testing.T) {
	v, err := NewValidator(context.Background(), "shh", true, true)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	handler := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v2/ns/img/manifests/latest", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
