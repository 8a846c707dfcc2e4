package upstream

import "testing"

func TestParseChallengeStandard(t *testing.T) {
	ch, ok := parseChallenge(`Bearer realm="https://auth.docker.io/token",service="registry.docker.io",scope="repository:library/nginx:pull"`)
	if !ok {
		t.Fatal("expected ok")
	}
	if ch.realm != "https://auth.docker.io/token" || ch.service != "registry.docker.io" || ch.scope != "repository:library/nginx:pull" {
		t.Errorf("unexpected challenge: %+v", ch)
	}
}

func TestParseChallengeExtraWhitespaceAndNoScope(t *testing.T) {
	ch, ok := parseChallenge(`Bearer realm="https://example.com/token", service="example"`)
	if !ok {
		t.Fatal("expected ok")
	}
	if ch.realm != "https://example.com/token" || ch.service != "example" || ch.scope != "" {
		t.Errorf("unexpected challenge: %+v", ch)
	}
}

func TestParseChallengeNotBearer(t *testing.T) {
	if _, ok := parseChallenge(`Basic realm="x"`); ok {
		t.Error("expected not ok for non-Bearer challenge")
	}
}

func TestParseChallengeMissingRealm(t *testing.T) {
	if _, ok := parseChallenge(`Bearer service="x"`); ok {
		t.Error("expected not ok when realm is missing")
	}
}
