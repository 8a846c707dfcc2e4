package registry

import "testing"

func TestValidName(t *testing.T) {
	cases := map[string]bool{
		"library/nginx":   true,
		"a/b/c":           true,
		"UPPER":           false,
		"":                false,
		"a//b":            false,
		"foo.bar-baz_qux": true,
	}
	for name, want := range cases {
		if got := validName(name); got != want {
			t.Errorf("validName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestValidReference(t *testing.T) {
	if !validReference("v1.2.3") {
		t.Error("expected v1.2.3 to be valid")
	}
	if validReference("") {
		t.Error("expected empty reference to be invalid")
	}
}

func TestResolveProxySingleComponent(t *testing.T) {
	upstream, image, proxied := resolveProxy("nginx", map[string]bool{"dockerhub": true})
	if !proxied || upstream != "dockerhub" || image != "library/nginx" {
		t.Errorf("got (%q, %q, %v)", upstream, image, proxied)
	}
}

func TestResolveProxyNamedUpstream(t *testing.T) {
	upstream, image, proxied := resolveProxy("quay/coreos/etcd", map[string]bool{"quay": true})
	if !proxied || upstream != "quay" || image != "coreos/etcd" {
		t.Errorf("got (%q, %q, %v)", upstream, image, proxied)
	}
}

func TestResolveProxyLocal(t *testing.T) {
	_, _, proxied := resolveProxy("myteam/backend", map[string]bool{"quay": true})
	if proxied {
		t.Error("expected a repository under an unconfigured prefix to be local")
	}
}
