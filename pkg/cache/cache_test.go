package cache

import (
	"sync"
	"testing"
	"time"
)

func TestIsMutableDigestNeverMutable(t *testing.T) {
	d := "sha256:" + "a0b1c2d3e4f5061728394a5b6c7d8e9f0a1b2c3d4e5f60718293a4b5c6d7e8f"
	if IsMutable(d, []string{"*"}) {
		t.Error("a digest reference must never be mutable")
	}
}

func TestIsMutableDefaultPatterns(t *testing.T) {
	patterns := []string{"latest", "*nightly*"}
	cases := map[string]bool{
		"latest":       true,
		"Latest":       true,
		"v1.2.3":       false,
		"2024-nightly": true,
		"stable":       false,
	}
	for ref, want := range cases {
		if got := IsMutable(ref, patterns); got != want {
			t.Errorf("IsMutable(%q) = %v, want %v", ref, got, want)
		}
	}
}

func TestReferencedBlobDigests(t *testing.T) {
	body := []byte(`{
		"config": {"digest": "sha256:aaa"},
		"layers": [{"digest": "sha256:bbb"}, {"digest": "sha256:ccc"}]
	}`)
	got := referencedBlobDigests(body)
	want := []string{"sha256:aaa", "sha256:bbb", "sha256:ccc"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("digest[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReferencedBlobDigestsMalformed(t *testing.T) {
	if got := referencedBlobDigests([]byte("not json")); got != nil {
		t.Errorf("expected nil for malformed manifest, got %v", got)
	}
}

func TestInProcessGroupDeduplicates(t *testing.T) {
	g := &inProcessGroup{}
	var mu sync.Mutex
	runs := 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Do("same-key", func() {
				mu.Lock()
				runs++
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
			})
		}()
	}
	wg.Wait()

	if runs == 0 || runs > 10 {
		t.Fatalf("runs = %d, expected between 1 and 10", runs)
	}
}
