package digest

import (
	"bytes"
	"io"
	"testing"
)

func TestParseRejectsUnsupportedAlgorithm(t *testing.T) {
	if _, err := Parse("sha512:deadbeef"); err != ErrUnsupportedAlgorithm {
		t.Errorf("err = %v, want ErrUnsupportedAlgorithm", err)
	}
}

func TestParseAcceptsSHA256(t *testing.T) {
	d := FromBytes([]byte("hello"))
	got, err := Parse(string(d))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != d {
		t.Errorf("got %s, want %s", got, d)
	}
}

func TestVerifyingReaderMatches(t *testing.T) {
	content := []byte("the quick brown fox")
	want := FromBytes(content)

	vr := NewVerifyingReader(bytes.NewReader(content), want)
	if _, err := io.ReadAll(vr); err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if err := vr.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestVerifyingReaderMismatch(t *testing.T) {
	content := []byte("the quick brown fox")
	wrong := FromBytes([]byte("something else"))

	vr := NewVerifyingReader(bytes.NewReader(content), wrong)
	if _, err := io.ReadAll(vr); err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if err := vr.Verify(); err != ErrMismatch {
		t.Errorf("err = %v, want ErrMismatch", err)
	}
}
