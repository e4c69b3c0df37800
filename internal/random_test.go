package internal

import (
	"errors"
	"testing"
)

func TestNewSecret(t *testing.T) {
	a, digestA, err := NewSecret()
	if err != nil {
		t.Fatalf("NewSecret failed: %v", err)
	}
	b, _, _ := NewSecret()
	if a == b {
		t.Fatal("secrets must be unique")
	}
	if len(digestA) != 64 {
		t.Fatalf("expected sha256 hex digest, got %q", digestA)
	}
	if digestA == a {
		t.Fatal("digest must differ from the plaintext")
	}

	got, err := ParseSecret(a)
	if err != nil || got != digestA {
		t.Fatalf("ParseSecret = %q, %v", got, err)
	}
}

func TestParseSecret_Malformed(t *testing.T) {
	for _, in := range []string{"", "short", "!!!not-base64!!!"} {
		if _, err := ParseSecret(in); !errors.Is(err, ErrMalformedSecret) {
			t.Fatalf("ParseSecret(%q) = %v", in, err)
		}
	}
}
