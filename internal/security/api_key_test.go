package security

import (
	"strings"
	"testing"
)

func TestGenerateAPIKey(t *testing.T) {
	t.Parallel()

	plaintext, digest, errGenerate := GenerateAPIKey("dev")
	if errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}
	if !strings.HasPrefix(plaintext, "gw_dev_") {
		t.Fatalf("expected gw_dev_ prefix, got %q", plaintext)
	}
	if len(digest) != 64 {
		t.Fatalf("expected 64-char hex digest, got %d chars", len(digest))
	}
	if digest != HashAPIKey(plaintext) {
		t.Fatalf("digest does not match plaintext hash")
	}

	other, _, errOther := GenerateAPIKey("dev")
	if errOther != nil {
		t.Fatalf("generate: %v", errOther)
	}
	if other == plaintext {
		t.Fatalf("expected distinct secrets on each generation")
	}
}

func TestHashAPIKey_Deterministic(t *testing.T) {
	t.Parallel()

	if HashAPIKey("gw_test_abc") != HashAPIKey("gw_test_abc") {
		t.Fatalf("expected stable digest for same input")
	}
	if HashAPIKey("gw_test_abc") == HashAPIKey("gw_test_abd") {
		t.Fatalf("expected different digests for different inputs")
	}
}

func TestDigestPreview(t *testing.T) {
	t.Parallel()

	digest := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	if got := DigestPreview(digest); got != "01234567..." {
		t.Fatalf("expected truncated preview, got %q", got)
	}
	if got := DigestPreview("short"); got != "short" {
		t.Fatalf("expected short digest passed through, got %q", got)
	}
}
