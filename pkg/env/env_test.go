package env

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("PH_TEST_VALUE", "  console ")
	if got := Get("PH_TEST_VALUE", "json"); got != "console" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := Get("PH_TEST_MISSING", "json"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestGetBool(t *testing.T) {
	t.Setenv("PH_TEST_FLAG", "true")
	if !GetBool("PH_TEST_FLAG", false) {
		t.Fatal("expected true")
	}
	t.Setenv("PH_TEST_FLAG", "nope")
	if !GetBool("PH_TEST_FLAG", true) {
		t.Fatal("malformed value should return fallback")
	}
}
