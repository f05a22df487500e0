package guard

import (
	"reflect"
	"testing"
)

func TestSanitizeValue_TrimsAndStripsNullBytes(t *testing.T) {
	t.Parallel()

	got := SanitizeValue("  hel\x00lo  ", "name")
	if got != "hello" {
		t.Fatalf("expected %q got %q", "hello", got)
	}
}

func TestSanitizeValue_PasswordFieldsUntouched(t *testing.T) {
	t.Parallel()

	input := map[string]any{
		"username":        "  alice  ",
		"password":        "  s3cret  ",
		"PasswordConfirm": "  s3cret  ",
	}
	got := SanitizeValue(input, "").(map[string]any)

	if got["username"] != "alice" {
		t.Fatalf("expected username trimmed got %q", got["username"])
	}
	if got["password"] != "  s3cret  " {
		t.Fatalf("expected password preserved got %q", got["password"])
	}
	if got["PasswordConfirm"] != "  s3cret  " {
		t.Fatalf("expected passwordConfirm preserved got %q", got["PasswordConfirm"])
	}
}

func TestSanitizeValue_WalksNestedStructures(t *testing.T) {
	t.Parallel()

	input := map[string]any{
		"profile": map[string]any{
			"bio":  " hi \x00",
			"tags": []any{" one ", " two "},
		},
		"count": float64(3),
		"flag":  true,
	}
	want := map[string]any{
		"profile": map[string]any{
			"bio":  "hi",
			"tags": []any{"one", "two"},
		},
		"count": float64(3),
		"flag":  true,
	}

	got := SanitizeValue(input, "")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v got %#v", want, got)
	}
}

func TestSanitizeValue_NonStringLeavesPassThrough(t *testing.T) {
	t.Parallel()

	if got := SanitizeValue(nil, ""); got != nil {
		t.Fatalf("expected nil got %#v", got)
	}
	if got := SanitizeValue(float64(7), "count"); got != float64(7) {
		t.Fatalf("expected 7 got %#v", got)
	}
}
