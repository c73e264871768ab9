package checksum

import "testing"

func TestSum(t *testing.T) {
	// SHA-256 of the empty input.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Error("different inputs should differ")
	}
}

func TestParseETag(t *testing.T) {
	tests := map[string]string{
		`"abc"`:   "abc",
		`W/"abc"`: "abc",
		` "abc" `: "abc",
		"abc":     "abc",
		"*":       "",
		`"*"`:     "",
		"":        "",
	}
	for in, want := range tests {
		if got := ParseETag(in); got != want {
			t.Errorf("ParseETag(%q) = %q, want %q", in, got, want)
		}
	}
	if got := ParseETag(ETag("rev")); got != "rev" {
		t.Errorf("round trip = %q", got)
	}
}
