package phone

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"ten digits", "7195551234", "+17195551234"},
		{"ten digits formatted", "(719) 555-1234", "+17195551234"},
		{"eleven digits with country code", "17195551234", "+17195551234"},
		{"already e164", "+17195551234", "+17195551234"},
		{"dots and spaces", "719.555 1234", "+17195551234"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeMalformedInputIsBestEffort(t *testing.T) {
	// Malformed numbers must never error; they get a stable + prefix
	// so repeated ingestion of the same junk still deduplicates.
	got := Normalize("55512")
	if got != "+55512" {
		t.Fatalf("Normalize(\"55512\") = %q, want %q", got, "+55512")
	}

	again := Normalize("555-12")
	if again != got {
		t.Fatalf("normalization is not stable for malformed input: %q vs %q", again, got)
	}
}
