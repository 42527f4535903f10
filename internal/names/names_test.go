package names

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"last comma first", "Smith, Robert C", "robert smith"},
		{"first last", "Bob Smith", "bob smith"},
		{"already normalized", "bob smith", "bob smith"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"surrounding whitespace", "  Smith, Robert  ", "robert smith"},
		{"single token", "Cher", "cher"},
		{"comma no given name", "Smith,", "smith"},
		{"two commas keeps first split", "Smith, Robert, Jr", "robert smith"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Smith, Robert C", "Bob Smith", "  Doe, Jane  ", ""}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}
