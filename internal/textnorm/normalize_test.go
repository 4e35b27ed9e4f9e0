package textnorm_test

import (
	"reflect"
	"testing"

	"github.com/MrWong99/oratio/internal/textnorm"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \t\n ", ""},
		{"case and punctuation", "Hello, World!", "hello world"},
		{"whitespace collapse", "the   quick\tbrown\n fox", "the quick brown fox"},
		{"symbols stripped", "a + b = c", "a b c"},
		{"quotes and dashes", `“well-read” text`, "wellread text"},
		{"devanagari with danda", "मुझे पानी चाहिए।", "मुझे पानी चाहिए"},
		{"zero width joiner", "क‍ष", "कष"},
		{"fullwidth compatibility", "ＡＢＣ", "abc"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := textnorm.Normalize(c.in); got != c.want {
				t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Hello, World!",
		"मुझे पानी चाहिए।",
		"The QUICK — brown… fox?!",
		"ＡＢＣ ｄｅｆ",
		"",
	}
	for _, in := range inputs {
		once := textnorm.Normalize(in)
		twice := textnorm.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	got := textnorm.Tokenize("The quick, brown FOX.")
	want := []string{"the", "quick", "brown", "fox"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}

	if got := textnorm.Tokenize("   "); got != nil {
		t.Errorf("Tokenize(blank) = %v, want nil", got)
	}
}
