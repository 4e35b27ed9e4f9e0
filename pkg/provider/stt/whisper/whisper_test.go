package whisper

import "testing"

func TestCleanWord(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{" Hello,", "Hello"},
		{"world!", "world"},
		{"“quoted”", "quoted"},
		{"don't", "don't"},
		{"—", ""},
		{"  ", ""},
		{"पानी,", "पानी"},
	}
	for _, c := range cases {
		if got := cleanWord(c.in); got != c.want {
			t.Errorf("cleanWord(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
