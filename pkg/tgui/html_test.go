package tgui

import "testing"

func TestTruncate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"shorter than max", "hello", 10, "hello"},
		{"exactly max", "hello", 5, "hello"},
		{"cut with ellipsis", "hello world", 8, "hello..."},
		{"multibyte runes", "привет мир", 9, "привет..."},
		{"tiny max", "hello", 2, "he"},
		{"zero max passthrough", "hello", 0, "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.max); got != tt.want {
				t.Fatalf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestEscAndLink(t *testing.T) {
	t.Parallel()
	if got := Esc(`<b> & "x"`); got != "&lt;b&gt; &amp; &#34;x&#34;" {
		t.Fatalf("Esc = %q", got)
	}
	got := Link("a & b", `https://x.test/?q="v"`)
	want := H(`<a href="https://x.test/?q=&#34;v&#34;">a &amp; b</a>`)
	if got != want {
		t.Fatalf("Link = %q, want %q", got, want)
	}
}

func TestJoinHSkipsBlanks(t *testing.T) {
	t.Parallel()
	if got := JoinH("\n", B("a"), Raw("  "), Raw(""), I("b")); got != "<b>a</b>\n<i>b</i>" {
		t.Fatalf("JoinH = %q", got)
	}
}
