package feed

import (
	"strings"
	"testing"
)

func TestCleanSummary(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Bitcoin climbs", want: "Bitcoin climbs"},
		{name: "tags stripped", in: "<p>Bitcoin <b>climbs</b></p>", want: "Bitcoin climbs"},
		{name: "script dropped", in: `<script>alert(1)</script>Markets up`, want: "Markets up"},
		{name: "entities unescaped", in: "Fear &amp; Greed", want: "Fear & Greed"},
		{name: "whitespace collapsed", in: "  a\n\n  b\t c ", want: "a b c"},
		{name: "img removed", in: `before <img src="https://x/y.png"> after`, want: "before after"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanSummary(tt.in); got != tt.want {
				t.Fatalf("CleanSummary(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanSummaryBound(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", 2*maxSummaryLen)
	got := CleanSummary(long)
	if len([]rune(got)) != maxSummaryLen {
		t.Fatalf("expected %d runes, got %d", maxSummaryLen, len([]rune(got)))
	}
}
