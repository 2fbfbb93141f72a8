package tgui

import (
	"strings"
	"testing"
)

func TestEscAndWrap(t *testing.T) {
	if got := B("a<b>&"); got != "<b>a&lt;b&gt;&amp;</b>" {
		t.Fatalf("B = %q", got)
	}
	if got := JoinH("\n", B("x"), "", I("y")); got != "<b>x</b>\n<i>y</i>" {
		t.Fatalf("JoinH = %q", got)
	}
}

func TestDataRoundTrip(t *testing.T) {
	d, err := Data("dismiss", "42")
	if err != nil || d != "dismiss:42" {
		t.Fatalf("Data = %q, %v", d, err)
	}
	action, payload, ok := Parse(d)
	if !ok || action != "dismiss" || payload != "42" {
		t.Fatalf("Parse = %q %q %v", action, payload, ok)
	}
	if _, err := Data("dismiss", strings.Repeat("9", MaxCallbackDataLen)); err != ErrCallbackDataTooLong {
		t.Fatalf("long data err = %v", err)
	}
	if _, _, ok := Parse("  "); ok {
		t.Fatal("blank data should not parse")
	}
}

func TestTruncRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel…"},
		{"héllo", 2, "hé…"},
		{"x", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("TruncRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
