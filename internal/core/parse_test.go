package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	if n, err := ParseAmount("120"); err != nil || n != 120 {
		t.Fatalf("ParseAmount(\"120\") = %d, %v", n, err)
	}
	if n, err := ParseAmount(" 42 "); err != nil || n != 42 {
		t.Fatalf("ParseAmount(\" 42 \") = %d, %v", n, err)
	}
	for _, s := range []string{"", "abc", "12.5"} {
		if _, err := ParseAmount(s); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ParseAmount(%q) expected ErrInvalidAmount, got %v", s, err)
		}
	}
}

func TestParsePct(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"10", 10},
		{"", DefaultPct},
		{"abc", DefaultPct},
		{"0", DefaultPct},
		{"-5", DefaultPct},
	}
	for _, tc := range cases {
		if got := ParsePct(tc.in); got != tc.want {
			t.Fatalf("ParsePct(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
