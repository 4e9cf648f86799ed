package core

import "testing"

func TestFormatDisplayDate(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"2004-04-04", "4 Avr. 04"},
		{"2023-04-25", "25 Avr. 23"},
		{"2022-01-01", "1 Jan. 22"},
		{"2021-11-08", "8 Nov. 21"},
		{"2020-08-15", "15 Aoû. 20"},
	}
	for _, tc := range cases {
		got, err := FormatDisplayDate(tc.raw)
		if err != nil {
			t.Fatalf("FormatDisplayDate(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("FormatDisplayDate(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestFormatDisplayDateCorrupted(t *testing.T) {
	for _, raw := range []string{"invalid date", "", "2023-13-40", "25/04/2023"} {
		if _, err := FormatDisplayDate(raw); err == nil {
			t.Fatalf("FormatDisplayDate(%q) expected error", raw)
		}
	}
}
