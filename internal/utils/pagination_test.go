package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		// empty -> default
		{"", 10, 10},
		// valid ints
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		// invalid -> default (no trim)
		{"x", 5, 5},
		{" 42", 7, 7},
		// overflow -> default
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestClampPage(t *testing.T) {
	cases := []struct {
		page, limit       int
		wantPage, wantLim int
	}{
		{0, 0, 1, 20},
		{-3, -1, 1, 20},
		{2, 50, 2, 50},
		{1, 101, 1, 100},
		{7, 100, 7, 100},
	}
	for _, tc := range cases {
		p, l := ClampPage(tc.page, tc.limit, 20, 100)
		if p != tc.wantPage || l != tc.wantLim {
			t.Fatalf("ClampPage(%d, %d) = (%d, %d); want (%d, %d)", tc.page, tc.limit, p, l, tc.wantPage, tc.wantLim)
		}
	}
}

func TestOffsetAndTotalPages(t *testing.T) {
	if got := Offset(3, 20); got != 40 {
		t.Fatalf("Offset(3,20) = %d", got)
	}
	if got := Offset(0, 20); got != 0 {
		t.Fatalf("Offset(0,20) = %d", got)
	}
	cases := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.limit); got != tc.want {
			t.Fatalf("TotalPages(%d, %d) = %d; want %d", tc.total, tc.limit, got, tc.want)
		}
	}
}
