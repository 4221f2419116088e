package contact

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"9876543210", "9876543210", true},
		{"+91 98765 43210", "9876543210", true},
		{"09876543210", "9876543210", true},
		{"919876543210", "9876543210", true},
		{"98765-43210", "9876543210", true},
		{"1234567890", "1234567890", false},
		{"98765", "98765", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizePhone(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("NormalizePhone(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestValidPincode(t *testing.T) {
	if !ValidPincode(" 686001 ") {
		t.Fatal("expected 686001 to be valid")
	}
	for _, bad := range []string{"086001", "68600", "6860011", "68600a"} {
		if ValidPincode(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}

func TestCleanField(t *testing.T) {
	if got := CleanField("  Rose   Villa \t 12 "); got != "Rose Villa 12" {
		t.Fatalf("unexpected %q", got)
	}
}
