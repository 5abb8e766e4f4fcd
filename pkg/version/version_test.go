package version

import (
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		major uint16
		minor uint16
	}{
		{"1.0", 1, 0},
		{"1.1", 1, 1},
		{"2.0", 2, 0},
		{"10.23", 10, 23},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if v.Major != tt.major {
				t.Errorf("Major = %d, want %d", v.Major, tt.major)
			}
			if v.Minor != tt.minor {
				t.Errorf("Minor = %d, want %d", v.Minor, tt.minor)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"1",
		"abc",
		"1.0.0",
		"1.x",
		"-1.0",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if err == nil {
				t.Errorf("Parse(%q) should return error", input)
			}
		})
	}
}

func TestProtocolVersion_String(t *testing.T) {
	v, err := Parse("10.23")
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "10.23" {
		t.Errorf("String() = %q, want %q", v.String(), "10.23")
	}
	if MustCurrent().String() != Current {
		t.Errorf("MustCurrent() = %q, want %q", MustCurrent().String(), Current)
	}
}

func TestProtocolVersion_Compatible(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"1.0", "1.0", true},
		{"1.0", "1.5", true},
		{"1.0", "2.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			a, _ := Parse(tt.a)
			b, _ := Parse(tt.b)
			if got := a.Compatible(b); got != tt.want {
				t.Errorf("Compatible(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSubprotocol(t *testing.T) {
	if got := Subprotocol(1); got != "debugit.v1" {
		t.Errorf("Subprotocol(1) = %q, want %q", got, "debugit.v1")
	}

	major, err := MajorFromSubprotocol("debugit.v3")
	if err != nil {
		t.Fatalf("MajorFromSubprotocol returned error: %v", err)
	}
	if major != 3 {
		t.Errorf("major = %d, want 3", major)
	}

	for _, bad := range []string{"", "other/1", "debugit.v", "debugit.vx"} {
		if _, err := MajorFromSubprotocol(bad); err == nil {
			t.Errorf("MajorFromSubprotocol(%q) should return error", bad)
		}
	}
}

func TestSupportedSubprotocols(t *testing.T) {
	got := SupportedSubprotocols()
	if len(got) != 1 || got[0] != "debugit.v1" {
		t.Errorf("SupportedSubprotocols() = %v, want [debugit.v1]", got)
	}
}
