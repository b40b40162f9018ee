package mac

import (
	"errors"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already canonical", "aa:bb:cc:dd:ee:ff", "aa:bb:cc:dd:ee:ff"},
		{"uppercase colons", "AA:BB:CC:DD:EE:FF", "aa:bb:cc:dd:ee:ff"},
		{"dashes", "AA-BB-CC-DD-EE-FF", "aa:bb:cc:dd:ee:ff"},
		{"cisco dots", "aabb.ccdd.eeff", "aa:bb:cc:dd:ee:ff"},
		{"cisco dots uppercase", "AABB.CCDD.EEFF", "aa:bb:cc:dd:ee:ff"},
		{"bare hex", "aabbccddeeff", "aa:bb:cc:dd:ee:ff"},
		{"bare hex uppercase", "AABBCCDDEEFF", "aa:bb:cc:dd:ee:ff"},
		{"surrounding whitespace", "  aa:bb:cc:dd:ee:ff  ", "aa:bb:cc:dd:ee:ff"},
		{"mixed case colons", "Aa:bB:cC:Dd:Ee:fF", "aa:bb:cc:dd:ee:ff"},
		{"digits only", "00:11:22:33:44:55", "00:11:22:33:44:55"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too short", "aa:bb:cc"},
		{"too long", "aa:bb:cc:dd:ee:ff:00"},
		{"non hex", "gg:bb:cc:dd:ee:ff"},
		{"bare hex too short", "aabbccddee"},
		{"bare hex too long", "aabbccddeeff00"},
		{"odd cisco group", "aab.ccdd.eeff"},
		{"garbage", "not-a-mac"},
		{"single octet groups", "a:b:c:d:e:f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.input)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Normalize(%q) error = %v, want ErrInvalidFormat", tt.input, err)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		hex := "0123456789abcdefABCDEF"
		var sb strings.Builder
		for i := 0; i < 12; i++ {
			sb.WriteByte(hex[rapid.IntRange(0, len(hex)-1).Draw(t, "digit")])
		}
		raw := sb.String()

		var input string
		switch rapid.IntRange(0, 3).Draw(t, "format") {
		case 0:
			input = raw
		case 1:
			input = raw[0:2] + ":" + raw[2:4] + ":" + raw[4:6] + ":" + raw[6:8] + ":" + raw[8:10] + ":" + raw[10:12]
		case 2:
			input = raw[0:2] + "-" + raw[2:4] + "-" + raw[4:6] + "-" + raw[6:8] + "-" + raw[8:10] + "-" + raw[10:12]
		case 3:
			input = raw[0:4] + "." + raw[4:8] + "." + raw[8:12]
		}

		first, err := Normalize(input)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", input, err)
		}
		second, err := Normalize(first)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", first, err)
		}
		if first != second {
			t.Fatalf("Normalize not idempotent: %q -> %q -> %q", input, first, second)
		}
	})
}
