package spell

import (
	"errors"
	"testing"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"han characters", "测试", "CeShi"},
		{"mixed han and latin", "中国abc", "ZhongGuoabc"},
		{"latin unchanged", "Aspirin", "Aspirin"},
		{"digits and spaces kept", "方 2", "Fang 2"},
		{"full-width folded", "ＡＢ１", "AB1"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Derive(tt.in)
			if err != nil {
				t.Fatalf("Derive(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Derive(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDerive_Deterministic(t *testing.T) {
	first, err := Derive("麻黄汤")
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Derive("麻黄汤")
		if err != nil {
			t.Fatalf("Derive() error = %v", err)
		}
		if again != first {
			t.Fatalf("Derive() = %q on run %d, want %q", again, i, first)
		}
	}
}

func TestDerive_InvalidUTF8(t *testing.T) {
	_, err := Derive("bad\xffname")
	if !errors.Is(err, ErrUntransliterable) {
		t.Errorf("Derive() error = %v, want ErrUntransliterable", err)
	}
}
