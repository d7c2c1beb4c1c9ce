package util

import (
	"errors"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  error
	}{
		{in: "invoice.pdf", want: "invoice.pdf"},
		{in: "  report 2024.docx ", want: "report 2024.docx"},
		{in: "../../etc/passwd", want: "_.._etc_passwd"},
		{in: `C:\Users\a\scan.png`, want: "C:_Users_a_scan.png"},
		{in: "tab\tname\x00.txt", want: "tabname.txt"},
		{in: ".hidden", want: "hidden"},
		{in: "   ", err: ErrInvalidFileName},
		{in: "...", err: ErrInvalidFileName},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Fatalf("SanitizeFileName(%q) error = %v, want %v", tt.in, err, tt.err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
