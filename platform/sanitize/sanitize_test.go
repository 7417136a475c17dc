package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Producción eólica", "Producción eólica"},
		{"  <b>Hidráulica</b>\n convencional ", "Hidráulica convencional"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;datos", "alert(1)datos"},
		{"Fuel &amp; Gas", "Fuel & Gas"},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Fatalf("Text(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOptionalText(t *testing.T) {
	if OptionalText(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
	empty := "   "
	if OptionalText(&empty) != nil {
		t.Fatalf("expected nil for blank input")
	}
	tags := "<p></p>"
	if OptionalText(&tags) != nil {
		t.Fatalf("expected nil for markup-only input")
	}
	value := " Demanda "
	got := OptionalText(&value)
	if got == nil || *got != "Demanda" {
		t.Fatalf("expected trimmed value, got %v", got)
	}
}
