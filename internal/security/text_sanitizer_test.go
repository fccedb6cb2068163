package security

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "Fresh mangoes", "Fresh mangoes"},
		{"前後の空白を除去", "  Bengaluru \n", "Bengaluru"},
		{"タグを除去", "<b>Organic</b> rice", "Organic rice"},
		{"scriptは中身ごと除去", `Tomatoes<script>alert("x")</script>`, "Tomatoes"},
		{"アンパサンドは元に戻す", "Fruits & Vegetables", "Fruits & Vegetables"},
		{"空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeText_RemovesEventHandlers(t *testing.T) {
	sanitizer := NewTextSanitizer()

	got := sanitizer.SanitizeText(`<img src="x" onerror="alert(1)">Chillies`)
	if strings.Contains(got, "onerror") || strings.Contains(got, "<img") {
		t.Errorf("event handler should be removed, got %q", got)
	}
	if got != "Chillies" {
		t.Errorf("got %q, want %q", got, "Chillies")
	}
}

func TestSanitizeText_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	input := "<p>Alphonso <em>mangoes</em></p>"
	first := sanitizer.SanitizeText(input)
	second := sanitizer.SanitizeText(first)
	if first != second {
		t.Errorf("not idempotent: %q -> %q", first, second)
	}
}
