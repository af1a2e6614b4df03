package vcard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFullProfile(t *testing.T) {
	out := Render(Data{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Title:     "Engineer",
		Email:     "ada@example.com",
		Phone:     "+4412345678",
		Website:   "https://ada.example.com",
		LinkedIn:  "https://linkedin.com/in/ada",
		GitHub:    "https://github.com/ada",
		Instagram: "https://instagram.com/ada",
		Bio:       "Works on engines",
	})

	lines := strings.Split(out, "\r\n")
	require.True(t, len(lines) >= 4)
	assert.Equal(t, "BEGIN:VCARD", lines[0])
	assert.Equal(t, "VERSION:3.0", lines[1])
	assert.Equal(t, "END:VCARD", lines[len(lines)-1])

	assert.Contains(t, lines, "FN:Ada Lovelace")
	assert.Contains(t, lines, "N:Lovelace;Ada;;;")
	assert.Contains(t, lines, "TITLE:Engineer")
	assert.Contains(t, lines, "EMAIL:ada@example.com")
	assert.Contains(t, lines, "TEL:+4412345678")
	assert.Contains(t, lines, "URL:https://ada.example.com")
	assert.Contains(t, lines, "URL;TYPE=LinkedIn:https://linkedin.com/in/ada")
	assert.Contains(t, lines, "URL;TYPE=GitHub:https://github.com/ada")
	assert.Contains(t, lines, "URL;TYPE=Instagram:https://instagram.com/ada")
	assert.Contains(t, lines, "NOTE:Works on engines")
}

func TestRenderSocialLinksAppearOnce(t *testing.T) {
	out := Render(Data{
		FirstName: "Ada",
		LinkedIn:  "https://linkedin.com/in/ada",
		GitHub:    "https://github.com/ada",
	})

	assert.Equal(t, 1, strings.Count(out, "URL;TYPE=LinkedIn:https://linkedin.com/in/ada"))
	assert.Equal(t, 1, strings.Count(out, "URL;TYPE=GitHub:https://github.com/ada"))
	assert.NotContains(t, out, "URL;TYPE=Instagram")
}

func TestRenderOmitsEmptyFields(t *testing.T) {
	out := Render(Data{FirstName: "Solo"})

	assert.NotContains(t, out, "TITLE:")
	assert.NotContains(t, out, "EMAIL:")
	assert.NotContains(t, out, "TEL:")
	assert.NotContains(t, out, "NOTE:")
	assert.Contains(t, out, "FN:Solo")
}

func TestRenderFallbackName(t *testing.T) {
	out := Render(Data{Email: "x@example.com"})

	assert.Contains(t, out, "FN:Contact")
	assert.NotContains(t, out, "\r\nN:")
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `a\,b`, Escape("a,b"))
	assert.Equal(t, `a\;b`, Escape("a;b"))
	assert.Equal(t, `a\\b`, Escape(`a\b`))
	assert.Equal(t, `a\nb`, Escape("a\nb"))
}

func TestEscapeAppliedToFields(t *testing.T) {
	out := Render(Data{
		FirstName: "Smith, Jr;",
		Bio:       "line one\nline two",
	})

	assert.Contains(t, out, `FN:Smith\, Jr\;`)
	assert.Contains(t, out, `NOTE:line one\nline two`)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "ada-lovelace.vcf", FileName("Ada Lovelace"))
	assert.Equal(t, "contact.vcf", FileName(""))
	assert.Equal(t, "contact.vcf", FileName("!!!"))
}
