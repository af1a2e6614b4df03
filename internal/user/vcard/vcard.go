// Package vcard renders card holder profiles as vCard 3.0 documents.
package vcard

import "strings"

// Data holds the profile fields that can appear in an export. Empty
// fields are omitted from the output.
type Data struct {
	FirstName string
	LastName  string
	Title     string
	Email     string
	Phone     string
	Website   string
	LinkedIn  string
	GitHub    string
	Instagram string
	Bio       string
}

// Render produces a vCard 3.0 document with CRLF line endings.
func Render(data Data) string {
	lines := []string{"BEGIN:VCARD", "VERSION:3.0"}

	fullName := strings.TrimSpace(strings.TrimSpace(data.FirstName) + " " + strings.TrimSpace(data.LastName))
	if fullName == "" {
		fullName = "Contact"
	}
	lines = append(lines, "FN:"+Escape(fullName))
	if data.FirstName != "" || data.LastName != "" {
		lines = append(lines, "N:"+Escape(data.LastName)+";"+Escape(data.FirstName)+";;;")
	}

	if data.Title != "" {
		lines = append(lines, "TITLE:"+Escape(data.Title))
	}
	if data.Email != "" {
		lines = append(lines, "EMAIL:"+Escape(data.Email))
	}
	if data.Phone != "" {
		lines = append(lines, "TEL:"+Escape(data.Phone))
	}
	if data.Website != "" {
		lines = append(lines, "URL:"+Escape(data.Website))
	}
	if data.LinkedIn != "" {
		lines = append(lines, "URL;TYPE=LinkedIn:"+Escape(data.LinkedIn))
	}
	if data.GitHub != "" {
		lines = append(lines, "URL;TYPE=GitHub:"+Escape(data.GitHub))
	}
	if data.Instagram != "" {
		lines = append(lines, "URL;TYPE=Instagram:"+Escape(data.Instagram))
	}
	if data.Bio != "" {
		lines = append(lines, "NOTE:"+Escape(data.Bio))
	}

	lines = append(lines, "END:VCARD")

	return strings.Join(lines, "\r\n")
}

// Escape protects the vCard structural characters in a field value.
func Escape(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, ",", `\,`)
	value = strings.ReplaceAll(value, ";", `\;`)
	value = strings.ReplaceAll(value, "\n", `\n`)
	return value
}

// FileName builds a safe download name from the holder's full name.
func FileName(fullName string) string {
	name := strings.TrimSpace(fullName)
	if name == "" {
		name = "contact"
	}
	name = strings.ToLower(strings.ReplaceAll(name, " ", "-"))

	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "contact.vcf"
	}
	return b.String() + ".vcf"
}
