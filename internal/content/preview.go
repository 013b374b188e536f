package content

import "strings"

// PreviewLength ist die maximale Länge einer Lektionsvorschau in Zeichen
const PreviewLength = 220

// Preview erzeugt eine kurze lesbare Vorschau aus rohem Lektionsinhalt:
// erster Textblock, sonst erste Liste, sonst der Rohtext.
func Preview(raw string) string {
	doc, ok := Parse(raw)
	if !ok {
		return truncate(raw, PreviewLength)
	}
	for _, sec := range doc.Sections {
		if t, ok := sec.(TextSection); ok {
			base := t.Text
			if t.Heading != "" {
				base = t.Heading + " — " + t.Text
			}
			return truncate(base, PreviewLength)
		}
	}
	for _, sec := range doc.Sections {
		if l, ok := sec.(ListSection); ok {
			head := ""
			if l.Heading != "" {
				head = l.Heading + ": "
			}
			items := l.Items
			if len(items) > 3 {
				items = items[:3]
			}
			return truncate(head+strings.Join(items, " • "), PreviewLength)
		}
	}
	return truncate(raw, PreviewLength)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "…"
}
