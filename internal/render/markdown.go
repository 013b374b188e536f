// Package render wandelt normalisierte Lektionsdokumente in Markdown und
// Terminalausgabe. Eingaben kommen aus dem Backend und gelten als unsicher.
package render

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/glamour"

	"parcours/internal/content"
)

var calloutLabels = map[string]string{
	content.VariantTip:     "Tipp",
	content.VariantWarning: "Achtung",
	content.VariantNote:    "Hinweis",
}

// Markdown rendert ein Dokument. Jeder Abschnittstyp hat genau einen Zweig;
// unbekannte Typen gibt es nach der Normalisierung nicht mehr.
func Markdown(doc *content.Document) string {
	var b strings.Builder
	if doc.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", inline(doc.Title))
	}

	for _, sec := range doc.Sections {
		if h := sec.Title(); h != "" {
			fmt.Fprintf(&b, "## %s\n\n", inline(h))
		}
		switch s := sec.(type) {
		case content.TextSection:
			b.WriteString(block(s.Text))
			b.WriteString("\n\n")
		case content.ListSection:
			for _, it := range s.Items {
				fmt.Fprintf(&b, "- %s\n", inline(it))
			}
			b.WriteString("\n")
		case content.CodeSection:
			fence := codeFence(s.Code)
			fmt.Fprintf(&b, "%s%s\n%s\n%s\n\n", fence, language(s.Language), strings.TrimRight(s.Code, "\n"), fence)
		case content.CalloutSection:
			label := calloutLabels[s.Variant]
			if label == "" {
				label = calloutLabels[content.VariantNote]
			}
			fmt.Fprintf(&b, "> **%s:** ", label)
			lines := strings.Split(block(s.Text), "\n")
			b.WriteString(strings.Join(lines, "\n> "))
			b.WriteString("\n\n")
		}
	}

	if len(doc.References) > 0 {
		b.WriteString("## Quellen\n\n")
		for _, ref := range doc.References {
			fmt.Fprintf(&b, "- %s\n", reference(ref))
		}
		b.WriteString("\n")
	}

	if len(doc.Quiz) > 0 {
		b.WriteString(Quiz(doc.Quiz))
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Quiz rendert Fragen mit ihren Optionen ohne die Lösung
func Quiz(questions []content.QuizQuestion) string {
	var b strings.Builder
	b.WriteString("## Quiz\n\n")
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, inline(q.Question))
		for _, opt := range q.Options {
			fmt.Fprintf(&b, "   - [ ] %s\n", inline(opt))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Plain rendert unstrukturierten Inhalt unverändert als Absatz
func Plain(title, text string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", inline(title))
	}
	b.WriteString(block(text))
	b.WriteString("\n")
	return b.String()
}

// Terminal rendert Markdown für ein Terminal der Breite width
func Terminal(markdown string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}

// inline macht einzeiligen Text sicher: keine Zeilenumbrüche, kein rohes HTML,
// keine eigenen Links oder Bilder
func inline(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return escapeText(s)
}

// block erhält Zeilenumbrüche, entschärft aber Zeilen, die sonst als Fence
// oder Überschrift gelesen würden
func block(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, l := range lines {
		trimmed := strings.TrimLeft(l, " ")
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") || strings.HasPrefix(trimmed, "#") {
			lines[i] = `\` + escapeText(trimmed)
			continue
		}
		lines[i] = escapeText(l)
	}
	return strings.Join(lines, "\n")
}

// Links und Bilder entstehen nur über reference; Backend-Text kann keine
// Link-Syntax bilden
var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	"<", `\<`,
	">", `\>`,
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// codeFence ist länger als jede Backtick-Folge im Code, mindestens drei
func codeFence(code string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

func language(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" || len(lang) > 32 {
		return content.DefaultCodeLanguage
	}
	for _, r := range lang {
		ok := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' ||
			r == '-' || r == '_' || r == '+' || r == '.' || r == '#'
		if !ok {
			return content.DefaultCodeLanguage
		}
	}
	return lang
}

// reference verlinkt nur http(s)-Adressen; alles andere bleibt Text
func reference(ref string) string {
	ref = strings.TrimSpace(ref)
	u, err := url.Parse(ref)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" && !strings.ContainsAny(ref, " <>") {
		return "<" + ref + ">"
	}
	return inline(ref)
}
