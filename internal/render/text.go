package render

import (
	"strings"

	xhtml "golang.org/x/net/html"
)

// HTMLToText flattens an HTML fragment or page to plain text and wraps it to width.
// Scripts, styles and the document head are dropped; block elements become
// paragraph breaks and links keep their target in brackets.
func HTMLToText(raw string, width int) string {
	if raw == "" {
		return ""
	}

	tokenizer := xhtml.NewTokenizer(strings.NewReader(raw))
	var sb strings.Builder
	var skip int
	var anchorURL string

	for {
		tt := tokenizer.Next()
		switch tt {
		case xhtml.ErrorToken:
			return Wrap(collapseBlankLines(sb.String()), width)

		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			t := tokenizer.Token()
			switch t.Data {
			case "script", "style", "head":
				if tt == xhtml.StartTagToken {
					skip++
				}
			case "p", "div", "section", "article", "h1", "h2", "h3", "h4", "h5", "h6", "pre", "ul", "ol":
				paragraph(&sb)
			case "br":
				sb.WriteString("\n")
			case "li":
				sb.WriteString("\n- ")
			case "a":
				for _, attr := range t.Attr {
					if attr.Key == "href" {
						anchorURL = attr.Val
					}
				}
			}

		case xhtml.EndTagToken:
			t := tokenizer.Token()
			switch t.Data {
			case "script", "style", "head":
				if skip > 0 {
					skip--
				}
			case "p", "div", "section", "article", "h1", "h2", "h3", "h4", "h5", "h6", "pre":
				paragraph(&sb)
			case "a":
				if anchorURL != "" && !strings.HasSuffix(strings.TrimSpace(sb.String()), anchorURL) {
					sb.WriteString(" [")
					sb.WriteString(anchorURL)
					sb.WriteString("]")
				}
				anchorURL = ""
			}

		case xhtml.TextToken:
			if skip > 0 {
				continue
			}
			sb.WriteString(strings.Join(strings.Fields(tokenizer.Token().Data), " "))
			if text := tokenizer.Raw(); len(text) > 0 && isSpace(text[len(text)-1]) {
				sb.WriteString(" ")
			}
		}
	}
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "ul": true, "ol": true, "li": true,
	"pre": true, "blockquote": true, "table": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// LooksLikeHTML reports whether s is markup rather than text that happens to
// contain '<': it must open with a tag and contain at least one block element.
func LooksLikeHTML(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<") {
		return false
	}
	tokenizer := xhtml.NewTokenizer(strings.NewReader(s))
	for {
		switch tokenizer.Next() {
		case xhtml.ErrorToken:
			return false
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if blockTags[string(name)] {
				return true
			}
		}
	}
}

// Title returns the text of the first <title> element, or "".
func Title(raw string) string {
	tokenizer := xhtml.NewTokenizer(strings.NewReader(raw))
	inTitle := false
	for {
		switch tokenizer.Next() {
		case xhtml.ErrorToken:
			return ""
		case xhtml.StartTagToken:
			if tokenizer.Token().Data == "title" {
				inTitle = true
			}
		case xhtml.TextToken:
			if inTitle {
				return strings.Join(strings.Fields(tokenizer.Token().Data), " ")
			}
		case xhtml.EndTagToken:
			inTitle = false
		}
	}
}

// Truncate shortens s to at most n runes, ending with an ellipsis when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

func paragraph(sb *strings.Builder) {
	if sb.Len() > 0 {
		sb.WriteString("\n\n")
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Wrap word-wraps text to width, keeping existing line breaks. Text is
// otherwise left as is.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var result strings.Builder
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}
		lineLen := 0
		for i, word := range words {
			wlen := len([]rune(word))
			if i > 0 && lineLen+1+wlen > width {
				result.WriteString("\n")
				lineLen = 0
			} else if i > 0 {
				result.WriteString(" ")
				lineLen++
			}
			result.WriteString(word)
			lineLen += wlen
		}
		result.WriteString("\n")
	}
	return strings.TrimRight(result.String(), "\n")
}
