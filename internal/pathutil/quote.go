package pathutil

import (
	"strconv"
	"strings"
)

// QuoteJS renders s as a double-quoted JavaScript string literal, the
// quoting utility named in spec.md §2 item 1 (used e.g. to splice a
// resolved id into `tpack.require(<quoted id>)`, spec.md §4.7).
func QuoteJS(s string) string {
	return strconv.Quote(s)
}

// QuoteCSSURL renders url as the contents of a CSS url(...) token, using
// quote as the preferred quote character so a rewrite (spec.md §4.4) keeps
// the original source's quoting style.
func QuoteCSSURL(url string, quote byte) string {
	if quote != '"' && quote != '\'' {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for i := 0; i < len(url); i++ {
		c := url[i]
		if c == quote || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte(quote)
	return b.String()
}

// DecodeCSSString removes one layer of quoting (and backslash escapes)
// from a CSS string or url() token's contents.
func DecodeCSSString(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// QuoteHTMLAttr quotes a rewritten attribute value using the original
// quote character (spec.md §4.5's "quotes the resolved URL with the
// original attribute quote"). quote is either '"', '\'' or 0 for an
// originally-unquoted attribute, in which case double quotes are added.
func QuoteHTMLAttr(value string, quote byte) string {
	if quote == 0 {
		quote = '"'
	}
	escaped := strings.ReplaceAll(value, "&", "&amp;")
	if quote == '"' {
		escaped = strings.ReplaceAll(escaped, "\"", "&quot;")
	} else {
		escaped = strings.ReplaceAll(escaped, "'", "&#39;")
	}
	return string(quote) + escaped + string(quote)
}

// DecodeHTMLAttr decodes the handful of named character references that
// legitimately occur inside URL/script/style attribute values.
func DecodeHTMLAttr(s string) string {
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&quot;", "\"",
		"&#39;", "'",
		"&apos;", "'",
		"&lt;", "<",
		"&gt;", ">",
	)
	return replacer.Replace(s)
}

// EscapeInlineClose escapes a closing "</script>" or "</style>" tag that
// appears inside content about to be inlined into the other, per spec.md
// §4.5 and scenario S3: "<\/script>".
func EscapeInlineClose(content string, tag string) string {
	open := "</" + tag
	var b strings.Builder
	lower := strings.ToLower(content)
	last := 0
	for {
		i := strings.Index(lower[last:], strings.ToLower(open))
		if i < 0 {
			b.WriteString(content[last:])
			break
		}
		i += last
		b.WriteString(content[last:i])
		b.WriteString("<\\/")
		b.WriteString(content[i+2 : i+len(open)])
		last = i + len(open)
	}
	return b.String()
}
