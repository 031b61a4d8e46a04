package tools

import "strings"

var htmlEntityReplacer = strings.NewReplacer(
	"&gt;", ">",
	"&lt;", "<",
	"&quot;", `"`,
	"&amp;", "&",
	"&apos;", "'",
)

// FixModelHTMLEscaping converts HTML entities a model sometimes emits inside
// file content back to literal characters.
func FixModelHTMLEscaping(text string) string {
	return htmlEntityReplacer.Replace(text)
}

// RemoveInvalidChars strips Unicode replacement characters from text.
func RemoveInvalidChars(text string) string {
	return strings.ReplaceAll(text, "�", "")
}

// SanitizeModelContent applies both fixups to model-produced file content.
func SanitizeModelContent(text string) string {
	return RemoveInvalidChars(FixModelHTMLEscaping(text))
}
