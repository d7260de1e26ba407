package security

import (
	"fmt"
	"strings"
)

// RenderStyle selects how untrusted input is fenced during rendering.
type RenderStyle string

const (
	RenderXML      RenderStyle = "xml"
	RenderMarkdown RenderStyle = "markdown"
)

// escaper neutralizes characters that could break out of the input
// fence or carry markup into the model's instruction stream.
var escaper = strings.NewReplacer(
	`"`, "&quot;",
	`'`, "&#x27;",
	"{", "&#123;",
	"}", "&#125;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeUserInput escapes markup-significant characters in untrusted
// input.
func EscapeUserInput(input string) string {
	return escaper.Replace(input)
}

// Render composes a trusted system prompt with untrusted user input,
// escaping the input and fencing it behind explicit boundaries so the
// consuming model can tell instruction from data.
func Render(systemPrompt, userInput string, style RenderStyle) (string, error) {
	escaped := EscapeUserInput(userInput)
	switch style {
	case RenderXML:
		return fmt.Sprintf("%s\n\n<user_input>%s</user_input>", systemPrompt, escaped), nil
	case RenderMarkdown:
		return fmt.Sprintf("%s\n\n### USER INPUT\n%s\n### END USER INPUT", systemPrompt, escaped), nil
	default:
		return "", fmt.Errorf("unknown render style: %q", style)
	}
}
