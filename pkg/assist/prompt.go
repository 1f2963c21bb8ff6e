package assist

import "strings"

// ChatContext describes the editor state a chat question refers to.
type ChatContext struct {
	SelectedText string `json:"selectedText,omitempty"`
	SourceCode   string `json:"sourceCode"`
	Language     string `json:"language"`
	LanguageID   int    `json:"languageId,omitempty"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Prompt  string       `json:"prompt"`
	Context *ChatContext `json:"context"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// CompletionRequest is the body of POST /autocomplete.
type CompletionRequest struct {
	Prompt string `json:"prompt"`
}

// CompletionResponse is the body of a successful POST /autocomplete.
type CompletionResponse struct {
	Completion string `json:"completion"`
}

// BuildChatPrompt renders the model prompt for a chat question. The
// selected text line is left out when nothing is selected.
func BuildChatPrompt(c ChatContext, question string) string {
	var b strings.Builder
	b.WriteString("Context: You are working with ")
	b.WriteString(c.Language)
	b.WriteString(" code. Please consider the following:\n\n")
	if c.SelectedText != "" {
		b.WriteString("Selected text: ")
		b.WriteString(c.SelectedText)
		b.WriteString("\n")
	}
	b.WriteString("Current source code: ")
	b.WriteString(c.SourceCode)
	b.WriteString("\n\n")
	b.WriteString("Instructions:\n")
	b.WriteString("- If the selected text is provided, use it along with the source code to answer the user's question about the selected text.\n")
	b.WriteString("- If the selected text is not provided, only use the current source code to answer the user's question.\n\n")
	b.WriteString("User question: ")
	b.WriteString(question)
	return strings.TrimSpace(b.String())
}
