package app

import (
	"strings"

	"portfolio-chatbot/internal/model"
)

const pageInstruction = "Using my resume, generate a static HTML and CSS portfolio page with a good-looking UI and CSS. " +
	"Only provide the code, no explanations or other text. Keep everything in a single file (index.html) " +
	"and use internal CSS and JS."

// InitialPrompt asks for the first version of the page.
func InitialPrompt(description, resumeText string) string {
	var b strings.Builder
	b.WriteString(pageInstruction)
	b.WriteString("\n")
	b.WriteString("Additional Description: ")
	b.WriteString(description)
	b.WriteString("\n\n")
	b.WriteString("Resume Text:\n")
	b.WriteString(resumeText)
	return b.String()
}

// ConversationPrompt linearizes the full history, which already ends with the
// newest user message, and repeats the page instruction.
func ConversationPrompt(history []model.Message) string {
	var b strings.Builder
	for _, msg := range history {
		b.WriteString(msg.Sender)
		b.WriteString(": ")
		b.WriteString(msg.Text)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(pageInstruction)
	return b.String()
}
