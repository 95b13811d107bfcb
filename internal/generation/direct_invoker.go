package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"portfolio-chatbot/internal/ai"
)

const DriverDirect = "direct"

type documentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type completer interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

// DirectInvoker does the generator function's work in-process: it reads the
// résumé text from object storage and asks the model for the page itself.
type DirectInvoker struct {
	documents    documentFetcher
	llm          completer
	chat         ai.ChatConfig
	instructions string
	timeout      time.Duration
}

var _ Invoker = (*DirectInvoker)(nil)

func NewDirectInvoker(documents documentFetcher, llm completer, chat ai.ChatConfig, instructions string, timeout time.Duration) *DirectInvoker {
	return &DirectInvoker{
		documents:    documents,
		llm:          llm,
		chat:         chat,
		instructions: instructions,
		timeout:      timeout,
	}
}

func (d *DirectInvoker) Driver() string {
	return DriverDirect
}

func (d *DirectInvoker) Generate(ctx context.Context, prompt, documentRef string) (string, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	text, err := d.generate(ctx, prompt, documentRef)
	return text, wrap(DriverDirect, err)
}

func (d *DirectInvoker) generate(ctx context.Context, prompt, documentRef string) (string, error) {
	document, err := d.documents.Fetch(ctx, documentRef)
	if err != nil {
		return "", fmt.Errorf("fetch document failed: %w", err)
	}

	messages := []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: d.instructions},
		{Role: ai.RoleUser, Content: DocumentPrompt(prompt, string(document))},
	}
	out, err := d.llm.Complete(ctx, d.chat, messages)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("model returned an empty response")
	}
	return out, nil
}
