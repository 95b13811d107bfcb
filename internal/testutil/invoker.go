package testutil

import (
	"context"
	"errors"
	"sync"
)

// Invoker is a scripted generation driver. Each call consumes the next reply;
// once the script is exhausted it echoes a fixed page.
type Invoker struct {
	mu      sync.Mutex
	replies []Reply
	Prompts []string
	Refs    []string
}

type Reply struct {
	Text string
	Err  error
}

func NewInvoker(replies ...Reply) *Invoker {
	return &Invoker{replies: replies}
}

func (f *Invoker) Generate(_ context.Context, prompt, documentRef string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	f.Refs = append(f.Refs, documentRef)
	if len(f.replies) == 0 {
		return "<html><body>portfolio</body></html>", nil
	}
	next := f.replies[0]
	f.replies = f.replies[1:]
	if next.Err != nil {
		return "", next.Err
	}
	return next.Text, nil
}

func (f *Invoker) Driver() string {
	return "fake"
}

func (f *Invoker) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Prompts)
}

var ErrTimeout = errors.New("generation timed out")
