// Package generation turns a prompt plus a résumé reference into generated text
// by calling an external generation function.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrGeneration matches every failure returned by an Invoker.
var ErrGeneration = errors.New("generation failed")

type Error struct {
	Driver string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Driver, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrGeneration, e.Err}
}

// Invoker produces generated text for a prompt. documentRef is the public URL of
// the extracted résumé text; the callee fetches it itself.
type Invoker interface {
	Generate(ctx context.Context, prompt, documentRef string) (string, error)
	Driver() string
}

func wrap(driver string, err error) error {
	if err == nil {
		return nil
	}
	var genErr *Error
	if errors.As(err, &genErr) {
		return err
	}
	return &Error{Driver: driver, Err: err}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// DocumentPrompt blends the caller's prompt with the résumé text the same way
// for every driver.
func DocumentPrompt(prompt, documentText string) string {
	return prompt +
		"\n\nAccess and Extract text from my resume for information about my portfolio.\n\n" +
		" Here is an AWS S3 public link to my resume: \n" +
		"---------------------\n" +
		documentText
}
