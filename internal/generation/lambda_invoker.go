package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

const DriverLambda = "lambda"

type lambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaInvoker calls the portfolio generator function synchronously.
type LambdaInvoker struct {
	client       lambdaAPI
	functionName string
	timeout      time.Duration
}

var _ Invoker = (*LambdaInvoker)(nil)

type lambdaRequest struct {
	Prompt    string `json:"prompt"`
	ResumeURL string `json:"resume_url"`
}

type lambdaResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

func NewLambdaInvoker(awsCfg aws.Config, functionName string, timeout time.Duration) *LambdaInvoker {
	return newLambdaInvoker(lambda.NewFromConfig(awsCfg), functionName, timeout)
}

func newLambdaInvoker(client lambdaAPI, functionName string, timeout time.Duration) *LambdaInvoker {
	return &LambdaInvoker{
		client:       client,
		functionName: functionName,
		timeout:      timeout,
	}
}

func (l *LambdaInvoker) Driver() string {
	return DriverLambda
}

func (l *LambdaInvoker) Generate(ctx context.Context, prompt, documentRef string) (string, error) {
	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	text, err := l.invoke(ctx, prompt, documentRef)
	return text, wrap(DriverLambda, err)
}

func (l *LambdaInvoker) invoke(ctx context.Context, prompt, documentRef string) (string, error) {
	payload, err := json.Marshal(lambdaRequest{Prompt: prompt, ResumeURL: documentRef})
	if err != nil {
		return "", fmt.Errorf("marshal lambda payload failed: %w", err)
	}

	out, err := l.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(l.functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return "", fmt.Errorf("invoke %s failed: %w", l.functionName, err)
	}
	if out.FunctionError != nil {
		return "", fmt.Errorf("function %s raised %s: %s", l.functionName, aws.ToString(out.FunctionError), truncate(string(out.Payload)))
	}

	var resp lambdaResponse
	if err := json.Unmarshal(out.Payload, &resp); err != nil {
		return "", fmt.Errorf("decode lambda response failed: %w", err)
	}
	if resp.StatusCode != 0 && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("function %s returned status %d: %s", l.functionName, resp.StatusCode, truncate(resp.Body))
	}
	body := strings.TrimSpace(resp.Body)
	if body == "" {
		return "", fmt.Errorf("function %s returned an empty body", l.functionName)
	}
	return body, nil
}

func truncate(s string) string {
	const limit = 256
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
