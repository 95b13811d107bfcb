package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"portfolio-chatbot/internal/config"
)

// LoadConfig builds the SDK config shared by the S3, Lambda and Secrets Manager clients.
// Static keys win when both are set; otherwise the default credential chain applies.
func LoadConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config failed: %w", err)
	}
	return awsCfg, nil
}

// LLMSecrets is the JSON document stored in Secrets Manager for the model provider.
type LLMSecrets struct {
	APIKey       string `json:"OPENAI_API_KEY"`
	Instructions string `json:"OPENAI_INSTRUCTIONS"`
}

func LoadLLMSecrets(ctx context.Context, awsCfg aws.Config, secretARN string) (*LLMSecrets, error) {
	client := secretsmanager.NewFromConfig(awsCfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretARN),
	})
	if err != nil {
		return nil, fmt.Errorf("get secret %s failed: %w", secretARN, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", secretARN)
	}

	var secrets LLMSecrets
	if err := json.Unmarshal([]byte(*out.SecretString), &secrets); err != nil {
		return nil, fmt.Errorf("decode secret %s failed: %w", secretARN, err)
	}
	return &secrets, nil
}
