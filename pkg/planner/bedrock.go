// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package planner

import (
	"context"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Default Bedrock configuration for planning calls. The us.* prefix is a
// cross-region inference profile.
const (
	DefaultBedrockModelID = "us.anthropic.claude-sonnet-4-5-20250929-v1:0"
	DefaultBedrockRegion  = "us-west-2"
)

// BedrockConfig configures the AWS Bedrock-hosted backend. Credentials
// follow the usual AWS resolution chain unless explicit keys or a
// profile are given.
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Profile         string

	ModelID   string
	MaxTokens int64
}

// BedrockBackend calls the same Anthropic message schema through AWS
// Bedrock, using the Anthropic SDK's Bedrock middleware for signing and
// endpoint resolution.
type BedrockBackend struct {
	client    anthropic.Client
	modelID   string
	maxTokens int64
}

// NewBedrockBackend constructs the Bedrock-hosted backend.
func NewBedrockBackend(ctx context.Context, cfg BedrockConfig) (*BedrockBackend, error) {
	if cfg.Region == "" {
		cfg.Region = DefaultBedrockRegion
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultBedrockModelID
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultAnthropicMaxTokens
	}

	var awsCfg aws.Config
	var err error
	switch {
	case cfg.AccessKeyID != "" && cfg.SecretAccessKey != "":
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		)
	case cfg.Profile != "":
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithSharedConfigProfile(cfg.Profile),
		)
	default:
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("planner: load AWS config: %w", err)
	}

	return &BedrockBackend{
		client:    anthropic.NewClient(bedrock.WithConfig(awsCfg)),
		modelID:   cfg.ModelID,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Complete sends one planning prompt through Bedrock and returns the
// concatenated text blocks of the response.
func (b *BedrockBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.modelID),
		MaxTokens: b.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("planner: bedrock invocation failed: %w", err)
	}
	return textContent(message), nil
}
