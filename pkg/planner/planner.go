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

// Package planner is the External Planner of §4.4: it asks an LLM
// completion API directly (never through the child-process Transport)
// for a dependency-respecting Execution Plan over a phase's tasks. Two
// interchangeable backends sit behind one interface — a direct Anthropic
// Messages API call and an AWS Bedrock-hosted equivalent. Every failure
// mode here (API error, unparsable response, invalid plan) is reported
// as an error the engine turns into topological fallback, never a run
// failure.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/molaco/workflow-manager/internal/log"
	"github.com/molaco/workflow-manager/pkg/engine"
	"github.com/molaco/workflow-manager/pkg/llm"
)

const systemPrompt = `You are a build scheduler. Given a list of tasks with ids, descriptions, and dependencies, group them into ordered batches. Batches run sequentially; tasks inside one batch run in parallel. Every task id must appear in exactly one batch, and every dependency must be in a strictly earlier batch than its dependents. Respond with a single JSON object of the form {"batches": [["id", ...], ...]} and nothing else.`

// Backend is one LLM completion provider. Implemented by the Anthropic
// and Bedrock clients in this package.
type Backend interface {
	// Complete sends one system+user prompt pair and returns the
	// model's text output.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Planner implements engine.Planner over a Backend, with all calls
// funneled through a shared token-bucket rate limiter so many phases
// planning concurrently never overrun provider throttling limits.
type Planner struct {
	backend Backend
	limiter *llm.RateLimiter
	logger  *zap.Logger
}

// New constructs a Planner. limiter may be nil to call the backend
// directly (tests).
func New(backend Backend, limiter *llm.RateLimiter) *Planner {
	return &Planner{backend: backend, limiter: limiter, logger: log.Logger()}
}

// Plan produces an Execution Plan for the given tasks. Any error return
// makes the engine fall back to dependency-topological batching.
func (p *Planner) Plan(ctx context.Context, tasks []engine.TaskSummary) (engine.Plan, error) {
	prompt, err := buildPrompt(tasks)
	if err != nil {
		return engine.Plan{}, err
	}

	var text string
	if p.limiter != nil {
		result, err := p.limiter.Do(ctx, func(ctx context.Context) (interface{}, error) {
			return p.backend.Complete(ctx, systemPrompt, prompt)
		})
		if err != nil {
			return engine.Plan{}, fmt.Errorf("planner: completion failed: %w", err)
		}
		text = result.(string)
	} else {
		text, err = p.backend.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			return engine.Plan{}, fmt.Errorf("planner: completion failed: %w", err)
		}
	}

	plan, err := ParsePlan(text)
	if err != nil {
		p.logger.Warn("planner: unparsable plan response", zap.Error(err))
		return engine.Plan{}, err
	}
	return plan, nil
}

func buildPrompt(tasks []engine.TaskSummary) (string, error) {
	encoded, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("planner: encode task summaries: %w", err)
	}
	return "Schedule these tasks:\n\n" + string(encoded), nil
}

// ParsePlan extracts the first JSON object from a model response and
// decodes it as a Plan. Models often wrap JSON in prose or a code fence;
// everything before the first '{' and after its matching '}' is ignored.
func ParsePlan(text string) (engine.Plan, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return engine.Plan{}, err
	}
	var plan engine.Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return engine.Plan{}, fmt.Errorf("planner: decode plan: %w", err)
	}
	if len(plan.Batches) == 0 {
		return engine.Plan{}, fmt.Errorf("planner: plan has no batches")
	}
	return plan, nil
}

// extractJSONObject returns the substring spanning the first top-level
// JSON object in text, tracking brace depth outside string literals.
func extractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("planner: no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("planner: unterminated JSON object in response")
}
