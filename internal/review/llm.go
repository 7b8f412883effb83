package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"webHostingPortal/internal/logging"
)

// LLMConfig configures the OpenAI-backed reviewers.
type LLMConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// LLM asks a chat model for verdicts and falls back to the rule-based
// implementations when the call or its answer fails.
type LLM struct {
	client   openai.Client
	model    string
	timeout  time.Duration
	names    NameReviewer
	priority Prioritizer
}

// NewLLM returns an LLM reviewer. names and priority are the fallbacks.
func NewLLM(cfg LLMConfig, names NameReviewer, priority Prioritizer) *LLM {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(1)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &LLM{
		client:   openai.NewClient(opts...),
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		names:    names,
		priority: priority,
	}
}

const namePrompt = `You review subdomain names for a web hosting company. Reject names that are profane, hateful, sexual, violent, impersonate well-known brands or government bodies, or are otherwise offensive in any language. Reply with JSON only: {"allowed": true|false, "reason": "<one short sentence>"}.`

const ticketPrompt = `You triage support tickets for a web hosting company. Score urgency from 1 (lowest) to 10 (highest). Outages, security incidents and billing failures are urgent; paying customers get higher priority. Reply with JSON only: {"score": <1-10>, "reason": "<one short sentence>"}.`

func (l *LLM) ReviewName(ctx context.Context, label string) (Verdict, error) {
	// Hard rules first: the model cannot approve a blocklisted name.
	if l.names != nil {
		v, err := l.names.ReviewName(ctx, label)
		if err == nil && !v.Allowed {
			return v, nil
		}
	}
	var v Verdict
	if err := l.ask(ctx, namePrompt, "Subdomain: "+label, &v); err != nil {
		logging.For("review").Warn("name review fell back to rules", "err", err)
		if l.names == nil {
			return Verdict{}, err
		}
		return l.names.ReviewName(ctx, label)
	}
	if !v.Allowed && v.Reason == "" {
		v.Reason = "This subdomain is not allowed."
	}
	return v, nil
}

func (l *LLM) Prioritize(ctx context.Context, in TicketInput) (Priority, error) {
	user := fmt.Sprintf("User type: %s\nTitle: %s\nDescription: %s", in.UserType, in.Title, in.Description)
	var p Priority
	if err := l.ask(ctx, ticketPrompt, user, &p); err != nil || p.Score == 0 {
		if err == nil {
			err = errors.New("empty score")
		}
		logging.For("review").Warn("ticket priority fell back to heuristics", "err", err)
		if l.priority == nil {
			return Priority{}, err
		}
		return l.priority.Prioritize(ctx, in)
	}
	p.Score = clampScore(p.Score)
	return p, nil
}

func (l *LLM) ask(ctx context.Context, system, user string, into any) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(l.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return errors.New("no choices in response")
	}
	return decodeJSONObject(resp.Choices[0].Message.Content, into)
}

// decodeJSONObject decodes the first {...} object in s, tolerating code fences.
func decodeJSONObject(s string, into any) error {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return fmt.Errorf("no JSON object in %q", s)
	}
	return json.Unmarshal([]byte(s[start:end+1]), into)
}
