package backend

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spf13/afero"

	"github.com/nightshift-run/nightshift/internal/validate"
	"github.com/nightshift-run/nightshift/pkg/logger"
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

const (
	DEF_OPENAI_MODEL      = "gpt-4o-mini"
	DEF_MAX_OUTPUT_TOKENS = 4096
)

// chatClient is the slice of the completion API the backend needs. The
// real client is substituted in tests.
type chatClient interface {
	complete(ctx context.Context, model, system, user string, maxTokens int) (text string, tokens int, err error)
}

type openaiChat struct {
	client openai.Client
}

func newOpenAIChat(apiKey, baseURL string) *openaiChat {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openaiChat{client: openai.NewClient(opts...)}
}

func (c *openaiChat) complete(ctx context.Context, model, system, user string, maxTokens int) (string, int, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", 0, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, int(resp.Usage.TotalTokens), nil
}

// Config holds the OpenAI backend settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Retry     shiftlib.RetryConfig
}

// OpenAIBackend is the reference standard-lane backend. It executes
// summary, research-report and code-stub jobs against the chat completion
// API and writes the declared output files. Demanding-class jobs are
// parked, not attempted.
type OpenAIBackend struct {
	fs   afero.Fs
	chat chatClient
	cfg  Config
	log  logger.Logger
}

// NewOpenAIBackend creates the backend over the local filesystem.
func NewOpenAIBackend(fs afero.Fs, cfg Config, log logger.Logger) *OpenAIBackend {
	if cfg.Model == "" {
		cfg.Model = DEF_OPENAI_MODEL
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DEF_MAX_OUTPUT_TOKENS
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = shiftlib.DefaultRetryConfig()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &OpenAIBackend{
		fs:   fs,
		chat: newOpenAIChat(cfg.APIKey, cfg.BaseURL),
		cfg:  cfg,
		log:  log,
	}
}

// Execute runs one job to a terminal status. Transient API errors are
// retried with backoff; a fatal error yields a failed result, not an
// error, so the loop can keep draining the queue.
func (b *OpenAIBackend) Execute(ctx context.Context, spec *shiftlib.JobSpec) (*Result, error) {
	if spec.Class == shiftlib.ClassDemanding {
		return &Result{
			Status: StatusParked,
			Reason: "demanding workload parked for a more capable backend",
		}, nil
	}

	source, err := b.readInputs(spec)
	if err != nil {
		return &Result{Status: StatusFailed, Reason: err.Error()}, nil
	}

	text, tokens, err := b.completeWithRetry(ctx, promptFor(spec), source)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		b.log.Error("job %s dispatch failed: %v", spec.JobID, err)
		return &Result{Status: StatusFailed, Reason: err.Error(), TokensUsed: tokens}, nil
	}

	if strings.TrimSpace(text) == validate.InsufficientEvidence {
		return &Result{
			Status:     StatusInsufficientEvidence,
			Success:    true,
			Reason:     "source material cannot support the requested output",
			TokensUsed: tokens,
		}, nil
	}

	outputs, err := b.writeOutputs(spec, text)
	if err != nil {
		return &Result{Status: StatusFailed, Reason: err.Error(), TokensUsed: tokens}, nil
	}
	return &Result{
		Status:     StatusCompleted,
		Success:    true,
		Outputs:    outputs,
		TokensUsed: tokens,
	}, nil
}

func (b *OpenAIBackend) completeWithRetry(ctx context.Context, system, user string) (string, int, error) {
	var state shiftlib.RetryState
	for {
		text, tokens, err := b.chat.complete(ctx, b.cfg.Model, system, user, b.cfg.MaxTokens)
		if err == nil {
			return text, tokens, nil
		}
		state.Attempts++
		state.LastError = err
		state.LastAttempt = time.Now()
		if !b.cfg.Retry.ShouldRetry(&state, err) {
			return "", 0, err
		}
		b.log.Warning("retrying after attempt %d: %v", state.Attempts, err)
		if werr := b.cfg.Retry.WaitForRetry(ctx, &state, shiftlib.ClassifyError(err)); werr != nil {
			return "", 0, werr
		}
	}
}

func (b *OpenAIBackend) readInputs(spec *shiftlib.JobSpec) (string, error) {
	var sb strings.Builder
	for _, in := range spec.Inputs {
		raw, err := afero.ReadFile(b.fs, in.Path)
		if err != nil {
			return "", fmt.Errorf("read input %s: %w", in.Path, err)
		}
		sb.Write(raw)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (b *OpenAIBackend) writeOutputs(spec *shiftlib.JobSpec, text string) ([]string, error) {
	paths := make([]string, 0, len(spec.Outputs))
	for _, out := range spec.Outputs {
		if err := b.fs.MkdirAll(filepath.Dir(out.Path), 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		if err := afero.WriteFile(b.fs, out.Path, []byte(text), 0644); err != nil {
			return nil, fmt.Errorf("write output %s: %w", out.Path, err)
		}
		paths = append(paths, out.Path)
	}
	return paths, nil
}

// promptFor builds the system prompt for a job type. Summary jobs are
// required to either cite their claims or emit the evidence sentinel so
// the citation gate has something to hold them to.
func promptFor(spec *shiftlib.JobSpec) string {
	switch spec.Type {
	case shiftlib.JobResearchReport:
		return "You are an overnight research assistant. Produce a structured research report " +
			"from the provided source material. Every claim must quote the source and name it. " +
			"If the material cannot support a report, reply with exactly INSUFFICIENT_EVIDENCE."
	case shiftlib.JobCodeStub:
		return "You are an overnight coding assistant. Produce a minimal, working source stub " +
			"for the described task. Output only code."
	default:
		return "You are an overnight summarization assistant. Summarize the provided source " +
			"material. Include at least three lines that quote the source and attribute it. " +
			"If the material cannot support a summary, reply with exactly INSUFFICIENT_EVIDENCE."
	}
}
