package planner

import (
	"context"
	"text/template"
	"time"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"github.com/trezcool/devpath/core"
	"github.com/trezcool/devpath/core/plan"
)

type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Pricing     Pricing
}

func NewOptions(conf *core.Config) (Options, error) {
	pricing, err := NewPricing(conf.Planner.InputPricePer1K, conf.Planner.OutputPricePer1K)
	if err != nil {
		return Options{}, errors.Wrap(err, "loading planner pricing")
	}
	return Options{
		APIKey:      conf.Planner.APIKey,
		BaseURL:     conf.Planner.BaseURL,
		Model:       conf.Planner.Model,
		Temperature: float32(conf.Planner.Temperature),
		MaxTokens:   conf.Planner.MaxTokens,
		Timeout:     conf.Planner.Timeout,
		Pricing:     pricing,
	}, nil
}

// Generator drafts plans with an OpenAI compatible chat completion API.
type Generator struct {
	client *openai.Client
	opts   Options
	prompt *template.Template
	logger core.Logger
}

var _ plan.Generator = (*Generator)(nil) // interface compliance check

func NewGenerator(opts Options, logger core.Logger) (*Generator, error) {
	if opts.APIKey == "" {
		return nil, errors.New("planner API key is required")
	}
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	tmpl, err := newPromptTemplate()
	if err != nil {
		return nil, err
	}
	return &Generator{
		client: openai.NewClientWithConfig(config),
		opts:   opts,
		prompt: tmpl,
		logger: logger,
	}, nil
}

// Generate asks the model for a plan. Every failure is a *core.GenerationError.
func (g *Generator) Generate(ctx context.Context, prompt string) (plan.Plan, decimal.Decimal, error) {
	fail := func(err error, msg string) (plan.Plan, decimal.Decimal, error) {
		return plan.Plan{}, decimal.Zero, core.NewGenerationError(errors.Wrap(err, msg))
	}

	input, err := renderPrompt(g.prompt, prompt)
	if err != nil {
		return fail(err, "building prompt")
	}

	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: input},
		},
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return fail(err, "calling chat completion")
	}
	if len(resp.Choices) == 0 {
		return fail(errors.New("no choices in response"), "reading chat completion")
	}

	output := resp.Choices[0].Message.Content
	content := []byte(stripFences(output))
	if err = validateDraft(content); err != nil {
		return fail(err, "validating plan")
	}
	d, err := parseDraft(content)
	if err != nil {
		return fail(err, "parsing plan")
	}

	p := d.normalize(g.logger)
	if len(p.Milestones) == 0 {
		return fail(errors.New("no milestone with usable steps"), "normalizing plan")
	}

	inputUnits, outputUnits := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	if inputUnits == 0 && outputUnits == 0 {
		inputUnits, outputUnits = EstimateUnits(input), EstimateUnits(output)
	}
	return p, g.opts.Pricing.Cost(inputUnits, outputUnits), nil
}
