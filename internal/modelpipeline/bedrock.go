package modelpipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"governedchat/internal/config"
)

// BedrockProvider calls AWS Bedrock's InvokeModel API against an Anthropic
// Claude model, the only model family wired, the governed pipeline makes
// at most one model call per request, so there is no need for the
// per-family branching a general-purpose router would carry.
type BedrockProvider struct {
	client  *bedrockruntime.Client
	modelID string
	timeout time.Duration
	enabled bool
}

// NewBedrockProvider builds a provider from the AWS SDK's default
// credential/region chain. If settings.BaseURL is set it overrides the
// resolved endpoint, which is how integration tests point this at a local
// Bedrock-compatible stub.
func NewBedrockProvider(ctx context.Context, settings config.ModelSettings) (*BedrockProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var opts []func(*bedrockruntime.Options)
	if settings.BaseURL != "" {
		opts = append(opts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(settings.BaseURL)
		})
	}

	return &BedrockProvider{
		client:  bedrockruntime.NewFromConfig(cfg, opts...),
		modelID: settings.Name,
		timeout: time.Duration(settings.TimeoutSeconds) * time.Second,
		enabled: settings.CallsEnabled,
	}, nil
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// promptWithContext prepends the request's bounded retrieval/memory
// fragments ahead of the user's own text, clearly labeled so the model
// never mistakes retrieved or remembered content for the user's words.
func promptWithContext(req *Request) string {
	if len(req.ContextBlocks) == 0 {
		return req.UserText
	}
	var b strings.Builder
	b.WriteString("Context (not from the user, for grounding only):\n")
	for _, block := range req.ContextBlocks {
		b.WriteString("- ")
		b.WriteString(block)
		b.WriteString("\n")
	}
	b.WriteString("\nUser message:\n")
	b.WriteString(req.UserText)
	return b.String()
}

func (p *BedrockProvider) Call(ctx context.Context, req *Request) (*RawResponse, error) {
	if !p.enabled {
		return nil, fmt.Errorf("bedrock calls disabled")
	}

	prompt := promptWithContext(req)
	if req.OutputFormat == FormatJSON {
		prompt = prompt + "\n\nRespond with a single flat JSON object only, no surrounding text."
	}

	body := anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        req.MaxOutputTokens,
		Messages:         []anthropicMessage{{Role: "user", Content: prompt}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal bedrock request: %w", err)
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	out, err := p.client.InvokeModel(callCtx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.modelID),
		Body:        payload,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock invoke model: %w", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal bedrock response: %w", err)
	}

	text := ""
	if len(resp.Content) > 0 {
		text = resp.Content[0].Text
	}
	return &RawResponse{
		Text:         text,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
