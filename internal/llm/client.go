package llm

import (
	"context"
	"edu_copilot_backend/internal/config"
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/pkg/breaker"
	"edu_copilot_backend/pkg/logger"
	"edu_copilot_backend/pkg/tracing"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type ChatCompletionRequest struct {
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type embeddingRequest struct {
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Client Azure OpenAI REST 客户端，提供向量化和对话补全
type Client struct {
	http      *resty.Client
	config    config.AzureOpenAIConfig
	breaker   *gobreaker.CircuitBreaker[any]
	dimension int
}

func NewClient(cfg config.AzureOpenAIConfig, bcfg config.BreakerConfig) *Client {
	retryWait := cfg.RetryWait
	if retryWait <= 0 {
		retryWait = time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetHeader("api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		}).
		AddRetryHook(func(r *resty.Response, err error) {
			if r == nil || r.Request == nil {
				return
			}
			logger.Log.Warn("OpenAI request retrying",
				zap.String("path", r.Request.URL),
				zap.Int("attempt", r.Request.Attempt),
				zap.Int("status", r.StatusCode()),
				zap.Error(err))
		})

	return &Client{
		http:      httpClient,
		config:    cfg,
		breaker:   breaker.New("azure-openai", bcfg),
		dimension: model.EmbeddingDimension,
	}
}

func (c *Client) deploymentPath(deployment, action string) string {
	return "/openai/deployments/" + url.PathEscape(deployment) + "/" + action
}

// Embed 将文本转换为定长向量
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	const op = "embed"
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, opErr(op, OperationErrorValidation, 0, "empty input", nil)
	}

	ctx, span := tracing.Tracer.Start(ctx, "openai.embed")
	defer span.End()

	out, err := c.execute(ctx, op, func() (any, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("api-version", c.config.APIVersion).
			SetBody(embeddingRequest{Input: text}).
			Post(c.deploymentPath(c.config.EmbeddingDeployment, "embeddings"))
		if err != nil {
			return nil, transportError(ctx, op, err)
		}
		if resp.IsError() {
			return nil, opErr(op, OperationErrorStatus, resp.StatusCode(), truncate(resp.String(), 300), nil)
		}

		var result embeddingResponse
		if err := json.Unmarshal(resp.Body(), &result); err != nil {
			return nil, opErr(op, OperationErrorDecodeFailed, resp.StatusCode(), "", err)
		}
		if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
			return nil, opErr(op, OperationErrorDecodeFailed, resp.StatusCode(), "no embedding in response", nil)
		}
		return result.Data[0].Embedding, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	vec, _ := out.([]float32)
	if c.dimension > 0 && len(vec) != c.dimension {
		return nil, opErr(op, OperationErrorValidation, 0, "unexpected embedding dimension", nil)
	}
	span.SetAttributes(attribute.Int("embedding.dimension", len(vec)))
	return vec, nil
}

// Complete 发起一次对话补全；jsonMode 时要求模型返回 JSON 对象
func (c *Client) Complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	const op = "complete"

	ctx, span := tracing.Tracer.Start(ctx, "openai.complete")
	defer span.End()

	req := ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.config.Temperature,
	}
	if jsonMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	out, err := c.execute(ctx, op, func() (any, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("api-version", c.config.APIVersion).
			SetBody(req).
			Post(c.deploymentPath(c.config.Deployment, "chat/completions"))
		if err != nil {
			return nil, transportError(ctx, op, err)
		}
		if resp.IsError() {
			return nil, opErr(op, OperationErrorStatus, resp.StatusCode(), truncate(resp.String(), 300), nil)
		}

		var result ChatCompletionResponse
		if err := json.Unmarshal(resp.Body(), &result); err != nil {
			return nil, opErr(op, OperationErrorDecodeFailed, resp.StatusCode(), "", err)
		}
		if result.Error != nil {
			return nil, opErr(op, OperationErrorStatus, resp.StatusCode(), result.Error.Message, nil)
		}
		if len(result.Choices) == 0 {
			return nil, opErr(op, OperationErrorDecodeFailed, resp.StatusCode(), "no choices in response", nil)
		}
		return result.Choices[0].Message.Content, nil
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	content, _ := out.(string)
	return content, nil
}

func (c *Client) execute(ctx context.Context, op string, fn func() (any, error)) (any, error) {
	out, err := c.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, opErr(op, OperationErrorCircuitOpen, 0, "", err)
	}
	return out, err
}

func transportError(ctx context.Context, op string, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded ||
		(errors.As(err, &ne) && ne.Timeout()) {
		return opErr(op, OperationErrorTimeout, 0, "", err)
	}
	return opErr(op, OperationErrorTransportFailed, 0, "", err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
