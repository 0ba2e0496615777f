package search

import (
	"context"
	"edu_copilot_backend/internal/config"
	"edu_copilot_backend/pkg/breaker"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Request 一次检索请求；Vector 非空时发起向量查询
type Request struct {
	Query  string
	Vector []float32
	Filter string
	Top    int
	Select []string
}

// Document 索引返回的原始文档，字段未经校验
type Document map[string]any

type searchResponse struct {
	Value []Document `json:"value"`
}

type vectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	Fields string    `json:"fields"`
	K      int       `json:"k"`
}

type searchBody struct {
	Search        string        `json:"search,omitempty"`
	Filter        string        `json:"filter,omitempty"`
	Top           int           `json:"top,omitempty"`
	Select        string        `json:"select,omitempty"`
	VectorQueries []vectorQuery `json:"vectorQueries,omitempty"`
}

type indexAction struct {
	Value []Document `json:"value"`
}

// Client Azure AI Search REST 客户端，带限流和熔断
type Client struct {
	http        *resty.Client
	apiVersion  string
	index       string
	vectorField string
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[any]
}

func NewClient(cfg config.AzureSearchConfig, bcfg config.BreakerConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetHeader("api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	vectorField := cfg.VectorField
	if vectorField == "" {
		vectorField = "embedding"
	}

	return &Client{
		http:        httpClient,
		apiVersion:  cfg.APIVersion,
		index:       cfg.ContentIndex,
		vectorField: vectorField,
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		breaker:     breaker.New("azure-search", bcfg),
	}
}

// ForIndex 返回指向另一个索引的客户端，共享连接、限流和熔断器
func (c *Client) ForIndex(index string) *Client {
	cp := *c
	cp.index = index
	return &cp
}

func (c *Client) Index() string {
	return c.index
}

func (c *Client) Search(ctx context.Context, req Request) ([]Document, error) {
	const op = "search"

	body := searchBody{
		Search: req.Query,
		Filter: req.Filter,
		Top:    req.Top,
	}
	if len(req.Select) > 0 {
		body.Select = strings.Join(req.Select, ",")
	}
	if len(req.Vector) > 0 {
		k := req.Top
		if k <= 0 {
			k = 10
		}
		body.VectorQueries = []vectorQuery{{
			Kind:   "vector",
			Vector: req.Vector,
			Fields: c.vectorField,
			K:      k,
		}}
	} else if body.Search == "" {
		body.Search = "*"
	}

	out, err := c.execute(ctx, op, func() (any, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("api-version", c.apiVersion).
			SetBody(body).
			Post("/indexes/" + url.PathEscape(c.index) + "/docs/search")
		if err != nil {
			return nil, transportError(ctx, op, err)
		}
		if resp.IsError() {
			return nil, opErr(op, OperationErrorStatus, resp.StatusCode(), truncate(resp.String(), 300), nil)
		}

		var result searchResponse
		if err := json.Unmarshal(resp.Body(), &result); err != nil {
			return nil, opErr(op, OperationErrorDecodeFailed, resp.StatusCode(), "", err)
		}
		return result.Value, nil
	})
	if err != nil {
		return nil, err
	}
	docs, _ := out.([]Document)
	return docs, nil
}

// Get 按主键读取文档，不存在时返回 ErrNotFound
func (c *Client) Get(ctx context.Context, key string) (Document, error) {
	const op = "get"
	if key == "" {
		return nil, opErr(op, OperationErrorValidation, 0, "empty key", nil)
	}

	out, err := c.execute(ctx, op, func() (any, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("api-version", c.apiVersion).
			Get("/indexes/" + url.PathEscape(c.index) + "/docs/" + url.PathEscape(key))
		if err != nil {
			return nil, transportError(ctx, op, err)
		}
		// 404 不计入熔断失败
		if resp.StatusCode() == http.StatusNotFound {
			return Document(nil), nil
		}
		if resp.IsError() {
			return nil, opErr(op, OperationErrorStatus, resp.StatusCode(), truncate(resp.String(), 300), nil)
		}

		var doc Document
		if err := json.Unmarshal(resp.Body(), &doc); err != nil {
			return nil, opErr(op, OperationErrorDecodeFailed, resp.StatusCode(), "", err)
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	doc, _ := out.(Document)
	if doc == nil {
		return nil, ErrNotFound
	}
	return doc, nil
}

// MergeOrUpload 写入或合并文档
func (c *Client) MergeOrUpload(ctx context.Context, docs []Document) error {
	const op = "merge_or_upload"
	if len(docs) == 0 {
		return nil
	}

	payload := indexAction{Value: make([]Document, 0, len(docs))}
	for _, d := range docs {
		action := Document{"@search.action": "mergeOrUpload"}
		for k, v := range d {
			action[k] = v
		}
		payload.Value = append(payload.Value, action)
	}

	_, err := c.execute(ctx, op, func() (any, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("api-version", c.apiVersion).
			SetBody(payload).
			Post("/indexes/" + url.PathEscape(c.index) + "/docs/index")
		if err != nil {
			return nil, transportError(ctx, op, err)
		}
		if resp.IsError() {
			return nil, opErr(op, OperationErrorStatus, resp.StatusCode(), truncate(resp.String(), 300), nil)
		}
		return nil, nil
	})
	return err
}

func (c *Client) execute(ctx context.Context, op string, fn func() (any, error)) (any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, opErr(op, OperationErrorTimeout, 0, "", err)
		}
		return nil, opErr(op, OperationErrorRateLimited, 0, "", err)
	}

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
