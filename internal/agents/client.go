package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/banking/kyc-service/internal/config"
	"github.com/banking/kyc-service/internal/document"
	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
	"github.com/banking/kyc-service/internal/risk"
)

// Gateway paths
const (
	routePath     = "/v1/supervisor/route"
	extractPath   = "/v1/documents/extract"
	analyzePath   = "/v1/documents/analyze"
	assessPath    = "/v1/risk/assess"
	knowledgePath = "/v1/knowledge/search"
)

const maxErrorBody = 512

// StatusError is returned for non-2xx gateway responses
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("agent gateway %s: status %d: %s", e.Path, e.Code, e.Body)
}

// ErrInvalidResponse marks a gateway answer that does not fit the expected shape
var ErrInvalidResponse = errors.New("invalid agent response")

// Client talks JSON over HTTP to the agent gateway. It implements the
// supervisor, extraction, analysis, oracle and knowledge ports. Deadlines
// come from the caller's context.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

// NewClient creates a new gateway client. httpClient may be nil.
func NewClient(cfg *config.AgentsConfig, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Transport: http.DefaultTransport}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
		log:     log.Named("agent_gateway"),
	}
}

var (
	_ document.TextExtractor = (*Client)(nil)
	_ document.Analyzer      = (*Client)(nil)
	_ risk.Oracle            = (*Client)(nil)
	_ risk.ContextRetriever  = (*Client)(nil)
)

// Route asks the supervisor which agent handles a task
func (c *Client) Route(ctx context.Context, req *domain.RoutingRequest) (*domain.RoutingDecision, error) {
	var out domain.RoutingDecision
	if err := c.post(ctx, routePath, req, &out); err != nil {
		return nil, err
	}
	if out.SelectedAgent == "" {
		return nil, fmt.Errorf("%w: routing decision without agent", ErrInvalidResponse)
	}
	return &out, nil
}

type extractRequest struct {
	DocumentType domain.DocumentType `json:"document_type"`
	Filename     string              `json:"filename"`
	ContentType  string              `json:"content_type"`
	Data         []byte              `json:"data"`
}

type extractResponse struct {
	Text string `json:"text"`
}

// ExtractText runs OCR / PDF text extraction on the raw document
func (c *Client) ExtractText(ctx context.Context, req *document.ExtractionRequest) (string, error) {
	var out extractResponse
	err := c.post(ctx, extractPath, &extractRequest{
		DocumentType: req.DocumentType,
		Filename:     req.Filename,
		ContentType:  req.ContentType,
		Data:         req.Data,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// AnalyzeDocument validates extracted text and reads its fields
func (c *Client) AnalyzeDocument(ctx context.Context, req *document.AnalysisRequest) (*domain.DocumentAnalysis, error) {
	var out domain.DocumentAnalysis
	if err := c.post(ctx, analyzePath, req, &out); err != nil {
		return nil, err
	}
	if out.OverallConfidence < 0 || out.OverallConfidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v out of range", ErrInvalidResponse, out.OverallConfidence)
	}
	return &out, nil
}

// AssessRisk asks the risk agent for its opinion. Opinions outside the
// four-level scale are rejected so the caller falls back.
func (c *Client) AssessRisk(ctx context.Context, req *risk.OracleRequest) (*domain.RiskAssessmentOpinion, error) {
	var out domain.RiskAssessmentOpinion
	if err := c.post(ctx, assessPath, req, &out); err != nil {
		return nil, err
	}
	switch out.RiskLevel {
	case domain.RiskLevelLow, domain.RiskLevelMedium, domain.RiskLevelHigh, domain.RiskLevelCritical:
	default:
		return nil, fmt.Errorf("%w: risk level %q", ErrInvalidResponse, out.RiskLevel)
	}
	for _, f := range out.Factors {
		switch f.Severity {
		case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh:
		default:
			return nil, fmt.Errorf("%w: factor severity %q", ErrInvalidResponse, f.Severity)
		}
	}
	return &out, nil
}

type knowledgeRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type knowledgeResponse struct {
	Passages []string `json:"passages"`
}

// RetrieveContext searches the regulatory knowledge base
func (c *Client) RetrieveContext(ctx context.Context, query string) (string, error) {
	var out knowledgeResponse
	if err := c.post(ctx, knowledgePath, &knowledgeRequest{Query: query, TopK: 3}, &out); err != nil {
		return "", err
	}
	return strings.Join(out.Passages, "\n\n"), nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("agent call",
		logger.StringField("path", path),
		logger.IntField("status", resp.StatusCode),
		logger.DurationField("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrInvalidResponse, path, err)
	}
	return nil
}
