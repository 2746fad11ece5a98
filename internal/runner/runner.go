package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"marketplace_verifier/internal/config"
	"marketplace_verifier/internal/model"
)

const requestIDHeader = "X-Request-Id"

// Runner 按顺序执行接口用例并记录结果，不能并发使用
type Runner struct {
	config *config.Config
	client *http.Client
	logger *slog.Logger
	out    io.Writer

	testsRun    int
	testsPassed int
	results     []model.TestResult
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithOutput 设置逐条结果的输出位置，默认 stdout
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) { r.client = client }
}

func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: slog.Default(),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Results 返回按执行顺序排列的结果副本
func (r *Runner) Results() []model.TestResult {
	results := make([]model.TestResult, len(r.results))
	copy(results, r.results)
	return results
}

func (r *Runner) Summary() model.Summary {
	return model.Summary{Run: r.testsRun, Passed: r.testsPassed}
}

// record 追加一条结果并更新计数
func (r *Runner) record(result model.TestResult) {
	r.testsRun++
	if result.Success {
		r.testsPassed++
		fmt.Fprintf(r.out, "✅ %s\n", result.Name)
	} else {
		fmt.Fprintf(r.out, "❌ %s - %s\n", result.Name, result.Details)
	}

	result.CaseNumber = r.testsRun
	r.results = append(r.results, result)
}

// recordCheck 记录不发请求的本地校验
func (r *Runner) recordCheck(name string, success bool, details string) {
	if success {
		details = ""
	}
	r.record(model.TestResult{Name: name, Success: success, Details: details})
}

// RunTest 执行单个用例。请求失败只记录不返回错误；成功时返回解析后的 JSON 响应体
func (r *Runner) RunTest(ctx context.Context, tc model.TestCase) (bool, any) {
	result := model.TestResult{
		Name:           tc.Name,
		Method:         tc.Method,
		Endpoint:       tc.Endpoint,
		ExpectedStatus: tc.ExpectedStatus,
		RequestID:      uuid.NewString(),
	}

	req, err := r.newRequest(ctx, tc, &result)
	if err != nil {
		result.Details = fmt.Sprintf("创建请求失败: %v", err)
		r.record(result)
		return false, nil
	}

	start := time.Now()
	status, body, err := r.do(req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Details = fmt.Sprintf("Request failed: %v", err)
		r.logger.Warn("请求失败",
			slog.String("case", tc.Name),
			slog.String("request_id", result.RequestID),
			slog.Bool("timeout", isTimeout(err)),
			slog.Any("error", err))
		r.record(result)
		return false, nil
	}
	result.ActualStatus = status

	r.logger.Debug("请求完成",
		slog.String("case", tc.Name),
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.String("request_id", result.RequestID),
		slog.Int("status", status),
		slog.Duration("duration", result.Duration),
		slog.String("curl", result.Curl))

	result.Success = status == tc.ExpectedStatus
	details := fmt.Sprintf("Status: %d", status)

	var parsed any
	parseErr := json.Unmarshal(body, &parsed)

	if result.Success && tc.ExpectedCount != nil {
		switch items, isList := parsed.([]any); {
		case parseErr != nil:
			result.Success = false
			details += ", Failed to parse JSON response"
		case !isList:
			result.Success = false
			details += fmt.Sprintf(", Expected %d items, got a non-array JSON value", *tc.ExpectedCount)
		case len(items) != *tc.ExpectedCount:
			result.Success = false
			details += fmt.Sprintf(", Expected %d items, got %d", *tc.ExpectedCount, len(items))
		default:
			details += fmt.Sprintf(", Count: %d", len(items))
		}
	}

	if !result.Success {
		result.Details = details
	}
	r.record(result)

	if !result.Success || parseErr != nil {
		return result.Success, nil
	}
	return true, parsed
}

func (r *Runner) newRequest(ctx context.Context, tc model.TestCase, result *model.TestResult) (*http.Request, error) {
	url := r.config.BaseURL + "/" + strings.TrimLeft(tc.Endpoint, "/")

	var payload []byte
	if tc.Body != nil {
		var err error
		payload, err = json.Marshal(tc.Body)
		if err != nil {
			return nil, fmt.Errorf("编码请求体失败: %w", err)
		}
		result.RequestBody = string(payload)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, tc.Method, url, body)
	if err != nil {
		return nil, err
	}

	// 设置请求头
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, result.RequestID)

	result.Curl = toCurl(req, result.RequestBody)
	return req, nil
}

func (r *Runner) do(req *http.Request) (int, []byte, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("读取响应失败: %w", err)
	}
	return resp.StatusCode, body, nil
}

// toCurl 将请求转换为 curl 命令
func toCurl(req *http.Request, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "curl -X %s", req.Method)

	// 按固定顺序输出请求头，便于比对
	for _, key := range []string{"Content-Type", requestIDHeader} {
		if v := req.Header.Get(key); v != "" {
			fmt.Fprintf(&b, " -H '%s: %s'", key, v)
		}
	}

	if body != "" {
		fmt.Fprintf(&b, " -d '%s'", strings.ReplaceAll(body, "'", `'\''`))
	}

	fmt.Fprintf(&b, " '%s'", req.URL.String())
	return b.String()
}

// isTimeout 用于在日志里区分超时
func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
