package model

import "time"

type TestCase struct {
	Name           string // 测试用例名称
	Method         string // HTTP方法
	Endpoint       string // 相对 baseURL 的路径，可带查询串
	ExpectedStatus int    // 期望状态码
	Body           any    // 请求体（可选），按 JSON 编码
	ExpectedCount  *int   // 期望返回数组长度（可选）
}

// ExpectCount 返回用于 TestCase.ExpectedCount 的指针
func ExpectCount(n int) *int {
	return &n
}

type TestResult struct {
	CaseNumber     int
	Name           string
	Success        bool
	Details        string
	Method         string // 本地校验结果为空
	Endpoint       string
	ExpectedStatus int
	ActualStatus   int
	RequestBody    string
	Duration       time.Duration
	RequestID      string
	Curl           string
}

// Summary 由 Runner 的计数器导出
type Summary struct {
	Run    int
	Passed int
}

func (s Summary) Failed() int {
	return s.Run - s.Passed
}

func (s Summary) AllPassed() bool {
	return s.Passed == s.Run
}

// Item 是市场商品的请求/响应结构
type Item struct {
	ID          any      `json:"id,omitempty"`
	Title       string   `json:"title"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Condition   string   `json:"condition"`
	Quantity    int      `json:"quantity"`
	Tags        []string `json:"tags"`
	Location    string   `json:"location"`
	CreatedAt   string   `json:"createdAt"`
}
