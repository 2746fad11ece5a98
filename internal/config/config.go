package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

const (
	DefaultFile              = "config.json"
	DefaultBaseURL           = "http://localhost:3001"
	DefaultTimeout           = 10 * time.Second
	DefaultExpectedItemCount = 15
	DefaultReportPath        = "marketplace_api_report.xlsx"
)

// 环境变量名
const (
	envBaseURL       = "MARKETPLACE_API_URL"
	envTimeout       = "MARKETPLACE_TIMEOUT"
	envExpectedItems = "MARKETPLACE_EXPECTED_ITEMS"
	envReportPath    = "MARKETPLACE_REPORT_PATH"
	envLogLevel      = "MARKETPLACE_LOG_LEVEL"
)

// 辅助结构体，用于 JSON 解析
type jsonConfig struct {
	BaseURL           string  `json:"base_url"`
	Timeout           string  `json:"timeout"`
	ExpectedItemCount int     `json:"expected_item_count"`
	ExistingItemID    string  `json:"existing_item_id"`
	MissingItemID     string  `json:"missing_item_id"`
	SearchQuery       string  `json:"search_query"`
	FilterCategory    string  `json:"filter_category"`
	PageLimit         int     `json:"page_limit"`
	ReportPath        *string `json:"report_path"` // 显式给空串表示不生成 Excel
	LogLevel          string  `json:"log_level"`
}

type Config struct {
	BaseURL           string
	Timeout           time.Duration
	ExpectedItemCount int // 夹具中的商品数量
	ExistingItemID    string
	MissingItemID     string
	SearchQuery       string
	FilterCategory    string
	PageLimit         int
	ReportPath        string
	LogLevel          slog.Level
}

func Default() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		Timeout:           DefaultTimeout,
		ExpectedItemCount: DefaultExpectedItemCount,
		ExistingItemID:    "1",
		MissingItemID:     "999",
		SearchQuery:       "brake",
		FilterCategory:    "Engine",
		PageLimit:         5,
		ReportPath:        DefaultReportPath,
		LogLevel:          slog.LevelInfo,
	}
}

// Load 读取工作目录下的 config.json 和 .env
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}
	return LoadFile(DefaultFile)
}

// LoadFile 在默认值之上依次应用配置文件和环境变量。文件不存在时只用默认值。
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.applyJSON(data); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	cfg.applyEnv()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

func (c *Config) applyJSON(data []byte) error {
	var jsonCfg jsonConfig
	if err := json.Unmarshal(data, &jsonCfg); err != nil {
		return err
	}

	if jsonCfg.BaseURL != "" {
		c.BaseURL = jsonCfg.BaseURL
	}
	if jsonCfg.Timeout != "" {
		c.Timeout = parseDuration(jsonCfg.Timeout, c.Timeout)
	}
	if jsonCfg.ExpectedItemCount > 0 {
		c.ExpectedItemCount = jsonCfg.ExpectedItemCount
	}
	if jsonCfg.ExistingItemID != "" {
		c.ExistingItemID = jsonCfg.ExistingItemID
	}
	if jsonCfg.MissingItemID != "" {
		c.MissingItemID = jsonCfg.MissingItemID
	}
	if jsonCfg.SearchQuery != "" {
		c.SearchQuery = jsonCfg.SearchQuery
	}
	if jsonCfg.FilterCategory != "" {
		c.FilterCategory = jsonCfg.FilterCategory
	}
	if jsonCfg.PageLimit > 0 {
		c.PageLimit = jsonCfg.PageLimit
	}
	if jsonCfg.ReportPath != nil {
		c.ReportPath = *jsonCfg.ReportPath
	}
	if jsonCfg.LogLevel != "" {
		c.LogLevel = parseLevel(jsonCfg.LogLevel, c.LogLevel)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(envTimeout); v != "" {
		c.Timeout = parseDuration(v, c.Timeout)
	}
	if v := os.Getenv(envExpectedItems); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.ExpectedItemCount = n
		}
	}
	if v, ok := os.LookupEnv(envReportPath); ok {
		c.ReportPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.LogLevel = parseLevel(v, c.LogLevel)
	}
}

// 非法或非正的时长使用默认值
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseLevel(s string, fallback slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return fallback
	}
	return level
}
