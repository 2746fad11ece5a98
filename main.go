package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"marketplace_verifier/internal/config"
	"marketplace_verifier/internal/reporter"
	"marketplace_verifier/internal/runner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	logger.Info("开始执行接口测试", slog.String("base_url", cfg.BaseURL), slog.Duration("timeout", cfg.Timeout))

	r := runner.New(cfg, runner.WithLogger(logger))

	startTime := time.Now()
	passed := r.RunAll(context.Background())
	duration := time.Since(startTime)

	rep := reporter.New(cfg, os.Stdout)
	if _, err := rep.GenerateReport(r.Results(), r.Summary(), duration); err != nil {
		// 报告写入失败不影响测试结论
		logger.Error("生成报告失败", slog.Any("error", err))
	}

	if !passed {
		os.Exit(1)
	}
}
