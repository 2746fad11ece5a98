package reporter

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"marketplace_verifier/internal/config"
	"marketplace_verifier/internal/model"
)

const (
	// Excel 相关
	defaultSheetName       = "Sheet1"
	defaultSheetNameFormat = "测试报告_%s"
	timeFormat             = "2006-01-02_15-04-05"
	minColumn              = 'A'
	defaultColumnWidth     = 16

	// 样式相关
	patternType    = "pattern"
	patternValue   = 1
	errorBgColor   = "FF5900"
	warningBgColor = "FFEB9C"

	// 时间阈值
	slowTestThreshold = 300 * time.Millisecond
)

// 表头定义
var excelHeaders = []string{
	"用例编号", "用例名称", "请求方法", "请求路径", "期望状态码",
	"实际状态码", "请求体", "测试结果", "耗时(ms)", "详情",
	"请求ID", "CURL命令",
}

type Reporter struct {
	config *config.Config
	out    io.Writer
	runID  string
	now    func() time.Time
}

func New(cfg *config.Config, out io.Writer) *Reporter {
	return &Reporter{
		config: cfg,
		out:    out,
		runID:  uuid.NewString(),
		now:    time.Now,
	}
}

// GenerateReport 输出控制台汇总，并在配置了报告路径时写入 Excel
func (r *Reporter) GenerateReport(results []model.TestResult, summary model.Summary, duration time.Duration) (string, error) {
	r.printConsoleReport(results, summary, duration)
	if r.config.ReportPath == "" {
		return "", nil
	}
	return r.generateExcelReport(results, summary, duration)
}

// generateExcelReport 返回新建的工作表名称
func (r *Reporter) generateExcelReport(results []model.TestResult, summary model.Summary, duration time.Duration) (string, error) {
	f, created, err := openOrCreate(r.config.ReportPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// 创建新的工作表
	sheetName := fmt.Sprintf(defaultSheetNameFormat, r.now().Format(timeFormat))
	if _, err := f.NewSheet(sheetName); err != nil {
		return "", fmt.Errorf("创建工作表失败: %w", err)
	}
	if created {
		if err := f.DeleteSheet(defaultSheetName); err != nil {
			return "", fmt.Errorf("删除默认工作表失败: %w", err)
		}
	}
	index, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return "", fmt.Errorf("定位工作表失败: %w", err)
	}
	f.SetActiveSheet(index)

	// 设置列宽
	lastColumn := string(rune(minColumn + len(excelHeaders) - 1))
	if err := f.SetColWidth(sheetName, string(minColumn), lastColumn, defaultColumnWidth); err != nil {
		return "", fmt.Errorf("设置列宽失败: %w", err)
	}

	// 写入表头
	for i, header := range excelHeaders {
		if err := f.SetCellValue(sheetName, cellName(i, 1), header); err != nil {
			return "", fmt.Errorf("写入表头失败: %w", err)
		}
	}

	styles, err := newRowStyles(f)
	if err != nil {
		return "", err
	}

	// 写入测试结果
	for i, result := range results {
		if err := writeTestResult(f, sheetName, i+2, result, styles); err != nil {
			return "", err
		}
	}

	// 写入汇总信息
	summaryRow := len(results) + 3
	if err := r.writeSummary(f, sheetName, summaryRow, summary, duration); err != nil {
		return "", err
	}

	if err := f.SaveAs(r.config.ReportPath); err != nil {
		return "", fmt.Errorf("保存报告失败: %w", err)
	}

	fmt.Fprintf(r.out, "测试报告已保存到 %s 的工作表: %s\n", r.config.ReportPath, sheetName)
	return sheetName, nil
}

// openOrCreate 打开已有报告，不存在时新建
func openOrCreate(path string) (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(path)
	if err == nil {
		return f, false, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	return nil, false, fmt.Errorf("打开Excel文件失败: %w", err)
}

type rowStyles struct {
	failed int
	slow   int
}

func newRowStyles(f *excelize.File) (rowStyles, error) {
	// 错误样式（红色背景）
	failed, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    patternType,
			Pattern: patternValue,
			Color:   []string{errorBgColor},
		},
	})
	if err != nil {
		return rowStyles{}, fmt.Errorf("创建样式失败: %w", err)
	}

	// 警告样式（黄色背景）
	slow, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    patternType,
			Pattern: patternValue,
			Color:   []string{warningBgColor},
		},
	})
	if err != nil {
		return rowStyles{}, fmt.Errorf("创建样式失败: %w", err)
	}
	return rowStyles{failed: failed, slow: slow}, nil
}

func writeTestResult(f *excelize.File, sheet string, row int, result model.TestResult, styles rowStyles) error {
	cells := []any{
		result.CaseNumber,
		result.Name,
		result.Method,
		result.Endpoint,
		statusCell(result.ExpectedStatus),
		statusCell(result.ActualStatus),
		result.RequestBody,
		result.Success,
		float64(result.Duration.Microseconds()) / 1000,
		result.Details,
		result.RequestID,
		result.Curl,
	}

	for i, value := range cells {
		if err := f.SetCellValue(sheet, cellName(i, row), value); err != nil {
			return fmt.Errorf("写入第%d行失败: %w", row, err)
		}
	}

	first, last := cellName(0, row), cellName(len(cells)-1, row)
	switch {
	case !result.Success:
		return f.SetCellStyle(sheet, first, last, styles.failed)
	case result.Duration > slowTestThreshold:
		return f.SetCellStyle(sheet, first, last, styles.slow)
	}
	return nil
}

func (r *Reporter) writeSummary(f *excelize.File, sheet string, startRow int, summary model.Summary, duration time.Duration) error {
	lines := []string{
		"测试汇总",
		fmt.Sprintf("运行ID: %s", r.runID),
		fmt.Sprintf("接口地址: %s", r.config.BaseURL),
		fmt.Sprintf("总执行时间: %.6fms", float64(duration.Microseconds())/1000),
		fmt.Sprintf("总用例数: %d", summary.Run),
		fmt.Sprintf("通过用例数: %d", summary.Passed),
		fmt.Sprintf("失败用例数: %d", summary.Failed()),
	}
	for i, line := range lines {
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", startRow+i), line); err != nil {
			return fmt.Errorf("写入汇总失败: %w", err)
		}
	}
	return nil
}

func (r *Reporter) printConsoleReport(results []model.TestResult, summary model.Summary, duration time.Duration) {
	fmt.Fprintf(r.out, "\n测试汇总\n")
	fmt.Fprintf(r.out, "总执行时间: %.6fms\n", float64(duration.Microseconds())/1000)
	fmt.Fprintf(r.out, "总用例数: %d\n", summary.Run)
	if summary.Failed() == 0 {
		fmt.Fprintf(r.out, "失败用例数: %d\n", 0)
		return
	}

	fmt.Fprintf(r.out, "\033[31m失败用例数: %d\033[0m\n", summary.Failed())
	for _, result := range results {
		if !result.Success {
			fmt.Fprintf(r.out, "  #%d %s: %s\n", result.CaseNumber, result.Name, result.Details)
		}
	}
}

func cellName(col, row int) string {
	return fmt.Sprintf("%c%d", minColumn+col, row)
}

// 本地校验没有状态码，留空
func statusCell(status int) any {
	if status == 0 {
		return ""
	}
	return status
}
