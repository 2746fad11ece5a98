// Package check 用 expr 表达式校验接口返回的集合。
package check

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// 集合校验表达式，items 为解码后的 JSON 数组
const (
	CategoryMatches = `all(items, {.category == expected})`
	PriceAscending  = `all(0..(len(items)-2), {(items[#].price ?? 0) <= (items[#+1].price ?? 0)})`
	PageBounded     = `len(items) <= limit`
)

// Eval 编译并执行布尔表达式
func Eval(expression string, env map[string]any) (bool, error) {
	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("编译表达式失败: %w", err)
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("执行表达式失败: %w", err)
	}

	ok, isBool := output.(bool)
	if !isBool {
		return false, fmt.Errorf("表达式结果不是 bool: %T", output)
	}
	return ok, nil
}

func CategoryAll(items []any, category string) (bool, error) {
	return Eval(CategoryMatches, map[string]any{"items": items, "expected": category})
}

// SortedByPrice 检查价格非递减，缺少 price 按 0 处理
func SortedByPrice(items []any) (bool, error) {
	if len(items) < 2 {
		return true, nil
	}
	return Eval(PriceAscending, map[string]any{"items": items})
}

func WithinLimit(items []any, limit int) (bool, error) {
	return Eval(PageBounded, map[string]any{"items": items, "limit": limit})
}
