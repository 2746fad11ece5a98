package runner

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketplace_verifier/internal/check"
	"marketplace_verifier/internal/model"
)

const itemsEndpoint = "items"

// 用例名称
const (
	nameGetAll          = "GET All Items"
	nameGetByID         = "GET Item by ID"
	nameGetMissing      = "GET Non-existent Item"
	nameCreate          = "POST Create Item"
	nameUpdate          = "PUT Update Item"
	nameDelete          = "DELETE Item"
	nameSearch          = "Search by Title"
	nameFilter          = "Filter by Category"
	nameFilterCheck     = "Category Filter Validation"
	nameSort            = "Sort by Price"
	nameSortCheck       = "Price Sort Validation"
	namePagination      = "Pagination Test"
	namePaginationCheck = "Pagination Validation"
)

var banner = strings.Repeat("=", 50)

// RunAll 按固定顺序执行全部场景，前面的失败不会中断后续场景
func (r *Runner) RunAll(ctx context.Context) bool {
	fmt.Fprintln(r.out, "🚀 开始测试 Marketplace API...")
	fmt.Fprintln(r.out, banner)

	r.GetAllItems(ctx)
	r.GetItemByID(ctx)
	r.GetMissingItem(ctx)

	r.CreateItem(ctx)
	r.UpdateItem(ctx)
	r.DeleteItem(ctx)

	r.SearchItems(ctx)
	r.FilterByCategory(ctx)
	r.SortByPrice(ctx)
	r.Paginate(ctx)

	summary := r.Summary()
	fmt.Fprintln(r.out, "\n"+banner)
	fmt.Fprintf(r.out, "📊 测试结果: %d/%d 通过\n", summary.Passed, summary.Run)
	if summary.AllPassed() {
		fmt.Fprintln(r.out, "🎉 全部测试通过!")
		return true
	}
	fmt.Fprintln(r.out, "⚠️  部分测试失败!")
	return false
}

func (r *Runner) GetAllItems(ctx context.Context) bool {
	ok, _ := r.RunTest(ctx, model.TestCase{
		Name:           nameGetAll,
		Method:         http.MethodGet,
		Endpoint:       itemsEndpoint,
		ExpectedStatus: http.StatusOK,
		ExpectedCount:  model.ExpectCount(r.config.ExpectedItemCount),
	})
	return ok
}

func (r *Runner) GetItemByID(ctx context.Context) bool {
	ok, _ := r.RunTest(ctx, model.TestCase{
		Name:           nameGetByID,
		Method:         http.MethodGet,
		Endpoint:       itemPath(r.config.ExistingItemID),
		ExpectedStatus: http.StatusOK,
	})
	return ok
}

func (r *Runner) GetMissingItem(ctx context.Context) bool {
	ok, _ := r.RunTest(ctx, model.TestCase{
		Name:           nameGetMissing,
		Method:         http.MethodGet,
		Endpoint:       itemPath(r.config.MissingItemID),
		ExpectedStatus: http.StatusNotFound,
	})
	return ok
}

// CreateItem 创建一个测试商品，成功时返回服务端回显的对象
func (r *Runner) CreateItem(ctx context.Context) (bool, map[string]any) {
	ok, body := r.RunTest(ctx, model.TestCase{
		Name:           nameCreate,
		Method:         http.MethodPost,
		Endpoint:       itemsEndpoint,
		ExpectedStatus: http.StatusCreated,
		Body:           newTestItem(),
	})
	created, _ := body.(map[string]any)
	return ok, created
}

// UpdateItem 依赖 CreateItem：先创建再更新同一个商品
func (r *Runner) UpdateItem(ctx context.Context) bool {
	ok, created := r.CreateItem(ctx)
	if !ok {
		r.recordCheck(nameUpdate, false, "Failed to create item for update test")
		return false
	}
	id, hasID := itemID(created)
	if !hasID {
		r.recordCheck(nameUpdate, false, "No ID returned from created item")
		return false
	}

	updated := updatedTestItem()
	if createdAt, isString := created["createdAt"].(string); isString && createdAt != "" {
		updated.CreatedAt = createdAt
	}

	ok, _ = r.RunTest(ctx, model.TestCase{
		Name:           nameUpdate,
		Method:         http.MethodPut,
		Endpoint:       itemPath(id),
		ExpectedStatus: http.StatusOK,
		Body:           updated,
	})
	return ok
}

// DeleteItem 依赖 CreateItem：删除刚创建的商品
func (r *Runner) DeleteItem(ctx context.Context) bool {
	ok, created := r.CreateItem(ctx)
	if !ok {
		r.recordCheck(nameDelete, false, "Failed to create item for delete test")
		return false
	}
	id, hasID := itemID(created)
	if !hasID {
		r.recordCheck(nameDelete, false, "No ID returned from created item")
		return false
	}

	ok, _ = r.RunTest(ctx, model.TestCase{
		Name:           nameDelete,
		Method:         http.MethodDelete,
		Endpoint:       itemPath(id),
		ExpectedStatus: http.StatusOK,
	})
	return ok
}

// SearchItems 只校验状态码
func (r *Runner) SearchItems(ctx context.Context) bool {
	ok, _ := r.RunTest(ctx, model.TestCase{
		Name:           nameSearch,
		Method:         http.MethodGet,
		Endpoint:       itemsQuery(url.Values{"q": {r.config.SearchQuery}}),
		ExpectedStatus: http.StatusOK,
	})
	return ok
}

func (r *Runner) FilterByCategory(ctx context.Context) bool {
	category := r.config.FilterCategory
	ok, body := r.RunTest(ctx, model.TestCase{
		Name:           nameFilter,
		Method:         http.MethodGet,
		Endpoint:       itemsQuery(url.Values{"category": {category}}),
		ExpectedStatus: http.StatusOK,
	})
	if !ok || isEmpty(body) {
		return ok
	}

	items, isList := body.([]any)
	if !isList {
		r.recordCheck(nameFilterCheck, false, "Response is not a JSON array")
		return false
	}
	matched, err := check.CategoryAll(items, category)
	switch {
	case err != nil:
		r.recordCheck(nameFilterCheck, false, err.Error())
		return false
	case !matched:
		r.recordCheck(nameFilterCheck, false, fmt.Sprintf("Some items don't match %s category", category))
		return false
	}
	r.recordCheck(nameFilterCheck, true, "")
	return true
}

func (r *Runner) SortByPrice(ctx context.Context) bool {
	ok, body := r.RunTest(ctx, model.TestCase{
		Name:           nameSort,
		Method:         http.MethodGet,
		Endpoint:       itemsQuery(url.Values{"_sort": {"price"}, "_order": {"asc"}}),
		ExpectedStatus: http.StatusOK,
	})
	if !ok || isEmpty(body) {
		return ok
	}

	items, isList := body.([]any)
	if !isList {
		r.recordCheck(nameSortCheck, false, "Response is not a JSON array")
		return false
	}
	// 少于两个元素时无需校验顺序
	if len(items) < 2 {
		return true
	}
	sorted, err := check.SortedByPrice(items)
	switch {
	case err != nil:
		r.recordCheck(nameSortCheck, false, err.Error())
		return false
	case !sorted:
		r.recordCheck(nameSortCheck, false, "Items not sorted by price")
		return false
	}
	r.recordCheck(nameSortCheck, true, "")
	return true
}

func (r *Runner) Paginate(ctx context.Context) bool {
	limit := r.config.PageLimit
	ok, body := r.RunTest(ctx, model.TestCase{
		Name:           namePagination,
		Method:         http.MethodGet,
		Endpoint:       itemsQuery(url.Values{"_page": {"1"}, "_limit": {strconv.Itoa(limit)}}),
		ExpectedStatus: http.StatusOK,
	})
	if !ok || isEmpty(body) {
		return ok
	}

	items, isList := body.([]any)
	if !isList {
		r.recordCheck(namePaginationCheck, false, "Response is not a JSON array")
		return false
	}
	within, err := check.WithinLimit(items, limit)
	switch {
	case err != nil:
		r.recordCheck(namePaginationCheck, false, err.Error())
		return false
	case !within:
		r.recordCheck(namePaginationCheck, false, fmt.Sprintf("Expected max %d items, got %d", limit, len(items)))
		return false
	}
	r.recordCheck(namePaginationCheck, true, "")
	return true
}

func itemPath(id string) string {
	return itemsEndpoint + "/" + url.PathEscape(id)
}

// itemsQuery 拼接查询串，参数按键名排序
func itemsQuery(params url.Values) string {
	return itemsEndpoint + "?" + params.Encode()
}

// isEmpty 对应空响应：nil、空数组或空对象
func isEmpty(body any) bool {
	switch v := body.(type) {
	case nil:
		return true
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case string:
		return v == ""
	}
	return false
}

// itemID 取出服务端生成的 id，数字 id 去掉小数部分
func itemID(created map[string]any) (string, bool) {
	switch v := created["id"].(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}

func newTestItem() model.Item {
	return model.Item{
		Title:       "Test Brake Caliper",
		Price:       199.99,
		Category:    "Brakes",
		Description: "High-performance brake caliper for testing purposes. This description is longer than 10 characters.",
		Image:       "https://example.com/test-image.jpg",
		Condition:   "new",
		Quantity:    5,
		Tags:        []string{"test", "brakes"},
		Location:    "Test City, TS",
		CreatedAt:   time.Now().Format(time.RFC3339),
	}
}

func updatedTestItem() model.Item {
	return model.Item{
		Title:       "Updated Test Item",
		Price:       299.99,
		Category:    "Engine",
		Description: "Updated description for testing purposes. This is definitely longer than 10 characters.",
		Image:       "https://example.com/updated-image.jpg",
		Condition:   "used",
		Quantity:    3,
		Tags:        []string{"updated", "test"},
		Location:    "Updated City, UC",
		CreatedAt:   time.Now().Format(time.RFC3339),
	}
}
