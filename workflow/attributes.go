package workflow

import (
	"strconv"
	"strings"
)

// Attributes 流程图节点上的扩展属性,编辑器导出的属性可能是json/yaml的原生类型,
// 也可能全部是字符串,读取的时候两种都兼容
type Attributes struct {
	data map[string]any
}

// NewAttributes 从 map 创建属性
func NewAttributes(m map[string]any) *Attributes {
	if m == nil {
		m = make(map[string]any)
	}
	return &Attributes{data: m}
}

// Get 获取值，支持嵌套路径
// 例如: Get("condition", "type") 获取 condition.type
func (a *Attributes) Get(keys ...string) (any, bool) {
	if a == nil || len(keys) == 0 {
		return nil, false
	}
	current := any(a.data)
	for _, key := range keys {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		val, exists := currentMap[key]
		if !exists {
			return nil, false
		}
		current = val
	}
	return current, true
}

// Has 路径存在并且值不是nil
func (a *Attributes) Has(keys ...string) bool {
	val, ok := a.Get(keys...)
	return ok && val != nil
}

// GetString 获取字符串值
func (a *Attributes) GetString(keys ...string) (string, bool) {
	val, ok := a.Get(keys...)
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetInt64 获取 int64 值, 字符串形式的数字也可以
func (a *Attributes) GetInt64(keys ...string) (int64, bool) {
	val, ok := a.Get(keys...)
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// GetBool 获取布尔值, "true"/"false" 字符串也可以
func (a *Attributes) GetBool(keys ...string) (bool, bool) {
	val, ok := a.Get(keys...)
	if !ok {
		return false, false
	}
	switch v := val.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}
