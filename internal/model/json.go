package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// scanJSON 从数据库列反序列化 JSON 值
// PostgreSQL jsonb 返回 []byte,SQLite(测试环境)返回 string
func scanJSON(src interface{}, dst interface{}) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T for JSON scan", src)
	}
}

// StepList 步骤定义列表,以 jsonb 存储
type StepList []Step

// Value 实现 driver.Valuer
func (l StepList) Value() (driver.Value, error) {
	if l == nil {
		l = StepList{}
	}
	return json.Marshal(l)
}

// Scan 实现 sql.Scanner
func (l *StepList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// IntSet 整数集合,以 jsonb 数组存储
type IntSet []int

// Value 实现 driver.Valuer
func (s IntSet) Value() (driver.Value, error) {
	if s == nil {
		s = IntSet{}
	}
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner
func (s *IntSet) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// Contains 判断集合中是否包含给定值
func (s IntSet) Contains(n int) bool {
	for _, v := range s {
		if v == n {
			return true
		}
	}
	return false
}

// Add 添加值,保持集合语义(重复添加无效果)
func (s IntSet) Add(n int) IntSet {
	if s.Contains(n) {
		return s
	}
	return append(s, n)
}

// StringSet 字符串集合,以 jsonb 数组存储
type StringSet []string

// Value 实现 driver.Valuer
func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		s = StringSet{}
	}
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner
func (s *StringSet) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// Contains 判断集合中是否包含给定值
func (s StringSet) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// Add 添加值,保持集合语义(重复添加无效果)
func (s StringSet) Add(v string) StringSet {
	if s.Contains(v) {
		return s
	}
	return append(s, v)
}

// Remove 移除值,值不存在时返回原集合
func (s StringSet) Remove(v string) StringSet {
	for i, item := range s {
		if item == v {
			return append(s[:i:i], s[i+1:]...)
		}
	}
	return s
}

// Metadata 任意键值元数据,以 jsonb 存储
type Metadata map[string]interface{}

// Value 实现 driver.Valuer
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		m = Metadata{}
	}
	return json.Marshal(m)
}

// Scan 实现 sql.Scanner
func (m *Metadata) Scan(src interface{}) error {
	return scanJSON(src, m)
}

// ErrInvalidJSONColumn JSON 列内容非法
var ErrInvalidJSONColumn = errors.New("invalid JSON column value")
