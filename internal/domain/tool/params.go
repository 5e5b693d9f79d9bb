package tool

import (
	"reflect"
	"strings"
)

// Defaults applied when the caller leaves the argument unset.
const (
	DefaultPatentSearchPageSize = 10
	DefaultFuzzySearchPageIndex = 1
)

// PatentSearchParams are the arguments of patent_bigdata_patent_search.
type PatentSearchParams struct {
	MatchKeyword string  `json:"matchKeyword" jsonschema:"匹配关键词：专利名称/专利申请号/公布公告号/申请人/代理机构"`
	PageSize     *int    `json:"pageSize,omitempty" jsonschema:"分页大小，一页最多获取50条数据"`
	PatentType   *string `json:"patentType,omitempty" jsonschema:"专利类型：发明申请、实用新型、发明授权、外观设计"`
	KeywordType  *string `json:"keywordType,omitempty" jsonschema:"搜索方式：专利名称、申请号/公开号、申请人、代理机构，默认全部匹配"`
	PageIndex    *int    `json:"pageIndex,omitempty" jsonschema:"页码，从1开始"`
}

func (p *PatentSearchParams) applyDefaults() {
	if p.PageSize == nil {
		p.PageSize = intPtr(DefaultPatentSearchPageSize)
	}
}

// PatentStatsParams are the arguments of patent_bigdata_patent_stats.
type PatentStatsParams struct {
	MatchKeyword string  `json:"matchKeyword" jsonschema:"企业名称/注册号/统一社会信用代码/企业id，没有企业全称时先调用fuzzy_search获取企业全称"`
	KeywordType  *string `json:"keywordType,omitempty" jsonschema:"主体类型：name企业名称，nameId企业id，regNumber注册号，socialCreditCode统一社会信用代码"`
}

func (p *PatentStatsParams) applyDefaults() {}

// FuzzySearchParams are the arguments of patent_bigdata_fuzzy_search.
type FuzzySearchParams struct {
	MatchKeyword string `json:"matchKeyword" jsonschema:"匹配关键词：查询各类信息包含该关键词的企业"`
	PageIndex    *int   `json:"pageIndex,omitempty" jsonschema:"分页开始位置"`
	PageSize     *int   `json:"pageSize,omitempty" jsonschema:"分页结束位置，一页最多获取50条数据"`
}

func (p *FuzzySearchParams) applyDefaults() {
	if p.PageIndex == nil {
		p.PageIndex = intPtr(DefaultFuzzySearchPageIndex)
	}
}

func intPtr(v int) *int { return &v }

// Compact flattens a params struct (or a string-keyed map) into the mapping
// sent to the gateway. Entries whose value is a nil pointer, nil interface or
// nil map/slice are dropped, so the remote API never receives an explicit null.
// Struct keys follow the json tag name; fields tagged "-" are skipped.
func Compact(v any) map[string]any {
	out := map[string]any{}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return out
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			name := jsonName(field)
			if name == "-" {
				continue
			}
			if val, ok := presentValue(rv.Field(i)); ok {
				out[name] = val
			}
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return out
		}
		iter := rv.MapRange()
		for iter.Next() {
			if val, ok := presentValue(iter.Value()); ok {
				out[iter.Key().String()] = val
			}
		}
	}
	return out
}

// presentValue dereferences pointers and interfaces; ok is false for nil.
func presentValue(v reflect.Value) (any, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Invalid:
		return nil, false
	case reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil, false
		}
	}
	return v.Interface(), true
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}
