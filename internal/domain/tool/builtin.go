package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/handaas/patent-bigdata-mcp/internal/infra/handaas"
)

// Tool names exposed to agents.
const (
	ToolPatentSearch = "patent_bigdata_patent_search"
	ToolPatentStats  = "patent_bigdata_patent_stats"
	ToolFuzzySearch  = "patent_bigdata_fuzzy_search"
)

// Gateway product ids, one per tool.
const (
	ProductPatentSearch = "66b338e274bf098447db7f37"
	ProductPatentStats  = "66d5b7df537c3f61d646c230"
	ProductFuzzySearch  = "675cea1f0e009a9ea37edaa1"
)

const patentSearchDescription = `该接口的功能是提供专利信息的搜索服务，通过输入专利名称、申请号、申请人或代理机构等信息进行精准或模糊搜索，并按指定的专利类型进行筛选，返回符合条件的专利详细信息列表。适用于专利代理机构获取竞争对手的专利布局情况，研发人员查找特定领域的已有专利以规避侵权，或者企业在技术创新过程中进行专利情报分析。

返回参数:
- total: 总数 类型：int
- resultList: 结果列表 类型：list of dict
  - _id: 专利id 类型：string
  - calPatentLegalStatus: 专利状态 类型：string
  - patentAgency: 代理机构 类型：string
  - patentAgencyNameId: 代理机构id 类型：string
  - patentApplicantName: 申请人名称 类型：string
  - patentApplicantNameId: 申请人id 类型：string
  - patentApplicationDate: 专利申请日期 类型：string
  - patentApplicationNum: 专利申请号 类型：string
  - patentIPC: IPC分类号 类型：list of str
  - patentName: 专利名称 类型：string
  - patentPubNum: 专利公告号 类型：string
  - patentPubDate: 专利公告日期 类型：string
  - patentType: 专利类型 类型：string`

const patentStatsDescription = `该接口的功能是根据提供的企业信息查询企业的专利情况，包括专利状态分布、专利申请与授权趋势、以及按专利类型分布的专利数量等。可用于企业内部专利管理与分析、行业竞争态势研究、以及投资者评估企业创新能力和技术储备。

返回参数:
- patentDivAppLegalStat: 专利状态分布 类型：list of dict
  - patentCount: 专利数量 类型：int
  - patentDivAppLegal: 专利状态名称 类型：string
- patentTypeAppTimeStat: 专利申请趋势 类型：list of dict
  - year: 年份 类型：string
  - inventionAppPatentCount: 发明申请专利数量 类型：int
  - inventionLicPatentCount: 发明授权专利数量 类型：int
  - utilityModelPatentCount: 实用新型专利数量 类型：int
  - appearanceDesignPatentCount: 外观设计专利数量 类型：int
- patentTypePubTimeStat: 专利授权趋势 类型：list of dict（字段同上）
- patentTypeStat: 专利类型分布 类型：dict`

const fuzzySearchDescription = `该接口的功能是根据提供的企业名称、人名、品牌、产品、岗位等关键词模糊查询相关企业列表。返回匹配的企业列表及其详细信息，用于查找和识别特定的企业信息。

返回参数:
- total: 总数 类型：int
- resultList: 结果列表 类型：list of dict
  - name: 企业名称 类型：string
  - nameId: 企业id 类型：string
  - formerNames: 曾用名 类型：list of string
  - address: 注册地址 类型：string
  - foundTime: 成立时间 类型：string
  - enterpriseType: 企业主体类型 类型：string
  - legalRepresentative: 法定代表人 类型：string
  - legalRepresentativeId: 法定代表人id 类型：string
  - homepage: 企业官网 类型：string
  - operStatus: 企业状态 类型：string
  - logo: 企业logo 类型：string
  - annualTurnover: 年营业额 类型：string
  - prmtKeys: 推广关键词 类型：list of string
  - regCapitalCoinType: 注册资本币种 类型：string
  - regCapitalValue: 注册资本金额 类型：int
  - catchReason: 命中原因 类型：dict（name、formerNames、holderList、recruitingName、address、operBrandList、goodsNameList、phoneList、emailList、mobileList、patentNameList、certNameList、prmtKeys、socialCreditCode，均为 list of string）`

// ToolDefinition describes one tool: its name, gateway product id,
// human-readable description and JSON input schema.
type ToolDefinition struct {
	Name        string
	ProductID   string
	Description string
	InputSchema *jsonschema.Schema
}

// Definitions returns the three gateway tools in registration order.
func Definitions() ([]ToolDefinition, error) {
	search, err := inputSchema[PatentSearchParams](map[string]int{"pageSize": DefaultPatentSearchPageSize})
	if err != nil {
		return nil, err
	}
	stats, err := inputSchema[PatentStatsParams](nil)
	if err != nil {
		return nil, err
	}
	fuzzy, err := inputSchema[FuzzySearchParams](map[string]int{"pageIndex": DefaultFuzzySearchPageIndex})
	if err != nil {
		return nil, err
	}

	return []ToolDefinition{
		{Name: ToolPatentSearch, ProductID: ProductPatentSearch, Description: patentSearchDescription, InputSchema: search},
		{Name: ToolPatentStats, ProductID: ProductPatentStats, Description: patentStatsDescription, InputSchema: stats},
		{Name: ToolFuzzySearch, ProductID: ProductFuzzySearch, Description: fuzzySearchDescription, InputSchema: fuzzy},
	}, nil
}

// inputSchema infers the schema of T and records integer defaults on its properties.
func inputSchema[T any](defaults map[string]int) (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("infer schema for %T: %w", *new(T), err)
	}
	for name, v := range defaults {
		prop, ok := schema.Properties[name]
		if !ok {
			return nil, fmt.Errorf("infer schema for %T: no property %q", *new(T), name)
		}
		prop.Default = json.RawMessage(fmt.Sprint(v))
	}
	return schema, nil
}

// RegisterBuiltins installs the gateway tools into r, dispatching through svc.
func RegisterBuiltins(r *ToolRegistry, svc *Service) error {
	defs, err := Definitions()
	if err != nil {
		return err
	}

	executors := map[string]ToolExecutor{
		ToolPatentSearch: queryExecutor[PatentSearchParams]{run: svc.PatentSearch},
		ToolPatentStats:  queryExecutor[PatentStatsParams]{run: svc.PatentStats},
		ToolFuzzySearch:  queryExecutor[FuzzySearchParams]{run: svc.FuzzySearch},
	}
	for _, def := range defs {
		if err := r.Register(def, executors[def.Name]); err != nil {
			return fmt.Errorf("register %s: %w", def.Name, err)
		}
	}
	return nil
}

// queryExecutor adapts a typed Service method to the ToolExecutor contract.
type queryExecutor[P any] struct {
	run func(context.Context, P) handaas.Result
}

func (e queryExecutor[P]) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var in P
	if len(params) > 0 {
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrToolValidationFailed, err)
		}
	}
	return e.run(ctx, in).JSON(), nil
}
