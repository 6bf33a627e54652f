package core

import (
	"strconv"
	"strings"

	"github.com/rushteam/ltr/pkg/utils"
)

// DefaultReRankDocs 是未指定窗口大小时的重排窗口。
const DefaultReRankDocs = 200

// QueryContext 承载单次查询的上下文，贯穿分片检索、重排、合并透传。
type QueryContext struct {
	QueryID string
	// Query 是底层检索引擎执行的原生查询
	Query string
	// Rows 是全局需要返回的条数
	Rows int

	// Rerank 为空表示不重排
	Rerank *RerankDirective

	// Params 是请求级外部特征信息（efi），特征表达式可通过 params.xxx 读取
	Params map[string]any

	Labels map[string]utils.Label
}

// Param 读取请求参数。
func (q *QueryContext) Param(key string) (any, bool) {
	if q == nil || q.Params == nil {
		return nil, false
	}
	v, ok := q.Params[key]
	return v, ok
}

// PutLabel 写入查询级 Label。
func (q *QueryContext) PutLabel(key string, lbl utils.Label) {
	if q.Labels == nil {
		q.Labels = make(map[string]utils.Label)
	}
	if old, ok := q.Labels[key]; ok {
		q.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	q.Labels[key] = lbl
}

// RerankDirective 是挂在查询上的重排指令。
type RerankDirective struct {
	Model          string
	ReRankDocs     int
	FeatureVectors bool
}

// Validate 校验指令。
func (d *RerankDirective) Validate() error {
	if d == nil {
		return nil
	}
	if d.Model == "" {
		return NewDomainError(ModuleRerank, ErrorCodeInvalidInput, "rerank: model is required")
	}
	if d.ReRankDocs <= 0 {
		return Errorf(ModuleRerank, ErrorCodeInvalidInput, "rerank: reRankDocs must be positive, got %d", d.ReRankDocs)
	}
	return nil
}

// ParseRerankDirective 解析局部参数形式的重排指令，例如：
//
//	{!ltr model=powpularityS-model reRankDocs=8 efi.user_query="foo bar"}
//
// efi.* 参数作为外部特征信息返回。未指定 reRankDocs 时使用 DefaultReRankDocs。
func ParseRerankDirective(s string) (*RerankDirective, map[string]any, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{!") || !strings.HasSuffix(s, "}") {
		return nil, nil, Errorf(ModuleRerank, ErrorCodeInvalidInput, "rerank: malformed directive %q", s)
	}
	tokens, err := splitLocalParams(s[2 : len(s)-1])
	if err != nil {
		return nil, nil, err
	}
	if len(tokens) == 0 {
		return nil, nil, Errorf(ModuleRerank, ErrorCodeInvalidInput, "rerank: empty directive %q", s)
	}

	d := &RerankDirective{ReRankDocs: DefaultReRankDocs}
	efi := make(map[string]any)
	parser := ""
	for i, tok := range tokens {
		key, val, hasVal := strings.Cut(tok, "=")
		if !hasVal {
			if i == 0 {
				parser = tok
				continue
			}
			return nil, nil, Errorf(ModuleRerank, ErrorCodeInvalidInput, "rerank: bad parameter %q", tok)
		}
		switch {
		case key == "type":
			parser = val
		case key == "model":
			d.Model = val
		case key == "reRankDocs":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, nil, Errorf(ModuleRerank, ErrorCodeInvalidInput, "rerank: reRankDocs %q: %w", val, err)
			}
			d.ReRankDocs = n
		case strings.HasPrefix(key, "efi."):
			efi[strings.TrimPrefix(key, "efi.")] = parseScalar(val)
		}
	}
	if parser != "ltr" {
		return nil, nil, Errorf(ModuleRerank, ErrorCodeInvalidInput, "rerank: unsupported parser %q", parser)
	}
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}
	return d, efi, nil
}

// WantsFeatureVector 判断字段列表中是否请求了特征向量转换器（如 "*,score,features:[fv]"）。
func WantsFeatureVector(fl string) bool {
	return strings.Contains(fl, "[fv]")
}

func splitLocalParams(s string) ([]string, error) {
	var (
		tokens []string
		cur    strings.Builder
		quote  rune
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
		case r == ' ' || r == '\t' || r == '\n':
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, Errorf(ModuleRerank, ErrorCodeInvalidInput, "rerank: unterminated quote in %q", s)
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

func parseScalar(v string) any {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
