package fingerprint

import (
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Engine 指纹匹配引擎
type Engine struct {
	workers int
	logger  *logrus.Logger
}

// NewEngine 创建匹配引擎。workers > 1 时规则并行评估，输出顺序不变。
func NewEngine(logger *logrus.Logger, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Engine{
		workers: workers,
		logger:  logger,
	}
}

// Scan 对文件集合评估规则表中的每条规则。
// 未命中的规则不产生结果；命中的路径按字节序排序。输出顺序与规则声明顺序一致。
// catalogue 为 nil 时使用内置规则。
func (e *Engine) Scan(files FileNameSet, catalogue *Catalogue) []DetectionResult {
	if catalogue == nil {
		catalogue = BuiltinCatalogue()
	}
	rules := catalogue.rules
	slots := make([]*DetectionResult, len(rules))

	if e.workers == 1 || len(rules) < 2 {
		for i, rule := range rules {
			slots[i] = matchRule(rule, files)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(e.workers)
		for i, rule := range rules {
			g.Go(func() error {
				// 每个 goroutine 只写自己的槽位
				slots[i] = matchRule(rule, files)
				return nil
			})
		}
		_ = g.Wait()
	}

	results := make([]DetectionResult, 0, len(rules))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}

	e.logger.WithFields(logrus.Fields{
		"files":    len(files),
		"rules":    len(rules),
		"detected": len(results),
	}).Debug("Fingerprint scan completed")

	return results
}

// matchRule 收集命中规则的全部路径，未命中返回 nil
func matchRule(rule Rule, files FileNameSet) *DetectionResult {
	var matches []string
	for path := range files {
		if rule.Match(path) {
			matches = append(matches, path)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.Strings(matches)
	return &DetectionResult{
		Name:    rule.Name,
		Matches: matches,
	}
}

// Detected 结果中是否包含指定框架
func Detected(results []DetectionResult, name string) bool {
	for _, r := range results {
		if r.Name == name {
			return true
		}
	}
	return false
}
