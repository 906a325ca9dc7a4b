package fingerprint

import (
	"fmt"
	"regexp"
)

// Rule 框架/SDK 指纹规则：命中任意一个路径模式即视为匹配
type Rule struct {
	Name     string   `json:"name" yaml:"name"`
	Patterns []string `json:"patterns" yaml:"patterns"`

	compiled []*regexp.Regexp
}

// NewRule 创建规则并编译路径模式（RE2 语法，非锚定搜索，大小写敏感）
func NewRule(name string, patterns ...string) (Rule, error) {
	if name == "" {
		return Rule{}, fmt.Errorf("rule name is required")
	}
	if len(patterns) == 0 {
		return Rule{}, fmt.Errorf("rule %q: at least one pattern is required", name)
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: invalid pattern %q: %w", name, p, err)
		}
		compiled = append(compiled, re)
	}

	return Rule{
		Name:     name,
		Patterns: append([]string(nil), patterns...),
		compiled: compiled,
	}, nil
}

// MustRule 内置规则使用，模式非法时 panic
func MustRule(name string, patterns ...string) Rule {
	r, err := NewRule(name, patterns...)
	if err != nil {
		panic(err)
	}
	return r
}

// Match 路径是否命中规则中的任意模式
func (r Rule) Match(path string) bool {
	for _, re := range r.compiled {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// DetectionResult 单条规则的检测结果
type DetectionResult struct {
	Name    string   `json:"name"`
	Matches []string `json:"matches"`
}

// FileNameSet APK 内全部条目路径
type FileNameSet map[string]struct{}

// NewFileNameSet 由条目名列表构造集合
func NewFileNameSet(names []string) FileNameSet {
	set := make(FileNameSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Contains 是否包含路径
func (s FileNameSet) Contains(path string) bool {
	_, ok := s[path]
	return ok
}
