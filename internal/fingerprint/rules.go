package fingerprint

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// 内置规则名称
const (
	RuleVKey        = "V-Key"
	RuleReactNative = "React Native"
	RuleKony        = "Kony Visualizer"
	RuleRootBeer    = "RootBeer Root Detection"
	RuleCordova     = "Apache Cordova"
	RuleFlutter     = "Flutter"
	RuleXamarin     = "Xamarin"
)

// Catalogue 有序、不可变的规则表
type Catalogue struct {
	rules []Rule
}

// NewCatalogue 创建规则表，规则名必须唯一
func NewCatalogue(rules ...Rule) (*Catalogue, error) {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if len(r.compiled) == 0 {
			return nil, fmt.Errorf("rule %q is not compiled, build it with NewRule", r.Name)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("duplicate rule name %q", r.Name)
		}
		seen[r.Name] = true
	}
	return &Catalogue{rules: append([]Rule(nil), rules...)}, nil
}

// Rules 按声明顺序返回规则副本
func (c *Catalogue) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Len 规则数量
func (c *Catalogue) Len() int {
	return len(c.rules)
}

// Names 规则名称（声明顺序）
func (c *Catalogue) Names() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// Extend 追加规则，返回新的规则表，原表不变
func (c *Catalogue) Extend(rules ...Rule) (*Catalogue, error) {
	all := make([]Rule, 0, len(c.rules)+len(rules))
	all = append(all, c.rules...)
	all = append(all, rules...)
	return NewCatalogue(all...)
}

var builtin = func() *Catalogue {
	c, err := NewCatalogue(
		// 设备绑定 / 防篡改
		MustRule(RuleVKey,
			`lib/.*/libchecks.so`,
			`lib/.*/libvtap.so`,
			`lib/.*/libvosWrapperEx.so`,
			`assets/vkeylicensepack`,
			`assets/vkeylicensepack.json`,
		),
		MustRule(RuleReactNative,
			`lib/.*/libreactnativejni.so`,
			`assets/index.android.bundle`,
			`assets/index.android.bundle.meta`,
		),
		// 低代码平台
		MustRule(RuleKony,
			`lib/.*/libkonyjsvm.so`,
			`assets/js/common-jslibs.kfm`,
			`assets/js/startup.js`,
			`assets/application.properties`,
			`assets/pluginversions.properties`,
			`assets/konyappluabytecode.o.mp3`,
		),
		MustRule(RuleRootBeer,
			`lib/.*/libtool-checker.so`,
		),
		// Hybrid Web 容器
		MustRule(RuleCordova,
			`assets/www/cordova\.js`,
			`assets/www/cordova_plugins\.js`,
		),
		MustRule(RuleFlutter,
			`lib/.*/libflutter.so`,
		),
		MustRule(RuleXamarin,
			`lib/.*/libxamarin-app.so`,
			`lib/.*/libmono-native.so`,
		),
	)
	if err != nil {
		panic(err)
	}
	return c
}()

// BuiltinCatalogue 内置规则表（进程内共享，只读）
func BuiltinCatalogue() *Catalogue {
	return builtin
}

// rulesFile 外部规则文件格式
type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRulesFile 从 YAML 文件读取额外规则
//
//	rules:
//	  - name: Unity
//	    patterns:
//	      - lib/.*/libunity.so
func LoadRulesFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules 解析 YAML 规则定义
func ParseRules(data []byte) ([]Rule, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	rules := make([]Rule, 0, len(file.Rules))
	for _, raw := range file.Rules {
		r, err := NewRule(raw.Name, raw.Patterns...)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// LoadCatalogue 内置规则 + 可选的外部规则文件
func LoadCatalogue(extraRulesPath string) (*Catalogue, error) {
	if extraRulesPath == "" {
		return BuiltinCatalogue(), nil
	}
	extra, err := LoadRulesFile(extraRulesPath)
	if err != nil {
		return nil, err
	}
	return BuiltinCatalogue().Extend(extra...)
}
