package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuiltinCatalogue 内置规则的名称和顺序
func TestBuiltinCatalogue(t *testing.T) {
	c := BuiltinCatalogue()
	assert.Equal(t, []string{
		RuleVKey, RuleReactNative, RuleKony, RuleRootBeer, RuleCordova, RuleFlutter, RuleXamarin,
	}, c.Names())
	assert.Equal(t, 7, c.Len())

	for _, r := range c.Rules() {
		assert.NotEmpty(t, r.Patterns, "rule %s", r.Name)
	}
}

// TestCatalogue_RulesIsCopy 返回副本，外部修改不影响规则表
func TestCatalogue_RulesIsCopy(t *testing.T) {
	c := BuiltinCatalogue()
	rules := c.Rules()
	rules[0] = MustRule("Tampered", `x`)

	assert.Equal(t, RuleVKey, c.Rules()[0].Name)
}

// TestNewRule_Errors 测试规则校验
func TestNewRule_Errors(t *testing.T) {
	_, err := NewRule("", `a`)
	assert.Error(t, err)

	_, err = NewRule("Empty")
	assert.Error(t, err)

	_, err = NewRule("Broken", `lib/(unclosed`)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")

	assert.Panics(t, func() { MustRule("Broken", `[`) })
}

// TestCatalogue_DuplicateName 规则名必须唯一
func TestCatalogue_DuplicateName(t *testing.T) {
	_, err := BuiltinCatalogue().Extend(MustRule(RuleFlutter, `libflutter`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	_, err = NewCatalogue(Rule{Name: "Raw", Patterns: []string{"x"}})
	assert.Error(t, err, "uncompiled rules are rejected")
}

// TestExtend_KeepsOriginal 扩展返回新表
func TestExtend_KeepsOriginal(t *testing.T) {
	extended, err := BuiltinCatalogue().Extend(MustRule("Unity", `libunity`))
	require.NoError(t, err)

	assert.Equal(t, 8, extended.Len())
	assert.Equal(t, 7, BuiltinCatalogue().Len())
}

// TestParseRules 测试 YAML 规则解析
func TestParseRules(t *testing.T) {
	data := []byte(`
rules:
  - name: Unity
    patterns:
      - lib/.*/libunity\.so
      - assets/bin/Data/Managed/
  - name: Ionic
    patterns:
      - assets/public/cordova\.js
`)

	rules, err := ParseRules(data)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "Unity", rules[0].Name)
	assert.Equal(t, []string{`lib/.*/libunity\.so`, "assets/bin/Data/Managed/"}, rules[0].Patterns)
	assert.True(t, rules[0].Match("lib/arm64-v8a/libunity.so"))
	assert.True(t, rules[1].Match("assets/public/cordova.js"))
}

// TestParseRules_Invalid 非法规则文件
func TestParseRules_Invalid(t *testing.T) {
	_, err := ParseRules([]byte("rules: [unclosed"))
	assert.Error(t, err)

	_, err = ParseRules([]byte("rules:\n  - name: NoPatterns\n"))
	assert.Error(t, err)

	_, err = ParseRules([]byte("rules:\n  - name: Bad\n    patterns: ['(']\n"))
	assert.Error(t, err)
}

// TestLoadCatalogue 内置规则 + 外部文件
func TestLoadCatalogue(t *testing.T) {
	c, err := LoadCatalogue("")
	require.NoError(t, err)
	assert.Same(t, BuiltinCatalogue(), c)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - name: Unity\n    patterns: ['libunity']\n"), 0644))

	c, err = LoadCatalogue(path)
	require.NoError(t, err)
	assert.Equal(t, "Unity", c.Names()[c.Len()-1])

	_, err = LoadCatalogue(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestShippedRuleFiles configs/rules 下的规则文件都能加载
func TestShippedRuleFiles(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "configs", "rules", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		c, err := LoadCatalogue(f)
		require.NoError(t, err, f)
		assert.Greater(t, c.Len(), BuiltinCatalogue().Len(), f)
	}
}

func TestPackerRules(t *testing.T) {
	rules, err := LoadRulesFile(filepath.Join("..", "..", "configs", "rules", "packers.yaml"))
	require.NoError(t, err)

	byName := make(map[string]Rule, len(rules))
	for _, r := range rules {
		byName[r.Name] = r
	}

	assert.True(t, byName["360加固"].Match("lib/armeabi-v7a/libjiagu.so"))
	assert.True(t, byName["360加固"].Match("assets/libjiagu_a64.so"))
	assert.True(t, byName["腾讯乐固"].Match("lib/arm64-v8a/libshellx-2.10.3.4.so"))
	assert.True(t, byName["梆梆加固"].Match("lib/x86/libDexHelper-x86.so"))
	assert.False(t, byName["梆梆加固"].Match("lib/x86/libDexHelper.so.bak"))
	assert.False(t, byName["爱加密"].Match("lib/arm64-v8a/libexecutor.so"))
}
