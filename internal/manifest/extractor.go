package manifest

import (
	"errors"
	"fmt"
	"strconv"
)

// 提取时读取的标签和属性
const (
	TagManifest       = "manifest"
	TagUsesPermission = "uses-permission"
	TagApplication    = "application"
	TagActivity       = "activity"
	TagService        = "service"
	TagReceiver       = "receiver"
	TagProvider       = "provider"

	AttrPackage      = "package"
	AttrAPILevel     = "platformBuildVersionCode"
	AttrAndroidName  = "android:name"
	ManifestFileName = "AndroidManifest.xml"
)

// ErrMalformed 所有 MalformedError 都匹配该哨兵错误
var ErrMalformed = errors.New("malformed manifest")

// MalformedError 必需的标签/属性缺失或类型错误
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("AndroidManifest: malformed manifest: %s", e.Reason)
}

// Is 支持 errors.Is(err, ErrMalformed)
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

func malformed(reason string) error {
	return &MalformedError{Reason: reason}
}

// Summary 从 AndroidManifest.xml 提取的结构化信息
type Summary struct {
	PackageName string       `json:"package_name"`
	APILevel    uint8        `json:"api_level"`
	Permissions []Permission `json:"permissions"`
	Activities  []string     `json:"activities"`
	Services    []string     `json:"services"`
	Receivers   []string     `json:"receivers"`
	Providers   []string     `json:"providers"`
}

// HasPermission 是否申请了指定权限
func (s *Summary) HasPermission(p Permission) bool {
	for _, have := range s.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// addPermission 去重追加，保留首次出现的顺序
func (s *Summary) addPermission(p Permission) {
	if !s.HasPermission(p) {
		s.Permissions = append(s.Permissions, p)
	}
}

// Extract 从解码后的元素树提取 Summary。
// 只读取白名单内的标签，其它元素（intent-filter、meta-data 等）一律忽略；
// 任一必需字段缺失时整体失败，不返回部分结果。
func Extract(root Element) (*Summary, error) {
	if root == nil || root.Tag() != TagManifest {
		return nil, malformed("missing manifest tag")
	}

	pkg, ok := root.Attr(AttrPackage)
	if !ok || pkg == "" {
		return nil, malformed(AttrPackage)
	}

	rawLevel, ok := root.Attr(AttrAPILevel)
	if !ok {
		return nil, malformed(AttrAPILevel)
	}
	level, err := strconv.ParseUint(rawLevel, 10, 8)
	if err != nil {
		return nil, malformed(AttrAPILevel)
	}

	summary := &Summary{
		PackageName: pkg,
		APILevel:    uint8(level),
		Permissions: []Permission{},
		Activities:  []string{},
		Services:    []string{},
		Receivers:   []string{},
		Providers:   []string{},
	}

	for _, child := range root.Children() {
		switch child.Tag() {
		case TagUsesPermission:
			raw, ok := child.Attr(AttrAndroidName)
			if !ok {
				return nil, malformed(TagUsesPermission)
			}
			if p, ok := Normalize(raw); ok {
				summary.addPermission(p)
			}
		case TagApplication:
			if err := extractComponents(child, summary); err != nil {
				return nil, err
			}
		}
	}

	return summary, nil
}

// extractComponents 读取 application 下一层的四大组件
func extractComponents(app Element, summary *Summary) error {
	for _, c := range app.Children() {
		var target *[]string
		switch c.Tag() {
		case TagActivity:
			target = &summary.Activities
		case TagService:
			target = &summary.Services
		case TagReceiver:
			target = &summary.Receivers
		case TagProvider:
			target = &summary.Providers
		default:
			continue
		}

		name, ok := c.Attr(AttrAndroidName)
		if !ok {
			return malformed(c.Tag())
		}
		*target = append(*target, name)
	}
	return nil
}
