package manifest

import (
	"fmt"
	"regexp"
	"strconv"
)

// PermissionPrefix 平台权限前缀
const PermissionPrefix = "android.permission."

// permissionShape 只接受 android.permission.<UPPER_SNAKE_CASE>
var permissionShape = regexp.MustCompile(`^android\.permission\.([A-Z0-9_]+)$`)

// permissionByName 短名称 -> 枚举值，进程启动时构建
var permissionByName = func() map[string]Permission {
	m := make(map[string]Permission, len(permissionNames))
	for i, name := range permissionNames {
		m[name] = Permission(i)
	}
	return m
}()

// String 返回权限短名称（如 CAMERA）
func (p Permission) String() string {
	if p < permissionCount {
		return permissionNames[p]
	}
	return "Permission(" + strconv.Itoa(int(p)) + ")"
}

// FullName 返回完整的权限字符串（如 android.permission.CAMERA）
func (p Permission) FullName() string {
	return PermissionPrefix + p.String()
}

// Valid 是否为已知枚举成员
func (p Permission) Valid() bool {
	return p < permissionCount
}

// MarshalText 序列化为短名称
func (p Permission) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid permission value %d", uint16(p))
	}
	return []byte(permissionNames[p]), nil
}

// UnmarshalText 从短名称反序列化
func (p *Permission) UnmarshalText(text []byte) error {
	v, ok := ParsePermission(string(text))
	if !ok {
		return fmt.Errorf("unknown permission %q", string(text))
	}
	*p = v
	return nil
}

// ParsePermission 按短名称精确查找（大小写敏感）
func ParsePermission(name string) (Permission, bool) {
	p, ok := permissionByName[name]
	return p, ok
}

// Normalize 将 manifest 中的原始权限字符串映射为平台权限。
// 自定义权限、格式错误或大小写不符的字符串返回 false，调用方静默忽略即可。
func Normalize(raw string) (Permission, bool) {
	m := permissionShape.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	return ParsePermission(m[1])
}

// AllPermissions 返回全部已识别权限（声明顺序）
func AllPermissions() []Permission {
	all := make([]Permission, permissionCount)
	for i := range all {
		all[i] = Permission(i)
	}
	return all
}
