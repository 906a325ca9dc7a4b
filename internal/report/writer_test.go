package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/apk-analysis/apk-fingerprint-go/internal/analyzer"
	"github.com/apk-analysis/apk-fingerprint-go/internal/fingerprint"
	"github.com/apk-analysis/apk-fingerprint-go/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(t *testing.T) *analyzer.Report {
	t.Helper()

	root := manifest.NewNode(manifest.TagManifest, map[string]string{
		manifest.AttrPackage:  "com.example.app",
		manifest.AttrAPILevel: "33",
	},
		manifest.NewNode(manifest.TagUsesPermission, map[string]string{manifest.AttrAndroidName: "android.permission.INTERNET"}),
		manifest.NewNode(manifest.TagUsesPermission, map[string]string{manifest.AttrAndroidName: "android.permission.CAMERA"}),
		manifest.NewNode(manifest.TagApplication, nil,
			manifest.NewNode(manifest.TagActivity, map[string]string{manifest.AttrAndroidName: "com.example.app.MainActivity"}),
			manifest.NewNode(manifest.TagService, map[string]string{manifest.AttrAndroidName: "com.example.app.SyncService"}),
		),
	)
	summary, err := manifest.Extract(root)
	require.NoError(t, err)

	return &analyzer.Report{
		APKInfo: summary,
		Results: []fingerprint.DetectionResult{
			{Name: fingerprint.RuleCordova, Matches: []string{"assets/www/cordova.js", "assets/www/cordova_plugins.js"}},
			{Name: fingerprint.RuleFlutter, Matches: []string{"lib/arm64-v8a/libflutter.so"}},
		},
	}
}

// TestWriteText 控制台输出格式
func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport(t)))

	expected := `========================================
[+] Package: com.example.app
[+] API level: 33
[+] Permissions:
INTERNET
CAMERA
[+] Activities:
com.example.app.MainActivity
[+] Services:
com.example.app.SyncService
[+] Receivers:
[+] Providers:
========================================
[+] Apache Cordova detected
[+] Files:
assets/www/cordova.js
assets/www/cordova_plugins.js
========================================
[+] Flutter detected
[+] Files:
lib/arm64-v8a/libflutter.so
`
	assert.Equal(t, expected, buf.String())
}

// TestWriteText_NoDetections 没有检测结果时只输出摘要
func TestWriteText_NoDetections(t *testing.T) {
	r := sampleReport(t)
	r.Results = []fingerprint.DetectionResult{}

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))
	assert.NotContains(t, buf.String(), "detected")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(separator)))
}

// TestWriteJSON 两个顶层成员，权限使用短名称
func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport(t)))

	expected := `{
		"apk_info": {
			"package_name": "com.example.app",
			"api_level": 33,
			"permissions": ["INTERNET", "CAMERA"],
			"activities": ["com.example.app.MainActivity"],
			"services": ["com.example.app.SyncService"],
			"receivers": [],
			"providers": []
		},
		"results": [
			{"name": "Apache Cordova", "matches": ["assets/www/cordova.js", "assets/www/cordova_plugins.js"]},
			{"name": "Flutter", "matches": ["lib/arm64-v8a/libflutter.so"]}
		]
	}`
	assert.JSONEq(t, expected, buf.String())
}

// TestWriteJSONFile 写入文件后可以读回
func TestWriteJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteJSONFile(path, sampleReport(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded analyzer.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "com.example.app", decoded.APKInfo.PackageName)
	assert.Equal(t, []manifest.Permission{manifest.PermissionInternet, manifest.PermissionCamera}, decoded.APKInfo.Permissions)
	assert.Len(t, decoded.Results, 2)
}

// TestWriteJSONFile_BadPath 目录不存在
func TestWriteJSONFile_BadPath(t *testing.T) {
	err := WriteJSONFile(filepath.Join(t.TempDir(), "missing", "report.json"), sampleReport(t))
	assert.Error(t, err)
}
