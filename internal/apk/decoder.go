package apk

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/apk-analysis/apk-fingerprint-go/internal/manifest"
	"github.com/avast/apkparser"
)

// 常见命名空间 URI -> 前缀
var namespacePrefixes = map[string]string{
	"http://schemas.android.com/apk/res/android": "android",
	"http://schemas.android.com/apk/res-auto":    "app",
	"http://schemas.android.com/tools":           "tools",
}

// DecodeError 资源表或二进制 XML 解析失败
type DecodeError struct {
	Part string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Part, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode 解码二进制 AndroidManifest.xml 为元素树。
// resourceTable 可以为空，此时资源引用以 @<hex> 形式保留。
func Decode(resourceTable, manifestData []byte) (manifest.Element, error) {
	var resources *apkparser.ResourceTable
	if len(resourceTable) > 0 {
		res, err := apkparser.ParseResourceTable(bytes.NewReader(resourceTable))
		if err != nil {
			return nil, &DecodeError{Part: ResourcesEntry, Err: err}
		}
		resources = res
	}

	builder := &treeBuilder{}
	if err := apkparser.ParseXml(bytes.NewReader(manifestData), builder, resources); err != nil {
		return nil, &DecodeError{Part: ManifestEntry, Err: err}
	}

	root, err := builder.Root()
	if err != nil {
		return nil, &DecodeError{Part: ManifestEntry, Err: err}
	}
	return root, nil
}

// treeBuilder 实现 apkparser.ManifestEncoder，把 token 流组装成 manifest.Node 树
type treeBuilder struct {
	root  *manifest.Node
	stack []*manifest.Node
}

// EncodeToken 处理一个 XML token
func (b *treeBuilder) EncodeToken(t xml.Token) error {
	switch tok := t.(type) {
	case xml.StartElement:
		node := manifest.NewNode(tok.Name.Local, make(map[string]string, len(tok.Attr)))
		for _, attr := range tok.Attr {
			node.Attributes[attributeKey(attr.Name)] = attr.Value
		}

		if len(b.stack) == 0 {
			if b.root != nil {
				return fmt.Errorf("multiple root elements: %q", tok.Name.Local)
			}
			b.root = node
		} else {
			b.stack[len(b.stack)-1].Append(node)
		}
		b.stack = append(b.stack, node)

	case xml.EndElement:
		if len(b.stack) == 0 {
			return fmt.Errorf("unexpected end element %q", tok.Name.Local)
		}
		b.stack = b.stack[:len(b.stack)-1]
	}
	// 文本、注释等与提取无关，忽略
	return nil
}

// Flush 无缓冲
func (b *treeBuilder) Flush() error {
	return nil
}

// Root 返回根元素
func (b *treeBuilder) Root() (*manifest.Node, error) {
	if b.root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	if len(b.stack) != 0 {
		return nil, fmt.Errorf("unclosed element %q", b.stack[len(b.stack)-1].Name)
	}
	return b.root, nil
}

// attributeKey 把命名空间 URI 转换为 "prefix:local" 形式
func attributeKey(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	if prefix, ok := namespacePrefixes[name.Space]; ok {
		return prefix + ":" + name.Local
	}
	return name.Space + ":" + name.Local
}
