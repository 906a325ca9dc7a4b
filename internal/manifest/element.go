package manifest

// Element 已解码的二进制 XML 元素（只读）。
// 属性键保留命名空间前缀并区分大小写，如 "android:name"。
type Element interface {
	Tag() string
	Attr(key string) (string, bool)
	Children() []Element
}

// Node Element 的默认实现，由解码器和测试构造
type Node struct {
	Name       string
	Attributes map[string]string
	Nodes      []*Node
}

// NewNode 创建元素节点
func NewNode(tag string, attrs map[string]string, children ...*Node) *Node {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &Node{Name: tag, Attributes: attrs, Nodes: children}
}

// Tag 标签名
func (n *Node) Tag() string {
	return n.Name
}

// Attr 读取属性
func (n *Node) Attr(key string) (string, bool) {
	v, ok := n.Attributes[key]
	return v, ok
}

// Children 子元素（声明顺序）
func (n *Node) Children() []Element {
	children := make([]Element, len(n.Nodes))
	for i, c := range n.Nodes {
		children[i] = c
	}
	return children
}

// Append 追加子元素
func (n *Node) Append(child *Node) {
	n.Nodes = append(n.Nodes, child)
}
