// Package apktest 构造测试用的 APK：二进制 AndroidManifest.xml 和 zip 容器
package apktest

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"math"
)

const androidNS = "http://schemas.android.com/apk/res/android"

// 二进制 XML 块类型
const (
	chunkStringPool  = 0x0001
	chunkXMLFile     = 0x0003
	chunkNsStart     = 0x0100
	chunkNsEnd       = 0x0101
	chunkTagStart    = 0x0102
	chunkTagEnd      = 0x0103
	chunkResourceMap = 0x0180

	utf8Flag    = 0x100
	typeString  = 0x03
	typeIntDec  = 0x10
	resAttrName = 0x01010003 // android:name

	noIndex = math.MaxUint32
)

// Component application 下的组件声明
type Component struct {
	Tag  string // activity / service / receiver / provider
	Name string
}

// Manifest 要编码的清单内容
type Manifest struct {
	Package     string
	APILevel    int // platformBuildVersionCode
	Permissions []string
	Components  []Component
}

type attr struct {
	ns, name, raw uint32
	typ           uint8
	data          uint32
}

type encoder struct {
	strings []string
	index   map[string]uint32
	body    bytes.Buffer
}

func newEncoder() *encoder {
	e := &encoder{index: make(map[string]uint32)}
	// 下标 0 对应资源映射里唯一的 android:name
	e.str("name")
	return e
}

func (e *encoder) str(s string) uint32 {
	if i, ok := e.index[s]; ok {
		return i
	}
	i := uint32(len(e.strings))
	e.strings = append(e.strings, s)
	e.index[s] = i
	return i
}

func (e *encoder) stringAttr(ns uint32, name, value string) attr {
	v := e.str(value)
	return attr{ns: ns, name: e.str(name), raw: v, typ: typeString, data: v}
}

func (e *encoder) node(id uint16, fields ...uint32) {
	writeHeader(&e.body, id, 16, uint32(16+4*len(fields)))
	put(&e.body, 1, noIndex) // 行号、注释
	put(&e.body, fields...)
}

func (e *encoder) start(tag string, attrs ...attr) {
	size := uint32(16 + 20 + 20*len(attrs))
	writeHeader(&e.body, chunkTagStart, 16, size)
	put(&e.body, 1, noIndex, noIndex, e.str(tag))
	// attributeStart/attributeSize、attributeCount、id/class/style 下标
	put16(&e.body, 20, 20, uint16(len(attrs)), 0, 0, 0)
	for _, a := range attrs {
		put(&e.body, a.ns, a.name, a.raw)
		put16(&e.body, 8)
		e.body.WriteByte(0)
		e.body.WriteByte(a.typ)
		put(&e.body, a.data)
	}
}

func (e *encoder) end(tag string) {
	e.node(chunkTagEnd, noIndex, e.str(tag))
}

// Encode 编码为 aapt 格式的二进制 XML
func (m Manifest) Encode() []byte {
	e := newEncoder()
	prefix, uri := e.str("android"), e.str(androidNS)

	e.node(chunkNsStart, prefix, uri)
	e.start("manifest",
		e.stringAttr(noIndex, "package", m.Package),
		attr{ns: noIndex, name: e.str("platformBuildVersionCode"), raw: noIndex, typ: typeIntDec, data: uint32(m.APILevel)},
	)
	for _, p := range m.Permissions {
		e.start("uses-permission", e.stringAttr(uri, "name", p))
		e.end("uses-permission")
	}
	e.start("application")
	for _, c := range m.Components {
		e.start(c.Tag, e.stringAttr(uri, "name", c.Name))
		e.end(c.Tag)
	}
	e.end("application")
	e.end("manifest")
	e.node(chunkNsEnd, prefix, uri)

	pool := stringPool(e.strings)

	var resMap bytes.Buffer
	writeHeader(&resMap, chunkResourceMap, 8, 12)
	put(&resMap, resAttrName)

	var out bytes.Buffer
	writeHeader(&out, chunkXMLFile, 8, uint32(8+len(pool)+resMap.Len()+e.body.Len()))
	out.Write(pool)
	out.Write(resMap.Bytes())
	out.Write(e.body.Bytes())
	return out.Bytes()
}

// stringPool UTF-8 字符串池，只支持 ASCII
func stringPool(strs []string) []byte {
	var data bytes.Buffer
	offsets := make([]uint32, len(strs))
	for i, s := range strs {
		offsets[i] = uint32(data.Len())
		writeLen8(&data, len(s))
		writeLen8(&data, len(s))
		data.WriteString(s)
		data.WriteByte(0)
	}
	for data.Len()%4 != 0 {
		data.WriteByte(0)
	}

	headerSize := uint32(28)
	start := headerSize + uint32(4*len(strs))

	var out bytes.Buffer
	writeHeader(&out, chunkStringPool, uint16(headerSize), start+uint32(data.Len()))
	put(&out, uint32(len(strs)), 0, utf8Flag, start, 0)
	put(&out, offsets...)
	out.Write(data.Bytes())
	return out.Bytes()
}

func writeLen8(b *bytes.Buffer, n int) {
	if n > 0x7f {
		b.WriteByte(byte(n>>8) | 0x80)
	}
	b.WriteByte(byte(n))
}

func writeHeader(b *bytes.Buffer, id, headerSize uint16, size uint32) {
	put16(b, id, headerSize)
	put(b, size)
}

func put(b *bytes.Buffer, vals ...uint32) {
	for _, v := range vals {
		binary.Write(b, binary.LittleEndian, v)
	}
}

func put16(b *bytes.Buffer, vals ...uint16) {
	for _, v := range vals {
		binary.Write(b, binary.LittleEndian, v)
	}
}

// APK 打包 zip：AndroidManifest.xml 在前，其余条目内容为条目名
func APK(manifestData []byte, names ...string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	f, err := w.Create("AndroidManifest.xml")
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(manifestData); err != nil {
		return nil, err
	}

	for _, name := range names {
		f, err := w.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write([]byte(name)); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
