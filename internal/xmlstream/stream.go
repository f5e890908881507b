// Package xmlstream 提供sitemap文档的流式XML解析
//
// EventStream 将字节流转换为带路径标记的 open/text/close 事件,
// Collector 订阅某个基础节点路径并按节点收集字段记录。
// 整个文档不会被加载为DOM树,内存占用只与单条记录大小相关。
//
// 使用示例:
//
//	urls := NewCollector(URLNodePath, []Node{NodeLocation, NodePriority})
//	if err := Process(reader, urls); err != nil { /* 处理错误 */ }
//	for _, record := range urls.Records() { ... }
package xmlstream

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// EventKind 事件类型
type EventKind int

const (
	EventOpen EventKind = iota
	EventText
	EventClose
)

// Event 单个XML事件
// Path 为斜杠分隔的本地节点名路径,如 "urlset/url/loc"
type Event struct {
	Kind EventKind
	Path string
	Text string
}

// EventStream 基于xml.Decoder.Token的事件流
type EventStream struct {
	decoder *xml.Decoder
	// paths[i] 为深度i处的完整路径,只在打开节点时拼接一次
	paths []string
}

// NewEventStream 创建事件流
// 非UTF-8编码的文档通过x/net/html/charset转换
func NewEventStream(r io.Reader) *EventStream {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	return &EventStream{
		decoder: decoder,
		paths:   make([]string, 0, 4),
	}
}

// Next 返回下一个事件,文档结束时返回io.EOF
func (s *EventStream) Next() (Event, error) {
	for {
		tok, err := s.decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) && len(s.paths) > 0 {
				return Event{}, fmt.Errorf("文档意外结束: 节点 %s 未关闭", s.path())
			}
			return Event{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			path := t.Name.Local
			if len(s.paths) > 0 {
				path = s.path() + "/" + path
			}
			s.paths = append(s.paths, path)
			return Event{Kind: EventOpen, Path: path}, nil
		case xml.EndElement:
			path := s.path()
			s.paths = s.paths[:len(s.paths)-1]
			return Event{Kind: EventClose, Path: path}, nil
		case xml.CharData:
			// 根节点之外的文本不产生事件; 空白由收集器在字段结束时裁剪
			if len(s.paths) == 0 {
				continue
			}
			return Event{Kind: EventText, Path: s.path(), Text: string(t)}, nil
		}
	}
}

func (s *EventStream) path() string {
	if len(s.paths) == 0 {
		return ""
	}
	return s.paths[len(s.paths)-1]
}

// Process 读取整个流,并将每个事件分发给所有收集器
// 收集器返回的错误(如EmptyNodeError)会中止处理
func Process(r io.Reader, collectors ...*Collector) error {
	stream := NewEventStream(r)
	for {
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &ReadError{Cause: err}
		}

		for _, c := range collectors {
			if err := c.Handle(ev); err != nil {
				return err
			}
		}
	}
}

// ReadError 底层读取或XML语法错误
type ReadError struct {
	Cause error
}

// Error 实现error接口
func (e *ReadError) Error() string {
	return fmt.Sprintf("读取XML失败: %v", e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ReadError) Unwrap() error {
	return e.Cause
}
