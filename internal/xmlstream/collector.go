package xmlstream

import (
	"fmt"
	"strings"
)

// Record 一次基础节点出现所收集的字段 (字段名 -> 文本)
type Record map[Node]string

// EmptyNodeError 基础节点关闭时没有收集到任何字段
type EmptyNodeError struct {
	Path NodePath
}

// Error 实现error接口
func (e *EmptyNodeError) Error() string {
	return fmt.Sprintf("XML节点 %s 为空", e.Path)
}

type collectorState int

const (
	stateIdle       collectorState = iota // 基础节点之外
	stateRecord                           // 基础节点内,等待字段
	stateCollecting                       // 字段节点内,累积文本
)

// Collector 按基础节点收集字段记录的状态机
//
// 状态转换:
//
//	idle       --open(base)-->   record
//	record     --open(field)-->  collecting
//	collecting --text-->         collecting (文本累积)
//	collecting --close(field)--> record
//	record     --close(base)-->  idle (记录完成或返回EmptyNodeError)
type Collector struct {
	base NodePath

	// 字段完整路径 -> 字段,构造时生成
	fields map[string]Node

	state   collectorState
	field   Node
	text    strings.Builder
	current Record
	records []Record
}

// NewCollector 创建收集器,只收集supported中列出的字段
func NewCollector(base NodePath, supported []Node) *Collector {
	fields := make(map[string]Node, len(supported))
	for _, node := range supported {
		fields[node.AsPath(base)] = node
	}

	return &Collector{
		base:   base,
		fields: fields,
	}
}

// Handle 处理单个事件
func (c *Collector) Handle(ev Event) error {
	switch c.state {
	case stateIdle:
		if ev.Kind == EventOpen && ev.Path == string(c.base) {
			c.current = make(Record, len(c.fields))
			c.state = stateRecord
		}

	case stateRecord:
		switch ev.Kind {
		case EventOpen:
			if node, ok := c.fields[ev.Path]; ok {
				c.field = node
				c.text.Reset()
				c.state = stateCollecting
			}
		case EventClose:
			if ev.Path == string(c.base) {
				return c.completeRecord()
			}
		}

	case stateCollecting:
		switch ev.Kind {
		case EventText:
			if ev.Path == c.field.AsPath(c.base) {
				c.text.WriteString(ev.Text)
			}
		case EventClose:
			if ev.Path == c.field.AsPath(c.base) {
				if text := strings.TrimSpace(c.text.String()); text != "" {
					c.current[c.field] = text
				}
				c.text.Reset()
				c.state = stateRecord
			}
		}
	}

	return nil
}

func (c *Collector) completeRecord() error {
	record := c.current
	c.current = nil
	c.state = stateIdle

	if len(record) == 0 {
		return &EmptyNodeError{Path: c.base}
	}

	c.records = append(c.records, record)
	return nil
}

// Records 返回已完成的记录
func (c *Collector) Records() []Record {
	return c.records
}

// Reset 清空状态,以便同一实例处理下一个文档
func (c *Collector) Reset() {
	c.state = stateIdle
	c.field = ""
	c.text.Reset()
	c.current = nil
	c.records = nil
}
