package utils

import (
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return newProgressBar(os.Stderr, max, description)
}

func newProgressBar(w io.Writer, max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionOnCompletion(func() {
			io.WriteString(w, "\n")
		}),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// ProgressObserver 基于进度条的预热进度显示
type ProgressObserver struct {
	mu          sync.Mutex
	writer      io.Writer
	description string
	bar         *progressbar.ProgressBar
	completed   int
}

// NewProgressObserver 创建输出到stderr的进度观察者
func NewProgressObserver(description string) *ProgressObserver {
	return NewProgressObserverWithWriter(os.Stderr, description)
}

// NewProgressObserverWithWriter 创建输出到指定writer的进度观察者
func NewProgressObserverWithWriter(w io.Writer, description string) *ProgressObserver {
	return &ProgressObserver{writer: w, description: description}
}

// Start 开始新一轮进度
func (p *ProgressObserver) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar = newProgressBar(p.writer, total, p.description)
	p.completed = 0
}

// Advance 完成一个URL
func (p *ProgressObserver) Advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	p.completed++
	p.bar.Add(1)
}

// Finish 结束进度显示
func (p *ProgressObserver) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	p.bar.Finish()
	p.bar = nil
}

// Completed 当前轮次已完成的数量
func (p *ProgressObserver) Completed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}
