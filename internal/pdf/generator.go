// Package pdf 使用无头 Chromium 把 HTML 打印为 PDF。
package pdf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const defaultTimeout = 30 * time.Second

// Generator 每次调用启动一个浏览器进程，打印完成后关闭。
type Generator struct {
	timeout time.Duration
	bin     string
}

// Option 配置 Generator。
type Option func(*Generator)

// WithTimeout 限制单次打印的总耗时。
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithBrowserBin 指定 Chromium 路径，默认自动查找。
func WithBrowserBin(path string) Option {
	return func(g *Generator) { g.bin = path }
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GeneratePDFFromHTML 使用默认配置打印 HTML。
func GeneratePDFFromHTML(ctx context.Context, htmlContent string) ([]byte, error) {
	return NewGenerator().GeneratePDF(ctx, htmlContent)
}

// GeneratePDF 在无头浏览器中渲染 HTML 并返回 A4 PDF 字节。
func (g *Generator) GeneratePDF(ctx context.Context, htmlContent string) ([]byte, error) {
	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)

	if g.bin != "" {
		launch = launch.Bin(g.bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	defer launch.Cleanup()

	browser := rod.New().ControlURL(browserURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
	}()

	page, err := browser.Timeout(g.timeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	page = page.Timeout(g.timeout)
	if err := page.SetDocumentContent(htmlContent); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	if err := (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(page); err != nil {
		return nil, fmt.Errorf("set emulated media to print: %w", err)
	}

	// 字体未就绪时会按回退字体排版。
	_, _ = page.Timeout(5 * time.Second).Eval(`() => document.fonts ? document.fonts.ready.then(() => true) : true`)

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}
