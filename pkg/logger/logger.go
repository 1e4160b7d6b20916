package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type contextKey string

const requestIDKey contextKey = "request_id"

const msgPrefix = "| "

var levelColors = map[slog.Level][]color.Attribute{
	slog.LevelDebug: {color.BgCyan, color.FgHiWhite},
	slog.LevelInfo:  {color.BgGreen, color.FgHiWhite},
	slog.LevelWarn:  {color.BgYellow, color.FgHiWhite},
	slog.LevelError: {color.BgRed, color.FgHiWhite},
}

type Handler struct {
	groups []string
	attrs  []slog.Attr

	opts Options

	mu  *sync.Mutex
	out io.Writer
}

// NewHandler creates a new Handler with the specified options. If opts is nil, uses [DefaultOptions].
func NewHandler(out io.Writer, opts *Options) *Handler {
	h := &Handler{out: out, mu: &sync.Mutex{}}
	if opts == nil {
		h.opts = *DefaultOptions
	} else {
		h.opts = *opts
	}
	return h
}

func (h *Handler) clone() *Handler {
	return &Handler{
		groups: h.groups,
		attrs:  h.attrs,
		opts:   h.opts,
		mu:     h.mu,
		out:    h.out,
	}
}

// Enabled implements slog.Handler.Enabled .
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle implements slog.Handler.Handle .
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	bf := getBuffer()
	bf.Reset()
	defer freeBuffer(bf)

	if !r.Time.IsZero() {
		fmt.Fprint(bf, h.paint(color.Faint).Sprint(r.Time.Format(h.opts.TimeFormat)), " ")
	}

	if requestID, ok := RequestIDFromContext(ctx); ok {
		fmt.Fprint(bf, h.paint(color.FgMagenta).Sprint(shortID(requestID)), " ")
	}

	fmt.Fprint(bf, h.paint(levelColors[r.Level]...).Sprintf("%-5s", r.Level.String()), " ")

	if h.opts.AddSource && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		fmt.Fprintf(bf, "%s:%d ", filepath.Base(f.File), f.Line)
	}

	fmt.Fprint(bf, h.paint(color.FgHiWhite).Sprint(msgPrefix), r.Message)

	h.writeAttrs(bf, h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttrs(bf, []slog.Attr{a})
		return true
	})
	bf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(bf.Bytes())
	return err
}

func (h *Handler) writeAttrs(bf *bytes.Buffer, attrs []slog.Attr) {
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}

	for _, a := range attrs {
		keyColor := color.FgCyan
		if strings.Contains(a.Key, "err") {
			keyColor = color.FgRed
		}
		fmt.Fprint(bf, " ", h.paint(keyColor).Sprint(prefix+a.Key+"="), a.Value.String())
	}
}

// paint returns a color that is disabled when the handler runs without color.
func (h *Handler) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if h.opts.NoColor {
		c.DisableColor()
	}
	return c
}

// WithGroup implements slog.Handler.WithGroup .
func (h *Handler) WithGroup(name string) slog.Handler {
	h2 := h.clone()
	h2.groups = append(h2.groups[:len(h2.groups):len(h2.groups)], name)
	return h2
}

// WithAttrs implements slog.Handler.WithAttrs .
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	h2.attrs = append(h2.attrs[:len(h2.attrs):len(h2.attrs)], attrs...)
	return h2
}

var bufPool = sync.Pool{
	New: func() interface{} {
		return &bytes.Buffer{}
	},
}

func getBuffer() *bytes.Buffer {
	return bufPool.Get().(*bytes.Buffer)
}

func freeBuffer(bf *bytes.Buffer) {
	bufPool.Put(bf)
}

// Err returns an attribute for err under the "err" key.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("err", "<nil>")
	}
	return slog.String("err", err.Error())
}

// shortID keeps request ids readable in the terminal.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

var DefaultOptions = &Options{
	Level:      slog.LevelDebug,
	TimeFormat: time.DateTime,
	AddSource:  true,
	NoColor:    false,
}

type Options struct {
	// Level reports the minimum level to log.
	Level slog.Leveler

	// TimeFormat is the time format.
	TimeFormat string

	// AddSource prints the file name and line of the log call.
	AddSource bool

	// NoColor disables color, default: false.
	NoColor bool
}

// WithLevel returns a copy of opts logging at level, with color disabled when noColor is set.
func (o Options) WithLevel(level slog.Leveler, noColor bool) *Options {
	o.Level = level
	o.NoColor = noColor
	return &o
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok && requestID != ""
}
