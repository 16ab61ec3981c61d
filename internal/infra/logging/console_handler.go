package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
)

const (
	ansiCodeReset     = "\033[0m"
	ansiCodeRed       = "\033[31m"
	ansiCodeGreen     = "\033[32m"
	ansiCodeYellow    = "\033[33m"
	ansiCodeCyan      = "\033[36m"
	ansiCodeGray      = "\033[90m"
	ansiCodeUnderline = "\033[4m"
)

//nolint:gochecknoglobals
var ansiCodeMap = map[slog.Level]string{
	slog.LevelDebug: ansiCodeCyan,
	slog.LevelInfo:  ansiCodeGreen,
	slog.LevelWarn:  ansiCodeYellow,
	slog.LevelError: ansiCodeRed,
}

// loggerAttrKey is the attribute GetLogger uses to name a logger. Package
// level filters are matched against it.
const loggerAttrKey = "logger"

// ConsoleHandler implements slog.Handler to format log records with ansiCodes
// and human-readable output suitable for development environments.
type ConsoleHandler struct {
	// Output is the destination for log output (typically os.Stdout or os.Stderr)
	Output io.Writer
	// Level is the minimum level for log records to be processed
	Level slog.Leveler
	// PkgLevels maps dotted logger names to minimum log levels. The longest
	// matching prefix wins.
	PkgLevels map[string]slog.Level

	attrs  []slog.Attr
	groups []string
}

var _ slog.Handler = (*ConsoleHandler)(nil)

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := slices.Clone(h.attrs)

	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)

		return true
	})

	if !h.pkgEnabled(attrs, r.Level) {
		return nil
	}

	var sb strings.Builder

	sb.WriteString(ansiCodeGray + r.Time.Format("15:04:05.000000") + ansiCodeReset)
	sb.WriteString(" " + ansiCodeMap[r.Level] + "[" + r.Level.String() + "]" + ansiCodeReset)
	sb.WriteString(" " + r.Message)

	if len(attrs) > 0 {
		var prefix string
		if len(h.groups) > 0 {
			prefix = strings.Join(h.groups, ".") + "."
		}

		sb.WriteString(" " + ansiCodeGray + "|" + ansiCodeReset)
		renderAttrs(&sb, prefix, attrs)
	}

	if r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		fn := strings.Split(f.Function, string(os.PathSeparator))

		sb.WriteString("\n-> " + ansiCodeGray + fn[len(fn)-1] + "()")
		sb.WriteString(" in " + ansiCodeUnderline + f.File + ":" + strconv.Itoa(f.Line) + ansiCodeReset)
	}

	if _, err := fmt.Fprintln(h.Output, sb.String()); err != nil {
		return fmt.Errorf("write log: %w", err)
	}

	return nil
}

func (h *ConsoleHandler) pkgEnabled(attrs []slog.Attr, level slog.Level) bool {
	if len(h.PkgLevels) == 0 {
		return true
	}

	var name string

	for _, attr := range attrs {
		if attr.Key == loggerAttrKey {
			name = attr.Value.String()

			break
		}
	}

	for key := name; ; {
		if floor, ok := h.PkgLevels[key]; ok {
			return level >= floor
		}

		if key == "" {
			return true
		}

		idx := strings.LastIndex(key, ".")
		if idx < 0 {
			key = ""
		} else {
			key = key[:idx]
		}
	}
}

func renderAttrs(sb *strings.Builder, prefix string, attrs []slog.Attr) {
	for _, attr := range attrs {
		if attr.Value.Kind() == slog.KindGroup {
			renderAttrs(sb, prefix+attr.Key+".", attr.Value.Group())

			continue
		}

		sb.WriteString(" " + prefix + attr.Key)
		sb.WriteString("=" + ansiCodeGray + attr.Value.String() + ansiCodeReset)
	}
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) Handler {
	return &ConsoleHandler{
		Output:    h.Output,
		Level:     h.Level,
		PkgLevels: h.PkgLevels,
		attrs:     append(slices.Clone(h.attrs), attrs...),
		groups:    h.groups,
	}
}

// WithGroup implements slog.Handler.WithGroup.
func (h *ConsoleHandler) WithGroup(name string) Handler {
	return &ConsoleHandler{
		Output:    h.Output,
		Level:     h.Level,
		PkgLevels: h.PkgLevels,
		attrs:     h.attrs,
		groups:    append(slices.Clone(h.groups), name),
	}
}

// Enabled implements slog.Handler.Enabled.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.Level.Level() <= level
}
