package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/charmbracelet/lipgloss"
)

// palette holds the styles of a pretty handler. Styles are bound to a
// renderer for the handler's writer, so output to anything other than a
// color terminal is plain.
type palette struct {
	key, message, source, faint   lipgloss.Style
	str, num, yes, no, dur, time  lipgloss.Style
	trace, debug, info, warn, err lipgloss.Style
}

func newPalette(w io.Writer) *palette {
	r := lipgloss.NewRenderer(w)
	fg := func(c string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(c))
	}

	return &palette{
		key:     fg("8"),
		message: r.NewStyle().Bold(true),
		source:  fg("8").Italic(true),
		faint:   r.NewStyle().Faint(true),
		str:     fg("6"),
		num:     fg("3"),
		yes:     fg("2"),
		no:      fg("1"),
		dur:     fg("5"),
		time:    fg("4"),
		trace:   fg("8"),
		debug:   fg("4"),
		info:    fg("2"),
		warn:    fg("3"),
		err:     fg("1").Bold(true),
	}
}

func (p *palette) level(l slog.Level) lipgloss.Style {
	switch {
	case l >= slog.LevelError:
		return p.err
	case l >= slog.LevelWarn:
		return p.warn
	case l >= slog.LevelInfo:
		return p.info
	case l >= slog.LevelDebug:
		return p.debug
	default:
		return p.trace
	}
}

// prettyHandler writes styled records, either as single-line key=value text
// or as indented JSON.
type prettyHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	style  *palette
	json   bool
	attrs  []slog.Attr
	groups []string
}

func newPrettyTextHandler(w io.Writer, opts *slog.HandlerOptions) *prettyHandler {
	return newPrettyHandler(w, opts, false)
}

func newPrettyJSONHandler(w io.Writer, opts *slog.HandlerOptions) *prettyHandler {
	return newPrettyHandler(w, opts, true)
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, asJSON bool) *prettyHandler {
	h := &prettyHandler{
		mu:    &sync.Mutex{},
		w:     w,
		style: newPalette(w),
		json:  asJSON,
	}

	if opts != nil {
		h.opts = *opts
	}

	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}

	return level >= minLevel
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	c := *h
	c.attrs = append(slices.Clip(h.attrs), nest(h.groups, attrs)...)

	return &c
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.groups = append(slices.Clip(h.groups), name)

	return &c
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var head []slog.Attr

	if !r.Time.IsZero() {
		head = append(head, slog.Time(slog.TimeKey, r.Time))
	}

	head = append(head, slog.Any(slog.LevelKey, r.Level))

	if h.opts.AddSource {
		if src := r.Source(); src != nil {
			head = append(head,
				slog.String(slog.SourceKey, src.File+":"+strconv.Itoa(src.Line)))
		}
	}

	head = append(head, slog.String(slog.MessageKey, r.Message))

	for i, a := range head {
		head[i] = h.replace(nil, a)
	}

	body := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		body = append(body, a)

		return true
	})

	attrs := append(slices.Clip(h.attrs), nest(h.groups, body)...)

	var buf bytes.Buffer
	if h.json {
		h.writeJSON(&buf, r.Level, head, attrs)
	} else {
		h.writeText(&buf, r.Level, head, attrs)
	}

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

func (h *prettyHandler) replace(groups []string, a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if h.opts.ReplaceAttr != nil && a.Value.Kind() != slog.KindGroup {
		a = h.opts.ReplaceAttr(groups, a)
		a.Value = a.Value.Resolve()
	}

	return a
}

func (h *prettyHandler) styleHead(level slog.Level, a slog.Attr, text string) string {
	switch a.Key {
	case slog.TimeKey:
		return h.style.time.Render(text)
	case slog.LevelKey:
		return h.style.level(level).Render(text)
	case slog.SourceKey:
		return h.style.source.Render(text)
	case slog.MessageKey:
		return h.style.message.Render(text)
	default:
		return h.style.str.Render(text)
	}
}

func (h *prettyHandler) writeText(buf *bytes.Buffer, level slog.Level, head, attrs []slog.Attr) {
	for _, a := range head {
		if a.Equal(slog.Attr{}) {
			continue
		}

		h.textKey(buf, a.Key)
		buf.WriteString(h.styleHead(level, a, quoteText(a.Value.String())))
	}

	for _, a := range attrs {
		h.textAttr(buf, nil, a)
	}
}

func (h *prettyHandler) textKey(buf *bytes.Buffer, key string) {
	if buf.Len() > 0 {
		buf.WriteByte(' ')
	}

	buf.WriteString(h.style.key.Render(key))
	buf.WriteString(h.style.faint.Render("="))
}

func (h *prettyHandler) textAttr(buf *bytes.Buffer, groups []string, a slog.Attr) {
	a = h.replace(groups, a)
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		sub := a.Value.Group()
		if a.Key != "" {
			groups = append(slices.Clip(groups), a.Key)
		}

		for _, g := range sub {
			h.textAttr(buf, groups, g)
		}

		return
	}

	h.textKey(buf, strings.Join(append(slices.Clip(groups), a.Key), "."))
	buf.WriteString(h.textValue(a.Value))
}

func (h *prettyHandler) textValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return h.style.str.Render(quoteText(v.String()))
	case slog.KindInt64, slog.KindUint64, slog.KindFloat64:
		return h.style.num.Render(v.String())
	case slog.KindBool:
		if v.Bool() {
			return h.style.yes.Render("true")
		}

		return h.style.no.Render("false")
	case slog.KindDuration:
		return h.style.dur.Render(v.Duration().String())
	case slog.KindTime:
		return h.style.time.Render(v.Time().Format("2006-01-02T15:04:05.000Z07:00"))
	default:
		if err, ok := v.Any().(error); ok {
			return h.style.no.Render(quoteText(err.Error()))
		}

		return h.style.str.Render(quoteText(fmt.Sprint(v.Any())))
	}
}

// quoteText quotes s when it would be ambiguous in key=value output.
func quoteText(s string) string {
	if s == "" {
		return `""`
	}

	for _, r := range s {
		if unicode.IsSpace(r) || r == '"' || r == '=' || !unicode.IsPrint(r) {
			return strconv.Quote(s)
		}
	}

	return s
}

// object is an ordered JSON object under construction.
type object struct {
	keys []string
	vals map[string]any // slog.Value or *object
}

func (o *object) set(key string, v any) {
	if o.vals == nil {
		o.vals = map[string]any{}
	}

	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}

	o.vals[key] = v
}

func (o *object) group(key string) *object {
	if sub, ok := o.vals[key].(*object); ok {
		return sub
	}

	sub := &object{}
	o.set(key, sub)

	return sub
}

func (h *prettyHandler) collect(o *object, groups []string, a slog.Attr) {
	a = h.replace(groups, a)
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() != slog.KindGroup {
		o.set(a.Key, a.Value)

		return
	}

	sub := a.Value.Group()
	if len(sub) == 0 {
		return
	}

	into := o
	if a.Key != "" {
		into = o.group(a.Key)
		groups = append(slices.Clip(groups), a.Key)
	}

	for _, g := range sub {
		h.collect(into, groups, g)
	}
}

func (h *prettyHandler) writeJSON(buf *bytes.Buffer, level slog.Level, head, attrs []slog.Attr) {
	var root object

	for _, a := range head {
		if !a.Equal(slog.Attr{}) {
			root.set(a.Key, a.Value)
		}
	}

	for _, a := range attrs {
		h.collect(&root, nil, a)
	}

	h.jsonObject(buf, level, &root, 0)
}

func (h *prettyHandler) jsonObject(buf *bytes.Buffer, level slog.Level, o *object, depth int) {
	if len(o.keys) == 0 {
		buf.WriteString("{}")

		return
	}

	indent := strings.Repeat("  ", depth+1)

	buf.WriteString("{\n")

	for i, k := range o.keys {
		buf.WriteString(indent)
		buf.WriteString(h.style.key.Render(jsonText(k)))
		buf.WriteString(": ")

		switch v := o.vals[k].(type) {
		case *object:
			h.jsonObject(buf, level, v, depth+1)
		case slog.Value:
			if depth == 0 && v.Kind() == slog.KindString {
				buf.WriteString(h.styleHead(level, slog.Attr{Key: k}, jsonText(v.String())))
			} else {
				buf.WriteString(h.jsonValue(v))
			}
		}

		if i < len(o.keys)-1 {
			buf.WriteByte(',')
		}

		buf.WriteByte('\n')
	}

	buf.WriteString(strings.Repeat("  ", depth))
	buf.WriteByte('}')
}

func (h *prettyHandler) jsonValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return h.style.str.Render(jsonText(v.String()))
	case slog.KindInt64, slog.KindUint64, slog.KindFloat64:
		return h.style.num.Render(v.String())
	case slog.KindBool:
		if v.Bool() {
			return h.style.yes.Render("true")
		}

		return h.style.no.Render("false")
	case slog.KindDuration:
		return h.style.dur.Render(strconv.FormatInt(int64(v.Duration()), 10))
	case slog.KindTime:
		return h.style.time.Render(jsonText(v.Time().Format("2006-01-02T15:04:05.000Z07:00")))
	default:
		if err, ok := v.Any().(error); ok {
			return h.style.no.Render(jsonText(err.Error()))
		}

		b, err := json.Marshal(v.Any())
		if err != nil {
			return h.style.str.Render(jsonText(fmt.Sprint(v.Any())))
		}

		return h.style.str.Render(string(b))
	}
}

func jsonText(s string) string {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}

	return strings.TrimSuffix(buf.String(), "\n")
}

// nest wraps attrs in the named groups, outermost first.
func nest(groups []string, attrs []slog.Attr) []slog.Attr {
	if len(attrs) == 0 {
		return nil
	}

	for i := len(groups) - 1; i >= 0; i-- {
		attrs = []slog.Attr{{Key: groups[i], Value: slog.GroupValue(attrs...)}}
	}

	return attrs
}
