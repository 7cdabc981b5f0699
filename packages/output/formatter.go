package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/arkadyv/reqforge/packages/http"
	"github.com/arkadyv/reqforge/packages/mask"
)

// Formatter renders response records for display. Every rendered header
// and body passes through the masking engine first.
type Formatter struct {
	masker      *mask.Engine
	noColor     bool
	verbose     bool
	showHeaders bool
}

type FormatterOption func(*Formatter)

func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{
		masker: mask.NewDefaultEngine(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithMasker(m *mask.Engine) FormatterOption {
	return func(f *Formatter) {
		f.masker = m
	}
}

func WithNoColor(nc bool) FormatterOption {
	return func(f *Formatter) {
		f.noColor = nc
	}
}

func WithVerbose(v bool) FormatterOption {
	return func(f *Formatter) {
		f.verbose = v
	}
}

func WithShowHeaders(show bool) FormatterOption {
	return func(f *Formatter) {
		f.showHeaders = show
	}
}

// Render produces the display string for a response: status line, optional
// headers, the body in the chosen format, and a timing footer in verbose
// mode. Method and URL come from the caller since the response record does
// not repeat them.
func (f *Formatter) Render(method, url string, resp *http.Response, format Format) string {
	var b strings.Builder

	b.WriteString(f.statusLine(method, url, resp))
	b.WriteString("\n")

	if f.showHeaders {
		b.WriteString(f.renderHeaders(resp.Headers))
	}

	b.WriteString(f.RenderBody(resp, format))

	if f.verbose {
		b.WriteString(f.footer(resp))
	}

	return b.String()
}

func (f *Formatter) statusLine(method, url string, resp *http.Response) string {
	statusColor := color.New(color.FgGreen, color.Bold)
	switch {
	case resp.IsRedirect():
		statusColor = color.New(color.FgYellow, color.Bold)
	case resp.IsClientError() || resp.IsServerError():
		statusColor = color.New(color.FgRed, color.Bold)
	}

	methodStr := color.New(color.FgMagenta, color.Bold).Sprint(method)
	urlStr := color.New(color.FgBlue).Sprint(url)
	timing := color.New(color.Faint).Sprintf("(%s)", FormatDuration(resp.Duration))

	return fmt.Sprintf("%s %s %s %s", methodStr, urlStr, statusColor.Sprint(resp.Status), timing)
}

func (f *Formatter) renderHeaders(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}

	masked := f.masker.HeaderMap(headers)
	keys := make([]string, 0, len(masked))
	for k := range masked {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	keyColor := color.New(color.FgCyan)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("%s: %s\n", keyColor.Sprint(sanitize(k)), sanitize(masked[k])))
	}
	b.WriteString("\n")
	return b.String()
}

// RenderBody renders only the masked body in the requested format. An
// explicit format wins over classification; malformed JSON under json or
// auto degrades to raw text with a diagnostic line instead of failing.
func (f *Formatter) RenderBody(resp *http.Response, format Format) string {
	if len(resp.Body) == 0 {
		return color.New(color.Faint).Sprint("(empty body)") + "\n"
	}

	masked := f.masker.Body(resp.Body)

	switch format {
	case FormatJSON:
		return f.renderJSON(masked)
	case FormatYAML:
		return f.renderYAML(masked)
	case FormatTable:
		return f.renderTable(masked)
	case FormatRaw:
		return f.renderRaw(masked)
	default:
		switch Classify(resp) {
		case ShapeTable:
			return f.renderTable(masked)
		case ShapeJSON:
			return f.renderJSON(masked)
		default:
			return f.renderRaw(masked)
		}
	}
}

func (f *Formatter) renderJSON(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		diag := color.New(color.FgRed).Sprint("response is not valid JSON, showing raw body:")
		return diag + "\n" + f.renderRaw(body)
	}
	return buf.String() + "\n"
}

func (f *Formatter) renderYAML(body []byte) string {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		diag := color.New(color.FgRed).Sprint("response is not valid JSON, showing raw body:")
		return diag + "\n" + f.renderRaw(body)
	}
	encoded, err := yaml.Marshal(doc)
	if err != nil {
		return f.renderRaw(body)
	}
	return string(encoded)
}

func (f *Formatter) renderTable(body []byte) string {
	if !gjson.ValidBytes(body) {
		diag := color.New(color.FgRed).Sprint("response is not valid JSON, showing raw body:")
		return diag + "\n" + f.renderRaw(body)
	}

	parsed := gjson.ParseBytes(body)
	switch {
	case parsed.IsArray() && isFlatObjectArray(parsed):
		return renderObjectTable(parsed)
	case parsed.IsObject():
		return renderKeyValueTable(parsed)
	default:
		return f.renderJSON(body)
	}
}

func renderObjectTable(arr gjson.Result) string {
	rows := arr.Array()

	// Column order follows the first row's key order.
	var columns []string
	rows[0].ForEach(func(key, _ gjson.Result) bool {
		columns = append(columns, key.String())
		return true
	})

	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}

	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for i, col := range columns {
			value := sanitize(row.Get(col).String())
			cells[r][i] = value
			if len(value) > widths[i] {
				widths[i] = len(value)
			}
		}
	}

	var b strings.Builder
	headerColor := color.New(color.FgCyan, color.Bold)
	for i, col := range columns {
		b.WriteString(headerColor.Sprintf("%-*s", widths[i], col))
		if i < len(columns)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")
	for _, row := range cells {
		for i, cell := range row {
			b.WriteString(fmt.Sprintf("%-*s", widths[i], cell))
			if i < len(row)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderKeyValueTable(obj gjson.Result) string {
	var b strings.Builder
	keyColor := color.New(color.FgCyan)
	obj.ForEach(func(key, value gjson.Result) bool {
		b.WriteString(fmt.Sprintf("%s: %s\n", keyColor.Sprint(key.String()), sanitize(value.String())))
		return true
	})
	return b.String()
}

func (f *Formatter) renderRaw(body []byte) string {
	return sanitize(string(body)) + "\n"
}

func (f *Formatter) footer(resp *http.Response) string {
	faint := color.New(color.Faint)
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(faint.Sprintf("Duration: %s\n", FormatDuration(resp.Duration)))
	b.WriteString(faint.Sprintf("Size:     %s\n", FormatBytes(resp.Size)))
	if ct := resp.ContentType(); ct != "" {
		b.WriteString(faint.Sprintf("Type:     %s\n", ct))
	}
	return b.String()
}

// sanitize neutralizes control characters that could manipulate the
// terminal, keeping ordinary whitespace intact.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(r)
		case r == '\x1b':
			b.WriteString("\\x1b")
		case unicode.IsControl(r) && r < 0x20:
			b.WriteString(fmt.Sprintf("\\x%02x", r))
		case r == 0x7f:
			b.WriteString("\\x7f")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
