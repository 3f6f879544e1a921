package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

const starColor = "#F5B301"

var cardTemplate = template.Must(template.New("card").Funcs(template.FuncMap{
	"treeStyle":   treeStyle,
	"regionStyle": regionStyle,
	"itemStyle":   itemStyle,
	"trailingCSS": trailingStyle,
	"pillStyle":   pillStyle,
	"iconStyle":   iconStyle,
	"stars":       stars,
	"starStyle":   func() template.CSS { return template.CSS("color:" + starColor + ";margin-right:10px") },
}).Parse(`
{{- define "item" -}}
{{- if eq .Kind "serviceRow" -}}
<div class="service-row" style="display:flex;align-items:center;{{itemStyle .}}">
<span class="service-icon" style="{{iconStyle .}}">{{.Icon}}</span>
<span class="service-name" style="flex-grow:1">{{.Text}}</span>
<span class="service-price" style="{{trailingCSS .}}">{{.Trailing}}</span>
</div>
{{- else if eq .Kind "pill" -}}
<div style="{{itemStyle .}}"><span class="pill" style="{{pillStyle .}}">{{.Text}}</span></div>
{{- else if eq .Kind "rating" -}}
<div class="rating" style="{{itemStyle .}}"><span class="stars" style="{{starStyle}}">{{stars .Rating}}</span><span>{{.Text}}</span></div>
{{- else if eq .Kind "heading" -}}
<h3 style="{{itemStyle .}}">{{.Text}}</h3>
{{- else -}}
<p style="{{itemStyle .}}">{{.Text}}</p>
{{- end -}}
{{- end -}}
<div class="service-card service-card--{{.Mode}}" style="{{treeStyle .}}">
{{- range .Regions}}
<div class="card-region card-region--{{.Kind}}" style="{{regionStyle .}}">
{{- range .Items}}
{{template "item" .}}
{{- end}}
</div>
{{- end}}
</div>`))

// HTML renders t as a self-contained HTML fragment with inline styles, so it
// looks the same wherever it is embedded. The empty tree renders nothing.
func HTML(t Tree) (template.HTML, error) {
	if t.Empty() {
		return "", nil
	}
	var buf bytes.Buffer
	if err := cardTemplate.Execute(&buf, t); err != nil {
		return "", fmt.Errorf("render: executing card template: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// CSSColor normalizes a design color to "#rrggbb". Anything that is not a
// valid hex color yields fallback.
func CSSColor(value, fallback string) string {
	c, err := colorful.Hex(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return c.Hex()
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

func treeStyle(t Tree) template.CSS {
	var sb strings.Builder
	sb.WriteString("margin:0 auto;overflow:hidden;border-radius:12px;font-family:Arial,Helvetica,sans-serif;")
	fmt.Fprintf(&sb, "background-color:%s;color:%s;", CSSColor(t.Background, "#F5F5DC"), CSSColor(t.Color, textColor))
	if t.MaxWidth > 0 {
		fmt.Fprintf(&sb, "max-width:%s;", px(t.MaxWidth))
	}
	if t.Scale > 0 && t.Scale != 1 {
		fmt.Fprintf(&sb, "transform:scale(%s);transform-origin:top center;", strconv.FormatFloat(t.Scale, 'f', -1, 64))
	}
	return template.CSS(sb.String())
}

func regionStyle(r Region) template.CSS {
	var sb strings.Builder
	fmt.Fprintf(&sb, "padding:%s %s;text-align:%s;", px(r.Padding.Vertical), px(r.Padding.Horizontal), alignCSS(r.Align))
	if r.Background != "" {
		fmt.Fprintf(&sb, "background-color:%s;", CSSColor(r.Background, "transparent"))
	}
	if r.Color != "" {
		fmt.Fprintf(&sb, "color:%s;", CSSColor(r.Color, textColor))
	}
	if r.BorderTop != "" {
		fmt.Fprintf(&sb, "border-top:1px solid %s;", CSSColor(r.BorderTop, ruleColor))
	}
	return template.CSS(sb.String())
}

func alignCSS(a Align) string {
	if a == AlignCenter {
		return "center"
	}
	return "left"
}

func styleCSS(sb *strings.Builder, s Style) {
	fmt.Fprintf(sb, "font-size:%s;line-height:1.4;", px(s.Size))
	if s.Bold {
		sb.WriteString("font-weight:bold;")
	}
	if s.Italic {
		sb.WriteString("font-style:italic;")
	}
	if s.Color != "" {
		fmt.Fprintf(sb, "color:%s;", CSSColor(s.Color, textColor))
	}
	if s.Opacity > 0 && s.Opacity < 1 {
		fmt.Fprintf(sb, "opacity:%s;", strconv.FormatFloat(s.Opacity, 'f', -1, 64))
	}
}

func itemStyle(it Item) template.CSS {
	var sb strings.Builder
	fmt.Fprintf(&sb, "margin:0 0 %s 0;", px(it.SpaceAfter))
	if it.Kind != ItemPill {
		styleCSS(&sb, it.Style)
	}
	return template.CSS(sb.String())
}

func trailingStyle(it Item) template.CSS {
	var sb strings.Builder
	sb.WriteString("margin-left:auto;")
	if it.TrailingStyle != nil {
		styleCSS(&sb, *it.TrailingStyle)
	}
	return template.CSS(sb.String())
}

func pillStyle(it Item) template.CSS {
	var sb strings.Builder
	fmt.Fprintf(&sb, "display:inline-block;padding:8px 16px;border-radius:20px;background-color:%s;", CSSColor(it.Background, "#FF6B35"))
	styleCSS(&sb, it.Style)
	return template.CSS(sb.String())
}

func iconStyle(it Item) template.CSS {
	size := it.IconSize
	if size <= 0 {
		size = it.Style.Size
	}
	return template.CSS(fmt.Sprintf("font-size:%s;margin-right:10px", px(size)))
}

func stars(n int) string {
	return strings.Repeat("★", min(max(n, 0), 5))
}
