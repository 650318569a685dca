// Package richtext renders Prismic structured text to HTML.
package richtext

import (
	"html"
	"sort"
	"strings"
)

const (
	TypeParagraph    = "paragraph"
	TypePreformatted = "preformatted"
	TypeHeading1     = "heading1"
	TypeHeading2     = "heading2"
	TypeHeading3     = "heading3"
	TypeHeading4     = "heading4"
	TypeHeading5     = "heading5"
	TypeHeading6     = "heading6"
	TypeListItem     = "list-item"
	TypeOListItem    = "o-list-item"
	TypeImage        = "image"
	TypeEmbed        = "embed"

	SpanStrong    = "strong"
	SpanEm        = "em"
	SpanHyperlink = "hyperlink"
	SpanLabel     = "label"
)

type Block struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Spans []Span `json:"spans,omitempty"`

	URL   string `json:"url,omitempty"`
	Alt   string `json:"alt,omitempty"`
	Embed *Embed `json:"oembed,omitempty"`
}

// Span offsets index into the block text counted in characters.
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data,omitempty"`
}

type SpanData struct {
	URL    string `json:"url,omitempty"`
	Target string `json:"target,omitempty"`
	Label  string `json:"label,omitempty"`
}

type Embed struct {
	HTML         string `json:"html"`
	EmbedURL     string `json:"embed_url"`
	Type         string `json:"type"`
	ProviderName string `json:"provider_name"`
}

type Blocks []Block

// Text joins the text of every block with a space.
func (b Blocks) Text() string {
	parts := make([]string, 0, len(b))
	for _, block := range b {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, " ")
}

// HTML renders the blocks, grouping consecutive list items into one list.
func (b Blocks) HTML() string {
	var sb strings.Builder
	openList := ""

	for _, block := range b {
		listTag := listTagFor(block.Type)
		if listTag != openList {
			if openList != "" {
				sb.WriteString("</" + openList + ">")
			}
			if listTag != "" {
				sb.WriteString("<" + listTag + ">")
			}
			openList = listTag
		}
		writeBlock(&sb, block)
	}
	if openList != "" {
		sb.WriteString("</" + openList + ">")
	}

	return sb.String()
}

func listTagFor(blockType string) string {
	switch blockType {
	case TypeListItem:
		return "ul"
	case TypeOListItem:
		return "ol"
	default:
		return ""
	}
}

func writeBlock(sb *strings.Builder, block Block) {
	switch block.Type {
	case TypeHeading1, TypeHeading2, TypeHeading3, TypeHeading4, TypeHeading5, TypeHeading6:
		tag := "h" + strings.TrimPrefix(block.Type, "heading")
		writeWrapped(sb, tag, block)
	case TypePreformatted:
		writeWrapped(sb, "pre", block)
	case TypeListItem, TypeOListItem:
		writeWrapped(sb, "li", block)
	case TypeImage:
		sb.WriteString(`<p class="block-img"><img src="`)
		sb.WriteString(html.EscapeString(block.URL))
		sb.WriteString(`" alt="`)
		sb.WriteString(html.EscapeString(block.Alt))
		sb.WriteString(`" /></p>`)
	case TypeEmbed:
		if block.Embed == nil {
			return
		}
		sb.WriteString(`<div data-oembed="`)
		sb.WriteString(html.EscapeString(block.Embed.EmbedURL))
		sb.WriteString(`" data-oembed-type="`)
		sb.WriteString(html.EscapeString(block.Embed.Type))
		sb.WriteString(`" data-oembed-provider="`)
		sb.WriteString(html.EscapeString(block.Embed.ProviderName))
		sb.WriteString(`">`)
		sb.WriteString(block.Embed.HTML)
		sb.WriteString(`</div>`)
	default:
		writeWrapped(sb, "p", block)
	}
}

func writeWrapped(sb *strings.Builder, tag string, block Block) {
	sb.WriteString("<" + tag + ">")
	sb.WriteString(renderSpans(block.Text, block.Spans))
	sb.WriteString("</" + tag + ">")
}

// renderSpans applies inline spans to text. Spans that overlap without
// nesting are closed and reopened so the output stays well formed.
func renderSpans(text string, spans []Span) string {
	runes := []rune(text)
	if len(spans) == 0 {
		return escapeText(string(runes))
	}

	ordered := make([]Span, 0, len(spans))
	for _, span := range spans {
		if span.Start < 0 || span.End > len(runes) || span.Start >= span.End {
			continue
		}
		ordered = append(ordered, span)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start != ordered[j].Start {
			return ordered[i].Start < ordered[j].Start
		}
		return ordered[i].End > ordered[j].End
	})

	var sb strings.Builder
	var stack []Span
	next := 0

	for pos := 0; pos <= len(runes); pos++ {
		stack = closeSpansAt(&sb, stack, pos)

		for next < len(ordered) && ordered[next].Start == pos {
			sb.WriteString(openTag(ordered[next]))
			stack = append(stack, ordered[next])
			next++
		}

		if pos < len(runes) {
			sb.WriteString(escapeText(string(runes[pos])))
		}
	}

	return sb.String()
}

func closeSpansAt(sb *strings.Builder, stack []Span, pos int) []Span {
	for {
		idx := -1
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].End == pos {
				idx = i
				break
			}
		}
		if idx == -1 {
			return stack
		}

		for i := len(stack) - 1; i >= idx; i-- {
			sb.WriteString(closeTag(stack[i]))
		}
		reopen := append([]Span(nil), stack[idx+1:]...)
		stack = stack[:idx]
		for _, span := range reopen {
			if span.End == pos {
				continue
			}
			sb.WriteString(openTag(span))
			stack = append(stack, span)
		}
	}
}

func openTag(span Span) string {
	switch span.Type {
	case SpanStrong:
		return "<strong>"
	case SpanEm:
		return "<em>"
	case SpanHyperlink:
		if span.Data == nil {
			return "<a>"
		}
		attrs := ` href="` + html.EscapeString(span.Data.URL) + `"`
		if span.Data.Target != "" {
			attrs += ` target="` + html.EscapeString(span.Data.Target) + `" rel="noopener"`
		}
		return "<a" + attrs + ">"
	case SpanLabel:
		label := ""
		if span.Data != nil {
			label = span.Data.Label
		}
		return `<span class="` + html.EscapeString(label) + `">`
	default:
		return "<span>"
	}
}

func closeTag(span Span) string {
	switch span.Type {
	case SpanStrong:
		return "</strong>"
	case SpanEm:
		return "</em>"
	case SpanHyperlink:
		return "</a>"
	default:
		return "</span>"
	}
}

func escapeText(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br />")
}
