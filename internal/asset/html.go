package asset

import (
	"bytes"
	"encoding/base64"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RenderOptions carries per-call inputs to RenderHTML.
type RenderOptions struct {
	// Content is the built output, required for inline rendering.
	Content []byte
	// Attributes override canonical ones of the same name; the rest follow
	// in key order. Boolean attributes with an empty value render bare.
	Attributes map[string]string
}

type attr struct{ key, val string }

type element struct {
	tag   atom.Atom
	attrs []attr
	body  string
	void  bool
}

func (e element) write(sb *strings.Builder) {
	sb.WriteByte('<')
	sb.WriteString(e.tag.String())
	for _, a := range e.attrs {
		sb.WriteByte(' ')
		sb.WriteString(a.key)
		if a.val == "" && booleanAttribute(a.key) {
			continue
		}
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(a.val))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	if e.void {
		return
	}
	sb.WriteString(e.body)
	sb.WriteString("</")
	sb.WriteString(e.tag.String())
	sb.WriteByte('>')
}

func booleanAttribute(key string) bool {
	switch key {
	case "async", "defer", "crossorigin", "controls", "nomodule", "download", "autoplay", "muted", "loop":
		return true
	default:
		return false
	}
}

// RenderHTML produces the canonical fragment for b. Inline rendering is used
// when b.Inline is set and opts.Content is available; a preload hint is
// prepended when b.Preload is set and the asset is referenced by URL.
func RenderHTML(b *Built, opts RenderOptions) (string, error) {
	inline := b.Inline && opts.Content != nil
	var el element
	var err error
	if inline {
		el, err = inlineElement(b, opts.Content)
		if err != nil {
			return "", err
		}
	} else {
		el = referenceElement(b)
	}
	el.attrs = mergeAttributes(el.attrs, opts.Attributes)

	var sb strings.Builder
	if b.Preload && !inline && b.Type != TypeFont {
		hint := element{tag: atom.Link, void: true, attrs: []attr{
			{"rel", "preload"}, {"href", b.URL}, {"as", preloadDestination(b.Type)},
		}}
		hint.write(&sb)
	}
	el.write(&sb)
	return sb.String(), nil
}

func referenceElement(b *Built) element {
	switch b.Type {
	case TypeStyle:
		return element{tag: atom.Link, void: true, attrs: []attr{{"rel", "stylesheet"}, {"href", b.URL}}}
	case TypeScript:
		return element{tag: atom.Script, attrs: []attr{{"src", b.URL}}}
	case TypeImage, TypeTexture:
		return element{tag: atom.Img, void: true, attrs: []attr{{"src", b.URL}, {"alt", b.Name}}}
	case TypeIcon:
		return element{tag: atom.Link, void: true, attrs: []attr{{"rel", "icon"}, {"href", b.URL}}}
	case TypeFont:
		return element{tag: atom.Link, void: true, attrs: []attr{
			{"rel", "preload"}, {"href", b.URL}, {"as", "font"}, {"type", MediaType(b.Extension)}, {"crossorigin", ""},
		}}
	case TypeVideo:
		return element{tag: atom.Video, attrs: []attr{{"src", b.URL}, {"controls", ""}}}
	case TypeAudio:
		return element{tag: atom.Audio, attrs: []attr{{"src", b.URL}, {"controls", ""}}}
	default:
		return element{tag: atom.A, attrs: []attr{{"href", b.URL}}, body: html.EscapeString(b.Name)}
	}
}

func inlineElement(b *Built, content []byte) (element, error) {
	switch b.Type {
	case TypeStyle:
		return element{tag: atom.Style, body: closeGuard(string(content), "</style")}, nil
	case TypeScript:
		return element{tag: atom.Script, body: closeGuard(string(content), "</script")}, nil
	case TypeImage, TypeTexture, TypeIcon:
		uri := "data:" + MediaType(b.Extension) + ";base64," + base64.StdEncoding.EncodeToString(content)
		return element{tag: atom.Img, void: true, attrs: []attr{{"src", uri}, {"alt", b.Name}}}, nil
	case TypeText:
		if b.Extension == "md" {
			var buf bytes.Buffer
			if err := goldmark.Convert(content, &buf); err != nil {
				return element{}, err
			}
			return element{tag: atom.Div, body: buf.String()}, nil
		}
		return element{tag: atom.Pre, body: html.EscapeString(string(content))}, nil
	default:
		return referenceElement(b), nil
	}
}

// closeGuard keeps inline content from terminating its own element early.
func closeGuard(body, closing string) string {
	lower := strings.ToLower(body)
	if !strings.Contains(lower, closing) {
		return body
	}
	var sb strings.Builder
	for {
		i := strings.Index(lower, closing)
		if i < 0 {
			sb.WriteString(body)
			return sb.String()
		}
		sb.WriteString(body[:i])
		sb.WriteString(`<\/`)
		sb.WriteString(body[i+2 : i+len(closing)])
		body = body[i+len(closing):]
		lower = lower[i+len(closing):]
	}
}

func preloadDestination(t Type) string {
	switch t {
	case TypeStyle:
		return "style"
	case TypeScript:
		return "script"
	case TypeImage, TypeTexture, TypeIcon:
		return "image"
	case TypeFont:
		return "font"
	case TypeVideo:
		return "video"
	case TypeAudio:
		return "audio"
	default:
		return "fetch"
	}
}

func mergeAttributes(canonical []attr, extra map[string]string) []attr {
	if len(extra) == 0 {
		return canonical
	}
	lowered := make(map[string]string, len(extra))
	for k, v := range extra {
		lowered[strings.ToLower(k)] = v
	}
	keys := make([]string, 0, len(lowered))
	for k := range lowered {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	merged := append([]attr(nil), canonical...)
	index := make(map[string]int, len(merged))
	for i, a := range merged {
		index[a.key] = i
	}
	for _, k := range keys {
		if i, ok := index[k]; ok {
			merged[i].val = lowered[k]
			continue
		}
		index[k] = len(merged)
		merged = append(merged, attr{k, lowered[k]})
	}
	return merged
}
