package builder

import (
	"bytes"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
)

var (
	scriptMapComment = regexp.MustCompile(`//[#@][ \t]*sourceMappingURL=([^\s'"]+)[ \t]*`)
	styleMapComment  = regexp.MustCompile(`/\*[#@][ \t]*sourceMappingURL=([^\s*]+)[ \t]*\*/`)
)

// relinkSourceMap points the trailing sourceMappingURL comment of a style or
// script at target, or drops it when target is empty. Absolute, root-relative
// and data: references are kept as written.
func relinkSourceMap(t asset.Type, content []byte, target string) []byte {
	var (
		re     *regexp.Regexp
		prefix string
		suffix string
	)
	switch t {
	case asset.TypeScript:
		re, prefix = scriptMapComment, "//# sourceMappingURL="
	case asset.TypeStyle:
		re, prefix, suffix = styleMapComment, "/*# sourceMappingURL=", " */"
	default:
		return content
	}

	matches := re.FindAllSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content
	}
	loc := matches[len(matches)-1]
	if len(bytes.TrimSpace(content[loc[1]:])) != 0 {
		return content
	}
	ref := string(content[loc[2]:loc[3]])
	if strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "/") || strings.Contains(ref, "://") {
		return content
	}

	out := make([]byte, 0, len(content)+len(target))
	out = append(out, content[:loc[0]]...)
	if target != "" {
		out = append(out, prefix...)
		out = append(out, target...)
		out = append(out, suffix...)
	}
	return append(out, content[loc[1]:]...)
}
