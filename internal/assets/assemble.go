package assets

import (
	"html"
	"strings"
)

// Assemble rebuilds a full document from a Bundle so diff-style edits can run
// against the page as a whole. The fragment is wrapped in a container element
// carrying containerID, which Split recognizes and unwraps again.
func Assemble(b Bundle, containerID string) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	for _, src := range b.ExternalScripts {
		sb.WriteString(`<script src="`)
		sb.WriteString(html.EscapeString(src))
		sb.WriteString("\"></script>\n")
	}
	if css := strings.TrimSpace(b.CSS); css != "" {
		sb.WriteString("<style>\n")
		sb.WriteString(css)
		sb.WriteString("\n</style>\n")
	}
	sb.WriteString("</head>\n<body>\n")
	if containerID != "" {
		sb.WriteString(`<div id="`)
		sb.WriteString(html.EscapeString(containerID))
		sb.WriteString("\">\n")
	}
	sb.WriteString(strings.TrimSpace(b.HTML))
	sb.WriteString("\n")
	if containerID != "" {
		sb.WriteString("</div>\n")
	}
	if js := strings.TrimSpace(b.JS); js != "" {
		sb.WriteString("<script>\n")
		sb.WriteString(js)
		sb.WriteString("\n</script>\n")
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}
