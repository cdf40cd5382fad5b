package analysis

import (
	"regexp"
	"strings"
)

const TypeOther = "other"

type classifier struct {
	name string
	ct   []string
	ext  *regexp.Regexp
	// dirHTML treats URLs ending in "/" as pages.
	dirHTML bool
}

func extRE(exts string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\.(` + exts + `)([?#]|$)`)
}

// classifiers run in order; the first match wins.
var classifiers = []classifier{
	{name: "images", ct: []string{"image"}, ext: extRE("jpg|jpeg|png|gif|svg|webp|ico|bmp")},
	{name: "css", ct: []string{"css"}, ext: extRE("css")},
	{name: "javascript", ct: []string{"javascript", "ecmascript"}, ext: extRE("js|jsx|mjs")},
	{name: "pdf", ct: []string{"pdf"}, ext: extRE("pdf")},
	{name: "fonts", ct: []string{"font"}, ext: extRE("woff|woff2|ttf|eot|otf")},
	{name: "videos", ct: []string{"video"}, ext: extRE("mp4|webm|ogg|avi|mov")},
	{name: "documents", ext: extRE("doc|docx|xls|xlsx|ppt|pptx|txt|csv")},
	{name: "html", ct: []string{"html"}, ext: extRE("html?"), dirHTML: true},
}

// Types lists every category in report order.
func Types() []string {
	out := make([]string, 0, len(classifiers)+1)
	for _, c := range classifiers {
		out = append(out, c.name)
	}
	return append(out, TypeOther)
}

// Classify returns the resource type of a URL given its content type.
func Classify(url, contentType string) string {
	u := strings.ToLower(url)
	ct := strings.ToLower(contentType)
	for _, c := range classifiers {
		if c.match(u, ct) {
			return c.name
		}
	}
	return TypeOther
}

func (c classifier) match(url, ct string) bool {
	for _, s := range c.ct {
		if strings.Contains(ct, s) {
			return true
		}
	}
	if c.ext != nil && c.ext.MatchString(url) {
		return true
	}
	return c.dirHTML && strings.HasSuffix(url, "/")
}
