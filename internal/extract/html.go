package extract

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/endabyss/endabyss/internal/model"
)

// linkRef is one raw (unresolved) URL-like reference harvested from the
// HTML tree, tagged with the source it came from.
type linkRef struct {
	url    string
	source model.EndpointSource
}

// htmlHarvest is everything walkHTML pulled out of one document, still in
// raw (unresolved, uncanonicalised) form.
type htmlHarvest struct {
	links          []linkRef
	forms          []model.Form
	inlineScripts  []string // bodies of <script> tags with no src
	onclickScripts []string // onclick attribute values, any tag
	metaRefresh    []string // raw target from meta[http-equiv=refresh]
	comments       []string // raw HTML comment bodies, re-walked by the caller
}

// walkHTML tokenizes body and harvests every reference the extractor spec
// names: a[href], link[href], script[src] (and inline bodies), img[src],
// iframe[src], form[action] with fields, meta[http-equiv=refresh],
// data-url/data-href attributes, onclick JS handlers on any tag, and HTML
// comment bodies (hidden endpoints left behind by commented-out markup).
func walkHTML(body []byte) htmlHarvest {
	var h htmlHarvest
	z := html.NewTokenizer(strings.NewReader(string(body)))

	var curForm *model.Form
	var inScript bool
	var scriptHasSrc bool
	var scriptBuf strings.Builder

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		tok := z.Token()

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			switch tok.Data {
			case "a", "link":
				if href, ok := attr(tok, "href"); ok {
					h.links = append(h.links, linkRef{href, model.SourceHTMLAnchor})
				}
			case "img", "iframe":
				if src, ok := attr(tok, "src"); ok {
					h.links = append(h.links, linkRef{src, model.SourceHTMLAttr})
				}
			case "script":
				if src, ok := attr(tok, "src"); ok {
					h.links = append(h.links, linkRef{src, model.SourceExternalJS})
					scriptHasSrc = true
				} else {
					scriptHasSrc = false
				}
				if tt == html.StartTagToken {
					inScript = true
					scriptBuf.Reset()
				}
			case "form":
				action, _ := attr(tok, "action")
				method := "GET"
				if m, ok := attr(tok, "method"); ok && m != "" {
					method = strings.ToUpper(m)
				}
				curForm = &model.Form{ActionURL: action, Method: method}
			case "input", "textarea", "select":
				if curForm != nil {
					name, hasName := attr(tok, "name")
					if hasName && name != "" {
						typ, _ := attr(tok, "type")
						if typ == "" {
							typ = "text"
						}
						val, _ := attr(tok, "value")
						curForm.Fields = append(curForm.Fields, model.FormField{
							Name: name, DefaultValue: val, InputType: typ,
						})
					}
				}
			case "meta":
				if he, ok := attr(tok, "http-equiv"); ok && strings.EqualFold(he, "refresh") {
					if content, ok := attr(tok, "content"); ok {
						h.metaRefresh = append(h.metaRefresh, content)
					}
				}
			}

			if du, ok := attr(tok, "data-url"); ok {
				h.links = append(h.links, linkRef{du, model.SourceHTMLAttr})
			}
			if dh, ok := attr(tok, "data-href"); ok {
				h.links = append(h.links, linkRef{dh, model.SourceHTMLAttr})
			}
			if oc, ok := attr(tok, "onclick"); ok && oc != "" {
				h.onclickScripts = append(h.onclickScripts, oc)
			}

		case html.CommentToken:
			if strings.TrimSpace(tok.Data) != "" {
				h.comments = append(h.comments, tok.Data)
			}

		case html.TextToken:
			if inScript && !scriptHasSrc {
				scriptBuf.WriteString(tok.Data)
			}

		case html.EndTagToken:
			switch tok.Data {
			case "script":
				if inScript && !scriptHasSrc && scriptBuf.Len() > 0 {
					h.inlineScripts = append(h.inlineScripts, scriptBuf.String())
				}
				inScript = false
			case "form":
				if curForm != nil {
					h.forms = append(h.forms, *curForm)
					curForm = nil
				}
			}
		}
	}

	return h
}

func attr(tok html.Token, name string) (string, bool) {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// refreshTarget extracts the URL portion of a meta-refresh content value,
// e.g. "5;url=/next" -> "/next".
func refreshTarget(content string) string {
	idx := strings.Index(strings.ToLower(content), "url=")
	if idx == -1 {
		return ""
	}
	target := content[idx+4:]
	target = strings.Trim(target, `'" `)
	return target
}
