// Package extract turns one FetchResult into candidate tasks, endpoints,
// forms, and parameter sets. Extractor selection is by content-type, with
// a sniffed fallback for responses that omit or lie about it. Every URL
// leaving this package is resolved against the fetch result's final URL,
// canonicalised, scope-checked, and extension/path filtered before it is
// returned — nothing downstream re-normalises.
package extract

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/endabyss/endabyss/internal/model"
	"github.com/endabyss/endabyss/internal/urlnorm"
)

// Context carries the per-call state Extract needs beyond the FetchResult
// itself: current depth, the scope predicate, and normalisation options.
// Origin is stamped onto every new Endpoint/Task this call produces so a
// caller juggling more than one Target's Scope can dispatch children back
// to the Scope they descend from. Rejected, if non-nil, is incremented once
// per candidate URL dropped for being out of scope — the spec's "scope
// rejection... counted in stats" requirement.
type Context struct {
	Depth    int
	MaxDepth int
	Scope    *urlnorm.Scope
	NormOpts urlnorm.Options
	Filter   Filter
	Origin   string
	Rejected *atomic.Int64
}

func (c Context) reject() {
	if c.Rejected != nil {
		c.Rejected.Add(1)
	}
}

// Extract dispatches fr to the appropriate extractor and returns
// resolved, canonical, in-scope findings.
func Extract(ctx Context, fr model.FetchResult) model.ExtractOutput {
	base, err := url.Parse(fr.FinalURL)
	if err != nil {
		return model.ExtractOutput{}
	}

	kind := classify(fr.ContentType, fr.Body)

	b := &builder{ctx: ctx, base: base}

	switch kind {
	case kindHTML:
		b.fromHTML(fr.Body)
	case kindJS:
		b.fromJS(string(fr.Body), fr.FinalURL, model.SourceExternalJS)
	case kindJSON:
		b.fromJSON(fr.Body)
	}

	// Every candidate endpoint's own query string is a QUERY parameter
	// source, regardless of which extractor produced it.
	b.deriveQueryParams()

	return b.output()
}

// BrowserNetworkEndpoints converts the dynamic backend's observed
// subrequests directly into Endpoints — no regex needed, they are already
// real requests. Still canonicalised and scope-checked.
func BrowserNetworkEndpoints(ctx Context, subrequests []model.FetchRequest) []model.Endpoint {
	var out []model.Endpoint
	for _, req := range subrequests {
		canon, err := urlnorm.Canonicalize(req.URL, nil, ctx.NormOpts)
		if err != nil {
			continue
		}
		if ctx.Scope != nil && !ctx.Scope.InScope(canon) {
			ctx.reject()
			continue
		}
		if !ctx.Filter.Allowed(canon) {
			continue
		}
		method := req.Method
		if method == "" {
			method = "GET"
		}
		out = append(out, model.Endpoint{
			URL: canon, Method: method, Depth: ctx.Depth,
			Sources: []model.EndpointSource{model.SourceBrowserNet},
			Origin:  ctx.Origin,
		})
	}
	return out
}

type contentKind int

const (
	kindUnknown contentKind = iota
	kindHTML
	kindJS
	kindJSON
)

func classify(contentType string, body []byte) contentKind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "html"):
		return kindHTML
	case strings.Contains(ct, "javascript") || strings.Contains(ct, "ecmascript"):
		return kindJS
	case strings.Contains(ct, "json"):
		return kindJSON
	}

	// Sniff first 512 bytes, matching the extractor selection fallback.
	sniffLen := len(body)
	if sniffLen > 512 {
		sniffLen = 512
	}
	sniffed := http.DetectContentType(body[:sniffLen])
	switch {
	case strings.Contains(sniffed, "html"):
		return kindHTML
	case strings.Contains(sniffed, "javascript"):
		return kindJS
	case strings.Contains(sniffed, "json"):
		return kindJSON
	}
	trimmed := strings.TrimSpace(string(body[:sniffLen]))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return kindJSON
	}
	return kindUnknown
}

// builder accumulates one Extract call's findings before final resolution.
type builder struct {
	ctx  Context
	base *url.URL

	tasks      []model.Task
	endpoints  []model.Endpoint
	forms      []model.Form
	parameters []model.ParameterSet

	seenEndpoint map[model.EndpointKey]bool
}

func (b *builder) output() model.ExtractOutput {
	return model.ExtractOutput{
		NewTasks: b.tasks, Endpoints: b.endpoints, Forms: b.forms, Parameters: b.parameters,
	}
}

func (b *builder) fromHTML(body []byte) {
	h := walkHTML(body)

	for _, l := range h.links {
		b.addReference(l.url, l.source)
	}
	for _, content := range h.metaRefresh {
		if target := refreshTarget(content); target != "" {
			b.addReference(target, model.SourceHTMLAttr)
		}
	}
	for _, script := range h.inlineScripts {
		b.fromJS(script, b.base.String(), model.SourceInlineJS)
	}
	for _, onclick := range h.onclickScripts {
		b.fromJS(onclick, b.base.String(), model.SourceHTMLAttr)
	}
	for _, f := range h.forms {
		b.addForm(f)
	}
	for _, comment := range h.comments {
		b.fromComment(comment)
	}
}

// fromComment re-walks a raw HTML comment body as its own fragment: browsers
// never render commented-out markup, but the anchors, onclick handlers, and
// forms left inside it are exactly the kind of endpoint operators forget to
// scrub before deploying. Nested comments inside a comment are not
// recursed into, matching the single re-parse the original tool performs.
func (b *builder) fromComment(comment string) {
	h := walkHTML([]byte(comment))
	for _, l := range h.links {
		b.addReference(l.url, l.source)
	}
	for _, onclick := range h.onclickScripts {
		b.fromJS(onclick, b.base.String(), model.SourceHTMLAttr)
	}
	for _, f := range h.forms {
		b.addForm(f)
	}
}

func (b *builder) fromJS(src, containingURL string, source model.EndpointSource) {
	urls, params := ExtractJS(src)
	for _, u := range urls {
		b.addReference(u, source)
	}
	if len(params) > 0 {
		b.addJSParams(containingURL, params)
	}
}

func (b *builder) fromJSON(body []byte) {
	urls, params := ExtractJSON(body)
	for _, u := range urls {
		b.addReference(u, model.SourceJSON)
	}
	if len(params) > 0 {
		b.addJSParams(b.base.String(), params)
	}
}

func (b *builder) addReference(raw string, source model.EndpointSource) {
	canon, err := urlnorm.Canonicalize(raw, b.base, b.ctx.NormOpts)
	if err != nil {
		return
	}
	if b.ctx.Scope != nil && !b.ctx.Scope.InScope(canon) {
		b.ctx.reject()
		return
	}
	if !b.ctx.Filter.Allowed(canon) {
		return
	}

	key := model.EndpointKey{Method: "GET", URL: canon}
	if b.seenEndpoint == nil {
		b.seenEndpoint = make(map[model.EndpointKey]bool)
	}
	depth := b.ctx.Depth + 1

	if !b.seenEndpoint[key] {
		b.seenEndpoint[key] = true
		b.endpoints = append(b.endpoints, model.Endpoint{
			URL: canon, Method: "GET", Depth: depth, Sources: []model.EndpointSource{source},
			Origin: b.ctx.Origin,
		})
	}

	if depth <= b.ctx.MaxDepth {
		b.tasks = append(b.tasks, model.Task{URL: canon, Method: "GET", Depth: depth, Referrer: b.base.String(), Origin: b.ctx.Origin})
	}
	// Beyond max_depth the endpoint is still recorded above but not
	// enqueued as a task, matching the depth-clamp rule.
}

func (b *builder) addForm(f model.Form) {
	canon, err := urlnorm.Canonicalize(f.ActionURL, b.base, b.ctx.NormOpts)
	if err != nil {
		return
	}
	if b.ctx.Scope != nil && !b.ctx.Scope.InScope(canon) {
		b.ctx.reject()
		return
	}
	if !b.ctx.Filter.Allowed(canon) {
		return
	}
	f.ActionURL = canon
	if f.Method == "" {
		f.Method = "GET"
	}
	b.forms = append(b.forms, f)

	if len(f.Fields) == 0 {
		return
	}
	params := make(map[string]string, len(f.Fields))
	for _, field := range f.Fields {
		params[field.Name] = field.DefaultValue
	}
	b.parameters = append(b.parameters, model.ParameterSet{
		URL: canon, Method: f.Method, Parameters: params, Source: model.ParamSourceForm,
	})

	depth := b.ctx.Depth + 1
	key := model.EndpointKey{Method: f.Method, URL: canon}
	if !b.seenEndpoint[key] {
		if b.seenEndpoint == nil {
			b.seenEndpoint = make(map[model.EndpointKey]bool)
		}
		b.seenEndpoint[key] = true
		b.endpoints = append(b.endpoints, model.Endpoint{
			URL: canon, Method: f.Method, Depth: depth, Sources: []model.EndpointSource{model.SourceHTMLForm},
			Origin: b.ctx.Origin,
		})
	}
}

func (b *builder) addJSParams(containingURL string, names []string) {
	canon, err := urlnorm.Canonicalize(containingURL, b.base, b.ctx.NormOpts)
	if err != nil {
		return
	}
	params := make(map[string]string, len(names))
	for _, n := range names {
		params[n] = ""
	}
	b.parameters = append(b.parameters, model.ParameterSet{
		URL: canon, Method: "GET", Parameters: params, Source: model.ParamSourceJSInfer,
	})
}

// deriveQueryParams walks every endpoint gathered so far and emits a
// QUERY parameter set for any that carry a query string.
func (b *builder) deriveQueryParams() {
	for _, ep := range b.endpoints {
		u, err := url.Parse(ep.URL)
		if err != nil || u.RawQuery == "" {
			continue
		}
		q := u.Query()
		if len(q) == 0 {
			continue
		}
		params := make(map[string]string, len(q))
		names := make([]string, 0, len(q))
		for name, values := range q {
			example := ""
			if len(values) > 0 {
				example = values[0]
			}
			params[name] = example
			names = append(names, name)
		}
		sort.Strings(names)
		b.parameters = append(b.parameters, model.ParameterSet{
			URL: ep.URL, Method: ep.Method, Parameters: params, Source: model.ParamSourceQuery,
		})
	}
}
