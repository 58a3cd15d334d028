// Package model holds the data types that cross component boundaries:
// Target, Task, Endpoint, Form, ParameterSet, and the fetch request/result
// pair. Every URL held here is expected to already be canonical (see
// internal/urlnorm) by the time it reaches a component that stores it.
package model

import "time"

// ScopeMode selects the membership predicate a Target applies to
// candidate URLs.
type ScopeMode int

const (
	ScopeSameRegisteredDomain ScopeMode = iota
	ScopeSameHost
	ScopeExactPrefix
)

func (m ScopeMode) String() string {
	switch m {
	case ScopeSameRegisteredDomain:
		return "same-registered-domain"
	case ScopeSameHost:
		return "same-host"
	case ScopeExactPrefix:
		return "exact-prefix"
	default:
		return "unknown"
	}
}

// Target is an immutable scan boundary: an origin plus a path prefix and
// the scope predicate applied to every candidate URL derived from it.
type Target struct {
	Scheme     string
	Host       string // includes port if non-default
	PathPrefix string
	Scope      ScopeMode
	Seed       string // original seed URL, for logging/diagnostics
}

// EndpointSource names where an Endpoint was observed.
type EndpointSource string

const (
	SourceHTMLAnchor EndpointSource = "HTML_A"
	SourceHTMLForm   EndpointSource = "HTML_FORM"
	SourceHTMLAttr   EndpointSource = "HTML_ATTR"
	SourceInlineJS   EndpointSource = "INLINE_JS"
	SourceExternalJS EndpointSource = "EXT_JS"
	SourceJSON       EndpointSource = "JSON"
	SourceBrowserNet EndpointSource = "BROWSER_NET"
	SourceDirScan    EndpointSource = "DIRSCAN"

	// SourceSeed marks a URL that entered the frontier as an operator-supplied
	// seed rather than something discovered during extraction. The spec's
	// source taxonomy covers discovery methods; seeds need a distinct tag so
	// they still surface in Result.Endpoints (see end-to-end scenario 1).
	SourceSeed EndpointSource = "SEED"
)

// ParameterSource names where a ParameterSet was inferred from.
type ParameterSource string

const (
	ParamSourceQuery     ParameterSource = "QUERY"
	ParamSourceForm      ParameterSource = "FORM"
	ParamSourceJSInfer   ParameterSource = "JS_INFERRED"
)

// Endpoint is a (method, url) pair observed or inferred as a request
// target. Identity for dedup purposes is (Method, URL).
type Endpoint struct {
	URL         string           `json:"url"`
	Method      string           `json:"method"`
	Sources     []EndpointSource `json:"sources"` // union of every source that produced this identity
	ContentType string           `json:"content_type,omitempty"`
	Status      int              `json:"status,omitempty"`
	Depth       int              `json:"depth"`
	Truncated   bool             `json:"truncated,omitempty"`
	// Origin is the host of the Target this endpoint was discovered under.
	// Internal bookkeeping only (not part of the reported result shape) so
	// a multi-target run can dispatch directory probing against the
	// correct per-target Scope instead of guessing from a shared one.
	Origin string `json:"-"`
}

// Key returns the dedup identity of the endpoint.
func (e Endpoint) Key() EndpointKey { return EndpointKey{Method: e.Method, URL: e.URL} }

// EndpointKey is the (method, url) dedup identity for an Endpoint.
type EndpointKey struct {
	Method string
	URL    string
}

// FormField is one input inside a harvested Form.
type FormField struct {
	Name         string `json:"name"`
	DefaultValue string `json:"default_value,omitempty"`
	InputType    string `json:"input_type,omitempty"`
}

// Form is a harvested <form> with its resolved action URL and fields in
// document order.
type Form struct {
	ActionURL string      `json:"action_url"`
	Method    string      `json:"method"`
	Fields    []FormField `json:"fields"`
}

// FormKey is the dedup identity of a form: method, action URL, and the
// sorted set of field names.
type FormKey struct {
	Method      string
	ActionURL   string
	FieldNames  string // sorted, comma-joined, precomputed by caller
}

// ParameterSet is a set of named inputs observed on one (method, url)
// endpoint from a single source.
type ParameterSet struct {
	URL        string            `json:"url"`
	Method     string            `json:"method"`
	Parameters map[string]string `json:"parameters"` // name -> example value
	Source     ParameterSource   `json:"source"`
}

// ParameterSetKey is the dedup identity: method, url without query string,
// and the sorted set of parameter names.
type ParameterSetKey struct {
	Method         string
	URLNoQuery     string
	ParameterNames string // sorted, comma-joined
}

// FetchRequest describes one outbound request a backend should perform.
type FetchRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

// FetchResult is what a backend produced for a FetchRequest.
type FetchResult struct {
	FinalURL            string
	Status              int
	Headers             map[string][]string
	Body                []byte
	ContentType         string
	Elapsed             time.Duration
	Truncated           bool
	ObservedSubrequests []FetchRequest // dynamic backend only
}

// Task is one unit of frontier work. Origin is the host of the Target it
// descends from, so a multi-target run can look up the right per-target
// Scope for it instead of sharing one Scope across every target.
type Task struct {
	URL      string
	Method   string
	Depth    int
	Referrer string
	Origin   string
}

// ExtractOutput is what one Extract call produces.
type ExtractOutput struct {
	NewTasks   []Task
	Endpoints  []Endpoint
	Forms      []Form
	Parameters []ParameterSet
}

// Stats accumulates run-level counters for the final Result.
type Stats struct {
	Fetched int           `json:"fetched"`
	Failed  int           `json:"failed"`
	Deduped int           `json:"deduped"`
	Elapsed time.Duration `json:"elapsed"`
}

// Result is the core's sole output: everything a scan discovered plus
// run statistics and whether it was cut short by cancellation.
type Result struct {
	Endpoints  []Endpoint     `json:"endpoints"`
	Forms      []Form         `json:"forms"`
	Parameters []ParameterSet `json:"parameters"`
	Stats      Stats          `json:"stats"`
	Cancelled  bool           `json:"cancelled"`
}
