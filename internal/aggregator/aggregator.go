// Package aggregator holds the three deduplicated result collections a
// scan produces: endpoints, forms, and parameter sets. Grounded on the
// teacher's own dedup-by-hash convention (cmd/cli's murmur3.Sum32 use for
// favicon fingerprints) — here the hash keys a map of large identity
// structs so a scan against a big site doesn't pay for many long string
// keys.
package aggregator

import (
	"sort"
	"strings"
	"sync"

	"github.com/spaolacci/murmur3"

	"github.com/endabyss/endabyss/internal/model"
)

// Aggregator merges concurrent findings from every worker into the three
// deduplicated collections finalise() snapshots.
type Aggregator struct {
	// MinParams suppresses parameter sets with fewer than this many
	// parameters from Finalise's output. Zero (the default) keeps
	// everything. Set once before the first RecordParameterSet call.
	MinParams int

	mu sync.Mutex

	endpoints map[uint64]*model.Endpoint
	forms     map[uint64]*model.Form
	params    map[uint64]*model.ParameterSet
}

// New builds an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		endpoints: make(map[uint64]*model.Endpoint),
		forms:     make(map[uint64]*model.Form),
		params:    make(map[uint64]*model.ParameterSet),
	}
}

func hashKey(parts ...string) uint64 {
	return murmur3.Sum64([]byte(strings.Join(parts, "\x00")))
}

// RecordEndpoint merges ep into the endpoint collection. On a duplicate
// (method, url) identity, sources are unioned, depth takes the minimum
// seen, and status takes the maximum seen (a later successful probe
// overrides an earlier failed one).
func (a *Aggregator) RecordEndpoint(ep model.Endpoint) {
	key := hashKey(ep.Method, ep.URL)

	a.mu.Lock()
	defer a.mu.Unlock()

	existing, ok := a.endpoints[key]
	if !ok {
		cp := ep
		cp.Sources = append([]model.EndpointSource(nil), ep.Sources...)
		a.endpoints[key] = &cp
		return
	}

	existing.Sources = unionSources(existing.Sources, ep.Sources)
	if ep.Depth < existing.Depth {
		existing.Depth = ep.Depth
	}
	if ep.Status > existing.Status {
		existing.Status = ep.Status
	}
	if existing.ContentType == "" {
		existing.ContentType = ep.ContentType
	}
	if ep.Truncated {
		existing.Truncated = true
	}
}

// RecordForm merges f into the form collection, keyed on (method,
// action_url, sorted field names).
func (a *Aggregator) RecordForm(f model.Form) {
	names := fieldNames(f.Fields)
	key := hashKey(f.Method, f.ActionURL, strings.Join(names, ","))

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.forms[key]; ok {
		return
	}
	cp := f
	cp.Fields = append([]model.FormField(nil), f.Fields...)
	a.forms[key] = &cp
}

// RecordParameterSet merges ps into the parameter-set collection, keyed on
// (method, url without query, sorted parameter names). On a duplicate
// identity, parameter example values are merged (first non-empty wins).
func (a *Aggregator) RecordParameterSet(ps model.ParameterSet) {
	urlNoQuery := stripQuery(ps.URL)
	names := paramNames(ps.Parameters)
	key := hashKey(ps.Method, urlNoQuery, strings.Join(names, ","))

	a.mu.Lock()
	defer a.mu.Unlock()

	existing, ok := a.params[key]
	if !ok {
		cp := ps
		cp.Parameters = make(map[string]string, len(ps.Parameters))
		for k, v := range ps.Parameters {
			cp.Parameters[k] = v
		}
		a.params[key] = &cp
		return
	}
	for k, v := range ps.Parameters {
		if existing.Parameters[k] == "" {
			existing.Parameters[k] = v
		}
	}
}

// Finalise returns deterministic, sorted snapshots of every collection:
// endpoints by (depth asc, url asc); forms by (action_url, method);
// parameter-sets by (url, method).
func (a *Aggregator) Finalise() ([]model.Endpoint, []model.Form, []model.ParameterSet) {
	a.mu.Lock()
	defer a.mu.Unlock()

	endpoints := make([]model.Endpoint, 0, len(a.endpoints))
	for _, e := range a.endpoints {
		endpoints = append(endpoints, *e)
	}
	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].Depth != endpoints[j].Depth {
			return endpoints[i].Depth < endpoints[j].Depth
		}
		return endpoints[i].URL < endpoints[j].URL
	})

	forms := make([]model.Form, 0, len(a.forms))
	for _, f := range a.forms {
		forms = append(forms, *f)
	}
	sort.Slice(forms, func(i, j int) bool {
		if forms[i].ActionURL != forms[j].ActionURL {
			return forms[i].ActionURL < forms[j].ActionURL
		}
		return forms[i].Method < forms[j].Method
	})

	params := make([]model.ParameterSet, 0, len(a.params))
	for _, p := range a.params {
		if len(p.Parameters) < a.MinParams {
			continue
		}
		params = append(params, *p)
	}
	sort.Slice(params, func(i, j int) bool {
		if params[i].URL != params[j].URL {
			return params[i].URL < params[j].URL
		}
		return params[i].Method < params[j].Method
	})

	return endpoints, forms, params
}

func unionSources(a, b []model.EndpointSource) []model.EndpointSource {
	seen := make(map[model.EndpointSource]bool, len(a)+len(b))
	out := make([]model.EndpointSource, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func fieldNames(fields []model.FormField) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func paramNames(params map[string]string) []string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func stripQuery(rawURL string) string {
	if idx := strings.IndexByte(rawURL, '?'); idx >= 0 {
		return rawURL[:idx]
	}
	return rawURL
}
