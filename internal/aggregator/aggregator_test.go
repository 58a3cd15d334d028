package aggregator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/endabyss/endabyss/internal/model"
)

func TestRecordEndpointMergesSourcesAndTakesMinDepthMaxStatus(t *testing.T) {
	a := New()
	a.RecordEndpoint(model.Endpoint{URL: "http://h/x", Method: "GET", Sources: []model.EndpointSource{model.SourceHTMLAnchor}, Depth: 2, Status: 200})
	a.RecordEndpoint(model.Endpoint{URL: "http://h/x", Method: "GET", Sources: []model.EndpointSource{model.SourceInlineJS}, Depth: 1, Status: 404})

	endpoints, _, _ := a.Finalise()
	require.Len(t, endpoints, 1)
	require.Equal(t, 1, endpoints[0].Depth)
	require.Equal(t, 404, endpoints[0].Status)
	require.ElementsMatch(t, []model.EndpointSource{model.SourceHTMLAnchor, model.SourceInlineJS}, endpoints[0].Sources)
}

func TestRecordFormDedupesByMethodActionAndFieldNames(t *testing.T) {
	a := New()
	a.RecordForm(model.Form{ActionURL: "http://h/login", Method: "POST", Fields: []model.FormField{{Name: "user"}, {Name: "pass"}}})
	a.RecordForm(model.Form{ActionURL: "http://h/login", Method: "POST", Fields: []model.FormField{{Name: "pass"}, {Name: "user"}}})

	_, forms, _ := a.Finalise()
	require.Len(t, forms, 1)
}

func TestRecordParameterSetMergesValues(t *testing.T) {
	a := New()
	a.RecordParameterSet(model.ParameterSet{URL: "http://h/search?q=1", Method: "GET", Parameters: map[string]string{"q": "1"}, Source: model.ParamSourceQuery})
	a.RecordParameterSet(model.ParameterSet{URL: "http://h/search?q=2", Method: "GET", Parameters: map[string]string{"q": ""}, Source: model.ParamSourceQuery})

	_, _, params := a.Finalise()
	require.Len(t, params, 1)
	require.Equal(t, "1", params[0].Parameters["q"])
}

func TestMinParamsSuppressesLowSignalParameterSets(t *testing.T) {
	a := New()
	a.MinParams = 2
	a.RecordParameterSet(model.ParameterSet{URL: "http://h/a", Method: "GET", Parameters: map[string]string{"q": "1"}, Source: model.ParamSourceQuery})
	a.RecordParameterSet(model.ParameterSet{URL: "http://h/b", Method: "GET", Parameters: map[string]string{"q": "1", "page": "2"}, Source: model.ParamSourceQuery})

	_, _, params := a.Finalise()
	require.Len(t, params, 1)
	require.Equal(t, "http://h/b", params[0].URL)
}

func TestFinaliseOrdersDeterministically(t *testing.T) {
	a := New()
	a.RecordEndpoint(model.Endpoint{URL: "http://h/b", Method: "GET", Depth: 1})
	a.RecordEndpoint(model.Endpoint{URL: "http://h/a", Method: "GET", Depth: 0})
	a.RecordEndpoint(model.Endpoint{URL: "http://h/c", Method: "GET", Depth: 1})

	endpoints, _, _ := a.Finalise()
	require.Equal(t, []string{"http://h/a", "http://h/b", "http://h/c"}, []string{endpoints[0].URL, endpoints[1].URL, endpoints[2].URL})
}
