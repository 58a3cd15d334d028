package main

import (
	"bufio"
	"fmt"
	"io"

	jsonv2 "github.com/go-json-experiment/json"

	"github.com/endabyss/endabyss/internal/model"
)

// writeResult renders result to w according to the selected pipe mode.
// Exactly one of the pipe* flags is expected to be set; when none are,
// writeSummary produces the default human-readable form.
func writeResult(w io.Writer, result model.Result, pipeURL, pipeEndpoint, pipeParam, pipeJSON bool) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	switch {
	case pipeJSON:
		data, err := jsonv2.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		_, err = bw.Write(append(data, '\n'))
		return err
	case pipeURL:
		for _, ep := range result.Endpoints {
			fmt.Fprintln(bw, ep.URL)
		}
		return nil
	case pipeEndpoint:
		for _, ep := range result.Endpoints {
			fmt.Fprintf(bw, "%s %s\n", ep.Method, ep.URL)
		}
		return nil
	case pipeParam:
		for _, ps := range result.Parameters {
			fmt.Fprintln(bw, ps.URL)
		}
		return nil
	default:
		return writeSummary(bw, result)
	}
}

// writeSummary prints the default human-readable report.
func writeSummary(w io.Writer, result model.Result) error {
	fmt.Fprintf(w, "endpoints: %d  forms: %d  parameters: %d\n",
		len(result.Endpoints), len(result.Forms), len(result.Parameters))
	fmt.Fprintf(w, "fetched: %d  failed: %d  deduped: %d  elapsed: %s\n",
		result.Stats.Fetched, result.Stats.Failed, result.Stats.Deduped, result.Stats.Elapsed)
	if result.Cancelled {
		fmt.Fprintln(w, "run cancelled before completion; findings above are partial")
	}
	for _, ep := range result.Endpoints {
		fmt.Fprintf(w, "%-6s %-3d %s\n", ep.Method, ep.Status, ep.URL)
	}
	return nil
}
