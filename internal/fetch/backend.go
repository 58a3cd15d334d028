// Package fetch implements the two backends behind the FetchRequest ->
// FetchResult contract: a pooled-connection static HTTP client, and a
// chromedp-driven headless browser that additionally surfaces observed
// network subrequests. Both share the Backend interface so the scheduler
// never needs to know which one it is talking to.
package fetch

import (
	"context"

	"github.com/endabyss/endabyss/internal/model"
)

// Backend is the capability set both fetch backends implement: fetch a
// request, and release resources at the end of a run.
type Backend interface {
	Fetch(ctx context.Context, req model.FetchRequest) (model.FetchResult, error)
	Close() error
}
