package bridge

import (
	"context"
	"fmt"
	"log/slog"
)

// SOAP retrieve statuses the pagination driver understands. Anything else
// is an operation failure.
const (
	StatusOK       = "OK"
	StatusMoreData = "MoreDataAvailable"
)

// MaxPages bounds continuation-based retrieval. A provider that keeps
// reporting MoreDataAvailable past this many requests is treated as
// misbehaving rather than looped on forever.
const MaxPages = 10

// Page is one SOAP retrieve response as seen by the pagination driver.
// Cursor is the opaque continuation token to feed to the next request when
// Status is MoreDataAvailable.
type Page struct {
	Status        string
	StatusMessage string
	Cursor        string
}

// PageFunc issues one retrieve request. An empty cursor means the initial
// request; a non-empty cursor means a continuation. Implementations
// accumulate their results as a side effect and report only the paging
// state here.
type PageFunc func(ctx context.Context, cursor string) (Page, error)

// Paginate drives fn until the provider reports completion. Pages arrive
// strictly in request order, so accumulated results are ordered. Hitting
// MaxPages while the provider still reports more data fails with
// pagination-exceeded instead of truncating silently.
func Paginate(ctx context.Context, op string, fn PageFunc) error {
	cursor := ""
	for requests := 1; requests <= MaxPages; requests++ {
		page, err := fn(ctx, cursor)
		if err != nil {
			return err
		}

		switch page.Status {
		case StatusOK:
			return nil
		case StatusMoreData:
			slog.Debug("more data available", "operation", op, "page", requests)
			cursor = page.Cursor
		default:
			return &Error{
				Class:         ClassSOAPOperationFailure,
				Operation:     op,
				StatusMessage: page.Status + ": " + page.StatusMessage,
			}
		}
	}
	return &Error{
		Class:         ClassPaginationExceeded,
		Operation:     op,
		StatusMessage: fmt.Sprintf("provider still reports more data after %d pages", MaxPages),
	}
}
