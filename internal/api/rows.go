package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/queryforge/queryforge-cli/internal/bridge"
	"github.com/queryforge/queryforge-cli/internal/validation"
)

// RowsService retrieves data extension rows from the data REST API.
type RowsService struct {
	c *Client
}

const defaultRowPageSize = 2500

// Row is one data extension row: primary key columns plus value columns.
type Row struct {
	Keys   map[string]string `json:"keys"`
	Values map[string]string `json:"values"`
}

// RowPage is one page of rows.
type RowPage struct {
	Count    int   `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Items    []Row `json:"items"`
}

// Page retrieves one page of rows for a data extension by external key.
// Page numbers start at 1. pageSize 0 uses the provider default.
func (s RowsService) Page(ctx context.Context, externalKey string, page, pageSize int) (*RowPage, error) {
	if externalKey == "" {
		return nil, fmt.Errorf("data extension external key is required")
	}
	if err := validation.ValidateExternalKey(externalKey); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultRowPageSize
	}

	var out RowPage
	op := bridge.Operation{
		Method: http.MethodGet,
		Path: fmt.Sprintf("/data/v1/customobjectdata/key/%s/rowset?$page=%d&$pageSize=%d",
			url.PathEscape(externalKey), page, pageSize),
		Timeout: bridge.TimeoutDataRetrieval,
	}
	if err := s.c.rest.RequestJSON(ctx, s.c.identity, op, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// All retrieves every row of a data extension, walking pages until a short
// page signals the end.
func (s RowsService) All(ctx context.Context, externalKey string) ([]Row, error) {
	var rows []Row
	for page := 1; ; page++ {
		rp, err := s.Page(ctx, externalKey, page, defaultRowPageSize)
		if err != nil {
			return nil, err
		}
		rows = append(rows, rp.Items...)
		if len(rp.Items) < rp.PageSize || len(rp.Items) == 0 || len(rows) >= rp.Count {
			return rows, nil
		}
	}
}
