package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/queryforge/queryforge-cli/internal/bridge"
	"github.com/queryforge/queryforge-cli/internal/validation"
)

// QueriesService manages query activities on the automation REST API.
type QueriesService struct {
	c *Client
}

// QueryDefinition is a stored SQL query activity.
type QueryDefinition struct {
	QueryDefinitionID string `json:"queryDefinitionId,omitempty"`
	Name              string `json:"name"`
	Key               string `json:"key,omitempty"`
	Description       string `json:"description,omitempty"`
	QueryText         string `json:"queryText"`
	TargetName        string `json:"targetName"`
	TargetKey         string `json:"targetKey,omitempty"`
	TargetUpdateType  string `json:"targetUpdateTypeName,omitempty"`
	CategoryID        int64  `json:"categoryId,omitempty"`
	CreatedDate       string `json:"createdDate,omitempty"`
	ModifiedDate      string `json:"modifiedDate,omitempty"`
}

// queryDefinitionList is the paged list envelope the automation API returns.
type queryDefinitionList struct {
	Count    int               `json:"count"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	Items    []QueryDefinition `json:"items"`
}

// QueryStatus reports whether a query activity is currently running.
type QueryStatus struct {
	QueryDefinitionID string
	Running           bool
}

// List retrieves all query definitions, walking the automation API's pages.
func (s QueriesService) List(ctx context.Context) ([]QueryDefinition, error) {
	var all []QueryDefinition
	for page := 1; ; page++ {
		var out queryDefinitionList
		op := bridge.Operation{
			Method:  http.MethodGet,
			Path:    fmt.Sprintf("/automation/v1/queries?$page=%d", page),
			Timeout: bridge.TimeoutQueueJob,
		}
		if err := s.c.rest.RequestJSON(ctx, s.c.identity, op, &out); err != nil {
			return nil, err
		}
		all = append(all, out.Items...)
		if out.PageSize == 0 || len(out.Items) < out.PageSize || len(all) >= out.Count {
			return all, nil
		}
	}
}

// Get retrieves a single query definition by ID.
func (s QueriesService) Get(ctx context.Context, id string) (*QueryDefinition, error) {
	if id == "" {
		return nil, fmt.Errorf("query definition id is required")
	}
	var def QueryDefinition
	op := bridge.Operation{
		Method:  http.MethodGet,
		Path:    "/automation/v1/queries/" + url.PathEscape(id),
		Timeout: bridge.TimeoutQueueJob,
	}
	if err := s.c.rest.RequestJSON(ctx, s.c.identity, op, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// Create creates a new query activity.
func (s QueriesService) Create(ctx context.Context, def QueryDefinition) (*QueryDefinition, error) {
	if err := validation.ValidateAssetName(def.Name); err != nil {
		return nil, err
	}
	if err := validation.ValidateQueryText(def.QueryText); err != nil {
		return nil, err
	}
	if def.TargetName == "" {
		return nil, fmt.Errorf("target data extension name is required")
	}
	if def.TargetUpdateType == "" {
		def.TargetUpdateType = "Overwrite"
	}

	body, err := json.Marshal(def)
	if err != nil {
		return nil, err
	}

	var created QueryDefinition
	op := bridge.Operation{
		Method:  http.MethodPost,
		Path:    "/automation/v1/queries",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
		Timeout: bridge.TimeoutQueueJob,
	}
	if err := s.c.rest.RequestJSON(ctx, s.c.identity, op, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Start queues a run of the query activity. The provider executes query
// activities asynchronously; poll Status to observe completion.
func (s QueriesService) Start(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("query definition id is required")
	}
	op := bridge.Operation{
		Method:  http.MethodPost,
		Path:    fmt.Sprintf("/automation/v1/queries/%s/actions/start", url.PathEscape(id)),
		Timeout: bridge.TimeoutQueueJob,
	}
	_, err := s.c.rest.Request(ctx, s.c.identity, op)
	return err
}

// Status polls whether the query activity is currently running.
func (s QueriesService) Status(ctx context.Context, id string) (*QueryStatus, error) {
	if id == "" {
		return nil, fmt.Errorf("query definition id is required")
	}
	var out struct {
		IsRunning bool `json:"isRunning"`
	}
	op := bridge.Operation{
		Method:  http.MethodGet,
		Path:    fmt.Sprintf("/automation/v1/queries/%s/actions/isrunning", url.PathEscape(id)),
		Timeout: bridge.TimeoutStatusPoll,
	}
	if err := s.c.rest.RequestJSON(ctx, s.c.identity, op, &out); err != nil {
		return nil, err
	}
	return &QueryStatus{QueryDefinitionID: id, Running: out.IsRunning}, nil
}

// Delete removes a query activity.
func (s QueriesService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("query definition id is required")
	}
	op := bridge.Operation{
		Method:  http.MethodDelete,
		Path:    "/automation/v1/queries/" + url.PathEscape(id),
		Timeout: bridge.TimeoutQueueJob,
	}
	_, err := s.c.rest.Request(ctx, s.c.identity, op)
	return err
}
