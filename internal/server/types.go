// Package server exposes run triggering and run reports over HTTP.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/maauso/offervideo/internal/pipeline"
	"github.com/maauso/offervideo/internal/run"
)

// CreateRunRequest is the HTTP request body for starting a run.
// An empty body or empty feed list processes every feed file.
type CreateRunRequest struct {
	// Feeds are file names inside the feed directory.
	Feeds []string `json:"feeds" validate:"omitempty,max=100,dive,required,endswith=.xml,excludesall=/\\"`
}

// CreateRunResponse is the HTTP response after accepting a run.
type CreateRunResponse struct {
	// ID is the unique identifier for the run.
	ID string `json:"id"`
	// Status is the initial run status.
	Status string `json:"status"`
}

// RunResponse is the HTTP response for run details.
type RunResponse struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Feeds       []string          `json:"feeds,omitempty"`
	Summary     *pipeline.Summary `json:"summary,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// ListRunsResponse is the HTTP response for listing runs.
type ListRunsResponse struct {
	Runs []RunResponse `json:"runs"`
	// Active is the ID of the executing run, if any.
	Active string `json:"active,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

func toRunResponse(r *run.Run) RunResponse {
	resp := RunResponse{
		ID:        r.ID,
		Status:    string(r.Status),
		Feeds:     r.Feeds,
		Error:     r.Error,
		CreatedAt: r.CreatedAt,
	}
	if !r.StartedAt.IsZero() {
		started := r.StartedAt
		resp.StartedAt = &started
	}
	if !r.CompletedAt.IsZero() {
		completed := r.CompletedAt
		resp.CompletedAt = &completed
	}
	if r.Status == run.StatusCompleted {
		sum := r.Summary
		resp.Summary = &sum
	}
	return resp
}
