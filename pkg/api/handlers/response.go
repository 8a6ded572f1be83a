package handlers

import "time"

// Response is the envelope used by the health endpoints.
//
// The RPC endpoints have their own wire shapes; health probes use this
// wrapper so orchestration tooling gets a uniform status/timestamp pair.
type Response struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

func healthyResponse(data any) Response {
	return Response{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
}

func unhealthyResponse(errMsg string) Response {
	return Response{
		Status:    "unhealthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error:     errMsg,
	}
}
