package apiclient

import (
	"errors"
	"time"

	"github.com/hydrosim/exchange/internal/logger"
	"github.com/hydrosim/exchange/pkg/session"
)

// Retrying wrappers for the polling protocol between coupled models.
//
// The flag is the only synchronizer between producer and consumer, so both
// sides poll it with a fixed wall-clock delay. There is no backoff: coupled
// simulations exchange at a steady cadence and a growing delay would only
// add latency to every timestep.

// JoinSessionWithRetries attempts to join the session until it succeeds or
// maxRetries attempts are exhausted.
//
// Returns:
//   - StatusCreated when the join succeeded
//   - StatusError when the session already has a joined participant
//     (retrying cannot help)
//   - StatusUnknown after exhausting all attempts
func (c *Client) JoinSessionWithRetries(id session.ID, inviteeID int, maxRetries int, retryDelay time.Duration) session.Status {
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := c.JoinSession(id, inviteeID)
		if err == nil {
			logger.Info("joined session", "session_id", id.String())
			return session.StatusCreated
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsConflict() {
			logger.Error("session already active", "session_id", id.String())
			return session.StatusError
		}

		logger.Warn("join failed, retrying",
			"session_id", id.String(), "attempt", attempt+1, "error", err)
		time.Sleep(retryDelay)
	}
	return session.StatusUnknown
}

// SendDataWithRetries polls the variable's flag until the slot is free, then
// uploads the payload.
//
// Returns 1 on success, 0 after exhausting all attempts or on a send error.
func (c *Client) SendDataWithRetries(id session.ID, varID int, values []float64, maxRetries int, retryDelay time.Duration) int {
	for attempt := 0; attempt < maxRetries; attempt++ {
		flag, err := c.GetVariableFlag(id, varID)
		if err != nil {
			logger.Warn("flag check failed, retrying",
				"var_id", varID, "attempt", attempt+1, "error", err)
			time.Sleep(retryDelay)
			continue
		}

		if flag == 0 {
			if err := c.SendData(id, varID, values); err != nil {
				logger.Error("send failed", "var_id", varID, "error", err)
				return 0
			}
			return 1
		}

		logger.Debug("slot not drained yet, retrying",
			"var_id", varID, "attempt", attempt+1)
		time.Sleep(retryDelay)
	}

	logger.Error("send exhausted all attempts", "var_id", varID, "attempts", maxRetries)
	return 0
}

// CheckDataAvailabilityWithRetries polls the variable's flag until a payload
// is available.
//
// Returns 1 when data is available, 0 after exhausting all attempts.
func (c *Client) CheckDataAvailabilityWithRetries(id session.ID, varID int, maxRetries int, retryDelay time.Duration) int {
	for attempt := 0; attempt < maxRetries; attempt++ {
		flag, err := c.GetVariableFlag(id, varID)
		if err == nil && flag == 1 {
			return 1
		}

		logger.Debug("data not available yet, retrying",
			"var_id", varID, "attempt", attempt+1)
		time.Sleep(retryDelay)
	}

	logger.Error("availability check exhausted all attempts",
		"var_id", varID, "attempts", maxRetries)
	return 0
}

// ReceiveDataWithRetries polls the variable's flag until a payload is
// available, then drains it.
//
// Returns (1, payload) on success, (0, nil) after exhausting all attempts or
// on a receive error.
func (c *Client) ReceiveDataWithRetries(id session.ID, varID int, maxRetries int, retryDelay time.Duration) (int, []float64) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		flag, err := c.GetVariableFlag(id, varID)
		if err == nil && flag == 1 {
			values, err := c.ReceiveData(id, varID)
			if err != nil {
				logger.Error("receive failed", "var_id", varID, "error", err)
				return 0, nil
			}
			return 1, values
		}

		logger.Debug("payload not ready, retrying",
			"var_id", varID, "attempt", attempt+1)
		time.Sleep(retryDelay)
	}

	logger.Error("receive exhausted all attempts", "var_id", varID, "attempts", maxRetries)
	return 0, nil
}
