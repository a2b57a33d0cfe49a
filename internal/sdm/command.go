package sdm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrCommandExecution marks a rejected or failed device command. Terminal
// for the invocation; nothing retries it.
var ErrCommandExecution = errors.New("device command failed")

// CommandClient sends executeCommand calls to the SDM API for one device.
type CommandClient struct {
	BaseURL  string
	DeviceID string
	Client   *http.Client
}

// NewCommandClient creates a CommandClient for the given API base URL and
// device.
func NewCommandClient(baseURL, deviceID string) *CommandClient {
	return &CommandClient{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		DeviceID: deviceID,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// commandRequest is the executeCommand body.
type commandRequest struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params"`
}

// SetFanTimer issues Fan.SetTimer with timerMode ON for the configured
// duration (an SDM duration string such as "360s").
func (cc *CommandClient) SetFanTimer(ctx context.Context, accessToken, projectID, duration string) error {
	cmd := commandRequest{
		Command: CommandFanSetTimer,
		Params: map[string]any{
			"timerMode": "ON",
			"duration":  duration,
		},
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("%w: encoding command: %v", ErrCommandExecution, err)
	}

	endpoint := fmt.Sprintf("%s/v1/enterprises/%s/devices/%s:executeCommand", cc.BaseURL, projectID, cc.DeviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCommandExecution, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := cc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCommandExecution, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d: %s", ErrCommandExecution, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
