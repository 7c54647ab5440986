package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/deskshell/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the daemon listening on socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

func (c *Client) send(cmd CommandType, payload any) (*Response, error) {
	req := &Request{Command: cmd}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = raw
	}
	return c.sendRequest(req)
}

// Attach names the main window the daemon reserves space for.
func (c *Client) Attach(windowID uint64) error {
	_, err := c.send(CommandAttach, AttachPayload{WindowID: windowID})
	return err
}

// LayoutSettled reports freshly measured chrome.
func (c *Client) LayoutSettled(p LayoutSettledPayload) error {
	_, err := c.send(CommandLayoutSettled, p)
	return err
}

// WindowState reports an OS show state ("normal", "maximized", "minimized").
func (c *Client) WindowState(state string) error {
	_, err := c.send(CommandWindowState, WindowStatePayload{State: state})
	return err
}

// ToggleMaximize sends the maximize button action.
func (c *Client) ToggleMaximize() error {
	_, err := c.send(CommandToggleMaximize, nil)
	return err
}

// Release asks the daemon to drop every reservation it holds.
func (c *Client) Release() error {
	_, err := c.send(CommandRelease, nil)
	return err
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	_, err := c.send(CommandReload, nil)
	return err
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.send(CommandGetStatus, nil)
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// GetMonitors retrieves monitor information
func (c *Client) GetMonitors() (*MonitorsData, error) {
	resp, err := c.send(CommandGetMonitors, nil)
	if err != nil {
		return nil, err
	}

	var monitors MonitorsData
	if err := json.Unmarshal(resp.Data, &monitors); err != nil {
		return nil, fmt.Errorf("failed to parse monitors data: %w", err)
	}

	return &monitors, nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.send(CommandPing, nil)
	return err
}
