package tessie

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseUrl = "https://api.tessie.com"

// Client talks to the Tessie vehicle API. Reads use the server side
// cache and never wake the vehicle; commands may require a wake first.
type Client struct {
	ApiToken string
	BaseUrl  string
	http     *http.Client
}

func New(apiToken string) *Client {
	return &Client{
		ApiToken: apiToken,
		BaseUrl:  defaultBaseUrl,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Vehicle binds the client to a single VIN.
func (c *Client) Vehicle(vin string) *Vehicle {
	return &Vehicle{client: c, vin: vin}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseUrl+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.ApiToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call vehicle api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type Vehicle struct {
	client *Client
	vin    string
}

// Exists checks that the VIN is known to the account. This is a plain
// cloud call and never wakes the vehicle.
func (v *Vehicle) Exists(ctx context.Context) (bool, error) {
	var res struct {
		Results []struct {
			Vin string `json:"vin"`
		} `json:"results"`
	}
	if err := v.client.get(ctx, "/vehicles?only_active=false", &res); err != nil {
		return false, err
	}
	for _, r := range res.Results {
		if r.Vin == v.vin {
			return true, nil
		}
	}
	return false, nil
}

type chargeState struct {
	BatteryLevel   int     `json:"battery_level"`
	ChargeLimitSoc int     `json:"charge_limit_soc"`
	ChargePort     string  `json:"charge_port_latch"`
	ChargeRate     float64 `json:"charge_rate"`
	Timestamp      int64   `json:"timestamp"`
}

type driveState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// State is the subset of the vehicle state this program acts on.
type State struct {
	DisplayName string      `json:"display_name"`
	ChargeState chargeState `json:"charge_state"`
	DriveState  driveState  `json:"drive_state"`
}

func (s State) LastSeen() time.Time {
	return time.UnixMilli(s.ChargeState.Timestamp).UTC()
}

func (v *Vehicle) State(ctx context.Context) (State, error) {
	var s State
	if err := v.client.get(ctx, "/"+v.vin+"/state", &s); err != nil {
		return State{}, fmt.Errorf("vehicle state not available: %w", err)
	}
	return s, nil
}

// Status reports "online" or "offline".
func (v *Vehicle) Status(ctx context.Context) (string, error) {
	var res struct {
		Status string `json:"status"`
	}
	if err := v.client.get(ctx, "/"+v.vin+"/status", &res); err != nil {
		return "", fmt.Errorf("vehicle status not available: %w", err)
	}
	switch res.Status {
	case "awake", "waiting_for_sleep":
		return "online", nil
	case "asleep":
		return "offline", nil
	default:
		return "", fmt.Errorf("unrecognized vehicle status %q", res.Status)
	}
}

// Wake asks the vehicle to come online and polls until it does or the
// context expires.
func (v *Vehicle) Wake(ctx context.Context) error {
	var res struct {
		Result bool `json:"result"`
	}
	if err := v.client.get(ctx, "/"+v.vin+"/wake", &res); err != nil {
		return fmt.Errorf("failed to wake vehicle: %w", err)
	}

	for i := 0; i < 10; i++ {
		status, err := v.Status(ctx)
		if err == nil && status == "online" {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
	return fmt.Errorf("vehicle did not come online")
}

func (v *Vehicle) SetChargeLimit(ctx context.Context, percent int) error {
	path := fmt.Sprintf("/%s/command/set_charge_limit?percent=%d", v.vin, percent)
	if err := v.client.get(ctx, path, nil); err != nil {
		return fmt.Errorf("cannot change charge limit: %w", err)
	}
	return nil
}

func (v *Vehicle) StartCharging(ctx context.Context) error {
	if err := v.client.get(ctx, "/"+v.vin+"/command/start_charging", nil); err != nil {
		return fmt.Errorf("cannot start charging: %w", err)
	}
	return nil
}

func (v *Vehicle) StopCharging(ctx context.Context) error {
	if err := v.client.get(ctx, "/"+v.vin+"/command/stop_charging", nil); err != nil {
		return fmt.Errorf("cannot stop charging: %w", err)
	}
	return nil
}
