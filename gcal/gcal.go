package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseUrl = "https://www.googleapis.com/calendar/v3"

// Client reads upcoming events from a named calendar.
type Client struct {
	AccessToken string
	BaseUrl     string
	http        *http.Client
}

func New(accessToken string) *Client {
	return &Client{
		AccessToken: accessToken,
		BaseUrl:     defaultBaseUrl,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

// Event is a calendar entry. AllDay events carry only a date and are
// never trip obligations.
type Event struct {
	Summary  string
	Location string
	Start    time.Time
	End      time.Time
	AllDay   bool
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

func (et eventTime) parse() (time.Time, bool, error) {
	if et.DateTime != "" {
		t, err := time.Parse(time.RFC3339, et.DateTime)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.UTC(), false, nil
	}
	if et.Date != "" {
		t, err := time.Parse("2006-01-02", et.Date)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.UTC(), true, nil
	}
	return time.Time{}, false, fmt.Errorf("event without start or end time")
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.BaseUrl + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call calendar api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// findCalendarId resolves a calendar name to its id among the calendars
// the token has access to.
func (c *Client) findCalendarId(ctx context.Context, name string) (string, error) {
	var list struct {
		Items []struct {
			Id      string `json:"id"`
			Summary string `json:"summary"`
		} `json:"items"`
	}
	if err := c.get(ctx, "/users/me/calendarList", nil, &list); err != nil {
		return "", err
	}
	for _, item := range list.Items {
		if item.Summary == name {
			return item.Id, nil
		}
	}
	return "", fmt.Errorf("calendar %q not found", name)
}

// UpcomingEvents returns the events of the named calendar starting
// within the window, ordered by start time.
func (c *Client) UpcomingEvents(ctx context.Context, calendarName string, window time.Duration, maxResults int) ([]Event, error) {
	id, err := c.findCalendarId(ctx, calendarName)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	q := url.Values{}
	q.Set("timeMin", now.Format(time.RFC3339))
	q.Set("timeMax", now.Add(window).Format(time.RFC3339))
	q.Set("maxResults", fmt.Sprintf("%d", maxResults))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")

	var res struct {
		Items []struct {
			Summary  string    `json:"summary"`
			Location string    `json:"location"`
			Start    eventTime `json:"start"`
			End      eventTime `json:"end"`
		} `json:"items"`
	}
	if err := c.get(ctx, "/calendars/"+url.PathEscape(id)+"/events", q, &res); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(res.Items))
	for _, item := range res.Items {
		start, allDay, err := item.Start.parse()
		if err != nil {
			return nil, fmt.Errorf("failed to parse event start: %w", err)
		}
		end, _, err := item.End.parse()
		if err != nil {
			return nil, fmt.Errorf("failed to parse event end: %w", err)
		}
		events = append(events, Event{
			Summary:  item.Summary,
			Location: item.Location,
			Start:    start,
			End:      end,
			AllDay:   allDay,
		})
	}

	return events, nil
}
