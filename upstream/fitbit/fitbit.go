// Package fitbit reads activity and sleep reports from the FitBit API.
package fitbit

import (
	"strconv"

	"github.com/lowmess/vitals/timewindow"
	"github.com/lowmess/vitals/upstream"
)

const DefaultBaseURL = "https://api.fitbit.com"

type Client struct {
	HTTP    *upstream.Client
	BaseURL string
}

func NewClient(http *upstream.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{HTTP: http, BaseURL: baseURL}
}

// MissingSleepDataError reports a sleep report without a sleep object.
// Unlike every other upstream failure this one is surfaced to the
// client as a field error instead of a null fallback.
type MissingSleepDataError struct{}

func (MissingSleepDataError) Error() string {
	return "FitBit responded without a sleep object"
}

type stepEntry struct {
	DateTime string `json:"dateTime"`
	Value    string `json:"value"`
}

type stepsResponse struct {
	ActivitiesSteps []stepEntry `json:"activities-steps"`
}

// Steps returns the total step count over the 30 days ending today.
func (c *Client) Steps(token string) (int, error) {
	url := c.BaseURL + "/1/user/-/activities/steps/date/today/30d.json"

	var body stepsResponse
	if err := c.HTTP.GetJSON(url, bearer(token), &body); err != nil {
		return 0, err
	}
	if body.ActivitiesSteps == nil {
		return 0, &upstream.UnexpectedShapeError{
			Upstream: "fitbit",
			Expected: "activities-steps",
		}
	}

	total := 0
	for _, a := range body.ActivitiesSteps {
		n, err := strconv.Atoi(a.Value)
		if err != nil {
			return 0, &upstream.UnexpectedShapeError{
				Upstream: "fitbit",
				Expected: "numeric step value",
			}
		}
		total += n
	}
	return total, nil
}

type sleepEntry struct {
	Duration int64 `json:"duration"`
}

type sleepResponse struct {
	Sleep *[]sleepEntry `json:"sleep"`
}

// Sleep returns the hours slept over the given window, summing each
// night's duration (reported in milliseconds).
func (c *Client) Sleep(token string, w timewindow.Window) (float64, error) {
	start, end := w.FitbitRange()
	url := c.BaseURL + "/1.2/user/-/sleep/date/" + start + "/" + end + ".json"

	var body sleepResponse
	if err := c.HTTP.GetJSON(url, bearer(token), &body); err != nil {
		return 0, err
	}
	if body.Sleep == nil {
		return 0, MissingSleepDataError{}
	}

	var hours float64
	for _, night := range *body.Sleep {
		hours += float64(night.Duration) / 1000 / 60 / 60
	}
	return hours, nil
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
