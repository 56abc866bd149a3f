package fitbit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lowmess/vitals/timewindow"
	"github.com/lowmess/vitals/upstream"
	"github.com/lowmess/vitals/upstream/fitbit"

	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.HandlerFunc) *fitbit.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return fitbit.NewClient(upstream.NewClient(nil, time.Second), ts.URL)
}

func TestSteps(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(
			t, "/1/user/-/activities/steps/date/today/30d.json",
			r.URL.Path,
		)
		require.Equal(t, "Bearer fitbit-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"activities-steps": [
			{"dateTime": "2023-03-14", "value": "100"},
			{"dateTime": "2023-03-15", "value": "250"}
		]}`))
	})

	total, err := c.Steps("fitbit-token")
	require.NoError(t, err)
	require.Equal(t, 350, total)
}

func TestStepsEmptyReport(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"activities-steps": []}`))
	})

	total, err := c.Steps("t")
	require.NoError(t, err)
	require.Equal(t, 0, total)
}

func TestStepsMissingCollection(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false}`))
	})

	_, err := c.Steps("t")
	var shapeErr *upstream.UnexpectedShapeError
	require.ErrorAs(t, err, &shapeErr)
	require.Equal(t, "activities-steps", shapeErr.Expected)
}

func TestStepsNonNumericValue(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"activities-steps": [{"value": "lots"}]}`))
	})

	_, err := c.Steps("t")
	var shapeErr *upstream.UnexpectedShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestStepsUpstreamDown(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Steps("t")
	var transportErr *upstream.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestSleep(t *testing.T) {
	now := time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC)
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(
			t, "/1.2/user/-/sleep/date/2023-02-13/2023-03-15.json",
			r.URL.Path,
		)
		_, _ = w.Write([]byte(`{"sleep": [
			{"duration": 3600000},
			{"duration": 1800000}
		]}`))
	})

	hours, err := c.Sleep("t", timewindow.Trailing30(now))
	require.NoError(t, err)
	require.Equal(t, 1.5, hours)
}

// A response without a sleep object is the one upstream failure that
// is surfaced as an error instead of degrading to null.
func TestSleepMissingObject(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.Sleep("t", timewindow.Trailing30(time.Now()))
	require.ErrorIs(t, err, fitbit.MissingSleepDataError{})
}

func TestSleepEmptyLog(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sleep": []}`))
	})

	hours, err := c.Sleep("t", timewindow.Trailing30(time.Now()))
	require.NoError(t, err)
	require.Equal(t, 0.0, hours)
}
