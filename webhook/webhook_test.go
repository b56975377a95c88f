package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeliverSigned(t *testing.T) {
	var (
		gotSig  string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	event := &Event{Type: EventHarvestCompleted, JobID: "job-1", Timestamp: 1, Data: map[string]int{"records": 3}}
	require.NoError(t, NewNotifier(nil).Deliver(context.Background(), srv.URL, "s3cret", event))

	require.Equal(t, Sign("s3cret", gotBody), gotSig)
	var decoded Event
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	require.Equal(t, "job-1", decoded.JobID)
	require.Equal(t, EventHarvestCompleted, decoded.Type)
}

func TestDeliverUnsigned(t *testing.T) {
	sig := "unset"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig = r.Header.Get(SignatureHeader)
	}))
	defer srv.Close()

	require.NoError(t, NewNotifier(nil).Deliver(context.Background(), srv.URL, "", &Event{Type: EventHarvestFailed}))
	require.Empty(t, sig)
}

func TestDeliverAsyncRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	done := make(chan struct{})
	n := NewNotifier([]time.Duration{0, time.Millisecond, time.Millisecond, time.Millisecond})
	n.DeliverAsync(srv.URL, "", &Event{Type: EventHarvestCompleted}, done)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("delivery did not finish")
	}
	require.Equal(t, int32(3), calls.Load())
}
