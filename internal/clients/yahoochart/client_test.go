package yahoochart

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func chartJSON(timestamps []int64, closes []float64) string {
	ts := ""
	cl := ""
	for i := range timestamps {
		if i > 0 {
			ts += ","
			cl += ","
		}
		ts += fmt.Sprintf("%d", timestamps[i])
		cl += fmt.Sprintf("%g", closes[i])
	}
	return fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{"close":[%s]}],"adjclose":[{"adjclose":[%s]}]}}],"error":null}}`, ts, cl, cl)
}

func testClient(url string) *Client {
	return NewClient(
		WithBaseURL(url),
		WithRateLimit(1000),
		WithRetry(1, time.Millisecond),
	)
}

func TestFetch_ParsesDailyBars(t *testing.T) {
	d1 := day("2024-12-26")
	d2 := day("2024-12-27")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/1326.T" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, chartJSON([]int64{d1.Unix(), d2.Unix()}, []float64{100.5, 101.25}))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	series, err := c.Fetch(context.Background(), "1326.T", d1, d2)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("len = %d, want 2", len(series))
	}
	if series[0].Price != 100.5 || !series[0].Date.Equal(d1) {
		t.Errorf("first bar wrong: %+v", series[0])
	}
}

func TestFetch_ClipsToWindow(t *testing.T) {
	inside := day("2024-12-27")
	outside := day("2025-01-06")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartJSON([]int64{inside.Unix(), outside.Unix()}, []float64{1, 2}))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	series, err := c.Fetch(context.Background(), "1326.T", day("2024-12-01"), day("2024-12-31"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(series) != 1 || !series[0].Date.Equal(inside) {
		t.Errorf("clip failed: %v", series)
	}
}

func TestFetch_UnknownTickerIs404(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := testClient(srv.URL)
	series, err := c.Fetch(context.Background(), "NOPE", day("2024-12-01"), day("2024-12-31"))
	if err != nil || series != nil {
		t.Errorf("404 should be (nil, nil), got %v %v", series, err)
	}
}

func TestFetch_ErrorPayloadMeansNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	series, err := c.Fetch(context.Background(), "1326.T", day("2024-12-01"), day("2024-12-31"))
	if err != nil || series != nil {
		t.Errorf("error payload should be (nil, nil), got %v %v", series, err)
	}
}

func TestFetch_ServerErrorRetriesThenFails(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000), WithRetry(2, time.Millisecond))
	_, err := c.Fetch(context.Background(), "1326.T", day("2024-12-01"), day("2024-12-31"))
	if err == nil {
		t.Fatal("persistent 500 should surface as an error")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (bounded retry)", attempts)
	}
}
