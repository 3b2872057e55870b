package functions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"abby-ai-server/src/configs"
)

const sampleForecast = `{"response":{"header":{"resultCode":"00","resultMsg":"NORMAL_SERVICE"},
"body":{"dataType":"JSON","items":{"item":[
{"baseDate":"20240501","baseTime":"0930","category":"T1H","fcstDate":"20240501","fcstTime":"1100","fcstValue":"18","nx":60,"ny":127},
{"baseDate":"20240501","baseTime":"0930","category":"SKY","fcstDate":"20240501","fcstTime":"1100","fcstValue":"1","nx":60,"ny":127},
{"baseDate":"20240501","baseTime":"0930","category":"T1H","fcstDate":"20240501","fcstTime":"1000","fcstValue":"17","nx":60,"ny":127},
{"baseDate":"20240501","baseTime":"0930","category":"PTY","fcstDate":"20240501","fcstTime":"1000","fcstValue":"0","nx":60,"ny":127}
]},"pageNo":1,"numOfRows":60,"totalCount":4}}}`

func TestBaseDateTime(t *testing.T) {
	cases := []struct {
		now      time.Time
		wantDate string
		wantTime string
	}{
		{time.Date(2024, 5, 1, 9, 50, 0, 0, kst), "20240501", "0930"},
		{time.Date(2024, 5, 1, 9, 44, 0, 0, kst), "20240501", "0830"},
		{time.Date(2024, 5, 1, 0, 10, 0, 0, kst), "20240430", "2330"},
		// 01:00 UTC is 10:00 KST
		{time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC), "20240501", "0930"},
	}
	for _, tc := range cases {
		gotDate, gotTime := BaseDateTime(tc.now)
		if gotDate != tc.wantDate || gotTime != tc.wantTime {
			t.Errorf("BaseDateTime(%s) = %s %s, want %s %s", tc.now, gotDate, gotTime, tc.wantDate, tc.wantTime)
		}
	}
}

func TestUltraShortForecast(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getUltraSrtFcst" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		gotQuery = map[string]string{
			"base_date": q.Get("base_date"),
			"base_time": q.Get("base_time"),
			"nx":        q.Get("nx"),
			"ny":        q.Get("ny"),
			"dataType":  q.Get("dataType"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleForecast))
	}))
	defer server.Close()

	client := NewForecastClient(configs.WeatherConfig{BaseURL: server.URL, ServiceKey: "key", NX: 60, NY: 127, Timeout: 5})
	client.now = func() time.Time { return time.Date(2024, 5, 1, 9, 50, 0, 0, kst) }

	out, err := client.Tool()(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("tool: %v", err)
	}
	forecast := out.(*Forecast)

	if gotQuery["base_date"] != "20240501" || gotQuery["base_time"] != "0930" {
		t.Fatalf("unexpected base date/time %v", gotQuery)
	}
	if gotQuery["nx"] != "60" || gotQuery["ny"] != "127" || gotQuery["dataType"] != "JSON" {
		t.Fatalf("unexpected query %v", gotQuery)
	}
	if len(forecast.Forecasts) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(forecast.Forecasts))
	}
	first := forecast.Forecasts[0]
	if first.Time != "1000" || first.Values["기온(℃)"] != "17" || first.Values["강수형태"] != "없음" {
		t.Fatalf("unexpected first slot %+v", first)
	}
	if forecast.Forecasts[1].Values["하늘상태"] != "맑음" {
		t.Fatalf("unexpected second slot %+v", forecast.Forecasts[1])
	}
}

func TestUltraShortForecastAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"header":{"resultCode":"03","resultMsg":"NO_DATA"}}}`))
	}))
	defer server.Close()

	client := NewForecastClient(configs.WeatherConfig{BaseURL: server.URL, ServiceKey: "key"})
	if _, err := client.UltraShortForecast(context.Background(), 60, 127); err == nil {
		t.Fatal("expected error for resultCode 03")
	}
}

func TestUltraShortForecastRequiresKey(t *testing.T) {
	client := NewForecastClient(configs.WeatherConfig{BaseURL: "http://127.0.0.1:1"})
	if _, err := client.UltraShortForecast(context.Background(), 60, 127); err == nil {
		t.Fatal("expected error without service key")
	}
}
