// Package functions holds the local functions the assistant may call
package functions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"abby-ai-server/src/configs"
	"abby-ai-server/src/core/assistant"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// UltraShortForecastName tool name registered with the assistant
const UltraShortForecastName = "getUltraSrtFcst"

var kst = time.FixedZone("KST", 9*60*60)

// human readable names of KMA forecast categories
var categoryNames = map[string]string{
	"T1H": "기온(℃)",
	"RN1": "1시간 강수량(mm)",
	"SKY": "하늘상태",
	"UUU": "동서바람성분(m/s)",
	"VVV": "남북바람성분(m/s)",
	"REH": "습도(%)",
	"PTY": "강수형태",
	"LGT": "낙뢰(kA)",
	"VEC": "풍향(deg)",
	"WSD": "풍속(m/s)",
}

var skyCodes = map[string]string{"1": "맑음", "3": "구름많음", "4": "흐림"}

var precipitationCodes = map[string]string{
	"0": "없음", "1": "비", "2": "비/눈", "3": "눈", "5": "빗방울", "6": "빗방울눈날림", "7": "눈날림",
}

// ForecastArgs arguments the model passes to getUltraSrtFcst
type ForecastArgs struct {
	NX int `json:"nx"`
	NY int `json:"ny"`
}

type ForecastSlot struct {
	Date   string            `json:"fcst_date"`
	Time   string            `json:"fcst_time"`
	Values map[string]string `json:"values"`
}

type Forecast struct {
	BaseDate  string         `json:"base_date"`
	BaseTime  string         `json:"base_time"`
	NX        int            `json:"nx"`
	NY        int            `json:"ny"`
	Forecasts []ForecastSlot `json:"forecasts"`
}

// ForecastClient KMA ultra short term forecast (VilageFcstInfoService_2.0)
type ForecastClient struct {
	http       *resty.Client
	serviceKey string
	nx, ny     int
	now        func() time.Time
}

func NewForecastClient(cfg configs.WeatherConfig) *ForecastClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ForecastClient{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(timeout).
			SetRetryCount(1),
		serviceKey: cfg.ServiceKey,
		nx:         cfg.NX,
		ny:         cfg.NY,
		now:        time.Now,
	}
}

// BaseDateTime latest issuance: forecasts are issued at HH30 and published from HH45
func BaseDateTime(now time.Time) (string, string) {
	t := now.In(kst)
	if t.Minute() < 45 {
		t = t.Add(-time.Hour)
	}
	return t.Format("20060102"), fmt.Sprintf("%02d30", t.Hour())
}

// UltraShortForecast fetches the forecast for grid point (nx, ny)
func (c *ForecastClient) UltraShortForecast(ctx context.Context, nx, ny int) (*Forecast, error) {
	if c.serviceKey == "" {
		return nil, errors.New("weather service key is not configured")
	}
	baseDate, baseTime := BaseDateTime(c.now())

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"serviceKey": c.serviceKey,
			"pageNo":     "1",
			"numOfRows":  "60",
			"dataType":   "JSON",
			"base_date":  baseDate,
			"base_time":  baseTime,
			"nx":         strconv.Itoa(nx),
			"ny":         strconv.Itoa(ny),
		}).
		Get("/getUltraSrtFcst")
	if err != nil {
		return nil, fmt.Errorf("request forecast: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("forecast api returned %d", resp.StatusCode())
	}

	forecast, err := parseForecast(resp.Body())
	if err != nil {
		return nil, err
	}
	forecast.BaseDate, forecast.BaseTime = baseDate, baseTime
	forecast.NX, forecast.NY = nx, ny
	return forecast, nil
}

func parseForecast(body []byte) (*Forecast, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("forecast api returned a non JSON body")
	}
	header := gjson.GetBytes(body, "response.header")
	if code := header.Get("resultCode").String(); code != "00" {
		return nil, fmt.Errorf("forecast api error %s: %s", code, header.Get("resultMsg").String())
	}

	slots := make(map[string]*ForecastSlot)
	gjson.GetBytes(body, "response.body.items.item").ForEach(func(_, item gjson.Result) bool {
		date := item.Get("fcstDate").String()
		tm := item.Get("fcstTime").String()
		key := date + tm
		slot, ok := slots[key]
		if !ok {
			slot = &ForecastSlot{Date: date, Time: tm, Values: make(map[string]string)}
			slots[key] = slot
		}
		category := item.Get("category").String()
		slot.Values[categoryName(category)] = categoryValue(category, item.Get("fcstValue").String())
		return true
	})

	keys := make([]string, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	forecast := &Forecast{Forecasts: make([]ForecastSlot, 0, len(keys))}
	for _, k := range keys {
		forecast.Forecasts = append(forecast.Forecasts, *slots[k])
	}
	return forecast, nil
}

func categoryName(category string) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return category
}

func categoryValue(category, value string) string {
	switch category {
	case "SKY":
		if v, ok := skyCodes[value]; ok {
			return v
		}
	case "PTY":
		if v, ok := precipitationCodes[value]; ok {
			return v
		}
	}
	return value
}

// Tool adapts the client to the assistant tool signature; missing grid uses the configured default
func (c *ForecastClient) Tool() assistant.ToolFunc {
	return func(ctx context.Context, arguments json.RawMessage) (any, error) {
		args := ForecastArgs{}
		if err := json.Unmarshal(arguments, &args); err != nil {
			return nil, fmt.Errorf("invalid %s arguments: %w", UltraShortForecastName, err)
		}
		if args.NX == 0 {
			args.NX = c.nx
		}
		if args.NY == 0 {
			args.NY = c.ny
		}
		return c.UltraShortForecast(ctx, args.NX, args.NY)
	}
}
