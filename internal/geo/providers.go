package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// IPAPIProvider использует ipapi.co, работает без API-ключа
type IPAPIProvider struct {
	client  *http.Client
	logger  *zap.Logger
	baseURL string // переопределяется в тестах
}

// Lookup запрашивает геоданные у ipapi.co
func (p *IPAPIProvider) Lookup(ctx context.Context, ip string) (*Location, error) {
	base := p.baseURL
	if base == "" {
		base = "https://ipapi.co"
	}
	reqURL := fmt.Sprintf("%s/%s/json/", base, url.PathEscape(ip))

	var body struct {
		Error       bool   `json:"error"`
		CountryName string `json:"country_name"`
		Country     string `json:"country"`
		Region      string `json:"region"`
		RegionCode  string `json:"region_code"`
		City        string `json:"city"`
	}
	if ok, err := fetchJSON(ctx, p.client, reqURL, &body); !ok {
		return nil, err
	}
	// ipapi отдаёт 200 с полем error при неудаче
	if body.Error {
		return nil, nil
	}

	country := body.CountryName
	if country == "" {
		country = body.Country
	}
	region := body.Region
	if region == "" {
		region = body.RegionCode
	}
	return location(country, region, body.City), nil
}

// IPStackProvider использует api.ipstack.com, требует API-ключ
type IPStackProvider struct {
	client  *http.Client
	apiKey  string
	logger  *zap.Logger
	baseURL string
}

// Lookup запрашивает геоданные у ipstack
func (p *IPStackProvider) Lookup(ctx context.Context, ip string) (*Location, error) {
	if p.apiKey == "" {
		return nil, nil
	}
	base := p.baseURL
	if base == "" {
		base = "http://api.ipstack.com"
	}
	reqURL := fmt.Sprintf("%s/%s?access_key=%s", base, url.PathEscape(ip), url.QueryEscape(p.apiKey))

	var body struct {
		CountryName string `json:"country_name"`
		RegionName  string `json:"region_name"`
		City        string `json:"city"`
	}
	if ok, err := fetchJSON(ctx, p.client, reqURL, &body); !ok {
		return nil, err
	}
	return location(body.CountryName, body.RegionName, body.City), nil
}

// IPInfoProvider использует ipinfo.io, требует API-токен
type IPInfoProvider struct {
	client  *http.Client
	apiKey  string
	logger  *zap.Logger
	baseURL string
}

// Lookup запрашивает геоданные у ipinfo
func (p *IPInfoProvider) Lookup(ctx context.Context, ip string) (*Location, error) {
	if p.apiKey == "" {
		return nil, nil
	}
	base := p.baseURL
	if base == "" {
		base = "https://ipinfo.io"
	}
	reqURL := fmt.Sprintf("%s/%s/json?token=%s", base, url.PathEscape(ip), url.QueryEscape(p.apiKey))

	var body struct {
		Country string `json:"country"`
		Region  string `json:"region"`
		City    string `json:"city"`
	}
	if ok, err := fetchJSON(ctx, p.client, reqURL, &body); !ok {
		return nil, err
	}
	return location(body.Country, body.Region, body.City), nil
}

// fetchJSON выполняет GET-запрос и декодирует ответ.
// Не-2xx статус трактуется как отсутствие данных, а не как ошибка.
func fetchJSON(ctx context.Context, client *http.Client, reqURL string, v interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return false, err
	}
	return true, nil
}

// location собирает Location, отдавая nil при полностью пустом результате
func location(country, region, city string) *Location {
	if country == "" && region == "" && city == "" {
		return nil
	}
	return &Location{Country: country, Region: region, City: city}
}
