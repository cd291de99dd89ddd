package service

import (
	"Reclaim/internal/api/config"
	"context"
	log "log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// GeocodeService 正向地理编码：地址文本换经纬度
type GeocodeService interface {
	Forward(ctx context.Context, address, city, state, country string) (float64, float64, error)
}

type geocodeResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

type GeocodeServiceImpl struct {
	client *resty.Client
}

func NewGeocodeService(cfg *config.Config) GeocodeService {
	client := resty.New().
		SetBaseURL(cfg.Geocode.URL).
		SetHeader("User-Agent", cfg.Geocode.UserAgent).
		SetTimeout(5 * time.Second)

	return &GeocodeServiceImpl{client: client}
}

func (s *GeocodeServiceImpl) Forward(ctx context.Context, address, city, state, country string) (float64, float64, error) {
	parts := make([]string, 0, 4)
	for _, p := range []string{address, city, state, country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	if len(parts) == 0 {
		return 0, 0, ErrGeocodeFailed
	}

	var results []geocodeResult
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      strings.Join(parts, ", "),
			"format": "json",
			"limit":  "1",
		}).
		SetResult(&results).
		Get("/search")
	if err != nil {
		log.ErrorContext(ctx, "geocode request error", "err", err)
		return 0, 0, ErrGeocodeFailed
	}
	if resp.IsError() || len(results) == 0 {
		return 0, 0, ErrGeocodeFailed
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, ErrGeocodeFailed
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, ErrGeocodeFailed
	}
	return lat, lng, nil
}
