package routing

import (
	"bytes"
	"context"
	"delivery-trajectory-service/internal/domain"
	"delivery-trajectory-service/internal/geo"
	"delivery-trajectory-service/internal/platform/obs"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/paulmach/orb/geojson"
)

const defaultORSBaseURL = "https://api.openrouteservice.org"

// ORSRouteProvider implements RouteProvider using the OpenRouteService
// directions API. The provider is safe for concurrent use.
type ORSRouteProvider struct {
	client  httpClient
	profile string
}

func NewORSRouteProvider(apiKey, baseURL, profile string, session *http.Client) (*ORSRouteProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultORSBaseURL
	}
	if strings.TrimSpace(profile) == "" {
		profile = "driving-car"
	}

	return &ORSRouteProvider{
		client:  newHTTPClient(baseURL, apiKey, session),
		profile: profile,
	}, nil
}

func (o *ORSRouteProvider) Route(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (_ domain.Path, err error) {
	defer obs.Time(ctx, "routing.ors.Route")(&err)

	payload := map[string]any{
		"coordinates": [][]float64{origin.CoordsToList(), destination.CoordsToList()},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ors route: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/v2/directions/%s/geojson", o.client.baseURL, o.profile)
	req, err := o.client.newRequest(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ors route: %w", err)
	}

	resp, err := o.client.do(req)
	if err != nil {
		return nil, fmt.Errorf("ors route: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ors route: read response: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("ors route: decode response: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, errors.New("ors route: response has no features")
	}

	path, err := geo.FromGeometry(fc.Features[0].Geometry)
	if err != nil {
		return nil, fmt.Errorf("ors route: %w", err)
	}
	return path, nil
}
