package routing

import (
	"context"
	"delivery-trajectory-service/internal/domain"
	"delivery-trajectory-service/internal/geo"
	"delivery-trajectory-service/internal/platform/obs"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/paulmach/orb/geojson"
)

const defaultOSRMBaseURL = "https://router.project-osrm.org"

// OSRMRouteProvider implements RouteProvider against an OSRM server.
type OSRMRouteProvider struct {
	client  httpClient
	profile string
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64          `json:"distance"`
		Duration float64          `json:"duration"`
		Geometry geojson.Geometry `json:"geometry"`
	} `json:"routes"`
}

// NewOSRMRouteProvider builds a provider. An empty baseURL selects the
// public demo server, an empty profile selects "driving".
func NewOSRMRouteProvider(baseURL, profile string, session *http.Client) *OSRMRouteProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOSRMBaseURL
	}
	if strings.TrimSpace(profile) == "" {
		profile = "driving"
	}
	return &OSRMRouteProvider{
		client:  newHTTPClient(baseURL, "", session),
		profile: profile,
	}
}

func (o *OSRMRouteProvider) Route(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (_ domain.Path, err error) {
	defer obs.Time(ctx, "routing.osrm.Route")(&err)

	url := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		o.client.baseURL, o.profile, origin.Lon, origin.Lat, destination.Lon, destination.Lat)

	req, err := o.client.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("osrm route: %w", err)
	}

	resp, err := o.client.do(req)
	if err != nil {
		return nil, fmt.Errorf("osrm route: %w", err)
	}
	defer resp.Body.Close()

	var parsed osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("osrm route: decode response: %w", err)
	}

	if parsed.Code != "" && parsed.Code != "Ok" {
		return nil, fmt.Errorf("osrm route: %s: %s", parsed.Code, parsed.Message)
	}
	if len(parsed.Routes) == 0 {
		return nil, errors.New("osrm route: response has no routes")
	}

	path, err := geo.FromGeometry(parsed.Routes[0].Geometry.Geometry())
	if err != nil {
		return nil, fmt.Errorf("osrm route: %w", err)
	}
	return path, nil
}
