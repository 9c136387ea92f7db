// internal/engine/provider/nasa.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"astrogeo/internal/common/config"
	"astrogeo/internal/common/errors"
	"astrogeo/internal/common/httpclient"
)

// nasaBinding is shared plumbing for the NASA open API endpoints.
type nasaBinding struct {
	id       ID
	path     string
	cfg      config.ProviderEndpoint
	client   *httpclient.Client
	timeout  time.Duration
	cacheTTL time.Duration
}

func newNASABinding(id ID, path string, cfg config.ProviderEndpoint) *nasaBinding {
	timeout := config.GetDuration(cfg.Timeout)
	return &nasaBinding{
		id:       id,
		path:     path,
		cfg:      cfg,
		client:   httpclient.New(timeout),
		timeout:  timeout,
		cacheTTL: config.GetDuration(cfg.CacheTTL),
	}
}

func (b *nasaBinding) ID() ID                  { return b.id }
func (b *nasaBinding) Timeout() time.Duration  { return b.timeout }
func (b *nasaBinding) CacheTTL() time.Duration { return b.cacheTTL }
func (b *nasaBinding) Degraded() bool          { return b.cfg.IsDemoKey() }

func (b *nasaBinding) get(ctx context.Context, extra url.Values) ([]byte, error) {
	params := url.Values{}
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	apiKey := b.cfg.APIKey
	if apiKey == "" {
		apiKey = config.DemoKey
	}
	params.Set("api_key", apiKey)

	endpoint := b.cfg.BaseURL + b.path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewProviderParseFailedError(string(b.id), err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, errors.NewProviderTimeoutError(string(b.id), b.timeout)
		}
		return nil, errors.NewProviderHTTPStatusError(string(b.id), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderHTTPStatusError(string(b.id), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewProviderParseFailedError(string(b.id), err)
	}
	return body, nil
}

// --- Astronomy Picture of the Day ---

type ApodRecord struct {
	PictureTitle string `json:"title"`
	Date         string `json:"date"`
	Explanation  string `json:"explanation"`
	URL          string `json:"url"`
}

func (a *ApodRecord) Title() string {
	return fmt.Sprintf("Astronomy Picture of the Day: %s", a.PictureTitle)
}

func (a *ApodRecord) Render() []string {
	explanation := a.Explanation
	if len(explanation) > 400 {
		explanation = explanation[:400] + "..."
	}
	return []string{
		fmt.Sprintf("Date: %s", a.Date),
		explanation,
		fmt.Sprintf("Image: %s", a.URL),
	}
}

type APODBinding struct{ *nasaBinding }

func NewAPOD(cfg config.ProviderEndpoint) *APODBinding {
	return &APODBinding{newNASABinding(APOD, "/planetary/apod", cfg)}
}

func (b *APODBinding) Fetch(ctx context.Context, _ Params) (Renderable, error) {
	body, err := b.get(ctx, url.Values{})
	if err != nil {
		return nil, err
	}

	var record ApodRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, errors.NewProviderParseFailedError(string(b.id), err)
	}
	if record.PictureTitle == "" && record.URL == "" {
		return nil, errors.NewNoMatchError(string(b.id))
	}
	return &record, nil
}

// --- Mars Rover Photos ---

// defaultRoverSol is a sol with rich Curiosity coverage, used when the
// query names no sol.
const defaultRoverSol = 1000

type RoverPhoto struct {
	EarthDate string `json:"earth_date"`
	Camera    string `json:"camera"`
	ImgSrc    string `json:"img_src"`
}

type RoverPhotoSet struct {
	Rover  string       `json:"rover"`
	Sol    int          `json:"sol"`
	Total  int          `json:"total"`
	Photos []RoverPhoto `json:"photos"`
}

func (r *RoverPhotoSet) Title() string {
	return fmt.Sprintf("%s Rover Photos (Sol %d)", r.Rover, r.Sol)
}

func (r *RoverPhotoSet) Render() []string {
	lines := []string{
		fmt.Sprintf("%d photos available from sol %d", r.Total, r.Sol),
	}
	for _, p := range r.Photos {
		lines = append(lines, fmt.Sprintf("%s (%s): %s", p.Camera, p.EarthDate, p.ImgSrc))
	}
	return lines
}

type RoverPhotosBinding struct{ *nasaBinding }

func NewRoverPhotos(cfg config.ProviderEndpoint) *RoverPhotosBinding {
	return &RoverPhotosBinding{newNASABinding(RoverPhotos, "/mars-photos/api/v1/rovers/curiosity/photos", cfg)}
}

type roverResponse struct {
	Photos []struct {
		ImgSrc    string `json:"img_src"`
		EarthDate string `json:"earth_date"`
		Camera    struct {
			FullName string `json:"full_name"`
		} `json:"camera"`
	} `json:"photos"`
}

func (b *RoverPhotosBinding) Fetch(ctx context.Context, p Params) (Renderable, error) {
	sol := p.Sol
	if sol <= 0 {
		sol = defaultRoverSol
	}

	params := url.Values{}
	params.Set("sol", fmt.Sprintf("%d", sol))
	body, err := b.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var parsed roverResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.NewProviderParseFailedError(string(b.id), err)
	}
	if len(parsed.Photos) == 0 {
		return nil, errors.NewNoMatchError(string(b.id))
	}

	limit := p.Count
	if limit <= 0 {
		limit = 3
	}

	set := &RoverPhotoSet{Rover: "Curiosity", Sol: sol, Total: len(parsed.Photos)}
	for i, photo := range parsed.Photos {
		if i >= limit {
			break
		}
		set.Photos = append(set.Photos, RoverPhoto{
			EarthDate: photo.EarthDate,
			Camera:    photo.Camera.FullName,
			ImgSrc:    photo.ImgSrc,
		})
	}
	return set, nil
}

// --- Solar Flares (DONKI) ---

type SolarFlareEvent struct {
	ClassType      string `json:"class_type"`
	BeginTime      string `json:"begin_time"`
	PeakTime       string `json:"peak_time"`
	SourceLocation string `json:"source_location"`
	TotalRecent    int    `json:"total_recent"`
}

func (s *SolarFlareEvent) Title() string {
	return "Recent Solar Flare Activity"
}

func (s *SolarFlareEvent) Render() []string {
	return []string{
		fmt.Sprintf("Most recent flare class: %s", s.ClassType),
		fmt.Sprintf("Began: %s, peaked: %s", s.BeginTime, s.PeakTime),
		fmt.Sprintf("Source region: %s", s.SourceLocation),
		fmt.Sprintf("%d flares recorded in the current reporting window", s.TotalRecent),
	}
}

type SolarFlaresBinding struct{ *nasaBinding }

func NewSolarFlares(cfg config.ProviderEndpoint) *SolarFlaresBinding {
	return &SolarFlaresBinding{newNASABinding(SolarFlares, "/DONKI/FLR", cfg)}
}

type donkiFlare struct {
	ClassType      string `json:"classType"`
	BeginTime      string `json:"beginTime"`
	PeakTime       string `json:"peakTime"`
	SourceLocation string `json:"sourceLocation"`
}

func (b *SolarFlaresBinding) Fetch(ctx context.Context, _ Params) (Renderable, error) {
	body, err := b.get(ctx, url.Values{})
	if err != nil {
		return nil, err
	}

	var flares []donkiFlare
	if err := json.Unmarshal(body, &flares); err != nil {
		return nil, errors.NewProviderParseFailedError(string(b.id), err)
	}
	if len(flares) == 0 {
		return nil, errors.NewNoMatchError(string(b.id))
	}

	// Most recent flare by begin time.
	sort.Slice(flares, func(i, j int) bool {
		return flares[i].BeginTime > flares[j].BeginTime
	})
	latest := flares[0]
	return &SolarFlareEvent{
		ClassType:      latest.ClassType,
		BeginTime:      latest.BeginTime,
		PeakTime:       latest.PeakTime,
		SourceLocation: latest.SourceLocation,
		TotalRecent:    len(flares),
	}, nil
}

// --- Near-Earth Object Feed ---

type NeoObject struct {
	Name      string  `json:"name"`
	Date      string  `json:"date"`
	Hazardous bool    `json:"hazardous"`
	DiameterM float64 `json:"diameter_m"`
}

type NeoFeed struct {
	TotalCount int         `json:"total_count"`
	Objects    []NeoObject `json:"objects"`
}

func (n *NeoFeed) Title() string {
	return "Near-Earth Objects This Week"
}

func (n *NeoFeed) Render() []string {
	lines := []string{
		fmt.Sprintf("%d near-earth objects in the current feed window", n.TotalCount),
	}
	for _, o := range n.Objects {
		marker := ""
		if o.Hazardous {
			marker = " [potentially hazardous]"
		}
		lines = append(lines, fmt.Sprintf("%s on %s, est. diameter %.0f m%s",
			o.Name, o.Date, o.DiameterM, marker))
	}
	return lines
}

type NEOFeedBinding struct{ *nasaBinding }

func NewNEOFeed(cfg config.ProviderEndpoint) *NEOFeedBinding {
	return &NEOFeedBinding{newNASABinding(NEOFeed, "/neo/rest/v1/feed", cfg)}
}

type neoResponse struct {
	ElementCount    int `json:"element_count"`
	NearEarthObject map[string][]struct {
		Name                           string `json:"name"`
		IsPotentiallyHazardousAsteroid bool   `json:"is_potentially_hazardous_asteroid"`
		EstimatedDiameter              struct {
			Meters struct {
				Max float64 `json:"estimated_diameter_max"`
			} `json:"meters"`
		} `json:"estimated_diameter"`
	} `json:"near_earth_objects"`
}

func (b *NEOFeedBinding) Fetch(ctx context.Context, p Params) (Renderable, error) {
	body, err := b.get(ctx, url.Values{})
	if err != nil {
		return nil, err
	}

	var parsed neoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.NewProviderParseFailedError(string(b.id), err)
	}
	if parsed.ElementCount == 0 {
		return nil, errors.NewNoMatchError(string(b.id))
	}

	perDay := p.Count
	if perDay <= 0 {
		perDay = 2
	}

	feed := &NeoFeed{TotalCount: parsed.ElementCount}

	dates := make([]string, 0, len(parsed.NearEarthObject))
	for date := range parsed.NearEarthObject {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		for i, obj := range parsed.NearEarthObject[date] {
			if i >= perDay {
				break
			}
			feed.Objects = append(feed.Objects, NeoObject{
				Name:      obj.Name,
				Date:      date,
				Hazardous: obj.IsPotentiallyHazardousAsteroid,
				DiameterM: obj.EstimatedDiameter.Meters.Max,
			})
		}
		if len(feed.Objects) >= perDay*2 {
			break
		}
	}
	return feed, nil
}
