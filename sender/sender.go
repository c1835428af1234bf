package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"
)

type Config struct {
	PyroscopeURL string
	AuthToken    string
	AppName      string
	Tags         map[string]string
	Timeout      time.Duration
}

type Sender struct {
	config Config
	client *http.Client
	log    zerolog.Logger
}

// StatusError is returned when the ingest endpoint answers with a non-success status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, response: %s", e.StatusCode, e.Body)
}

func New(config Config, log zerolog.Logger) *Sender {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Sender{
		config: config,
		client: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("component", "sender").Logger(),
	}
}

// SendSample uploads one profile to the Pyroscope ingest endpoint. The ingest
// window is taken from the profile's TimeNanos and DurationNanos.
func (s *Sender) SendSample(ctx context.Context, prof *profile.Profile, sampleTypeConfig map[string]map[string]interface{}) error {
	// Validate the profile
	if err := prof.CheckValid(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	// Convert the profile data to bytes
	var buf bytes.Buffer
	if err := prof.Write(&buf); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}

	// Convert sampleTypeConfig to JSON
	sampleTypeConfigJSON, err := json.Marshal(sampleTypeConfig)
	if err != nil {
		return fmt.Errorf("marshalling sampleTypeConfig: %w", err)
	}

	// Create a multipart form body
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	// Add profile part
	profilePart, err := writer.CreateFormFile("profile", "profile.pprof")
	if err != nil {
		return fmt.Errorf("creating profile part: %w", err)
	}
	if _, err := profilePart.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing profile data: %w", err)
	}

	// Add sample_type_config part with config.json field name
	sampleTypeConfigPart, err := writer.CreateFormFile("sample_type_config", "config.json")
	if err != nil {
		return fmt.Errorf("creating sample_type_config part: %w", err)
	}
	if _, err := sampleTypeConfigPart.Write(sampleTypeConfigJSON); err != nil {
		return fmt.Errorf("writing sample_type_config data: %w", err)
	}

	// Close the writer to finalize the multipart form body
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing writer: %w", err)
	}

	// Set request URL and parameters
	from, until := ingestWindow(prof)
	params := url.Values{}
	params.Set("name", s.appName())
	params.Set("from", strconv.FormatInt(from, 10))
	params.Set("until", strconv.FormatInt(until, 10))

	endpoint := fmt.Sprintf("%s/ingest?%s", strings.TrimSuffix(s.config.PyroscopeURL, "/"), params.Encode())

	// Create request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	// Set headers
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if s.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.AuthToken)
	}

	// Send request
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	// Handle response
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	s.log.Debug().Int("samples", len(prof.Sample)).Msg("profile sent")

	return nil
}

// ingestWindow returns the profile's time range in whole unix seconds, widened
// outwards so that it is never empty.
func ingestWindow(prof *profile.Profile) (from, until int64) {
	start := time.Unix(0, prof.TimeNanos)
	end := start.Add(time.Duration(max(prof.DurationNanos, 0)))
	from = start.Unix()
	until = end.Unix()
	if end.After(time.Unix(until, 0)) {
		until++
	}
	if until <= from {
		until = from + 1
	}
	return from, until
}

// appName renders the application name with tags the way Pyroscope expects:
// name{key=value,...}, keys sorted.
func (s *Sender) appName() string {
	if len(s.config.Tags) == 0 {
		return s.config.AppName
	}
	keys := make([]string, 0, len(s.config.Tags))
	for k := range s.config.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(s.config.AppName)
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(s.config.Tags[k])
	}
	sb.WriteByte('}')
	return sb.String()
}
