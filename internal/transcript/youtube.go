package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"videoqa/internal/contextutil"
	"videoqa/internal/domain"
)

const (
	// DefaultPlayerURL is the innertube player endpoint queried for caption tracks.
	DefaultPlayerURL = "https://www.youtube.com/youtubei/v1/player?prettyPrint=false"

	clientName    = "ANDROID"
	clientVersion = "19.09.37"
	userAgent     = "com.google.android.youtube/19.09.37 (Linux; U; Android 11) gzip"
)

var (
	bracketNoise = regexp.MustCompile(`\[(?:Music|Applause|Laughter|Cheering|Inaudible)\]`)
	multiSpace   = regexp.MustCompile(`\s+`)
)

// captionTrack from the innertube player response.
type captionTrack struct {
	BaseURL string `json:"baseUrl"`
	Lang    string `json:"languageCode"`
	Kind    string `json:"kind"`
}

// timedText is the srv3 timedtext format: <timedtext><body><p t="ms" d="ms">.
type timedText struct {
	XMLName xml.Name `xml:"timedtext"`
	Body    struct {
		Paragraphs []struct {
			Start int    `xml:"t,attr"`
			Dur   int    `xml:"d,attr"`
			Text  string `xml:",chardata"`
			Words []struct {
				Text string `xml:",chardata"`
			} `xml:"s"`
		} `xml:"p"`
	} `xml:"body"`
}

// legacyTimedText is the older format: <transcript><text start="s" dur="s">.
type legacyTimedText struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
}

// YouTubeOptions configures a YouTubeFetcher.
type YouTubeOptions struct {
	PlayerURL  string        // defaults to DefaultPlayerURL
	HTTPClient *http.Client  // defaults to http.DefaultClient
	Every      time.Duration // minimum spacing between outbound requests; defaults to 200ms
	Burst      int           // defaults to 5
}

// YouTubeFetcher implements Source against YouTube's innertube and timedtext endpoints.
type YouTubeFetcher struct {
	playerURL   string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewYouTubeFetcher creates a fetcher.
func NewYouTubeFetcher(opts YouTubeOptions) *YouTubeFetcher {
	if opts.PlayerURL == "" {
		opts.PlayerURL = DefaultPlayerURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Every <= 0 {
		opts.Every = 200 * time.Millisecond
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	return &YouTubeFetcher{
		playerURL:   opts.PlayerURL,
		httpClient:  opts.HTTPClient,
		rateLimiter: rate.NewLimiter(rate.Every(opts.Every), opts.Burst),
	}
}

// Fetch picks the caption track for the first language hint that has one,
// preferring manual captions over automatic ones, and parses its segments.
// Tracks in other languages are never used.
func (f *YouTubeFetcher) Fetch(ctx context.Context, videoID string, languages []string) (*domain.Transcript, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(languages) == 0 {
		languages = DefaultLanguages
	}

	tracks, err := f.fetchCaptionTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}

	track, ok := selectTrack(tracks, languages)
	if !ok {
		return nil, fmt.Errorf("%w: no track for languages %v", ErrNoTranscript, languages)
	}

	segments, err := f.fetchSegments(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: track %s has no text", ErrNoTranscript, track.Lang)
	}

	logger.InfoContext(ctx, "transcript fetched", "language", track.Lang, "kind", track.Kind, "segments", len(segments))
	return &domain.Transcript{
		VideoID:  videoID,
		Language: track.Lang,
		Segments: segments,
	}, nil
}

// selectTrack walks the hints in order; for each hint a manual track beats an ASR one,
// and an exact language code beats a regional variant (en vs en-GB).
func selectTrack(tracks []captionTrack, languages []string) (captionTrack, bool) {
	for _, lang := range languages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			continue
		}
		for _, exact := range []bool{true, false} {
			for _, asr := range []bool{false, true} {
				for _, t := range tracks {
					if (t.Kind == "asr") != asr {
						continue
					}
					code := strings.ToLower(t.Lang)
					if exact && code == lang {
						return t, true
					}
					if !exact && strings.HasPrefix(code, lang+"-") {
						return t, true
					}
				}
			}
		}
	}
	return captionTrack{}, false
}

// fetchCaptionTracks uses the innertube player API (ANDROID client) to list caption tracks.
func (f *YouTubeFetcher) fetchCaptionTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	payload := map[string]any{
		"context": map[string]any{
			"client": map[string]any{
				"clientName":        clientName,
				"clientVersion":     clientVersion,
				"androidSdkVersion": 30,
				"hl":                "en",
				"gl":                "US",
			},
		},
		"videoId":        videoID,
		"contentCheckOk": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal player request: %w", err)
	}

	respBody, status, err := f.do(ctx, http.MethodPost, f.playerURL, body)
	if err != nil {
		return nil, fmt.Errorf("player request failed: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("player request: bad status %d", status)
	}

	var result struct {
		PlayabilityStatus struct {
			Status string `json:"status"`
			Reason string `json:"reason"`
		} `json:"playabilityStatus"`
		Captions struct {
			PlayerCaptionsTracklistRenderer struct {
				CaptionTracks []captionTrack `json:"captionTracks"`
			} `json:"playerCaptionsTracklistRenderer"`
		} `json:"captions"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}

	tracks := result.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		if reason := result.PlayabilityStatus.Reason; reason != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoTranscript, reason)
		}
		return nil, fmt.Errorf("%w: no caption tracks in player response", ErrNoTranscript)
	}

	return tracks, nil
}

func (f *YouTubeFetcher) fetchSegments(ctx context.Context, baseURL string) ([]domain.Segment, error) {
	u := baseURL
	if !strings.Contains(u, "fmt=") {
		if strings.Contains(u, "?") {
			u += "&fmt=srv3"
		} else {
			u += "?fmt=srv3"
		}
	}

	body, status, err := f.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("timedtext request failed: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("timedtext request: bad status %d", status)
	}

	return ParseTimedText(body)
}

func (f *YouTubeFetcher) do(ctx context.Context, method, u string, body []byte) ([]byte, int, error) {
	if err := f.rateLimiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return respBody, resp.StatusCode, nil
}

// ParseTimedText parses srv3 or legacy timedtext XML into cleaned segments.
// Segments whose text is empty after cleaning are dropped.
func ParseTimedText(body []byte) ([]domain.Segment, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err == nil && len(tt.Body.Paragraphs) > 0 {
		segments := make([]domain.Segment, 0, len(tt.Body.Paragraphs))
		for _, p := range tt.Body.Paragraphs {
			raw := p.Text
			if len(p.Words) > 0 {
				var sb strings.Builder
				for _, w := range p.Words {
					sb.WriteString(w.Text)
				}
				raw = sb.String()
			}
			text := CleanTranscript(raw)
			if text == "" {
				continue
			}
			segments = append(segments, domain.Segment{
				Text:     text,
				Start:    float64(p.Start) / 1000,
				Duration: float64(p.Dur) / 1000,
			})
		}
		return segments, nil
	}

	var legacy legacyTimedText
	if err := xml.Unmarshal(body, &legacy); err == nil && len(legacy.Texts) > 0 {
		segments := make([]domain.Segment, 0, len(legacy.Texts))
		for _, t := range legacy.Texts {
			text := CleanTranscript(t.Text)
			if text == "" {
				continue
			}
			start, _ := strconv.ParseFloat(t.Start, 64)
			dur, _ := strconv.ParseFloat(t.Dur, 64)
			segments = append(segments, domain.Segment{
				Text:     text,
				Start:    start,
				Duration: dur,
			})
		}
		return segments, nil
	}

	return nil, fmt.Errorf("%w: unrecognized timedtext payload", ErrNoTranscript)
}

// CleanTranscript removes bracket noise, decodes HTML entities, collapses whitespace, and trims.
func CleanTranscript(text string) string {
	text = html.UnescapeString(text)
	text = bracketNoise.ReplaceAllString(text, "")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
