package domainapi

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/use-agent/webpeel/models"
)

var (
	reYouTubeHost = regexp.MustCompile(`(?i)^(www\.|m\.)?(youtube\.com|youtu\.be)$`)
	reCaptionURL  = regexp.MustCompile(`"captionTracks":(\[.*?\])`)
)

// IsYouTubeVideoURL reports whether target looks like a YouTube watch page
// or short link, the Stage 2 HandleSpecialUrl gate.
func IsYouTubeVideoURL(target *url.URL) bool {
	if !reYouTubeHost.MatchString(target.Host) {
		return false
	}
	if target.Host == "youtu.be" {
		return strings.TrimPrefix(target.Path, "/") != ""
	}
	return target.Path == "/watch" && target.Query().Get("v") != ""
}

func videoID(target *url.URL) string {
	if strings.Contains(target.Host, "youtu.be") {
		return strings.TrimPrefix(target.Path, "/")
	}
	return target.Query().Get("v")
}

var ytHTTPClient = &http.Client{Timeout: 15 * time.Second}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// YouTubeTranscript fetches a video's caption track and returns it as
// structured content: it calls the watch page to discover the caption
// track list (embedded as JSON in a script tag), then fetches the
// track's own timedtext XML endpoint and flattens it into plain text.
func YouTubeTranscript(ctx context.Context, target *url.URL) (*ExtractedContent, error) {
	id := videoID(target)
	if id == "" {
		return nil, fmt.Errorf("youtube: could not determine video id from %s", target)
	}

	watchURL := "https://www.youtube.com/watch?v=" + id
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := ytHTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube: watch page status %d", resp.StatusCode)
	}

	buf := make([]byte, 0, 512*1024)
	chunk := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if rerr != nil || len(buf) > 3*1024*1024 {
			break
		}
	}
	page := string(buf)

	title := extractYouTubeTitle(page)

	m := reCaptionURL.FindStringSubmatch(page)
	if m == nil {
		return nil, fmt.Errorf("youtube: no caption tracks found for %s", id)
	}

	tracks := parseCaptionTracks(m[1])
	track := pickTrack(tracks)
	if track == nil {
		return nil, fmt.Errorf("youtube: caption track list empty for %s", id)
	}

	transcript, err := fetchTranscript(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}

	content := "# " + title + "\n\n" + transcript

	return &ExtractedContent{
		Title:   title,
		Content: content,
		Metadata: models.Metadata{
			Title:       title,
			SiteName:    "YouTube",
			SourceURL:   watchURL,
			FetchMethod: string(models.MethodDomainAPI),
		},
	}, nil
}

var reYTTitle = regexp.MustCompile(`"title":"((?:[^"\\]|\\.)*)"`)

func extractYouTubeTitle(page string) string {
	m := reYTTitle.FindStringSubmatch(page)
	if m == nil {
		return "YouTube video"
	}
	return strings.ReplaceAll(m[1], `\"`, `"`)
}

// parseCaptionTracks extracts baseUrl/languageCode/kind from the raw
// captionTracks JSON array without pulling in a full player-response
// struct (the surrounding object has dozens of irrelevant fields).
func parseCaptionTracks(raw string) []captionTrack {
	var tracks []captionTrack
	reEntry := regexp.MustCompile(`\{[^{}]*"baseUrl":"([^"]+)"[^{}]*"languageCode":"([^"]+)"[^{}]*\}`)
	for _, m := range reEntry.FindAllStringSubmatch(raw, -1) {
		baseURL := strings.ReplaceAll(m[1], "\\u0026", "&")
		baseURL = strings.ReplaceAll(baseURL, `\/`, "/")
		kind := ""
		if strings.Contains(m[0], `"kind":"asr"`) {
			kind = "asr"
		}
		tracks = append(tracks, captionTrack{BaseURL: baseURL, LanguageCode: m[2], Kind: kind})
	}
	return tracks
}

// pickTrack prefers an English manual track, then any manual track, then
// falls back to auto-generated (ASR) captions.
func pickTrack(tracks []captionTrack) *captionTrack {
	var firstManual, firstASR, englishManual *captionTrack
	for i := range tracks {
		t := &tracks[i]
		if t.Kind == "asr" {
			if firstASR == nil {
				firstASR = t
			}
			continue
		}
		if firstManual == nil {
			firstManual = t
		}
		if strings.HasPrefix(t.LanguageCode, "en") && englishManual == nil {
			englishManual = t
		}
	}
	switch {
	case englishManual != nil:
		return englishManual
	case firstManual != nil:
		return firstManual
	default:
		return firstASR
	}
}

type transcriptXML struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
}

func fetchTranscript(ctx context.Context, trackURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := ytHTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("youtube: transcript endpoint status %d", resp.StatusCode)
	}

	var doc transcriptXML
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, line := range doc.Texts {
		text := htmlUnescapeMinimal(strings.TrimSpace(line.Text))
		if text == "" {
			continue
		}
		sb.WriteString(text)
		sb.WriteString(" ")
	}
	return strings.TrimSpace(sb.String()), nil
}

func htmlUnescapeMinimal(s string) string {
	replacer := strings.NewReplacer(
		"&amp;", "&", "&#39;", "'", "&quot;", `"`, "&gt;", ">", "&lt;", "<",
	)
	return replacer.Replace(s)
}
