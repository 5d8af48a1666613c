package transcription

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"captioner/internal/jobs"
)

var (
	driveFilePath = regexp.MustCompile(`/file/d/([A-Za-z0-9_-]{10,})`)
	driveBareID   = regexp.MustCompile(`^[A-Za-z0-9_-]{20,}$`)
)

// Source is a resolved video location.
type Source struct {
	URL string
	// Download is true when the media must be fetched and uploaded rather
	// than passed to the provider by URL.
	Download bool
}

// DriveFileID extracts a Google Drive file id from share links such as
// /file/d/<id>/view, open?id=<id>, uc?id=<id>, or a bare id.
func DriveFileID(link string) (string, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", false
	}
	if m := driveFilePath.FindStringSubmatch(link); m != nil {
		return m[1], true
	}
	if u, err := url.Parse(link); err == nil && u.Host != "" {
		if id := strings.TrimSpace(u.Query().Get("id")); id != "" {
			return id, true
		}
		return "", false
	}
	if driveBareID.MatchString(link) {
		return link, true
	}
	return "", false
}

// ResolveSource maps a job's video URL and source type onto a fetchable URL.
func ResolveSource(videoURL string, source jobs.VideoSource, driveDownloadURL string) (Source, error) {
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return Source{}, fmt.Errorf("video url is empty")
	}
	switch source {
	case "", jobs.SourceDirectURL:
		u, err := url.Parse(videoURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Source{}, fmt.Errorf("video url %q is not an absolute http(s) url", videoURL)
		}
		return Source{URL: videoURL}, nil
	case jobs.SourceCloudDrive:
		id, ok := DriveFileID(videoURL)
		if !ok {
			return Source{}, fmt.Errorf("cannot extract drive file id from %q", videoURL)
		}
		base, err := url.Parse(strings.TrimSpace(driveDownloadURL))
		if err != nil || base.Host == "" {
			return Source{}, fmt.Errorf("invalid drive download url %q", driveDownloadURL)
		}
		query := base.Query()
		query.Set("id", id)
		base.RawQuery = query.Encode()
		return Source{URL: base.String(), Download: true}, nil
	}
	return Source{}, fmt.Errorf("unsupported video source %q", source)
}
