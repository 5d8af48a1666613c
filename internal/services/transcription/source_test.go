package transcription

import (
	"testing"

	"captioner/internal/jobs"
)

func TestDriveFileID(t *testing.T) {
	tests := []struct {
		link string
		want string
		ok   bool
	}{
		{"https://drive.google.com/file/d/1AbCdEfGhIjKlMnOp/view?usp=sharing", "1AbCdEfGhIjKlMnOp", true},
		{"https://drive.google.com/open?id=1AbCdEfGhIjKlMnOp", "1AbCdEfGhIjKlMnOp", true},
		{"https://drive.google.com/uc?id=1AbCdEfGhIjKlMnOp&export=download", "1AbCdEfGhIjKlMnOp", true},
		{"1AbCdEfGhIjKlMnOpQrStUvWx", "1AbCdEfGhIjKlMnOpQrStUvWx", true},
		{"https://drive.google.com/drive/folders", "", false},
		{"short", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := DriveFileID(tt.link)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DriveFileID(%q) = %q, %v; want %q, %v", tt.link, got, ok, tt.want, tt.ok)
		}
	}
}

func TestResolveSource(t *testing.T) {
	const drive = "https://drive.google.com/uc?export=download"

	direct, err := ResolveSource(" https://cdn.example.com/a.mp4 ", jobs.SourceDirectURL, drive)
	if err != nil {
		t.Fatalf("direct: %v", err)
	}
	if direct.URL != "https://cdn.example.com/a.mp4" || direct.Download {
		t.Fatalf("unexpected direct source %+v", direct)
	}

	cloud, err := ResolveSource("https://drive.google.com/file/d/1AbCdEfGhIjKlMnOp/view", jobs.SourceCloudDrive, drive)
	if err != nil {
		t.Fatalf("cloud: %v", err)
	}
	if cloud.URL != "https://drive.google.com/uc?export=download&id=1AbCdEfGhIjKlMnOp" || !cloud.Download {
		t.Fatalf("unexpected cloud source %+v", cloud)
	}

	for _, bad := range []struct {
		url    string
		source jobs.VideoSource
	}{
		{"", jobs.SourceDirectURL},
		{"ftp://example.com/a.mp4", jobs.SourceDirectURL},
		{"/relative.mp4", jobs.SourceDirectURL},
		{"https://drive.google.com/drive/folders", jobs.SourceCloudDrive},
		{"https://cdn.example.com/a.mp4", jobs.VideoSource("ftp")},
	} {
		if _, err := ResolveSource(bad.url, bad.source, drive); err == nil {
			t.Errorf("expected error for %q (%s)", bad.url, bad.source)
		}
	}
}
