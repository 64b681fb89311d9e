package telephony

import (
	"context"
	"os"
)

// MockDownloader writes a placeholder file instead of fetching the
// recording. Used by mock runs and tests.
type MockDownloader struct{}

func (MockDownloader) DownloadAudio(ctx context.Context, audioURL, dest string) error {
	return os.WriteFile(dest, []byte("mock audio payload"), 0o644)
}
