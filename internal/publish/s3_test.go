package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "videos/abc-123.mp4", Key("abc-123"))
}

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		name      string
		remoteURL string
		bucket    string
		want      string
		wantErr   bool
	}{
		{
			name:      "virtual hosted style",
			remoteURL: "https://clips.s3.us-east-1.amazonaws.com/videos/abc.mp4",
			bucket:    "clips",
			want:      "videos/abc.mp4",
		},
		{
			name:      "path style",
			remoteURL: "http://localhost:9000/clips/videos/abc.mp4",
			bucket:    "clips",
			want:      "videos/abc.mp4",
		},
		{
			name:      "no key",
			remoteURL: "https://clips.s3.us-east-1.amazonaws.com/",
			bucket:    "clips",
			wantErr:   true,
		},
		{
			name:      "invalid URL",
			remoteURL: "://not-a-url",
			bucket:    "clips",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := keyFromURL(tt.remoteURL, tt.bucket)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}
}
