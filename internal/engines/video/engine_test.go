package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fitcheck-workers/internal/artifacts"
	"fitcheck-workers/internal/capabilities"
	"fitcheck-workers/internal/common/config"
	"fitcheck-workers/internal/common/logger"
	"fitcheck-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	url      string
	genErr   error
	clip     []byte
	fetchErr error
	requests []capabilities.VideoRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req capabilities.VideoRequest) (*capabilities.GeneratedVideo, error) {
	f.requests = append(f.requests, req)
	if f.genErr != nil {
		return nil, f.genErr
	}
	return &capabilities.GeneratedVideo{URL: f.url}, nil
}

func (f *fakeGenerator) Fetch(_ context.Context, url string) ([]byte, error) {
	return f.clip, f.fetchErr
}

var shoe = models.ShoeRecommendation{Name: "Dunk Low", Brand: "Nike", Color: "Panda", Style: "sneakers"}

func newStore(t *testing.T) (*artifacts.FSStore, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.ArtifactsConfig{
		UploadDir:    filepath.Join(root, "uploads"),
		GeneratedDir: filepath.Join(root, "generated"),
		VideoDir:     filepath.Join(root, "videos"),
	}
	store, err := artifacts.NewFSStore(cfg)
	require.NoError(t, err)
	return store, cfg.VideoDir
}

func TestSynthesize_Completed(t *testing.T) {
	store, videoDir := newStore(t)
	_, err := store.Save(context.Background(), artifacts.KindGenerated, "generated_abc_front.jpg", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)

	gen := &fakeGenerator{url: "https://fal.media/clip.mp4", clip: []byte("mp4")}
	engine := NewEngine(store, gen, logger.NewTestLogger(t))
	engine.now = func() time.Time { return time.Unix(1700000000, 0) }

	result := engine.Synthesize(context.Background(), "generated_abc_front.jpg", shoe, models.AngleFront)

	assert.Equal(t, models.VideoStatusCompleted, result.Status)
	assert.Equal(t, models.AngleFront, result.Angle)
	assert.Equal(t, "data:video/mp4;base64,bXA0", result.VideoURL)
	assert.Empty(t, result.Cause)

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	assert.Equal(t, "data:image/jpeg;base64,anBlZw==", req.ImageDataURI)
	assert.Equal(t, "8s", req.Duration)
	assert.Equal(t, "720p", req.Resolution)
	assert.False(t, req.GenerateAudio)
	assert.Contains(t, req.Prompt, "They are wearing Nike Dunk Low in Panda.")
	assert.Contains(t, req.Prompt, "Do not change anything about the shoe")

	entries, err := os.ReadDir(videoDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, `^fitcheck_front_[0-9a-f-]{8}_1700000000\.mp4$`, entries[0].Name())
	assert.Equal(t, entries[0].Name(), result.Artifact)
}

func TestSynthesize_Failures(t *testing.T) {
	tests := []struct {
		name      string
		imageName string
		seed      []byte
		gen       *fakeGenerator
		wantCalls int
	}{
		{name: "no source name", imageName: "", gen: &fakeGenerator{}},
		{name: "missing source", imageName: "generated_missing_front.jpg", gen: &fakeGenerator{}},
		{name: "empty source", imageName: "generated_empty_front.jpg", seed: []byte{}, gen: &fakeGenerator{}},
		{
			name:      "provider error",
			imageName: "generated_ok_front.jpg",
			seed:      []byte("jpeg"),
			gen:       &fakeGenerator{genErr: errors.New("fal unavailable")},
			wantCalls: 1,
		},
		{
			name:      "download error",
			imageName: "generated_ok_front.jpg",
			seed:      []byte("jpeg"),
			gen:       &fakeGenerator{url: "https://fal.media/x.mp4", fetchErr: errors.New("404")},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, videoDir := newStore(t)
			if tt.seed != nil {
				_, err := store.Save(context.Background(), artifacts.KindGenerated, tt.imageName, tt.seed, "image/jpeg")
				require.NoError(t, err)
			}
			engine := NewEngine(store, tt.gen, logger.NewNoOpLogger())

			result := engine.Synthesize(context.Background(), tt.imageName, shoe, models.AngleFront)

			assert.Equal(t, models.VideoStatusFailed, result.Status)
			assert.Empty(t, result.VideoURL)
			assert.Empty(t, result.Artifact)
			assert.NotEmpty(t, result.Cause)
			assert.Len(t, tt.gen.requests, tt.wantCalls)

			entries, err := os.ReadDir(videoDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestFailed(t *testing.T) {
	r := Failed(models.AngleFront, nil)
	assert.Equal(t, models.VideoResult{Angle: models.AngleFront, Status: models.VideoStatusFailed}, r)
}
