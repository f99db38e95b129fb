package generatevideos

import (
	"context"
	"testing"
	"time"

	"fitcheck-workers/internal/common/config"
	apperrors "fitcheck-workers/internal/common/errors"
	"fitcheck-workers/internal/common/logger"
	"fitcheck-workers/internal/models"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	results []models.ShoeVideoResult
	err     error
	calls   int
}

func (f *fakePipeline) Videos(context.Context, string, []models.ShoeRecommendation) ([]models.ShoeVideoResult, error) {
	f.calls++
	return f.results, f.err
}

func TestHandler_Execute_CountsStatuses(t *testing.T) {
	samba := models.ShoeRecommendation{Name: "Samba", Brand: "Adidas"}
	pipeline := &fakePipeline{results: []models.ShoeVideoResult{
		{Index: 0, Shoe: samba, Videos: []models.VideoResult{{Angle: models.AngleFront, Status: models.VideoStatusCompleted, VideoURL: "data:video/mp4;base64,AA==", Artifact: "fitcheck_front_1a2b3c4d_1700000000.mp4"}}},
		{Index: 1, Shoe: samba, Videos: []models.VideoResult{{Angle: models.AngleFront, Status: models.VideoStatusFailed, Cause: "fal down"}}},
	}}
	h := NewHandler(&Config{Timeout: time.Second}, pipeline, logger.NewTestLogger(t))

	out, err := h.execute(context.Background(), &Input{ImageID: "a.jpg", Shoes: []models.ShoeRecommendation{samba, samba}})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Completed)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Videos, 2)
	assert.Equal(t, "fitcheck_front_1a2b3c4d_1700000000.mp4", out.Videos[0].Videos[0].Artifact)
	assert.Equal(t, models.VideoStatusFailed, out.Videos[1].Videos[0].Status)
	assert.Equal(t, "fal down", out.Videos[1].Videos[0].Cause)

	vars, err := json.Marshal(out)
	require.NoError(t, err)
	assert.NotContains(t, string(vars), "base64")
}

func TestHandler_Execute_RejectsEmptyShoes(t *testing.T) {
	pipeline := &fakePipeline{}
	h := NewHandler(&Config{Timeout: time.Second}, pipeline, logger.NewTestLogger(t))

	_, err := h.execute(context.Background(), &Input{ImageID: "a.jpg"})

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Zero(t, pipeline.calls)
}

func TestLoadConfig_DefaultsTimeout(t *testing.T) {
	assert.Equal(t, 15*time.Minute, LoadConfig(configWithTimeout(0)).Timeout)
	assert.Equal(t, 2*time.Second, LoadConfig(configWithTimeout(2000)).Timeout)
}

func configWithTimeout(ms int) config.WorkerConfig {
	return config.WorkerConfig{Enabled: true, Timeout: ms}
}
