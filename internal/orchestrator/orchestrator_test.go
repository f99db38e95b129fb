package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fitcheck-workers/internal/artifacts"
	"fitcheck-workers/internal/common/config"
	apperrors "fitcheck-workers/internal/common/errors"
	"fitcheck-workers/internal/common/logger"
	"fitcheck-workers/internal/engines/visual"
	"fitcheck-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const imageID = "abc_outfit.jpg"

var (
	shoeA = models.ShoeRecommendation{Name: "Samba", Brand: "Adidas", Color: "White"}
	shoeB = models.ShoeRecommendation{Name: "Boom", Brand: "Panic", Color: "Red"}
	shoeC = models.ShoeRecommendation{Name: "Dunk Low", Brand: "Nike", Color: "Panda"}
)

type fakeRecommender struct{ target int }

func (f *fakeRecommender) Recommend(_ context.Context, image []byte, target int) models.RecommendationSet {
	f.target = target
	return models.RecommendationSet{Recommendations: make([]models.ShoeRecommendation, target)}
}

type fakeVisualizer struct {
	mu       sync.Mutex
	panicFor string
	degraded map[string]bool
	delay    map[string]time.Duration
	calls    []models.Angle
}

func (f *fakeVisualizer) Synthesize(ctx context.Context, source []byte, shoe models.ShoeRecommendation, angle models.Angle, mode visual.Mode) models.AngleVisualization {
	if shoe.Name == f.panicFor {
		panic("renderer exploded")
	}
	if d := f.delay[shoe.Name]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return models.AngleVisualization{Angle: angle, ArtifactName: "error_x.jpg", Degraded: models.Degrade(ctx.Err())}
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, angle)
	f.mu.Unlock()

	viz := models.AngleVisualization{Angle: angle, Image: "data:image/jpeg;base64,eA==", ArtifactName: "generated_" + shoe.Name + "_" + string(angle) + ".jpg"}
	if f.degraded[shoe.Name] {
		viz.Degraded = models.Degrade(errors.New("no image"))
	}
	return viz
}

type fakeVideos struct {
	delay    map[string]time.Duration
	panicFor string
	mu       sync.Mutex
	order    []string
}

func (f *fakeVideos) Synthesize(_ context.Context, imageName string, shoe models.ShoeRecommendation, angle models.Angle) models.VideoResult {
	if shoe.Name == f.panicFor {
		panic("video exploded")
	}
	time.Sleep(f.delay[shoe.Name])
	f.mu.Lock()
	f.order = append(f.order, shoe.Name)
	f.mu.Unlock()
	return models.VideoResult{Angle: angle, VideoURL: "data:video/mp4;base64," + imageName, Status: models.VideoStatusCompleted}
}

type fakeSearcher struct{}

func (fakeSearcher) SearchShoe(_ context.Context, shoe models.ShoeRecommendation) models.SearchOutcome {
	return models.SearchOutcome{Results: []models.SearchResult{
		{URL: "https://a.example/" + shoe.Name, Title: "a"},
		{URL: "https://b.example/" + shoe.Name, Title: "b"},
	}}
}

func newStore(t *testing.T) artifacts.Store {
	t.Helper()
	root := t.TempDir()
	store, err := artifacts.NewFSStore(config.ArtifactsConfig{
		UploadDir:    filepath.Join(root, "uploads"),
		GeneratedDir: filepath.Join(root, "generated"),
		VideoDir:     filepath.Join(root, "videos"),
	})
	require.NoError(t, err)
	_, err = store.Save(context.Background(), artifacts.KindUpload, imageID, []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	return store
}

func newOrchestrator(t *testing.T, deps Deps, cfg Config) *Orchestrator {
	t.Helper()
	deps.Store = newStore(t)
	return New(deps, cfg, logger.NewTestLogger(t))
}

func TestVisualize_PooledIsolatesPanickingUnit(t *testing.T) {
	viz := &fakeVisualizer{panicFor: shoeB.Name}
	o := newOrchestrator(t, Deps{Visualizer: viz}, Config{VisualWorkers: 4})

	results, err := o.Visualize(context.Background(), imageID, []models.ShoeRecommendation{shoeA, shoeB, shoeC}, nil, visual.ModeGenerative)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byIndex := make(map[int]models.ShoeVisualizationResult)
	for _, r := range results {
		byIndex[r.Index] = r
	}
	require.Len(t, byIndex, 3)

	for _, i := range []int{0, 2} {
		r := byIndex[i]
		assert.Empty(t, r.Error)
		require.Len(t, r.Visualizations, 4)
		for j, angle := range models.CanonicalAngles {
			assert.Equal(t, angle, r.Visualizations[j].Angle)
		}
	}
	assert.Equal(t, shoeA, byIndex[0].Shoe)
	assert.Equal(t, shoeC, byIndex[2].Shoe)

	failed := byIndex[1]
	assert.Equal(t, shoeB, failed.Shoe)
	assert.Contains(t, failed.Error, "renderer exploded")
	assert.NotNil(t, failed.Visualizations)
	assert.Empty(t, failed.Visualizations)
}

func TestVisualize_DescriptivePreservesOrder(t *testing.T) {
	viz := &fakeVisualizer{}
	o := newOrchestrator(t, Deps{Visualizer: viz}, Config{})

	angles := []models.Angle{models.AngleLeft, models.AngleFront}
	results, err := o.Visualize(context.Background(), imageID, []models.ShoeRecommendation{shoeC, shoeA}, angles, visual.ModeDescriptive)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, shoeC, results[0].Shoe)
	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, shoeA, results[1].Shoe)
	for _, r := range results {
		require.Len(t, r.Visualizations, 2)
		assert.Equal(t, models.AngleLeft, r.Visualizations[0].Angle)
		assert.Equal(t, models.AngleFront, r.Visualizations[1].Angle)
	}
}

func TestVisualize_UnitDeadlineDegradesInsteadOfHanging(t *testing.T) {
	viz := &fakeVisualizer{delay: map[string]time.Duration{shoeA.Name: time.Minute}}
	o := newOrchestrator(t, Deps{Visualizer: viz}, Config{UnitTimeout: 20 * time.Millisecond})

	done := make(chan []models.ShoeVisualizationResult, 1)
	go func() {
		results, _ := o.Visualize(context.Background(), imageID, []models.ShoeRecommendation{shoeA}, nil, visual.ModeGenerative)
		done <- results
	}()

	select {
	case results := <-done:
		require.Len(t, results, 1)
		require.Len(t, results[0].Visualizations, 4)
		for _, v := range results[0].Visualizations {
			assert.True(t, v.Degraded.Degraded)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("visualize did not honour the unit deadline")
	}
}

func TestVisualize_Validation(t *testing.T) {
	o := newOrchestrator(t, Deps{Visualizer: &fakeVisualizer{}}, Config{})

	_, err := o.Visualize(context.Background(), imageID, nil, nil, visual.ModeDescriptive)
	assert.True(t, apperrors.IsValidation(err))

	_, err = o.Visualize(context.Background(), "missing.jpg", []models.ShoeRecommendation{shoeA}, nil, visual.ModeDescriptive)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeImageNotFound, apperrors.AsStandardError(err).Code)

	_, err = o.Visualize(context.Background(), "../etc/passwd", []models.ShoeRecommendation{shoeA}, nil, visual.ModeDescriptive)
	assert.True(t, apperrors.IsValidation(err))
}

func TestVideos_PreserveInputOrder(t *testing.T) {
	videos := &fakeVideos{delay: map[string]time.Duration{
		shoeA.Name: 150 * time.Millisecond,
		shoeB.Name: 75 * time.Millisecond,
		shoeC.Name: 0,
	}}
	o := newOrchestrator(t, Deps{Visualizer: &fakeVisualizer{}, Videos: videos}, Config{})

	results, err := o.Videos(context.Background(), imageID, []models.ShoeRecommendation{shoeA, shoeB, shoeC})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, want := range []models.ShoeRecommendation{shoeA, shoeB, shoeC} {
		assert.Equal(t, i, results[i].Index)
		assert.Equal(t, want, results[i].Shoe)
		require.Len(t, results[i].Videos, 1)
		assert.Equal(t, models.VideoStatusCompleted, results[i].Videos[0].Status)
		assert.Equal(t, models.AngleFront, results[i].Videos[0].Angle)
		assert.Equal(t, "data:video/mp4;base64,generated_"+want.Name+"_front.jpg", results[i].Videos[0].VideoURL)
	}
	assert.Equal(t, []string{shoeC.Name, shoeB.Name, shoeA.Name}, videos.order)
}

func TestVideos_FailuresStayInTheirUnit(t *testing.T) {
	viz := &fakeVisualizer{degraded: map[string]bool{shoeC.Name: true}}
	videos := &fakeVideos{panicFor: shoeB.Name}
	o := newOrchestrator(t, Deps{Visualizer: viz, Videos: videos}, Config{})

	results, err := o.Videos(context.Background(), imageID, []models.ShoeRecommendation{shoeA, shoeB, shoeC})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Empty(t, results[0].Error)
	assert.Equal(t, models.VideoStatusCompleted, results[0].Videos[0].Status)

	assert.Contains(t, results[1].Error, "video exploded")
	assert.Empty(t, results[1].Videos)

	assert.Empty(t, results[2].Error)
	require.Len(t, results[2].Videos, 1)
	assert.Equal(t, models.VideoStatusFailed, results[2].Videos[0].Status)
	assert.Empty(t, results[2].Videos[0].VideoURL)
}

func TestSearch_MergesDuplicateShoesCappedAtTwo(t *testing.T) {
	o := newOrchestrator(t, Deps{Searcher: fakeSearcher{}}, Config{SearchGroupCap: 2})

	twin := shoeA
	twin.Reason = "different reason, same shoe"
	groups, err := o.Search(context.Background(), []models.ShoeRecommendation{shoeA, shoeC, twin})
	require.NoError(t, err)

	require.Len(t, groups, 2)
	assert.Equal(t, shoeA, groups[0].Shoe)
	assert.Len(t, groups[0].SearchResults, 2)
	assert.Equal(t, shoeC, groups[1].Shoe)
	assert.Len(t, groups[1].SearchResults, 2)
}

type panickingSearcher struct{ fails string }

func (p panickingSearcher) SearchShoe(ctx context.Context, shoe models.ShoeRecommendation) models.SearchOutcome {
	if shoe.Name == p.fails {
		panic("search exploded")
	}
	return fakeSearcher{}.SearchShoe(ctx, shoe)
}

func TestSearch_PanickingUnitFallsBack(t *testing.T) {
	o := newOrchestrator(t, Deps{Searcher: panickingSearcher{fails: shoeB.Name}}, Config{SearchGroupCap: 2})

	var groups []models.ShoeSearchResult
	require.NotPanics(t, func() {
		var err error
		groups, err = o.Search(context.Background(), []models.ShoeRecommendation{shoeA, shoeB, shoeC})
		require.NoError(t, err)
	})

	require.Len(t, groups, 3)
	for i, want := range []models.ShoeRecommendation{shoeA, shoeB, shoeC} {
		assert.Equal(t, want, groups[i].Shoe)
		assert.Len(t, groups[i].SearchResults, 2)
	}
	for _, r := range groups[1].SearchResults {
		assert.Equal(t, shoeB.SearchQuery(), r.SearchQuery)
		assert.Contains(t, r.URL, "https://www.")
	}
	assert.Equal(t, "https://a.example/"+shoeA.Name, groups[0].SearchResults[0].URL)
}

func TestGroup(t *testing.T) {
	shoes := []models.ShoeRecommendation{shoeA, shoeA, shoeC}
	outcomes := []models.SearchOutcome{
		{Results: []models.SearchResult{{URL: "1"}}},
		{Results: []models.SearchResult{{URL: "2"}, {URL: "3"}}},
		{},
	}

	groups := Group(shoes, outcomes, 2)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"1", "2"}, []string{groups[0].SearchResults[0].URL, groups[0].SearchResults[1].URL})
	assert.Equal(t, shoeA, groups[0].SearchResults[0].Shoe)
	assert.Equal(t, shoeC, groups[1].Shoe)
	assert.NotNil(t, groups[1].SearchResults)
	assert.Empty(t, groups[1].SearchResults)
}

func TestRecommend(t *testing.T) {
	rec := &fakeRecommender{}
	o := newOrchestrator(t, Deps{Recommender: rec}, Config{RecommendCount: 3})

	set, err := o.Recommend(context.Background(), imageID, 0)
	require.NoError(t, err)
	assert.Len(t, set.Recommendations, 3)
	assert.Equal(t, 3, rec.target)

	_, err = o.Recommend(context.Background(), "", 2)
	assert.True(t, apperrors.IsValidation(err))
}
