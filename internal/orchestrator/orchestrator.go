// Package orchestrator fans recommendation work out across shoes and angles and
// gathers the partial results.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"fitcheck-workers/internal/artifacts"
	"fitcheck-workers/internal/common/config"
	apperrors "fitcheck-workers/internal/common/errors"
	"fitcheck-workers/internal/common/logger"
	"fitcheck-workers/internal/common/metrics"
	"fitcheck-workers/internal/common/observability"
	"fitcheck-workers/internal/engines/search"
	"fitcheck-workers/internal/engines/visual"
	"fitcheck-workers/internal/models"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

type Recommender interface {
	Recommend(ctx context.Context, image []byte, target int) models.RecommendationSet
}

type Visualizer interface {
	Synthesize(ctx context.Context, source []byte, shoe models.ShoeRecommendation, angle models.Angle, mode visual.Mode) models.AngleVisualization
}

type VideoSynthesizer interface {
	Synthesize(ctx context.Context, imageName string, shoe models.ShoeRecommendation, angle models.Angle) models.VideoResult
}

type Searcher interface {
	SearchShoe(ctx context.Context, shoe models.ShoeRecommendation) models.SearchOutcome
}

type Config struct {
	RecommendCount int
	VisualWorkers  int
	SearchGroupCap int
	UnitTimeout    time.Duration
	VideoTimeout   time.Duration
}

func ConfigFromApp(p config.PipelineConfig) Config {
	return Config{
		RecommendCount: p.RecommendCount,
		VisualWorkers:  p.VisualWorkers,
		SearchGroupCap: p.SearchGroupCap,
		UnitTimeout:    time.Duration(p.UnitTimeout) * time.Millisecond,
		VideoTimeout:   time.Duration(p.VideoTimeout) * time.Millisecond,
	}
}

type Orchestrator struct {
	store       artifacts.Store
	recommender Recommender
	visualizer  Visualizer
	videos      VideoSynthesizer
	searcher    Searcher
	config      Config
	obs         *observability.Observability
	logger      logger.Logger
}

type Deps struct {
	Store       artifacts.Store
	Recommender Recommender
	Visualizer  Visualizer
	Videos      VideoSynthesizer
	Searcher    Searcher
	Obs         *observability.Observability
}

func New(deps Deps, cfg Config, log logger.Logger) *Orchestrator {
	if cfg.VisualWorkers <= 0 {
		cfg.VisualWorkers = 4
	}
	if cfg.SearchGroupCap <= 0 {
		cfg.SearchGroupCap = 2
	}
	if cfg.RecommendCount <= 0 {
		cfg.RecommendCount = 2
	}
	return &Orchestrator{
		store:       deps.Store,
		recommender: deps.Recommender,
		visualizer:  deps.Visualizer,
		videos:      deps.Videos,
		searcher:    deps.Searcher,
		config:      cfg,
		obs:         deps.Obs,
		logger:      log.WithFields(map[string]interface{}{"component": "orchestrator"}),
	}
}

func (o *Orchestrator) Config() Config {
	return o.config
}

// Recommend resolves the upload and returns exactly target recommendations.
// Only a bad or missing image id is an error.
func (o *Orchestrator) Recommend(ctx context.Context, imageID string, target int) (models.RecommendationSet, error) {
	source, err := artifacts.ResolveSource(ctx, o.store, imageID)
	if err != nil {
		return models.RecommendationSet{}, err
	}
	if target <= 0 {
		target = o.config.RecommendCount
	}
	start := time.Now()
	set := o.recommender.Recommend(ctx, source, target)
	o.obs.RecordBatch(ctx, "recommend", target, time.Since(start))
	return set, nil
}

// Visualize renders every angle for every shoe. Generative mode runs shoes on
// a bounded pool and returns them in completion order, each tagged with its
// input Index. Descriptive mode runs sequentially and preserves input order.
func (o *Orchestrator) Visualize(ctx context.Context, imageID string, shoes []models.ShoeRecommendation, angles []models.Angle, mode visual.Mode) ([]models.ShoeVisualizationResult, error) {
	if len(shoes) == 0 {
		return nil, apperrors.NewValidationError("shoes must not be empty")
	}
	source, err := artifacts.ResolveSource(ctx, o.store, imageID)
	if err != nil {
		return nil, err
	}
	if len(angles) == 0 {
		angles = models.CanonicalAngles
	}

	start := time.Now()
	var results []models.ShoeVisualizationResult
	if mode == visual.ModeGenerative {
		results = o.visualizePooled(ctx, source, shoes, angles, mode)
	} else {
		results = make([]models.ShoeVisualizationResult, 0, len(shoes))
		for i, shoe := range shoes {
			results = append(results, o.visualUnit(ctx, i, source, shoe, angles, mode))
		}
	}
	o.obs.RecordBatch(ctx, "visualize_"+string(mode), len(shoes), time.Since(start))
	return results, nil
}

func (o *Orchestrator) visualizePooled(ctx context.Context, source []byte, shoes []models.ShoeRecommendation, angles []models.Angle, mode visual.Mode) []models.ShoeVisualizationResult {
	var (
		mu      sync.Mutex
		results = make([]models.ShoeVisualizationResult, 0, len(shoes))
	)

	p := pool.New().WithMaxGoroutines(o.config.VisualWorkers)
	for i, shoe := range shoes {
		p.Go(func() {
			r := o.visualUnit(ctx, i, source, shoe, angles, mode)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		})
	}
	p.Wait()
	return results
}

// visualUnit renders the angles of one shoe in request order. A panic becomes
// an entry with Error set and no visualizations.
func (o *Orchestrator) visualUnit(ctx context.Context, index int, source []byte, shoe models.ShoeRecommendation, angles []models.Angle, mode visual.Mode) models.ShoeVisualizationResult {
	result := models.ShoeVisualizationResult{
		Index:          index,
		Shoe:           shoe,
		Visualizations: []models.AngleVisualization{},
	}

	unitCtx, cancel := withTimeout(ctx, o.config.UnitTimeout)
	defer cancel()

	vizs := make([]models.AngleVisualization, 0, len(angles))
	err := o.catch("visual", index, func() {
		for _, angle := range angles {
			vizs = append(vizs, o.visualizer.Synthesize(unitCtx, source, shoe, angle, mode))
		}
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}
	o.noteTimeout(unitCtx, index, o.config.UnitTimeout)
	result.Visualizations = vizs
	return result
}

// Videos renders a generative front image and then one clip per shoe. Every
// shoe runs concurrently and results keep input order.
func (o *Orchestrator) Videos(ctx context.Context, imageID string, shoes []models.ShoeRecommendation) ([]models.ShoeVideoResult, error) {
	if len(shoes) == 0 {
		return nil, apperrors.NewValidationError("shoes must not be empty")
	}
	source, err := artifacts.ResolveSource(ctx, o.store, imageID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results := make([]models.ShoeVideoResult, len(shoes))
	var wg conc.WaitGroup
	for i, shoe := range shoes {
		wg.Go(func() {
			results[i] = o.videoUnit(ctx, i, source, shoe)
		})
	}
	wg.Wait()

	o.obs.RecordBatch(ctx, "videos", len(shoes), time.Since(start))
	return results, nil
}

func (o *Orchestrator) videoUnit(ctx context.Context, index int, source []byte, shoe models.ShoeRecommendation) models.ShoeVideoResult {
	result := models.ShoeVideoResult{Index: index, Shoe: shoe, Videos: []models.VideoResult{}}

	unitCtx, cancel := withTimeout(ctx, o.config.VideoTimeout)
	defer cancel()

	var clip models.VideoResult
	err := o.catch("video", index, func() {
		front := o.visualizer.Synthesize(unitCtx, source, shoe, models.AngleFront, visual.ModeGenerative)
		if front.Degraded.Degraded {
			o.logger.Warn("Front image degraded, skipping video", map[string]interface{}{
				"index": index,
				"cause": front.Degraded.Cause,
			})
			metrics.RecordDegraded("video", "front_image_degraded")
			clip = models.VideoResult{
				Angle:  models.AngleFront,
				Status: models.VideoStatusFailed,
				Cause:  "front image unavailable: " + front.Degraded.Cause,
			}
			return
		}
		clip = o.videos.Synthesize(unitCtx, front.ArtifactName, shoe, models.AngleFront)
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}
	o.noteTimeout(unitCtx, index, o.config.VideoTimeout)
	result.Videos = append(result.Videos, clip)
	return result
}

// Search looks up every shoe and merges results for shoes sharing a
// brand+name key, capping each group at SearchGroupCap. Groups keep the order
// in which their key first appears.
func (o *Orchestrator) Search(ctx context.Context, shoes []models.ShoeRecommendation) ([]models.ShoeSearchResult, error) {
	if len(shoes) == 0 {
		return nil, apperrors.NewValidationError("shoes must not be empty")
	}

	start := time.Now()
	outcomes := make([]models.SearchOutcome, len(shoes))
	var wg conc.WaitGroup
	for i, shoe := range shoes {
		wg.Go(func() {
			outcomes[i] = o.searchUnit(ctx, i, shoe)
		})
	}
	wg.Wait()

	grouped := Group(shoes, outcomes, o.config.SearchGroupCap)
	o.obs.RecordBatch(ctx, "search", len(shoes), time.Since(start))
	return grouped, nil
}

// searchUnit turns a panicking search into the retailer fallback so the shoe
// still gets its group.
func (o *Orchestrator) searchUnit(ctx context.Context, index int, shoe models.ShoeRecommendation) models.SearchOutcome {
	var out models.SearchOutcome
	err := o.catch("search", index, func() {
		out = o.searcher.SearchShoe(ctx, shoe)
	})
	if err != nil {
		query := shoe.SearchQuery()
		return models.SearchOutcome{Results: search.Fallback(query), Degraded: models.Degrade(err)}
	}
	return out
}

// Group merges each shoe's outcome into the group for its GroupKey. A shoe
// whose search came back empty still gets a group.
func Group(shoes []models.ShoeRecommendation, outcomes []models.SearchOutcome, limit int) []models.ShoeSearchResult {
	index := make(map[string]int)
	groups := make([]models.ShoeSearchResult, 0, len(shoes))
	for i, shoe := range shoes {
		key := shoe.GroupKey()
		g, ok := index[key]
		if !ok {
			g = len(groups)
			index[key] = g
			groups = append(groups, models.ShoeSearchResult{Shoe: shoe, SearchResults: []models.SearchResult{}})
		}
		if i >= len(outcomes) {
			continue
		}
		for _, r := range outcomes[i].Results {
			if len(groups[g].SearchResults) >= limit {
				break
			}
			r.Shoe = shoe
			groups[g].SearchResults = append(groups[g].SearchResults, r)
		}
	}
	return groups
}

// catch runs f and converts a panic into a unit failure.
func (o *Orchestrator) catch(engine string, index int, f func()) error {
	var pc panics.Catcher
	pc.Try(f)
	rec := pc.Recovered()
	if rec == nil {
		return nil
	}

	o.logger.Error("Unit panicked", map[string]interface{}{
		"engine": engine,
		"index":  index,
		"panic":  rec.String(),
	})
	metrics.UnitsTotal.WithLabelValues(engine, metrics.OutcomeFailed).Inc()
	return apperrors.NewUnitFailedError(index, rec.Value)
}

func (o *Orchestrator) noteTimeout(ctx context.Context, index int, timeout time.Duration) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		o.logger.Warn("Unit exceeded its deadline", map[string]interface{}{
			"index": index,
			"error": apperrors.NewUnitTimeoutError(index, timeout).Error(),
		})
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
