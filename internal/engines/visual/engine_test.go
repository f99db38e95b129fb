package visual

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"fitcheck-workers/internal/artifacts"
	"fitcheck-workers/internal/capabilities"
	"fitcheck-workers/internal/common/config"
	"fitcheck-workers/internal/common/logger"
	"fitcheck-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDescriber struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeDescriber) Describe(_ context.Context, image []byte, mimeType, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

type sliceStream struct {
	chunks []capabilities.Chunk
	err    error
	closed bool
}

func (s *sliceStream) Next() (capabilities.Chunk, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return capabilities.Chunk{}, s.err
		}
		return capabilities.Chunk{}, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

type fakeEditor struct {
	stream  *sliceStream
	err     error
	prompts []string
}

func (f *fakeEditor) Edit(_ context.Context, image []byte, mimeType, instruction string) (capabilities.ChunkStream, error) {
	f.prompts = append(f.prompts, instruction)
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

type fixture struct {
	store   *artifacts.FSStore
	tempDir string
	genDir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.ArtifactsConfig{
		UploadDir:    filepath.Join(root, "uploads"),
		GeneratedDir: filepath.Join(root, "generated"),
		VideoDir:     filepath.Join(root, "videos"),
		TempDir:      filepath.Join(root, "tmp"),
	}
	store, err := artifacts.NewFSStore(cfg)
	require.NoError(t, err)
	return &fixture{store: store, tempDir: cfg.TempDir, genDir: cfg.GeneratedDir}
}

func (f *fixture) engine(t *testing.T, d capabilities.TextDescriber, e capabilities.ImageEditor) *Engine {
	return NewEngine(f.store, d, e, Config{MaxImageSize: 64, Width: 120, Height: 160}, logger.NewTestLogger(t))
}

func (f *fixture) assertNoTempFiles(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func sourceImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 100, 200))))
	return buf.Bytes()
}

var shoe = models.ShoeRecommendation{Name: "Air Max 90", Brand: "Nike", Color: "White", Style: "sneakers", Reason: "Clean"}

var (
	generatedName = regexp.MustCompile(`^generated_[0-9a-f]{32}_front\.jpg$`)
	errorName     = regexp.MustCompile(`^error_[0-9a-f]{32}\.jpg$`)
)

func TestSynthesize_Descriptive(t *testing.T) {
	f := newFixture(t)
	describer := &fakeDescriber{text: "Crisp white sneakers brighten the denim."}
	engine := f.engine(t, describer, &fakeEditor{})

	viz := engine.Synthesize(context.Background(), sourceImage(t), shoe, models.AngleFront, ModeDescriptive)

	assert.Equal(t, models.AngleFront, viz.Angle)
	assert.False(t, viz.Degraded.Degraded)
	assert.Regexp(t, generatedName, viz.ArtifactName)
	assert.True(t, strings.HasPrefix(viz.Image, "data:image/jpeg;base64,"))
	require.Len(t, describer.prompts, 1)
	assert.Contains(t, describer.prompts[0], "wearing Nike Air Max 90 in White from a front view angle")

	ok, err := f.store.Exists(context.Background(), artifacts.KindGenerated, viz.ArtifactName)
	require.NoError(t, err)
	assert.True(t, ok)
	f.assertNoTempFiles(t)
}

func TestSynthesize_GenerativeTakesFirstImage(t *testing.T) {
	f := newFixture(t)
	editor := &fakeEditor{stream: &sliceStream{chunks: []capabilities.Chunk{
		{Text: "Here is your image"},
		{Data: []byte("first"), MimeType: "image/png"},
		{Data: []byte("second"), MimeType: "image/png"},
	}}}
	describer := &fakeDescriber{}
	engine := f.engine(t, describer, editor)

	viz := engine.Synthesize(context.Background(), sourceImage(t), shoe, models.AngleFront, ModeGenerative)

	assert.Equal(t, artifacts.DataURI("image/png", []byte("first")), viz.Image)
	assert.False(t, viz.Degraded.Degraded)
	assert.Regexp(t, generatedName, viz.ArtifactName)
	assert.Empty(t, describer.prompts)
	assert.True(t, editor.stream.closed)
	require.Len(t, editor.prompts, 1)
	assert.Contains(t, editor.prompts[0], "Show the person wearing the exact shoes described: Nike Air Max 90 in White")

	stored, err := f.store.Read(context.Background(), artifacts.KindGenerated, viz.ArtifactName)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), stored)
	f.assertNoTempFiles(t)
}

func TestSynthesize_GenerativeWithoutImageFallsBackToDescriptive(t *testing.T) {
	f := newFixture(t)
	editor := &fakeEditor{stream: &sliceStream{chunks: []capabilities.Chunk{{Text: "I cannot do that"}}}}
	describer := &fakeDescriber{text: "Looks sharp."}
	engine := f.engine(t, describer, editor)

	viz := engine.Synthesize(context.Background(), sourceImage(t), shoe, models.AngleFront, ModeGenerative)

	assert.Len(t, describer.prompts, 1)
	assert.Regexp(t, generatedName, viz.ArtifactName)
	assert.True(t, viz.Degraded.Degraded)
	assert.True(t, strings.HasPrefix(viz.Image, "data:image/jpeg;base64,"))
	f.assertNoTempFiles(t)
}

func TestSynthesize_FailuresYieldErrorPlaceholder(t *testing.T) {
	tests := []struct {
		name      string
		source    func(t *testing.T) []byte
		describer *fakeDescriber
		editor    *fakeEditor
		mode      Mode
	}{
		{
			name:      "describer error",
			source:    sourceImage,
			describer: &fakeDescriber{err: errors.New("quota exceeded")},
			editor:    &fakeEditor{},
			mode:      ModeDescriptive,
		},
		{
			name:      "edit call error",
			source:    sourceImage,
			describer: &fakeDescriber{},
			editor:    &fakeEditor{err: errors.New("unavailable")},
			mode:      ModeGenerative,
		},
		{
			name:      "stream breaks",
			source:    sourceImage,
			describer: &fakeDescriber{},
			editor:    &fakeEditor{stream: &sliceStream{err: errors.New("connection reset")}},
			mode:      ModeGenerative,
		},
		{
			name:      "no image and describer fails",
			source:    sourceImage,
			describer: &fakeDescriber{err: errors.New("quota exceeded")},
			editor:    &fakeEditor{stream: &sliceStream{}},
			mode:      ModeGenerative,
		},
		{
			name:      "undecodable source",
			source:    func(*testing.T) []byte { return []byte("not an image") },
			describer: &fakeDescriber{},
			editor:    &fakeEditor{},
			mode:      ModeDescriptive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			engine := f.engine(t, tt.describer, tt.editor)

			viz := engine.Synthesize(context.Background(), tt.source(t), shoe, models.AngleFront, tt.mode)

			assert.Equal(t, models.AngleFront, viz.Angle)
			assert.True(t, viz.Degraded.Degraded)
			assert.NotEmpty(t, viz.Degraded.Cause)
			assert.Regexp(t, errorName, viz.ArtifactName)
			assert.True(t, strings.HasPrefix(viz.Image, "data:image/jpeg;base64,"))

			ok, err := f.store.Exists(context.Background(), artifacts.KindGenerated, viz.ArtifactName)
			require.NoError(t, err)
			assert.True(t, ok)
			f.assertNoTempFiles(t)
		})
	}
}

func TestSynthesize_CancelledContextStillPersistsPlaceholder(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := f.engine(t, &fakeDescriber{err: context.Canceled}, &fakeEditor{})
	viz := engine.Synthesize(ctx, sourceImage(t), shoe, models.AngleBack, ModeDescriptive)

	assert.True(t, viz.Degraded.Degraded)
	assert.Regexp(t, errorName, viz.ArtifactName)
	entries, err := os.ReadDir(f.genDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
