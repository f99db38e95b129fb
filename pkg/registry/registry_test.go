package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "fitcheck-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadShipped(t *testing.T) *ActivityRegistry {
	t.Helper()
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	return reg
}

func TestLoadRegistry_CoversEveryWorker(t *testing.T) {
	reg := loadShipped(t)

	missing := reg.Missing([]string{"recommend-shoes", "generate-outfits", "generate-videos", "search-products"})
	assert.Empty(t, missing)

	for _, a := range reg.Activities {
		schema, err := a.CompileInput()
		require.NoError(t, err, a.ID)
		assert.NotNil(t, schema, a.ID)
	}
}

func TestLoadRegistry_Errors(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = LoadRegistry(path)
	assert.Error(t, err)
}

func TestActivity_TimeoutDuration(t *testing.T) {
	def := 5 * time.Second
	assert.Equal(t, time.Minute, (&Activity{Timeout: "1m"}).TimeoutDuration(def))
	assert.Equal(t, def, (&Activity{}).TimeoutDuration(def))
	assert.Equal(t, def, (&Activity{Timeout: "soon"}).TimeoutDuration(def))
}

func TestActivityRegistry_Validate(t *testing.T) {
	require.NoError(t, loadShipped(t).Validate())

	valid := func() Activity {
		return Activity{ID: "a", DisplayName: "A", Category: "fitcheck", TaskType: "a", Timeout: "30s"}
	}

	tests := []struct {
		name    string
		mutate  func(r *ActivityRegistry)
		wantErr string
	}{
		{
			name:    "empty",
			mutate:  func(r *ActivityRegistry) { r.Activities = nil },
			wantErr: "no activities",
		},
		{
			name:    "missing display name",
			mutate:  func(r *ActivityRegistry) { r.Activities[0].DisplayName = "" },
			wantErr: "DisplayName",
		},
		{
			name: "duplicate id",
			mutate: func(r *ActivityRegistry) {
				dup := valid()
				dup.TaskType = "b"
				r.Activities = append(r.Activities, dup)
			},
			wantErr: "duplicate activity ID",
		},
		{
			name: "duplicate task type",
			mutate: func(r *ActivityRegistry) {
				dup := valid()
				dup.ID = "b"
				r.Activities = append(r.Activities, dup)
			},
			wantErr: "duplicate task type",
		},
		{
			name:    "unknown error code",
			mutate:  func(r *ActivityRegistry) { r.Activities[0].ErrorCodes = []string{"SHOE_NOT_FOUND"} },
			wantErr: "unknown error code",
		},
		{
			name:    "bad timeout",
			mutate:  func(r *ActivityRegistry) { r.Activities[0].Timeout = "later" },
			wantErr: "invalid timeout",
		},
		{
			name: "bad input schema",
			mutate: func(r *ActivityRegistry) {
				r.Activities[0].InputSchema = map[string]interface{}{"type": 42}
			},
			wantErr: "input schema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &ActivityRegistry{Activities: []Activity{valid()}}
			tt.mutate(reg)
			err := reg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheckVariables(t *testing.T) {
	reg := loadShipped(t)
	activity, ok := reg.Find("generate-outfits")
	require.True(t, ok)
	schema, err := activity.CompileInput()
	require.NoError(t, err)

	tests := []struct {
		name      string
		variables string
		valid     bool
	}{
		{"valid", `{"imageId":"a.jpg","recommendations":[{"name":"Samba","brand":"Adidas"}],"angles":["front"]}`, true},
		{"extra process variables allowed", `{"imageId":"a.jpg","recommendations":[{}],"customer":"x"}`, true},
		{"missing image", `{"recommendations":[{}]}`, false},
		{"empty recommendations", `{"imageId":"a.jpg","recommendations":[]}`, false},
		{"unknown angle", `{"imageId":"a.jpg","recommendations":[{}],"angles":["top"]}`, false},
		{"empty variables", ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckVariables(schema, tt.variables)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

type recordingReporter struct {
	errs []error
}

func (r *recordingReporter) HandleJobError(_ context.Context, _ worker.JobClient, _ entities.Job, err error) {
	r.errs = append(r.errs, err)
}

func TestGuard(t *testing.T) {
	reg := loadShipped(t)
	reporter := &recordingReporter{}
	calls := 0
	next := func(worker.JobClient, entities.Job) { calls++ }

	guarded, err := reg.Guard("search-products", next, reporter)
	require.NoError(t, err)

	guarded(nil, jobWithVariables(`{"recommendations":[{"name":"Dunk","brand":"Nike"}]}`))
	assert.Equal(t, 1, calls)
	assert.Empty(t, reporter.errs)

	guarded(nil, jobWithVariables(`{"recommendations":[]}`))
	assert.Equal(t, 1, calls)
	require.Len(t, reporter.errs, 1)
	assert.True(t, apperrors.IsValidation(reporter.errs[0]))

	unknown, err := reg.Guard("not-registered", next, reporter)
	require.NoError(t, err)
	unknown(nil, jobWithVariables(`{}`))
	assert.Equal(t, 2, calls)
}

func jobWithVariables(variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Variables: variables}}
}
