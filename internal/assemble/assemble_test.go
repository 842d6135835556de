package assemble_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shpitdev/destination-pipeline/internal/assemble"
	"github.com/shpitdev/destination-pipeline/internal/enrich"
	"github.com/shpitdev/destination-pipeline/internal/imagery"
	"github.com/shpitdev/destination-pipeline/pkg/destination"
	"github.com/shpitdev/destination-pipeline/pkg/pipeline/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEnricher struct {
	mock.Mock
}

func (m *mockEnricher) EnrichOne(ctx context.Context, city destination.BaseCity) (destination.EnrichmentResult, error) {
	args := m.Called(ctx, city)
	return args.Get(0).(destination.EnrichmentResult), args.Error(1)
}

func (m *mockEnricher) EnrichMany(ctx context.Context, cities []destination.BaseCity, concurrency int, onProgress core.ProgressFunc) ([]enrich.Outcome, error) {
	args := m.Called(ctx, cities, concurrency, onProgress)
	return args.Get(0).([]enrich.Outcome), args.Error(1)
}

type brokenImages struct{}

func (brokenImages) Resolve(string, string) string { return "" }

func paris() destination.BaseCity {
	return destination.BaseCity{
		City:            "Paris",
		Country:         "France",
		Continent:       destination.Europe,
		ClimateType:     "Oceanic",
		BestTimeToVisit: "April to June",
	}
}

func TestAssemble_UsesEnrichment(t *testing.T) {
	m := &mockEnricher{}
	m.On("EnrichOne", mock.Anything, paris()).Return(destination.EnrichmentResult{
		Description: "City of light.",
		VibeTags:    []string{"atmosphere:romantic"},
	}, nil).Once()

	var steps []assemble.Step
	a := assemble.New(m)
	rec, err := a.Assemble(context.Background(), paris(), assemble.Options{
		OnProgress: func(e assemble.Event) {
			assert.Equal(t, "Paris", e.City)
			steps = append(steps, e.Step)
		},
	})
	require.NoError(t, err)
	m.AssertExpectations(t)

	assert.Equal(t, "paris-france", rec.ObjectID)
	assert.Equal(t, "City of light.", rec.Description)
	assert.Equal(t, []string{}, rec.Keywords)
	assert.Equal(t, imagery.Resolve("Paris", "France"), rec.ImageURL)
	assert.True(t, destination.IsValid(rec))
	assert.Equal(t, []assemble.Step{
		assemble.StepEnrichment, assemble.StepScoring, assemble.StepImagery, assemble.StepValidated,
	}, steps)
}

func TestAssemble_FallsBackWhenEnrichmentFails(t *testing.T) {
	m := &mockEnricher{}
	m.On("EnrichOne", mock.Anything, mock.Anything).Return(destination.EnrichmentResult{}, errors.New("service down"))

	var steps []assemble.Step
	rec, err := assemble.New(m).Assemble(context.Background(), paris(), assemble.Options{
		OnProgress: func(e assemble.Event) { steps = append(steps, e.Step) },
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Description)
	assert.NotEmpty(t, rec.VibeTags)
	assert.Contains(t, rec.Description, "Paris")
	assert.Contains(t, rec.Description, "France")
	assert.Contains(t, steps, assemble.StepFallback)
	assert.True(t, destination.IsValid(rec))
}

func TestAssemble_SkipEnrichmentNeverCallsEnricher(t *testing.T) {
	m := &mockEnricher{}
	rec, err := assemble.New(m).Assemble(context.Background(), paris(), assemble.Options{SkipEnrichment: true})
	require.NoError(t, err)
	m.AssertNotCalled(t, "EnrichOne", mock.Anything, mock.Anything)
	assert.True(t, destination.IsValid(rec))
}

func TestAssemble_CancelledContextIsNotMaskedByFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &mockEnricher{}
	m.On("EnrichOne", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).
		Return(destination.EnrichmentResult{}, context.Canceled)

	_, err := assemble.New(m).Assemble(ctx, paris(), assemble.Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestAssemble_ValidationFailureNamesCity(t *testing.T) {
	a := assemble.New(nil, assemble.WithImages(brokenImages{}))
	_, err := a.Assemble(context.Background(), paris(), assemble.Options{SkipEnrichment: true})

	var verr *assemble.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Paris", verr.City)
	assert.Contains(t, err.Error(), "Paris")
	assert.Contains(t, err.Error(), "image_url")
}

func TestAssembleWithEnrichment_RejectsEmptyContent(t *testing.T) {
	a := assemble.New(nil)
	_, err := a.AssembleWithEnrichment(paris(), destination.EnrichmentResult{Description: "ok"})
	var verr *assemble.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "vibe_tags")

	rec, err := a.AssembleWithEnrichment(paris(), destination.EnrichmentResult{
		Description: "ok",
		VibeTags:    []string{"t"},
		Keywords:    []string{"k"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, rec.Keywords)
}

func TestAssembleMany_InputOrderAndFailFast(t *testing.T) {
	a := assemble.New(enrich.NewOffline(enrich.Config{}))
	cities := []destination.BaseCity{
		paris(),
		{City: "Kyoto", Country: "Japan", Continent: destination.Asia, ClimateType: "Humid Subtropical", BestTimeToVisit: "March to May"},
	}
	recs, err := a.AssembleMany(context.Background(), cities, assemble.Options{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "paris-france", recs[0].ObjectID)
	assert.Equal(t, "kyoto-japan", recs[1].ObjectID)

	bad := append(cities, destination.BaseCity{City: "Nowhere", Country: "Land"})
	_, err = a.AssembleMany(context.Background(), bad, assemble.Options{SkipEnrichment: true})
	var verr *assemble.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Nowhere", verr.City)
}
