package service

import (
	"context"
	"errors"
	"testing"

	"WhereIsThisPlace/internal/config"
	"WhereIsThisPlace/internal/database/milvus"
	"WhereIsThisPlace/internal/geocoder"
	"WhereIsThisPlace/internal/models"
	"WhereIsThisPlace/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type fakeEmbedder struct {
	vector []float32
	err    error
	called bool
}

func (f *fakeEmbedder) EmbedImage(ctx context.Context, filename string, data []byte, contentType string) ([]float32, error) {
	f.called = true
	return f.vector, f.err
}

type fakeNeighbors struct {
	match *milvus.Match
	err   error
}

func (f *fakeNeighbors) Nearest(ctx context.Context, vector []float32) (*milvus.Match, error) {
	return f.match, f.err
}

type fakeVision struct {
	place string
	err   error
}

func (f *fakeVision) LocatePhoto(ctx context.Context, data []byte, contentType string) (string, error) {
	return f.place, f.err
}

type fakeGeocoder struct {
	result *geocoder.Result
	err    error
}

func (f *fakeGeocoder) Geocode(ctx context.Context, place string) (*geocoder.Result, error) {
	return f.result, f.err
}

type fakeStore struct {
	photos []*models.Photo
	err    error
}

func (f *fakeStore) InsertPrediction(photo *models.Photo) error {
	if f.err != nil {
		return f.err
	}
	f.photos = append(f.photos, photo)
	return nil
}

// --- Helpers ---

func testBiasConfig() config.BiasConfig {
	return config.BiasConfig{
		SuspiciousRegion:    config.BoundingBox{MinLat: 40.4, MaxLat: 41.0, MinLon: -74.5, MaxLon: -73.5},
		ForeignKeywords:     []string{"eiffel", "tower", "paris", "london"},
		HighScoreThreshold:  0.9,
		DampeningFactor:     0.3,
		LowScoreFallback:    0.4,
		RegionScoreFallback: 0.7,
	}
}

func newTestService(neighbors *fakeNeighbors, policy FallbackPolicy, vision *fakeVision, geo *fakeGeocoder, store *fakeStore) *Service {
	svc := NewService(
		&fakeEmbedder{vector: make([]float32, 128)},
		neighbors,
		NewBiasCorrector(testBiasConfig()),
		policy,
		nil, nil,
		store,
		0.95,
		logger.New("predict_service_test", ""),
	)
	if vision != nil {
		svc.vision = vision
	}
	if geo != nil {
		svc.geocoder = geo
	}
	return svc
}

var jpegInput = PredictInput{Filename: "photo.jpg", ContentType: "image/jpeg", Data: []byte("fake")}

// --- Bias corrector ---

func TestBiasCorrectorOutsideRegion(t *testing.T) {
	corrector := NewBiasCorrector(testBiasConfig())
	in := models.GeoResult{Lat: 48.8, Lon: 2.3, Score: 0.95, Source: models.SourceModel}

	out := corrector.Correct(in, "eiffel.jpg")

	assert.Equal(t, in, out)
	assert.Nil(t, out.BiasWarning)
	assert.Nil(t, out.OriginalScore)
}

func TestBiasCorrectorForeignKeyword(t *testing.T) {
	corrector := NewBiasCorrector(testBiasConfig())
	in := models.GeoResult{Lat: 40.75, Lon: -73.99, Score: 0.95, Source: models.SourceModel}

	out := corrector.Correct(in, "Eiffel.JPG")

	require.NotNil(t, out.BiasWarning)
	assert.Equal(t, reasonForeignKeyword, *out.BiasWarning)
	assert.InDelta(t, 0.285, out.Score, 1e-9)
	require.NotNil(t, out.OriginalScore)
	assert.Equal(t, 0.95, *out.OriginalScore)
	assert.Equal(t, 40.75, out.Lat)
	assert.Equal(t, -73.99, out.Lon)
}

func TestBiasCorrectorOverconfidentInRegion(t *testing.T) {
	corrector := NewBiasCorrector(testBiasConfig())
	in := models.GeoResult{Lat: 40.75, Lon: -73.99, Score: 0.95, Source: models.SourceModel}

	out := corrector.Correct(in, "photo.jpg")

	require.NotNil(t, out.BiasWarning)
	assert.Equal(t, reasonOverconfident, *out.BiasWarning)
	assert.InDelta(t, 0.285, out.Score, 1e-9)
}

func TestBiasCorrectorModerateScoreInRegion(t *testing.T) {
	corrector := NewBiasCorrector(testBiasConfig())
	in := models.GeoResult{Lat: 40.75, Lon: -73.99, Score: 0.6, Source: models.SourceModel}

	out := corrector.Correct(in, "photo.jpg")

	assert.Equal(t, in, out)
}

func TestBiasCorrectorIdempotent(t *testing.T) {
	corrector := NewBiasCorrector(testBiasConfig())
	in := models.GeoResult{Lat: 40.75, Lon: -73.99, Score: 0.95, Source: models.SourceModel}

	once := corrector.Correct(in, "photo.jpg")
	twice := corrector.Correct(once, "photo.jpg")

	assert.Equal(t, once, twice)
}

// --- Fallback policy ---

func TestFallbackPolicyNotCapable(t *testing.T) {
	policy := NewFallbackPolicy(testBiasConfig(), false, false)
	warning := "flagged"
	g := models.GeoResult{Lat: 40.75, Lon: -73.99, Score: 0.1, BiasWarning: &warning}

	trigger, _ := policy.Decide(g, ModeOpenAI)
	assert.False(t, trigger)
}

func TestFallbackPolicyModeForcesModel(t *testing.T) {
	policy := NewFallbackPolicy(testBiasConfig(), true, true)
	g := models.GeoResult{Score: 0.1}

	trigger, _ := policy.Decide(g, ModeModel)
	assert.False(t, trigger)
}

func TestFallbackPolicyTriggers(t *testing.T) {
	policy := NewFallbackPolicy(testBiasConfig(), true, false)
	warning := "flagged"

	tests := []struct {
		name    string
		g       models.GeoResult
		mode    string
		trigger bool
	}{
		{"mode openai", models.GeoResult{Lat: 5, Lon: 6, Score: 0.9}, ModeOpenAI, true},
		{"low score", models.GeoResult{Lat: 5, Lon: 6, Score: 0.3}, "", true},
		{"bias warning", models.GeoResult{Lat: 5, Lon: 6, Score: 0.9, BiasWarning: &warning}, "", true},
		{"moderate in region", models.GeoResult{Lat: 40.75, Lon: -73.99, Score: 0.6}, "", true},
		{"confident in region", models.GeoResult{Lat: 40.75, Lon: -73.99, Score: 0.85}, "", false},
		{"confident outside region", models.GeoResult{Lat: 5, Lon: 6, Score: 0.7}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, _ := policy.Decide(tt.g, tt.mode)
			assert.Equal(t, tt.trigger, trigger)
		})
	}
}

func TestFallbackPolicyPreferFallback(t *testing.T) {
	policy := NewFallbackPolicy(testBiasConfig(), true, true)
	g := models.GeoResult{Lat: 5, Lon: 6, Score: 0.9}

	trigger, _ := policy.Decide(g, "")
	assert.True(t, trigger)
}

// --- Orchestrator ---

func TestPredictHappyPath(t *testing.T) {
	store := &fakeStore{}
	neighbors := &fakeNeighbors{match: &milvus.Match{Lat: 5.0, Lon: 6.0, Score: 0.7}}
	svc := newTestService(neighbors, NewFallbackPolicy(testBiasConfig(), false, false), nil, nil, store)

	pred, err := svc.Predict(context.Background(), jpegInput)
	require.NoError(t, err)

	assert.Equal(t, 5.0, pred.Lat)
	assert.Equal(t, 6.0, pred.Lon)
	assert.Equal(t, 0.7, pred.Score)
	assert.Equal(t, models.SourceModel, pred.Source)
	assert.Equal(t, models.ConfidenceMedium, pred.ConfidenceLevel)
	assert.Nil(t, pred.BiasWarning)
	assert.Empty(t, pred.Warning)

	require.Len(t, store.photos, 1)
	assert.Equal(t, 5.0, store.photos[0].Lat)
	assert.Equal(t, 6.0, store.photos[0].Lon)
	assert.Equal(t, 0.7, store.photos[0].Score)
	assert.Equal(t, "model", store.photos[0].Source)
	assert.Nil(t, store.photos[0].BiasWarning)
}

func TestPredictUnsupportedType(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeStore{}
	svc := NewService(embedder, &fakeNeighbors{}, NewBiasCorrector(testBiasConfig()),
		NewFallbackPolicy(testBiasConfig(), false, false), nil, nil, store, 0.95,
		logger.New("predict_service_test", ""))

	_, err := svc.Predict(context.Background(), PredictInput{
		Filename: "notes.txt", ContentType: "text/plain", Data: []byte("hello"),
	})

	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.False(t, embedder.called, "不应调用下游服务")
	assert.Empty(t, store.photos, "不应尝试持久化")
}

func TestPredictNoMatch(t *testing.T) {
	store := &fakeStore{}
	neighbors := &fakeNeighbors{err: milvus.ErrNotFound}
	svc := newTestService(neighbors, NewFallbackPolicy(testBiasConfig(), false, false), nil, nil, store)

	_, err := svc.Predict(context.Background(), jpegInput)

	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Empty(t, store.photos)
}

func TestPredictFallbackSuccess(t *testing.T) {
	store := &fakeStore{}
	neighbors := &fakeNeighbors{match: &milvus.Match{Lat: 40.75, Lon: -73.99, Score: 0.3}}
	vision := &fakeVision{place: "Paris, France"}
	geo := &fakeGeocoder{result: &geocoder.Result{Lat: 48.8, Lon: 2.3}}
	svc := newTestService(neighbors, NewFallbackPolicy(testBiasConfig(), true, false), vision, geo, store)

	pred, err := svc.Predict(context.Background(), jpegInput)
	require.NoError(t, err)

	assert.Equal(t, 48.8, pred.Lat)
	assert.Equal(t, 2.3, pred.Lon)
	assert.Equal(t, 0.95, pred.Score)
	assert.Equal(t, models.SourceOpenAI, pred.Source)
	assert.Equal(t, models.ConfidenceHigh, pred.ConfidenceLevel)
	require.NotNil(t, pred.OriginalScore)
	assert.Equal(t, 0.3, *pred.OriginalScore)

	require.Len(t, store.photos, 1)
	assert.Equal(t, "openai", store.photos[0].Source)
}

func TestPredictFallbackFailureKeepsModelResult(t *testing.T) {
	store := &fakeStore{}
	neighbors := &fakeNeighbors{match: &milvus.Match{Lat: 40.75, Lon: -73.99, Score: 0.3}}
	vision := &fakeVision{err: errors.New("connection refused")}
	svc := newTestService(neighbors, NewFallbackPolicy(testBiasConfig(), true, false), vision, nil, store)

	pred, err := svc.Predict(context.Background(), jpegInput)
	require.NoError(t, err, "回退失败不应让请求失败")

	assert.Equal(t, 40.75, pred.Lat)
	assert.Equal(t, -73.99, pred.Lon)
	assert.Equal(t, 0.3, pred.Score)
	assert.Equal(t, models.SourceModel, pred.Source)
	require.NotNil(t, pred.BiasWarning)
	assert.Contains(t, *pred.BiasWarning, "unavailable")
	assert.Equal(t, models.BiasNoticeMessage, pred.Warning)

	require.Len(t, store.photos, 1)
}

func TestPredictPersistenceFailureSwallowed(t *testing.T) {
	store := &fakeStore{err: errors.New("mysql is down")}
	neighbors := &fakeNeighbors{match: &milvus.Match{Lat: 5.0, Lon: 6.0, Score: 0.7}}
	svc := newTestService(neighbors, NewFallbackPolicy(testBiasConfig(), false, false), nil, nil, store)

	pred, err := svc.Predict(context.Background(), jpegInput)
	require.NoError(t, err)
	assert.Equal(t, 5.0, pred.Lat)
}

func TestPredictSniffsContentType(t *testing.T) {
	// PNG 魔数足以让嗅探通过。
	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	store := &fakeStore{}
	neighbors := &fakeNeighbors{match: &milvus.Match{Lat: 5.0, Lon: 6.0, Score: 0.7}}
	svc := newTestService(neighbors, NewFallbackPolicy(testBiasConfig(), false, false), nil, nil, store)

	_, err := svc.Predict(context.Background(), PredictInput{
		Filename: "photo", Data: pngHeader,
	})
	require.NoError(t, err)
}
