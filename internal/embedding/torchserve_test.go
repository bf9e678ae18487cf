package embedding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEmbedding(t *testing.T) {
	t.Run("named field", func(t *testing.T) {
		vec, err := decodeEmbedding([]byte(`{"embedding":[0.1,0.2,0.3]}`))
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	})

	t.Run("bare array", func(t *testing.T) {
		vec, err := decodeEmbedding([]byte(`[1,2]`))
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2}, vec)
	})

	t.Run("neither form", func(t *testing.T) {
		_, err := decodeEmbedding([]byte(`{"status":"ok"}`))
		assert.ErrorIs(t, err, ErrBadResponse)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := decodeEmbedding([]byte(`model exploded`))
		assert.ErrorIs(t, err, ErrBadResponse)
	})
}

func TestEmbedImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/predictions/where", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1 << 20))

		file, header, err := r.FormFile("data")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "photo.jpg", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"embedding":[0.5,0.5]}`))
	}))
	defer srv.Close()

	model := NewTorchServeModel(srv.URL, "where", 5*time.Second, nil)
	vec, err := model.EmbedImage(context.Background(), "photo.jpg", []byte("fakejpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
}

func TestEmbedImage_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	model := NewTorchServeModel(srv.URL, "where", 5*time.Second, nil)
	_, err := model.EmbedImage(context.Background(), "photo.jpg", []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestEmbedImage_Unreachable(t *testing.T) {
	// A closed server gives a connection refused error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	model := NewTorchServeModel(srv.URL, "where", time.Second, nil)
	_, err := model.EmbedImage(context.Background(), "photo.jpg", []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, errors.Is(err, ErrTimeout))
}
