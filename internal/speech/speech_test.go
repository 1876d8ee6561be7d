package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(Config{
		APIKey:          "test-key",
		BaseURL:         srv.URL,
		TranscribeModel: "whisper-1",
		Language:        "zh",
		SpeechModel:     "tts-1",
		Voice:           "alloy",
		Format:          "mp3",
	})
	return client, srv
}

func TestTranscribe(t *testing.T) {
	var gotModel, gotLanguage, gotAuth string
	var gotAudio []byte

	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotAudio, err = io.ReadAll(file)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "你好，世界"})
	}))
	defer srv.Close()

	audioPath := filepath.Join(t.TempDir(), "sample.webm")
	require.NoError(t, os.WriteFile(audioPath, []byte("fake-audio-bytes"), 0o644))

	text, err := client.Transcribe(context.Background(), audioPath)
	require.NoError(t, err)
	assert.Equal(t, "你好，世界", text)
	assert.Equal(t, "whisper-1", gotModel)
	assert.Equal(t, "zh", gotLanguage)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, []byte("fake-audio-bytes"), gotAudio)
}

func TestTranscribeRelaysProviderError(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "bad audio"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	audioPath := filepath.Join(t.TempDir(), "sample.webm")
	require.NoError(t, os.WriteFile(audioPath, []byte("x"), 0o644))

	_, err := client.Transcribe(context.Background(), audioPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "bad audio")
}

func TestTranscribeMissingFile(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})
	_, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.webm"))
	assert.Error(t, err)
}

func TestSynthesize(t *testing.T) {
	audioBytes := []byte("MP3-AUDIO-DATA")
	var gotPayload map[string]string

	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/speech", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audioBytes)
	}))
	defer srv.Close()

	body, contentType, err := client.Synthesize(context.Background(), "hello world")
	require.NoError(t, err)
	defer body.Close()

	assert.Equal(t, "audio/mpeg", contentType)
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, audioBytes, got)

	assert.Equal(t, "tts-1", gotPayload["model"])
	assert.Equal(t, "hello world", gotPayload["input"])
	assert.Equal(t, "alloy", gotPayload["voice"])
	assert.Equal(t, "mp3", gotPayload["response_format"])
}

func TestSynthesizeRelaysProviderError(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, _, err := client.Synthesize(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNewClientTrimsBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/"})
	body, _, err := client.Synthesize(context.Background(), "hi")
	require.NoError(t, err)
	body.Close()
}
