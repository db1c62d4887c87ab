package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicepulse/voicepulse-api/internal/emotion"
)

// validScoreBody is a well-formed service response dominated by happy.
func validScoreBody() map[string]float64 {
	return map[string]float64{
		"neutral": 0.05, "happy": 0.7, "sad": 0.05, "angry": 0.05,
		"fear": 0.05, "disgust": 0.05, "surprise": 0.05,
	}
}

func TestNewHTTPClassifier_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPClassifier("")
	assert.ErrorIs(t, err, ErrBaseURLRequired)
}

func TestNewHTTPClassifier_KeyFromEnv(t *testing.T) {
	t.Setenv("EMOTION_API_KEY", "env-key")

	c, err := NewHTTPClassifier("http://inference.local")
	require.NoError(t, err)
	assert.Equal(t, "env-key", c.apiKey)
}

func TestNewHTTPClassifier_KeyFromOption(t *testing.T) {
	c, err := NewHTTPClassifier("http://inference.local", WithAPIKey("option-key"))
	require.NoError(t, err)
	assert.Equal(t, "option-key", c.apiKey)
}

func TestHTTPClassifier_Classify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/classify", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req classifyRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Len(t, req.Samples, 3)
		assert.Equal(t, 16000, req.SampleRate)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(classifyResponse{Scores: validScoreBody()})
	}))
	defer server.Close()

	c, err := NewHTTPClassifier(server.URL, WithAPIKey("test-key"))
	require.NoError(t, err)

	scores, err := c.Classify(context.Background(), []float64{0.1, -0.2, 0.3}, 16000)
	require.NoError(t, err)

	label, conf := scores.Dominant()
	assert.Equal(t, emotion.Happy, label)
	assert.InDelta(t, 0.7, conf, 1e-9)
}

func TestHTTPClassifier_NoAuthHeaderWhenKeyless(t *testing.T) {
	t.Setenv("EMOTION_API_KEY", "")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(classifyResponse{Scores: validScoreBody()})
	}))
	defer server.Close()

	c, err := NewHTTPClassifier(server.URL)
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), []float64{0.1}, 16000)
	require.NoError(t, err)
}

func TestHTTPClassifier_RetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(classifyResponse{Scores: validScoreBody()})
	}))
	defer server.Close()

	c, err := NewHTTPClassifier(server.URL,
		WithAPIKey("test-key"),
		WithMaxRetries(3),
		WithBaseBackoff(time.Millisecond),
	)
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), []float64{0.1}, 16000)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestHTTPClassifier_NoRetryOnBadRequest(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c, err := NewHTTPClassifier(server.URL, WithAPIKey("test-key"), WithBaseBackoff(time.Millisecond))
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), []float64{0.1}, 16000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, 1, attempts)
}

func TestHTTPClassifier_ServiceReportedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(classifyResponse{Error: "model not loaded"})
	}))
	defer server.Close()

	c, err := NewHTTPClassifier(server.URL, WithAPIKey("test-key"))
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), []float64{0.1}, 16000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestHTTPClassifier_MalformedScores(t *testing.T) {
	tests := []struct {
		name   string
		scores map[string]float64
	}{
		{"unknown label", map[string]float64{
			"neutral": 0.05, "happy": 0.65, "sad": 0.05, "angry": 0.05,
			"fear": 0.05, "disgust": 0.05, "ecstatic": 0.1,
		}},
		{"missing label", map[string]float64{
			"neutral": 0.3, "happy": 0.7,
		}},
		{"sum far from one", map[string]float64{
			"neutral": 0.5, "happy": 0.7, "sad": 0.05, "angry": 0.05,
			"fear": 0.05, "disgust": 0.05, "surprise": 0.05,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(classifyResponse{Scores: tt.scores})
			}))
			defer server.Close()

			c, err := NewHTTPClassifier(server.URL, WithAPIKey("test-key"))
			require.NoError(t, err)

			_, err = c.Classify(context.Background(), []float64{0.1}, 16000)
			assert.ErrorIs(t, err, ErrBadScores)
		})
	}
}

func TestHTTPClassifier_EmptySamples(t *testing.T) {
	c, err := NewHTTPClassifier("http://inference.local", WithAPIKey("test-key"))
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), nil, 16000)
	assert.ErrorIs(t, err, ErrNoSamples)
}
