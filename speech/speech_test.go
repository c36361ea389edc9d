package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strong tags become plain",
			in:   "Source locked — <strong>POS data</strong>.",
			want: "Source locked — POS data.",
		},
		{
			name: "markdown emphasis stripped",
			in:   "you don't just want data, you want *signals*",
			want: "you don't just want data, you want signals",
		},
		{
			name: "plain text untouched",
			in:   "Outcome. One sentence. Go.",
			want: "Outcome. One sentence. Go.",
		},
		{
			name: "link keeps label",
			in:   "see [the dashboard](https://example.com) for details",
			want: "see the dashboard for details",
		},
		{
			name: "whitespace collapsed",
			in:   "line one\n\nline  two",
			want: "line one line two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestSynthesizeNotConfigured(t *testing.T) {
	s := NewSynthesizer(WithSynthAPIKey(""))
	_, err := s.Synthesize(context.Background(), "hello", "")
	assert.Error(t, err)
}

func TestSynthesizeRequestShape(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		w.Write([]byte("audio-bytes"))
	}))
	defer srv.Close()

	s := NewSynthesizer(WithSynthBaseURL(srv.URL), WithSynthAPIKey("k"))
	body, err := s.Synthesize(context.Background(), "<strong>hello</strong>", "voice-1")
	require.NoError(t, err)
	defer body.Close()

	audio, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(audio))
	assert.Equal(t, "/text-to-speech/voice-1/stream", gotPath)
	assert.Equal(t, "k", gotKey)
}

func TestSynthesizeBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewSynthesizer(WithSynthBaseURL(srv.URL), WithSynthAPIKey("k"))
	_, err := s.Synthesize(context.Background(), "hello", "")
	assert.Error(t, err)
}
