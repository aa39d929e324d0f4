package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAI_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "ko", r.FormValue("language"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "speech.wav", hdr.Filename)
		head := make([]byte, 4)
		_, _ = io.ReadFull(f, head)
		assert.Equal(t, "RIFF", string(head))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":" 쓰러졌어요 "}`)
	}))
	defer srv.Close()

	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)

	text, err := NewOpenAI(client).Transcribe(context.Background(), []float32{0.1, -0.1}, "ko")
	require.NoError(t, err)
	assert.Equal(t, "쓰러졌어요", text)
}
