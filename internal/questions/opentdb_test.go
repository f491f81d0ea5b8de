package questions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fixture = `{
  "response_code": 0,
  "results": [
    {
      "question": "What is the &quot;Red Planet&quot;?",
      "correct_answer": "Mars",
      "incorrect_answers": ["Venus", "Jupiter", "Saturn"]
    },
    {
      "question": "Who wrote &#039;Hamlet&#039;?",
      "correct_answer": "William Shakespeare",
      "incorrect_answers": ["Charles Dickens", "Jane Austen", "Mark Twain"]
    }
  ]
}`

func TestFetch_DecodesEntitiesAndFixesOptionOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api.php", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("amount"))
		assert.Equal(t, "multiple", r.URL.Query().Get("type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fixture))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	qs, err := c.Fetch(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, qs, 2)

	assert.Equal(t, `What is the "Red Planet"?`, qs[0].Prompt)
	assert.Equal(t, "Mars", qs[0].CorrectAnswer)
	assert.Equal(t, []string{"Jupiter", "Mars", "Saturn", "Venus"}, qs[0].Options)

	assert.Equal(t, "Who wrote 'Hamlet'?", qs[1].Prompt)
	assert.Contains(t, qs[1].Options, qs[1].CorrectAnswer)
}

func TestFetch_PassesCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "9", r.URL.Query().Get("category"))
		_, _ = w.Write([]byte(fixture))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.Fetch(context.Background(), 5, 9)
	require.NoError(t, err)
}

func TestFetch_NonZeroResponseCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response_code": 1, "results": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.Fetch(context.Background(), 10, 0)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.Fetch(context.Background(), 10, 0)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.Fetch(context.Background(), 10, 0)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}
