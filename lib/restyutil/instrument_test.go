package restyutil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mutex    sync.Mutex
	messages map[string]string
}

func (m *memoryOutput) Write(id string, contents string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.messages[id] = contents
}

func TestInstrumentClientWritesExchanges(t *testing.T) {
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(previous) })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.Write([]byte("<html>hello</html>"))
	}))
	defer server.Close()

	out := &memoryOutput{messages: map[string]string{}}
	client := resty.New()
	InstrumentClient(client, nil, out)

	res, err := client.R().Get(server.URL + "/activity")
	require.NoError(t, err)
	require.Equal(t, 200, res.StatusCode())

	require.Len(t, out.messages, 1)
	message := out.messages["1"]
	require.True(t, strings.HasPrefix(message, "---- REQUEST ----"))
	require.Contains(t, message, "GET "+server.URL+"/activity")
	require.Contains(t, message, "X-Test: yes")
	require.Contains(t, message, "<html>hello</html>")
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "resty")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("x"), 0644))

	out, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	out.Write("7", "contents")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "7.txt", entries[0].Name())
}

func TestFormatRequestBody(t *testing.T) {
	get, err := http.NewRequest(http.MethodGet, "http://localhost/activity", nil)
	require.NoError(t, err)
	require.Equal(t, "", formatRequestBody(get))

	get.GetBody = func() (io.ReadCloser, error) { return nil, nil }
	require.Equal(t, "", formatRequestBody(get))

	get.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
	require.Equal(t, "", formatRequestBody(get))

	post, err := http.NewRequest(http.MethodPost, "http://localhost/activity", strings.NewReader("a=1"))
	require.NoError(t, err)
	require.Equal(t, "a=1", formatRequestBody(post))

	require.Equal(t, "", formatRequestBody(nil))
}
