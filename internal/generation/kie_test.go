package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKIEClient(url string, client *http.Client) *KIEClient {
	c := NewKIEClient("kie-key", url, client, 0, nil)
	c.pollInterval = time.Millisecond
	c.maxAttempts = 5
	return c
}

func TestKIEClient_GenerateImage(t *testing.T) {
	var polls int32
	var created map[string]any

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/api/v1/jobs/createTask", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer kie-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		_, _ = w.Write([]byte(`{"code":200,"data":{"taskId":"task-1"}}`))
	})
	mux.HandleFunc("/api/v1/jobs/recordInfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "task-1", r.URL.Query().Get("taskId"))
		if atomic.AddInt32(&polls, 1) < 2 {
			_, _ = w.Write([]byte(`{"code":200,"data":{"state":"generating"}}`))
			return
		}
		result, _ := json.Marshal(map[string][]string{"resultUrls": {srv.URL + "/files/out.png"}})
		resp, _ := json.Marshal(map[string]any{
			"code": 200,
			"data": map[string]any{"state": "success", "resultJson": string(result)},
		})
		_, _ = w.Write(resp)
	})
	mux.HandleFunc("/files/out.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("generated"))
	})

	client := newTestKIEClient(srv.URL, srv.Client())
	img, err := client.GenerateImage(context.Background(), ImageRequest{
		Prompt:        "a mug",
		ReferenceURLs: []string{"https://cdn/a.png", "https://cdn/b.png"},
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("generated"), img.Data)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, int32(2), atomic.LoadInt32(&polls))
	assert.Equal(t, "nano-banana-pro", created["model"])
	input := created["input"].(map[string]any)
	assert.Len(t, input["image_input"], 2)
}

func TestKIEClient_TaskFailed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs/createTask", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{"taskId":"task-1"}}`))
	})
	mux.HandleFunc("/api/v1/jobs/recordInfo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{"state":"fail","failCode":"500","failMsg":"nsfw"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestKIEClient(srv.URL, srv.Client()).GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nsfw")
}

func TestKIEClient_PollTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs/createTask", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{"taskId":"task-1"}}`))
	})
	mux.HandleFunc("/api/v1/jobs/recordInfo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{"state":"waiting"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestKIEClient(srv.URL, srv.Client()).GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task timeout")
}

func TestKIEClient_CreateTaskRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":402,"msg":"insufficient balance"}`))
	}))
	defer srv.Close()

	_, err := newTestKIEClient(srv.URL, srv.Client()).GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient balance")
}

func TestKIEClient_DownloadRespectsSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
	}))
	defer srv.Close()

	client := NewKIEClient("kie-key", srv.URL, srv.Client(), 16, nil)
	_, err := client.download(context.Background(), srv.URL+"/out.png")
	assert.ErrorIs(t, err, ErrResultTooLarge)

	client = NewKIEClient("kie-key", srv.URL, srv.Client(), 64, nil)
	img, err := client.download(context.Background(), srv.URL+"/out.png")
	require.NoError(t, err)
	assert.Len(t, img.Data, 64)
}
