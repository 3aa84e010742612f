package lifecycle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"gamestats/internal/components/telemetry"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type gceServer struct {
	mutex   sync.Mutex
	stopped []string
	// missing metadata path suffix, when set that value is unavailable
	missing string
}

func (s *gceServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/computeMetadata/v1/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Metadata-Flavor") != "Google" {
			http.Error(w, "missing metadata flavor", http.StatusForbidden)
			return
		}
		path := strings.TrimPrefix(r.URL.Path, "/computeMetadata/v1/")
		if s.missing != "" && path == s.missing {
			http.NotFound(w, r)
			return
		}
		switch path {
		case "project/project-id":
			_, _ = w.Write([]byte("gamestats-prod"))
		case "instance/zone":
			_, _ = w.Write([]byte("projects/123456/zones/us-central1-a"))
		case "instance/name":
			_, _ = w.Write([]byte("collector-1"))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/compute/v1/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.mutex.Lock()
		s.stopped = append(s.stopped, r.URL.Path)
		s.mutex.Unlock()
		w.Header().Set("content-type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"kind":   "compute#operation",
			"name":   "operation-1",
			"status": "RUNNING",
		})
	})
	return mux
}

func setup(t *testing.T, server *gceServer) (GCE, *telemetry.Recorder) {
	httpServer := httptest.NewServer(server.handler())
	t.Cleanup(httpServer.Close)
	t.Setenv("GCE_METADATA_HOST", strings.TrimPrefix(httpServer.URL, "http://"))

	tel := telemetry.NewRecorder()
	gce, err := NewGCE(
		context.Background(),
		tel,
		option.WithEndpoint(httpServer.URL+"/compute/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return gce, tel
}

func TestGCEStopsItself(t *testing.T) {
	server := &gceServer{}
	gce, _ := setup(t, server)

	require.NoError(t, gce.Terminate(context.Background()))
	require.Equal(t, []string{
		"/compute/v1/projects/gamestats-prod/zones/us-central1-a/instances/collector-1/stop",
	}, server.stopped)
}

func TestGCEMetadataUnavailable(t *testing.T) {
	server := &gceServer{missing: "instance/name"}
	gce, tel := setup(t, server)

	require.Error(t, gce.Terminate(context.Background()))
	require.Empty(t, server.stopped)
	require.Len(t, tel.Find(telemetry.LevelBroken, report_terminate), 1)
}

func TestNoop(t *testing.T) {
	tel := telemetry.NewRecorder()
	require.NoError(t, NewNoop(tel).Terminate(context.Background()))
}
