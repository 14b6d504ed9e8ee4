package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classwatch/internal/config"
	"classwatch/internal/session"
	"classwatch/pkg/types"
)

// stubPresenter satisfies the fullscreen capability without a platform.
type stubPresenter struct{}

func (stubPresenter) Enter() error                  { return nil }
func (stubPresenter) Exit() error                   { return nil }
func (stubPresenter) Subscribe(onChange func(bool)) {}

// testBackend serves the endpoints the application touches at mount.
func testBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/classroom/list", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]types.Classroom{
			{ID: "C1", Name: "Aula 1", Number: "101", TotalStudents: 30},
			{ID: "C2", Name: "Aula 2", Number: "102", TotalStudents: 25},
		})
	})
	mux.HandleFunc("/api/classroom/active-sessions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"active_sessions": []types.MonitoringSession{
				{ID: "sess-7", ClassroomID: "C2", Status: types.SessionStatusMonitoring, StartTime: time.Now()},
			},
		})
	})
	mux.HandleFunc("/api/emotion/camera-status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.CameraStatus{Active: false})
	})
	mux.HandleFunc("/api/emotion/realtime-emotions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.EmotionSnapshot{TotalDetections: 0})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, backendURL string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Backend.BaseURL = backendURL
	// No websocket endpoint in the test server; the client must come up
	// on polling alone.
	cfg.Push.URL = "ws" + strings.TrimPrefix(backendURL, "http") + "/ws"
	cfg.Push.HandshakeTimeout = 200 * time.Millisecond
	cfg.Cache.Path = filepath.Join(t.TempDir(), "classwatch.db")
	return cfg
}

func TestMountAndUnmount(t *testing.T) {
	server := testBackend(t)
	cfg := testConfig(t, server.URL)

	sessionsCh := make(chan []types.MonitoringSession, 8)
	application, err := NewApplication(cfg, stubPresenter{}, Callbacks{
		OnSessions: func(sessions []types.MonitoringSession) { sessionsCh <- sessions },
	})
	require.NoError(t, err)

	require.NoError(t, application.Mount(context.Background(), ""))
	defer application.Unmount()

	// The engine fetches the session list immediately on start.
	select {
	case sessions := <-sessionsCh:
		require.Len(t, sessions, 1)
		assert.Equal(t, "sess-7", sessions[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no session list applied after mount")
	}

	require.Len(t, application.ActiveSessions(), 1)
	assert.NotNil(t, application.Controller())
	assert.NotNil(t, application.Video())

	require.NoError(t, application.Unmount())
	assert.ErrorIs(t, application.Unmount(), ErrNotMounted)
}

func TestMountTwiceRejected(t *testing.T) {
	server := testBackend(t)
	application, err := NewApplication(testConfig(t, server.URL), stubPresenter{}, Callbacks{})
	require.NoError(t, err)

	require.NoError(t, application.Mount(context.Background(), ""))
	defer application.Unmount()

	assert.ErrorIs(t, application.Mount(context.Background(), ""), ErrAlreadyMounted)
}

func TestMountPreselectsClassroom(t *testing.T) {
	server := testBackend(t)
	application, err := NewApplication(testConfig(t, server.URL), stubPresenter{}, Callbacks{})
	require.NoError(t, err)

	require.NoError(t, application.Mount(context.Background(), "C2"))
	defer application.Unmount()

	assert.Equal(t, session.StateClassroomSelected, application.Controller().State())
	room, ok := application.Controller().Classroom()
	require.True(t, ok)
	assert.Equal(t, "Aula 2", room.Name)
}

func TestMountUnknownClassroomFails(t *testing.T) {
	server := testBackend(t)
	application, err := NewApplication(testConfig(t, server.URL), stubPresenter{}, Callbacks{})
	require.NoError(t, err)

	err = application.Mount(context.Background(), "C99")
	assert.ErrorIs(t, err, ErrClassroomNotFound)

	// The failed mount cleaned up after itself; a retry works.
	require.NoError(t, application.Mount(context.Background(), "C1"))
	require.NoError(t, application.Unmount())
}

func TestRemountBuildsFreshComponents(t *testing.T) {
	server := testBackend(t)
	application, err := NewApplication(testConfig(t, server.URL), stubPresenter{}, Callbacks{})
	require.NoError(t, err)

	require.NoError(t, application.Mount(context.Background(), ""))
	first := application.Controller()
	require.NoError(t, application.Unmount())

	require.NoError(t, application.Mount(context.Background(), ""))
	defer application.Unmount()
	assert.NotSame(t, first, application.Controller())
}

func TestInvalidConfigRejected(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend.BaseURL = ""
	_, err := NewApplication(cfg, stubPresenter{}, Callbacks{})
	assert.Error(t, err)
}
