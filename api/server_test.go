package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/misoria/frontier/game/config"
	"github.com/misoria/frontier/game/engine"
	"github.com/misoria/frontier/game/progress"
	"github.com/misoria/frontier/game/service"
	"github.com/misoria/frontier/game/session"
	"github.com/misoria/frontier/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	CreateSessionFunc func(ctx context.Context, chapterID string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	MoveFunc       func(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error)
	BulkMoveFunc   func(ctx context.Context, sessionID string, moves []string, reset bool) (*service.BulkMoveResult, error)
	ResetFunc      func(ctx context.Context, sessionID string) (*engine.GameState, error)
	ToggleFlagFunc func(ctx context.Context, sessionID string, x, y int) (*engine.GameState, error)

	GetGameStateFunc   func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, chapterID string) (*engine.ChapterConfig, error)
	SaveConfigFunc  func(ctx context.Context, chapterID string, chapter *engine.ChapterConfig) error
	GetProgressFunc func(ctx context.Context) (*service.ProgressInfo, error)
}

func (m *MockGameService) CreateSession(ctx context.Context, chapterID string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, chapterID)
	}
	return &service.SessionInfo{ID: "test-session", ChapterID: chapterID, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ChapterID: "chapter1", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) Move(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, direction, reset)
	}
	return &service.MoveResult{Success: true, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*service.BulkMoveResult, error) {
	if m.BulkMoveFunc != nil {
		return m.BulkMoveFunc(ctx, sessionID, moves, reset)
	}
	return &service.BulkMoveResult{Success: true, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) ToggleFlag(ctx context.Context, sessionID string, x, y int) (*engine.GameState, error) {
	if m.ToggleFlagFunc != nil {
		return m.ToggleFlagFunc(ctx, sessionID, x, y)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetMoveHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMoveHistoryFunc != nil {
		return m.GetMoveHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{
		Moves:      []engine.MoveHistoryEntry{},
		Page:       opts.Page,
		PageSize:   opts.Limit,
		TotalPages: 1,
	}, nil
}

func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, chapterID string) (*engine.ChapterConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, chapterID)
	}
	return &engine.ChapterConfig{ID: chapterID, Name: "Test chapter"}, nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, chapterID string, chapter *engine.ChapterConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, chapterID, chapter)
	}
	return nil
}

func (m *MockGameService) GetProgress(ctx context.Context) (*service.ProgressInfo, error) {
	if m.GetProgressFunc != nil {
		return m.GetProgressFunc(ctx)
	}
	return &service.ProgressInfo{}, nil
}

// Test helpers
func setupTestServer(t *testing.T, mockService *MockGameService) *Server {
	t.Helper()
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return NewServer(mockService, hub)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	parseResponse(t, w, &resp)
	return resp.Error
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"session not found", fmt.Errorf("session not found: %w", session.ErrSessionNotFound), http.StatusNotFound},
		{"config not found", fmt.Errorf("config 'x' not found: %w", config.ErrConfigNotFound), http.StatusNotFound},
		{"chapter locked", fmt.Errorf("cannot start chapter3: %w", progress.ErrChapterLocked), http.StatusForbidden},
		{"invalid direction", fmt.Errorf("%w: sideways", engine.ErrInvalidDirection), http.StatusBadRequest},
		{"out of bounds", engine.ErrOutOfBounds, http.StatusBadRequest},
		{"over density", fmt.Errorf("%w: %w", config.ErrInvalidConfig, engine.ErrOverDensity), http.StatusBadRequest},
		{"invalid session id", session.ErrInvalidSessionID, http.StatusBadRequest},
		{"already exists", session.ErrSessionAlreadyExists, http.StatusConflict},
		{"unknown", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default chapter",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, chapterID string) (*service.SessionInfo, error) {
					if chapterID != "" {
						t.Errorf("Expected empty chapter id, got %s", chapterID)
					}
					return &service.SessionInfo{ID: "a1b2c3d4", ChapterID: "chapter1"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "a1b2c3d4" {
					t.Errorf("Expected session ID a1b2c3d4, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with chapter id",
			requestBody: map[string]string{"chapter_id": "chapter2"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, chapterID string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "s2", ChapterID: chapterID}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ChapterID != "chapter2" {
					t.Errorf("Expected chapter2, got %s", resp.ChapterID)
				}
			},
		},
		{
			name:        "config_id alias",
			requestBody: map[string]string{"config_id": "chapter3"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, chapterID string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "s3", ChapterID: chapterID}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ChapterID != "chapter3" {
					t.Errorf("Expected chapter3, got %s", resp.ChapterID)
				}
			},
		},
		{
			name:        "Locked chapter",
			requestBody: map[string]string{"chapter_id": "chapter4"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, chapterID string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("cannot start %s: %w", chapterID, progress.ErrChapterLocked)
				}
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:        "Unknown chapter",
			requestBody: map[string]string{"chapter_id": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, chapterID string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("config 'nope' not found: %w", config.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, chapterID string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				if msg := errorMessage(t, w); msg != "service error" {
					t.Errorf("Expected error message 'service error', got %s", msg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	sessions := func() []*service.SessionInfo {
		return []*service.SessionInfo{
			{ID: "old", ChapterID: "chapter1", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-time.Minute)},
			{ID: "new", ChapterID: "chapter2", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now.Add(-time.Hour)},
			{ID: "mid", ChapterID: "chapter1", CreatedAt: now.Add(-90 * time.Minute), LastAccessedAt: now},
		}
	}

	tests := []struct {
		name      string
		query     string
		wantIDs   []string
		wantTotal int
	}{
		{"default sorts by access desc", "", []string{"mid", "old", "new"}, 3},
		{"created asc", "?sort=created&order=asc", []string{"old", "mid", "new"}, 3},
		{"limit", "?limit=1", []string{"mid"}, 3},
		{"invalid limit ignored", "?limit=abc", []string{"mid", "old", "new"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
					return sessions(), nil
				},
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)
			if resp.Total != tt.wantTotal {
				t.Errorf("Expected total %d, got %d", tt.wantTotal, resp.Total)
			}
			if resp.Count != len(tt.wantIDs) {
				t.Fatalf("Expected count %d, got %d", len(tt.wantIDs), resp.Count)
			}
			for i, id := range tt.wantIDs {
				if resp.Sessions[i].ID != id {
					t.Errorf("sessions[%d] = %s, want %s", i, resp.Sessions[i].ID, id)
				}
			}
		})
	}

	t.Run("service error", func(t *testing.T) {
		server := setupTestServer(t, &MockGameService{
			ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
				return nil, fmt.Errorf("database error")
			},
		})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/sessions", nil))
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", w.Code)
		}
	})
}

func TestGetAndDeleteSession(t *testing.T) {
	notFound := fmt.Errorf("session not found: %w", session.ErrSessionNotFound)

	tests := []struct {
		name           string
		method         string
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{"get existing", "GET", nil, http.StatusOK},
		{"get missing", "GET", func(m *MockGameService) {
			m.GetSessionFunc = func(ctx context.Context, id string) (*service.SessionInfo, error) {
				return nil, notFound
			}
		}, http.StatusNotFound},
		{"delete existing", "DELETE", nil, http.StatusOK},
		{"delete missing", "DELETE", func(m *MockGameService) {
			m.DeleteSessionFunc = func(ctx context.Context, id string) error {
				return notFound
			}
		}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest(tt.method, "/api/sessions/abc12345", nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

// Turn Tests

func TestMove(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Successful move",
			body: map[string]interface{}{"direction": "up"},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, id, dir string, reset bool) (*service.MoveResult, error) {
					if dir != "up" || reset {
						t.Errorf("unexpected args dir=%s reset=%v", dir, reset)
					}
					return &service.MoveResult{
						Success:   true,
						GameState: &engine.GameState{Turn: 1},
						Turn:      engine.TurnResult{Turn: 1, Moved: true, Status: engine.StatusPlaying},
						Events:    []service.GameEvent{{Type: "move", Message: "moved"}},
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MoveResult
				parseResponse(t, w, &resp)
				if !resp.Success || !resp.Turn.Moved {
					t.Errorf("Expected successful move, got %+v", resp)
				}
			},
		},
		{
			name: "Move with reset",
			body: map[string]interface{}{"direction": "left", "reset": true},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, id, dir string, reset bool) (*service.MoveResult, error) {
					if !reset {
						t.Error("Expected reset flag to be forwarded")
					}
					return &service.MoveResult{Success: true, GameState: &engine.GameState{}}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Invalid direction",
			body: map[string]interface{}{"direction": "sideways"},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, id, dir string, reset bool) (*service.MoveResult, error) {
					return nil, fmt.Errorf("%w: %s", engine.ErrInvalidDirection, dir)
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Malformed body",
			body:           "not-json-object",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Session not found",
			body: map[string]interface{}{"direction": "up"},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, id, dir string, reset bool) (*service.MoveResult, error) {
					return nil, fmt.Errorf("session not found: %w", session.ErrSessionNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/s1/move", tt.body))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestBulkMove(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Stops on mine",
			body: map[string]interface{}{"moves": []string{"up", "up", "up"}},
			setupMock: func(m *MockGameService) {
				m.BulkMoveFunc = func(ctx context.Context, id string, moves []string, reset bool) (*service.BulkMoveResult, error) {
					return &service.BulkMoveResult{
						MovesExecuted:  2,
						RequestedMoves: len(moves),
						Success:        true,
						StopReasonCode: "mine",
						StoppedOnMove:  2,
						GameOver:       true,
						GameOverCode:   "mine",
						GameState:      &engine.GameState{},
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.BulkMoveResult
				parseResponse(t, w, &resp)
				if resp.StopReasonCode != "mine" || resp.StoppedOnMove != 2 {
					t.Errorf("Expected stop on move 2 for mine, got %s on %d", resp.StopReasonCode, resp.StoppedOnMove)
				}
			},
		},
		{
			name:           "Empty move list",
			body:           map[string]interface{}{"moves": []string{}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Malformed body",
			body:           []int{1, 2},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/s1/bulk-move", tt.body))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestResetAndFlag(t *testing.T) {
	t.Run("reset", func(t *testing.T) {
		server := setupTestServer(t, &MockGameService{
			ResetFunc: func(ctx context.Context, id string) (*engine.GameState, error) {
				return &engine.GameState{ChapterID: "chapter1", Player: engine.PlayerTurnState{Status: engine.StatusPlaying}}, nil
			},
		})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/s1/reset", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var resp struct {
			State engine.GameState `json:"state"`
		}
		parseResponse(t, w, &resp)
		if resp.State.ChapterID != "chapter1" {
			t.Errorf("Expected chapter1 state, got %q", resp.State.ChapterID)
		}
	})

	flagTests := []struct {
		name           string
		body           interface{}
		flagErr        error
		expectedStatus int
	}{
		{"toggles", map[string]int{"x": 2, "y": 3}, nil, http.StatusOK},
		{"origin is a valid cell", map[string]int{"x": 0, "y": 0}, nil, http.StatusOK},
		{"missing y", map[string]int{"x": 2}, nil, http.StatusBadRequest},
		{"out of bounds", map[string]int{"x": 99, "y": 0}, fmt.Errorf("%w: (99,0)", engine.ErrOutOfBounds), http.StatusBadRequest},
	}

	for _, tt := range flagTests {
		t.Run("flag "+tt.name, func(t *testing.T) {
			server := setupTestServer(t, &MockGameService{
				ToggleFlagFunc: func(ctx context.Context, id string, x, y int) (*engine.GameState, error) {
					if tt.flagErr != nil {
						return nil, tt.flagErr
					}
					return &engine.GameState{}, nil
				},
			})
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/s1/flag", tt.body))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
		wantOrder string
	}{
		{"defaults", "", 1, 20, "desc"},
		{"explicit", "?page=2&limit=5&order=asc", 2, 5, "asc"},
		{"invalid values fall back", "?page=-1&limit=x&order=sideways", 1, 20, "desc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.HistoryOptions
			server := setupTestServer(t, &MockGameService{
				GetMoveHistoryFunc: func(ctx context.Context, id string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{Page: opts.Page, PageSize: opts.Limit}, nil
				},
			})
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/s1/history"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got.Page != tt.wantPage || got.Limit != tt.wantLimit || got.Order != tt.wantOrder {
				t.Errorf("options = %+v, want page=%d limit=%d order=%s", got, tt.wantPage, tt.wantLimit, tt.wantOrder)
			}
		})
	}
}

func TestFieldMap(t *testing.T) {
	eng, err := engine.NewEngineWithDefaults(engine.WithRand(rand.New(rand.NewPCG(1, 2))))
	if err != nil {
		t.Fatalf("NewEngineWithDefaults: %v", err)
	}
	state := eng.GetState().Clone()

	server := setupTestServer(t, &MockGameService{
		GetSessionFunc: func(ctx context.Context, id string) (*service.SessionInfo, error) {
			if id != "s1" {
				return nil, session.ErrSessionNotFound
			}
			return &service.SessionInfo{ID: id, ChapterID: state.ChapterID, GameState: &state, Chapter: eng.GetConfig()}, nil
		},
	})

	t.Run("renders pdf", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/sessions/s1/map.pdf?routes=true", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("Expected application/pdf, got %s", ct)
		}
		if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
			t.Error("body is not a PDF")
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/sessions/zz/map.pdf", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

// Chapter Tests

func TestConfigs(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		server := setupTestServer(t, &MockGameService{
			ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
				return []*service.ConfigInfo{{ConfigID: "chapter1"}, {ConfigID: "chapter2"}}, nil
			},
		})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs", nil))
		var resp []service.ConfigInfo
		parseResponse(t, w, &resp)
		if len(resp) != 2 {
			t.Errorf("Expected 2 configs, got %d", len(resp))
		}
	})

	t.Run("get strips extension", func(t *testing.T) {
		server := setupTestServer(t, &MockGameService{
			LoadConfigFunc: func(ctx context.Context, id string) (*engine.ChapterConfig, error) {
				if id != "chapter2" {
					return nil, config.ErrConfigNotFound
				}
				return &engine.ChapterConfig{ID: id}, nil
			},
		})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs/chapter2.yaml", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}

		w = httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs/missing", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	createTests := []struct {
		name           string
		body           string
		saveErr        error
		expectedStatus int
	}{
		{
			name:           "json body",
			body:           `{"id":"custom","rows":6,"cols":6,"mines":2,"max_decoy":3,"goal":true}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "yaml body",
			body:           "id: custom\nrows: 6\ncols: 6\nmines: 2\nmax_decoy: 3\ngoal: true\n",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing id",
			body:           `{"rows":6,"cols":6}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "rejected by validation",
			body:           `{"id":"dense","rows":5,"cols":5,"mines":40,"max_decoy":3}`,
			saveErr:        fmt.Errorf("%w: %w", config.ErrInvalidConfig, engine.ErrOverDensity),
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range createTests {
		t.Run("create "+tt.name, func(t *testing.T) {
			var saved *engine.ChapterConfig
			server := setupTestServer(t, &MockGameService{
				SaveConfigFunc: func(ctx context.Context, id string, chapter *engine.ChapterConfig) error {
					saved = chapter
					return tt.saveErr
				},
			})
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/configs", strings.NewReader(tt.body))
			server.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusCreated && (saved == nil || saved.Rows != 6) {
				t.Errorf("Expected parsed chapter with 6 rows, got %+v", saved)
			}
		})
	}
}

func TestGetProgress(t *testing.T) {
	server := setupTestServer(t, &MockGameService{
		GetProgressFunc: func(ctx context.Context) (*service.ProgressInfo, error) {
			return &service.ProgressInfo{
				Collected: []string{"medkit"},
				Unlocked:  []string{"chapter1", "chapter2"},
				Gallery:   []service.GalleryItem{{ID: "medkit", Collected: true}, {ID: "shield"}},
			}, nil
		},
	})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/progress", nil))

	var resp service.ProgressInfo
	parseResponse(t, w, &resp)
	if len(resp.Unlocked) != 2 || len(resp.Gallery) != 2 {
		t.Errorf("unexpected progress response: %+v", resp)
	}
}

func TestUnifiedSessions(t *testing.T) {
	all := []*service.SessionInfo{
		{ID: "a", ChapterID: "chapter1", GameState: &engine.GameState{TotalItems: 3}},
		{ID: "b", ChapterID: "chapter2", GameState: &engine.GameState{TotalItems: 5}},
		{ID: "c", ChapterID: "chapter1", GameState: &engine.GameState{TotalItems: 3}},
	}
	mock := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) { return all, nil },
		GetSessionFunc: func(ctx context.Context, id string) (*service.SessionInfo, error) {
			for _, s := range all {
				if s.ID == id {
					return s, nil
				}
			}
			return nil, session.ErrSessionNotFound
		},
	}

	tests := []struct {
		name       string
		query      string
		wantCount  int
		wantItems  int
		wantFilter string
	}{
		{"all", "", 3, 3, "chapter1"},
		{"by chapter", "?chapterId=chapter2", 1, 5, "chapter2"},
		{"by ids skips unknown", "?sessionIds=c,zz,a", 2, 3, "chapter1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(t, mock)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/unified"+tt.query, nil))

			var resp struct {
				ChapterID  string                   `json:"chapter_id"`
				TotalItems int                      `json:"total_items"`
				Sessions   []map[string]interface{} `json:"sessions"`
			}
			parseResponse(t, w, &resp)
			if len(resp.Sessions) != tt.wantCount {
				t.Errorf("Expected %d sessions, got %d", tt.wantCount, len(resp.Sessions))
			}
			if resp.TotalItems != tt.wantItems || resp.ChapterID != tt.wantFilter {
				t.Errorf("Expected %s with %d items, got %s with %d", tt.wantFilter, tt.wantItems, resp.ChapterID, resp.TotalItems)
			}
		})
	}
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{
			name:           "Missing session parameter",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Invalid session",
			queryParams: "?session=invalid",
			setupMock: func(m *MockGameService) {
				m.GetSessionFunc = func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					return nil, session.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest("GET", "/ws"+tt.queryParams, nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}

	t.Run("Hub disabled", func(t *testing.T) {
		server := NewServer(&MockGameService{}, nil)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, httptest.NewRequest("GET", "/ws?session=s1", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	server := setupTestServer(t, &MockGameService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}
