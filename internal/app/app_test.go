package app

import (
	"bravolearn_backend/internal/config"
	"bravolearn_backend/internal/model"
	"bravolearn_backend/internal/testutil"
	"bravolearn_backend/pkg/messaging"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestApp(t *testing.T, db *gorm.DB, publisher messaging.Publisher) *App {
	t.Helper()

	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: "test"},
		JWT:       config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Storage:   config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		RateLimit: config.RateLimitConfig{MaxRequests: 1000, WindowMinutes: 1},
		Progression: config.ProgressionConfig{
			RewardPolicy:    "first_completion_only",
			Timezone:        "UTC",
			LeaderboardSize: 10,
		},
	}

	services, err := NewServices(cfg, db, nil, publisher)
	require.NoError(t, err)

	app := &App{Config: cfg, DB: db, Publisher: publisher, Services: services}
	gin.SetMode(gin.TestMode)
	app.Router = gin.New()
	app.setupMiddlewares(app.Router, cfg)
	app.registerRoutes(app.Router, app.initControllers(services), cfg)
	return app
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, app *App, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func registerAndLogin(t *testing.T, app *App, email string) string {
	t.Helper()

	code, _ := call(t, app, http.MethodPost, "/api/register", "", gin.H{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, code)

	return login(t, app, email)
}

func login(t *testing.T, app *App, email string) string {
	t.Helper()

	code, env := call(t, app, http.MethodPost, "/api/login", "", gin.H{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, code)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestLearnerJourney(t *testing.T) {
	db := testutil.NewDB(t)
	pub := messaging.NewMemoryPublisher("bravolearn")
	app := newTestApp(t, db, pub)
	course := testutil.SeedCourse(t, db, "go-basics", 50)
	first := course.Lessons[0]

	token := registerAndLogin(t, app, "ada@example.com")

	// 未报名时课时锁定
	code, _ := call(t, app, http.MethodGet, fmt.Sprintf("/api/lessons/%d", first.ID), token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = call(t, app, http.MethodPost, fmt.Sprintf("/api/courses/%d/enroll", course.Course.ID), token, nil)
	require.Equal(t, http.StatusOK, code)

	code, env := call(t, app, http.MethodGet, fmt.Sprintf("/api/courses/%d", course.Course.ID), token, nil)
	require.Equal(t, http.StatusOK, code)
	var outline struct {
		Enrolled bool `json:"enrolled"`
		Units    []struct {
			Lessons []struct {
				ID     uint   `json:"id"`
				Status string `json:"status"`
			} `json:"lessons"`
		} `json:"units"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &outline))
	assert.True(t, outline.Enrolled)
	require.Len(t, outline.Units, 1)
	require.Len(t, outline.Units[0].Lessons, 3)
	assert.Equal(t, "unlocked", outline.Units[0].Lessons[0].Status)
	assert.Equal(t, "locked", outline.Units[0].Lessons[1].Status)

	code, env = call(t, app, http.MethodGet, fmt.Sprintf("/api/lessons/%d", first.ID), token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), "var declares a variable")

	// 提前完成：练习未作答
	code, _ = call(t, app, http.MethodPost, fmt.Sprintf("/api/lessons/%d/complete", first.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	for i, ex := range course.Exercises[first.ID] {
		code, env = call(t, app, http.MethodPost, fmt.Sprintf("/api/exercises/%d/answer", ex.ID), token, gin.H{
			"answer": course.Correct(first.ID, i),
		})
		require.Equal(t, http.StatusOK, code)
		var verdict struct {
			Correct bool `json:"correct"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &verdict))
		assert.True(t, verdict.Correct)
	}

	code, env = call(t, app, http.MethodPost, fmt.Sprintf("/api/lessons/%d/complete", first.ID), token, nil)
	require.Equal(t, http.StatusOK, code)
	var result struct {
		Score           int  `json:"score"`
		XPAwarded       int  `json:"xpAwarded"`
		XP              int  `json:"xp"`
		Level           int  `json:"level"`
		Streak          int  `json:"streak"`
		FirstCompletion bool `json:"firstCompletion"`
		Achievements    []struct {
			Code string `json:"code"`
		} `json:"newAchievements"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, 50, result.XPAwarded)
	assert.Equal(t, 50, result.XP)
	assert.Equal(t, 1, result.Level)
	assert.Equal(t, 1, result.Streak)
	assert.True(t, result.FirstCompletion)
	var codes []string
	for _, a := range result.Achievements {
		codes = append(codes, a.Code)
	}
	assert.Contains(t, codes, "first_steps")
	assert.Contains(t, codes, "flawless")

	// 下一课时已解锁
	code, _ = call(t, app, http.MethodGet, fmt.Sprintf("/api/lessons/%d", course.Lessons[1].ID), token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = call(t, app, http.MethodGet, "/api/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, code)
	var board []struct {
		Position int `json:"position"`
		XP       int `json:"xp"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board, 1)
	assert.Equal(t, 1, board[0].Position)
	assert.Equal(t, 50, board[0].XP)

	code, env = call(t, app, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, code)
	var overview struct {
		Rank  int `json:"rank"`
		Stats struct {
			LessonsCompleted int `json:"lessonsCompleted"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &overview))
	assert.Equal(t, 1, overview.Rank)

	var subjects []string
	for _, m := range pub.Messages() {
		subjects = append(subjects, m.Subject)
	}
	assert.Contains(t, subjects, "bravolearn.lesson.completed")
	assert.Contains(t, subjects, "bravolearn.course.enrolled")
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(t, testutil.NewDB(t), nil)

	for _, path := range []string{"/api/profile", "/api/achievements", "/api/leaderboard/me"} {
		code, _ := call(t, app, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
	}

	code, _ := call(t, app, http.MethodGet, "/api/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPublicRoutes(t *testing.T) {
	db := testutil.NewDB(t)
	app := newTestApp(t, db, nil)
	testutil.SeedCourse(t, db, "go-basics", 10)

	code, _ := call(t, app, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := call(t, app, http.MethodGet, "/api/courses", "", nil)
	require.Equal(t, http.StatusOK, code)
	var courses []struct {
		Slug     string `json:"slug"`
		Enrolled bool   `json:"enrolled"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &courses))
	require.Len(t, courses, 1)
	assert.Equal(t, "go-basics", courses[0].Slug)
	assert.False(t, courses[0].Enrolled)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := newTestApp(t, testutil.NewDB(t), nil)
	registerAndLogin(t, app, "grace@example.com")

	code, _ := call(t, app, http.MethodPost, "/api/register", "", gin.H{
		"email":    "Grace@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = call(t, app, http.MethodPost, "/api/login", "", gin.H{
		"email":    "grace@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestDebugStateRequiresAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	app := newTestApp(t, db, nil)

	learner := registerAndLogin(t, app, "learner@example.com")
	code, _ := call(t, app, http.MethodGet, "/api/debug/state", learner, nil)
	assert.Equal(t, http.StatusForbidden, code)

	registerAndLogin(t, app, "root@example.com")
	require.NoError(t, db.Model(&model.User{}).Where("email = ?", "root@example.com").Update("role", model.Admin).Error)
	admin := login(t, app, "root@example.com")

	var target model.User
	require.NoError(t, db.Where("email = ?", "learner@example.com").First(&target).Error)
	code, env := call(t, app, http.MethodGet, fmt.Sprintf("/api/debug/state?userId=%d", target.ID), admin, nil)
	require.Equal(t, http.StatusOK, code)
	var state struct {
		Profile struct {
			UserID uint `json:"userId"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Equal(t, target.ID, state.Profile.UserID)
}

func TestRequestValidation(t *testing.T) {
	db := testutil.NewDB(t)
	app := newTestApp(t, db, nil)
	course := testutil.SeedCourse(t, db, "go-basics", 10)
	token := registerAndLogin(t, app, "lin@example.com")

	code, _ := call(t, app, http.MethodGet, "/api/lessons/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, app, http.MethodGet, "/api/courses/999", token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, app, http.MethodPost, fmt.Sprintf("/api/courses/%d/enroll", course.Course.ID), token, nil)
	require.Equal(t, http.StatusOK, code)

	ex := course.Exercises[course.Lessons[0].ID][0]
	code, _ = call(t, app, http.MethodPost, fmt.Sprintf("/api/exercises/%d/answer", ex.ID), token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, app, http.MethodPost, fmt.Sprintf("/api/exercises/%d/answer", ex.ID), token, gin.H{"answer": 42})
	assert.Equal(t, http.StatusBadRequest, code)

	// 形状不匹配按答错处理
	code, env := call(t, app, http.MethodPost, fmt.Sprintf("/api/exercises/%d/answer", ex.ID), token, gin.H{"answer": []string{"var"}})
	require.Equal(t, http.StatusOK, code)
	var verdict struct {
		Correct bool `json:"correct"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &verdict))
	assert.False(t, verdict.Correct)

	code, _ = call(t, app, http.MethodGet, "/api/leaderboard?limit=0", "", nil)
	assert.Equal(t, http.StatusOK, code)
}
