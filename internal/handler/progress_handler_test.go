package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habittracker/internal/handler"
	"habittracker/internal/model"
	"habittracker/internal/service"
)

type progressTestEnv struct {
	engine    *gin.Engine
	habitRepo *memHabitRepo
	token     string
}

func newProgressTestEnv(t *testing.T) *progressTestEnv {
	t.Helper()

	userRepo := newMemUserRepo()
	authService := service.NewAuthService(userRepo, testSecret, zap.NewNop())
	authH := handler.NewAuthHandler(authService, zap.NewNop())

	habitRepo := newMemHabitRepo()
	progressRepo := newMemProgressRepo()
	progressService := service.NewProgressService(progressRepo, habitRepo, service.NopNotifier{}, zap.NewNop())
	progressH := handler.NewProgressHandler(progressService, zap.NewNop())

	engine := newTestEngine(authH, progressH)
	token := registerUser(t, engine)

	// Habit owned by the registered user (id 1).
	require.NoError(t, habitRepo.Insert(context.Background(), &model.Habit{
		UserID:      1,
		Name:        "Drink Water",
		Category:    "health",
		Frequency:   "daily",
		TargetValue: 8,
		Unit:        "glasses",
		IsActive:    true,
	}))

	return &progressTestEnv{engine: engine, habitRepo: habitRepo, token: token}
}

func todayUTC() string {
	return time.Now().UTC().Format(model.DateLayout)
}

type progressResponse struct {
	Progress model.Progress `json:"progress"`
}

func TestUpsertFlowOverHTTP(t *testing.T) {
	env := newProgressTestEnv(t)
	today := todayUTC()

	// Meeting the target on the insert path.
	body := fmt.Sprintf(`{"habitId":1,"date":"%s","value":8}`, today)
	rec := doJSON(t, env.engine, http.MethodPost, "/api/progress", body, env.token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created progressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.Progress.Completed)
	assert.NotNil(t, created.Progress.CompletedAt)

	// Same date again takes the update path and drops below target.
	body = fmt.Sprintf(`{"habitId":1,"date":"%s","value":3}`, today)
	rec = doJSON(t, env.engine, http.MethodPost, "/api/progress", body, env.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated progressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, created.Progress.ID, updated.Progress.ID)
	assert.False(t, updated.Progress.Completed)
	assert.Nil(t, updated.Progress.CompletedAt)
}

func TestUpsertFutureDateOverHTTP(t *testing.T) {
	env := newProgressTestEnv(t)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(model.DateLayout)

	body := fmt.Sprintf(`{"habitId":1,"date":"%s","value":5}`, tomorrow)
	rec := doJSON(t, env.engine, http.MethodPost, "/api/progress", body, env.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertUnknownHabitOverHTTP(t *testing.T) {
	env := newProgressTestEnv(t)

	body := fmt.Sprintf(`{"habitId":99,"date":"%s","value":5}`, todayUTC())
	rec := doJSON(t, env.engine, http.MethodPost, "/api/progress", body, env.token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateCollisionReturns409(t *testing.T) {
	env := newProgressTestEnv(t)
	today := todayUTC()
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(model.DateLayout)

	for _, date := range []string{yesterday, today} {
		body := fmt.Sprintf(`{"habitId":1,"date":"%s","value":2}`, date)
		rec := doJSON(t, env.engine, http.MethodPost, "/api/progress", body, env.token)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// Moving the yesterday record onto today's slot collides.
	body := fmt.Sprintf(`{"habitId":1,"date":"%s","value":2}`, today)
	rec := doJSON(t, env.engine, http.MethodPut, "/api/progress/1", body, env.token)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
