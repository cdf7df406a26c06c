package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/arnavshah/team-builder-go/pkg/config"
	"github.com/arnavshah/team-builder-go/pkg/database"
	"github.com/arnavshah/team-builder-go/pkg/logger"
	"github.com/arnavshah/team-builder-go/pkg/models"
)

type fixture struct {
	h      *Handler
	router *gin.Engine
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.OpenWith(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	cfg, err := config.Unmarshal(config.New(""))
	require.NoError(t, err)
	cfg.APIMasterSecret = "master"
	cfg.Teams.Criteria = "Gender"
	cfg.Solver.MaxIterations = 500
	cfg.Solver.Timeout = 10 * time.Second
	cfg.Solver.Seed = 3

	h := New(db, cfg, logger.Discard(), prometheus.NewRegistry())
	h.Auth.Cost = bcrypt.MinCost
	return &fixture{h: h, router: NewRouter(h)}
}

func (f *fixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func people(n int) []map[string]string {
	rows := make([]map[string]string, n)
	for i := range rows {
		gender := "F"
		if i%2 == 1 {
			gender = "M"
		}
		rows[i] = map[string]string{"PUID": fmt.Sprintf("%03d", i+1), "Gender": gender}
	}
	return rows
}

func TestIndexAndHealth(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), Version)

	w = f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"healthy"`)
}

func TestAdminFlow(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.h.Auth.EnsureAdminExists(f.h.DB, "admin", "secret", f.h.Log))
	// a second call keeps the existing admin
	require.NoError(t, f.h.Auth.EnsureAdminExists(f.h.DB, "other", "x", f.h.Log))

	w := f.do(http.MethodPost, "/admin/login", "", gin.H{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/admin/login", "", gin.H{"username": "admin", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &login)
	require.NotEmpty(t, login.AccessToken)

	w = f.do(http.MethodGet, "/admin/keys", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/admin/keys", login.AccessToken, gin.H{"name": "club"})
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		ID  uint   `json:"id"`
		Key string `json:"key"`
	}
	decode(t, w, &created)
	assert.True(t, strings.HasPrefix(created.Key, "club."))

	w = f.do(http.MethodGet, "/admin/keys", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"club"`)
	assert.NotContains(t, w.Body.String(), created.Key)

	w = f.do(http.MethodPut, fmt.Sprintf("/admin/keys/%d", created.ID), login.AccessToken, gin.H{"rate_limit": 5})
	assert.Equal(t, http.StatusOK, w.Code)
	var key database.APIKey
	require.NoError(t, f.h.DB.First(&key, created.ID).Error)
	assert.Equal(t, 5, key.RateLimit)

	w = f.do(http.MethodDelete, "/admin/keys/999", login.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(http.MethodDelete, fmt.Sprintf("/admin/keys/%d", created.ID), login.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBuildJSON(t *testing.T) {
	f := setup(t)
	key := f.h.Auth.GenerateHMACKey("club")

	w := f.do(http.MethodPost, "/api/teams", key, models.BuildInput{People: people(12)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.BuildResponse
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "plain", resp.Variant)
	require.Len(t, resp.Teams, 3)
	placed := 0
	for _, team := range resp.Teams {
		assert.LessOrEqual(t, len(team.Members), 5)
		placed += len(team.Members)
	}
	assert.Equal(t, 12, placed)
	assert.Empty(t, resp.Unassigned)
	assert.Contains(t, resp.Info, "Average Team Size")

	w = f.do(http.MethodGet, "/api/usage", key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var usage struct {
		Totals struct {
			Requests int `json:"requests"`
			People   int `json:"people"`
			Teams    int `json:"teams"`
		} `json:"totals"`
	}
	decode(t, w, &usage)
	assert.Equal(t, 1, usage.Totals.Requests)
	assert.Equal(t, 12, usage.Totals.People)
	assert.Equal(t, 3, usage.Totals.Teams)

	w = f.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "teams_search_runs_total")
}

func TestBuildJSONRejectsBadInput(t *testing.T) {
	f := setup(t)
	key := f.h.Auth.GenerateHMACKey("club")

	w := f.do(http.MethodPost, "/api/teams", "club.forged", models.BuildInput{People: people(3)})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/api/teams", key, models.BuildInput{People: people(3), Criteria: "Gender|@"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/teams", key, models.BuildInput{People: people(3), Variant: "leads"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDailyRateLimit(t *testing.T) {
	f := setup(t)
	key := f.h.Auth.GenerateHMACKey("small")
	require.NoError(t, f.h.DB.Create(&database.APIKey{Key: key, Name: "small", RateLimit: 1}).Error)

	w := f.do(http.MethodPost, "/api/teams", key, models.BuildInput{People: people(4)})
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(http.MethodPost, "/api/teams", key, models.BuildInput{People: people(4)})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestBuildCSV(t *testing.T) {
	f := setup(t)
	key := f.h.Auth.GenerateHMACKey("club")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("people_file", "people.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("PUID,Gender\n1,F\n2,M\n3,F\n4,M\n5,F\n6,M\n"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("criteria", "Gender|TeamSize"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/teams/csv", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+key)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.CSVResponse
	decode(t, w, &resp)
	assert.True(t, strings.HasPrefix(resp.Assignments, "Team,PUID,Gender,BGRHallGroup\n"), resp.Assignments)
	assert.Equal(t, 7, strings.Count(resp.Assignments, "\n"))
	assert.Empty(t, resp.Leads)
	assert.Contains(t, resp.Report, "Team Size: 5 (6 persons, 2 teams)")
}

func TestBuildCSVRequiresPeople(t *testing.T) {
	f := setup(t)
	key := f.h.Auth.GenerateHMACKey("club")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("criteria", "Gender"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/teams/csv", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+key)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateInput(t *testing.T) {
	f := setup(t)
	key := f.h.Auth.GenerateHMACKey("club")

	rows := people(3)
	rows[2]["PUID"] = rows[0]["PUID"]
	w := f.do(http.MethodPost, "/api/validate", key, models.BuildInput{People: rows})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":false`)
	assert.Contains(t, w.Body.String(), "Duplicate ID: 001")

	w = f.do(http.MethodPost, "/api/validate", key, models.BuildInput{People: people(3)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":true`)
	assert.Contains(t, w.Body.String(), `"people_count":3`)
}
