package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/domain/duplication"
	"github.com/yungbote/episode-duplication/internal/pkg/dbctx"
	"github.com/yungbote/episode-duplication/internal/platform/apierr"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

type fakeDuplications struct {
	begin func(uuid.UUID) (*types.Duplication, error)
	get   func(uuid.UUID) (*types.Duplication, error)
	list  []*types.Duplication
}

func (f *fakeDuplications) Begin(_ dbctx.Context, id uuid.UUID) (*types.Duplication, error) {
	return f.begin(id)
}

func (f *fakeDuplications) Get(_ dbctx.Context, id uuid.UUID) (*types.Duplication, error) {
	return f.get(id)
}

func (f *fakeDuplications) ListForEpisode(dbctx.Context, uuid.UUID) ([]*types.Duplication, error) {
	return f.list, nil
}

func newRouter(svc *fakeDuplications) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewDuplicationHandler(logger.NewNop(), svc)
	r := gin.New()
	r.POST("/api/episodes/:id/duplications", h.Begin)
	r.GET("/api/episodes/:id/duplications", h.ListForEpisode)
	r.GET("/api/duplications/:id", h.Get)
	return r
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestBeginReturnsAccepted(t *testing.T) {
	var got uuid.UUID
	svc := &fakeDuplications{begin: func(id uuid.UUID) (*types.Duplication, error) {
		got = id
		return duplication.New(id, time.Now()), nil
	}}
	epID := uuid.New()
	rec := serve(newRouter(svc), http.MethodPost, "/api/episodes/"+epID.String()+"/duplications")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusAccepted, rec.Code, rec.Body.String())
	}
	if got != epID {
		t.Fatalf("episode id: want=%s got=%s", epID, got)
	}
	var body struct {
		Duplication duplicationView `json:"duplication"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Duplication.Status != types.DuplicationPending || body.Duplication.SourceEpisodeID != epID {
		t.Fatalf("body: got=%+v", body.Duplication)
	}
}

func TestBeginRejectsBadEpisodeID(t *testing.T) {
	svc := &fakeDuplications{begin: func(uuid.UUID) (*types.Duplication, error) {
		t.Fatalf("service called with bad id")
		return nil, nil
	}}
	rec := serve(newRouter(svc), http.MethodPost, "/api/episodes/not-a-uuid/duplications")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "invalid_episode_id") {
		t.Fatalf("bad id: status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	svc := &fakeDuplications{
		begin: func(uuid.UUID) (*types.Duplication, error) {
			return nil, fmt.Errorf("submit duplication chain: %w", errors.New("temporal down"))
		},
		get: func(uuid.UUID) (*types.Duplication, error) {
			return nil, apierr.New(http.StatusNotFound, "duplication_not_found", errors.New("duplication missing"))
		},
	}
	r := newRouter(svc)

	rec := serve(r, http.MethodGet, "/api/duplications/"+uuid.NewString())
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "duplication_not_found") {
		t.Fatalf("not found: status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = serve(r, http.MethodPost, "/api/episodes/"+uuid.NewString()+"/duplications")
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "begin_duplication_failed") {
		t.Fatalf("internal: status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGetReportsProgress(t *testing.T) {
	d := duplication.New(uuid.New(), time.Now())
	d.Status = types.DuplicationInProgress
	p, err := d.ProgressMap().Add(types.StageParts, 42)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	d.Progress = datatypes.NewJSONType(p)
	svc := &fakeDuplications{
		get:  func(uuid.UUID) (*types.Duplication, error) { return d, nil },
		list: []*types.Duplication{d},
	}
	rec := serve(newRouter(svc), http.MethodGet, "/api/duplications/"+d.ID.String())
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, `"status":"in_progress"`) || !strings.Contains(body, `"parts":42`) {
		t.Fatalf("get: status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = serve(newRouter(svc), http.MethodGet, "/api/episodes/"+d.SourceEpisodeID.String()+"/duplications")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), d.ID.String()) {
		t.Fatalf("list: status=%d body=%s", rec.Code, rec.Body.String())
	}
}
