package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	watch "github.com/Vampire-Chan/VideoVerse/internal/modules/watch/service"
	"github.com/Vampire-Chan/VideoVerse/internal/testutil"
	"github.com/Vampire-Chan/VideoVerse/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*gin.Engine, watch.WatchService, *entity.User, *entity.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	alice := &entity.User{ID: uuid.New(), Username: "alice"}
	bob := &entity.User{ID: uuid.New(), Username: "bob"}
	svc := watch.NewWatchService(testutil.NewWatches(), testutil.NewUsers(alice, bob))

	asAlice := func(c *gin.Context) {
		c.Set(response.ContextUserID, alice.ID.String())
		c.Next()
	}
	r := gin.New()
	NewWatchHandler(svc).RegisterRoutes(r.Group("/api/users"), asAlice)
	return r, svc, alice, bob
}

func send(r *gin.Engine, method, path string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w.Code
}

func TestUnwatchBothPaths(t *testing.T) {
	for _, suffix := range []string{"/watch", "/unwatch"} {
		t.Run(suffix, func(t *testing.T) {
			r, svc, alice, bob := setup(t)
			path := "/api/users/" + bob.ID.String()

			require.Equal(t, http.StatusCreated, send(r, http.MethodPost, path+"/watch"))
			assert.Equal(t, http.StatusConflict, send(r, http.MethodPost, path+"/watch"))

			assert.Equal(t, http.StatusOK, send(r, http.MethodDelete, path+suffix))
			watching, err := svc.IsWatching(context.Background(), alice.ID, bob.ID)
			require.NoError(t, err)
			assert.False(t, watching)

			assert.Equal(t, http.StatusBadRequest, send(r, http.MethodDelete, path+suffix))
		})
	}
}

func TestWatchRoutesRejectBadIDs(t *testing.T) {
	r, _, _, _ := setup(t)

	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodDelete, "/api/users/nope/unwatch"))
	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodGet, "/api/users/nope/is-watching"))
	assert.Equal(t, http.StatusNotFound, send(r, http.MethodPost, "/api/users/"+uuid.NewString()+"/watch"))
}
