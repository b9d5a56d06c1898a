package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/fleetgrid/fleetgrid/internal/database/testutil"
	"github.com/fleetgrid/fleetgrid/internal/services"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newGroupTestRouter(t *testing.T) (*gin.Engine, *services.GroupService, *services.TargetService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	groupSvc, err := services.NewGroupService(db, nil)
	require.NoError(t, err)
	targetSvc, err := services.NewTargetService(db, nil)
	require.NoError(t, err)

	h, err := NewTargetGroupHandler(groupSvc)
	require.NoError(t, err)

	r := gin.New()
	api := r.Group("/api/target-groups")
	api.GET("/tree", h.Tree)
	api.POST("", h.Create)
	api.GET("/:id", h.Get)
	api.PATCH("/:id", h.Update)
	api.DELETE("/:id", h.Delete)
	api.POST("/:id/move", h.Move)
	api.GET("/:id/children", h.Children)
	api.GET("/:id/members", h.Members)
	api.POST("/:id/members", h.AddMembers)
	api.DELETE("/:id/members/:targetId", h.RemoveMember)
	api.POST("/:id/members/:targetId/move", h.MoveMember)
	api.GET("/:id/available-targets", h.AvailableTargets)
	api.GET("/:id/available-parents", h.AvailableParents)

	return r, groupSvc, targetSvc
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func createGroupHTTP(t *testing.T, r *gin.Engine, name string, parentID *string) map[string]any {
	t.Helper()

	payload := map[string]any{"name": name}
	if parentID != nil {
		payload["parent_id"] = *parentID
	}
	w, env := doJSON(t, r, http.MethodPost, "/api/target-groups", payload)
	require.Equal(t, http.StatusCreated, w.Code)

	var group map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &group))
	return group
}

func TestTargetGroupCreateAndGet(t *testing.T) {
	r, _, _ := newGroupTestRouter(t)

	prod := createGroupHTTP(t, r, "Production", nil)
	id := prod["id"].(string)
	child := createGroupHTTP(t, r, "Web", &id)
	require.Equal(t, id, child["parent_id"])

	w, env := doJSON(t, r, http.MethodGet, "/api/target-groups/"+child["id"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var detail struct {
		Group struct {
			Name  string   `json:"name"`
			Path  []string `json:"path"`
			Level int      `json:"level"`
		} `json:"group"`
		DirectCount    int `json:"direct_count"`
		AggregateCount int `json:"aggregate_count"`
		Ancestors      []struct {
			Name string `json:"name"`
		} `json:"ancestors"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	require.Equal(t, "Web", detail.Group.Name)
	require.Equal(t, 1, detail.Group.Level)
	require.Len(t, detail.Group.Path, 2)
	require.Len(t, detail.Ancestors, 1)
	require.Equal(t, "Production", detail.Ancestors[0].Name)
}

func TestTargetGroupCreateValidation(t *testing.T) {
	r, _, _ := newGroupTestRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/api/target-groups", map[string]any{"name": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.False(t, env.Success)

	w, _ = doJSON(t, r, http.MethodPost, "/api/target-groups", map[string]any{"name": "x", "parent_id": "not-a-uuid"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTargetGroupDuplicateNameConflict(t *testing.T) {
	r, _, _ := newGroupTestRouter(t)

	createGroupHTTP(t, r, "Production", nil)
	w, env := doJSON(t, r, http.MethodPost, "/api/target-groups", map[string]any{"name": "production"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "GROUP_NAME_TAKEN", env.Error.Code)
}

func TestTargetGroupUnknownIDReturns404(t *testing.T) {
	r, _, _ := newGroupTestRouter(t)

	w, env := doJSON(t, r, http.MethodGet, "/api/target-groups/00000000-0000-4000-8000-00000000dead", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "GROUP_NOT_FOUND", env.Error.Code)
}

func TestTargetGroupTreeExpansion(t *testing.T) {
	r, groupSvc, _ := newGroupTestRouter(t)
	prod := createGroupHTTP(t, r, "Production", nil)
	id := prod["id"].(string)
	createGroupHTTP(t, r, "Web", &id)

	_, err := groupSvc.AddMembers(t.Context(), id, []string{"t-1"})
	require.NoError(t, err)

	w, env := doJSON(t, r, http.MethodGet, "/api/target-groups/tree", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var nodes []struct {
		Name           string          `json:"name"`
		HasChildren    bool            `json:"has_children"`
		AggregateCount int             `json:"aggregate_count"`
		Children       json.RawMessage `json:"children"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &nodes))
	require.Len(t, nodes, 1)
	require.True(t, nodes[0].HasChildren)
	require.Equal(t, 1, nodes[0].AggregateCount)
	require.Empty(t, nodes[0].Children)

	_, env = doJSON(t, r, http.MethodGet, "/api/target-groups/tree?expanded="+id, nil)
	require.NoError(t, json.Unmarshal(env.Data, &nodes))
	require.NotEmpty(t, nodes[0].Children)
}

func TestTargetGroupMoveRejectsCycle(t *testing.T) {
	r, _, _ := newGroupTestRouter(t)

	prod := createGroupHTTP(t, r, "Production", nil)
	prodID := prod["id"].(string)
	child := createGroupHTTP(t, r, "Web", &prodID)
	childID := child["id"].(string)

	w, env := doJSON(t, r, http.MethodPost, "/api/target-groups/"+prodID+"/move", map[string]any{"parent_id": childID})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "GROUP_CYCLE", env.Error.Code)
}

func TestTargetGroupDeleteRequiresCascadeForNonLeaf(t *testing.T) {
	r, _, _ := newGroupTestRouter(t)

	prod := createGroupHTTP(t, r, "Production", nil)
	prodID := prod["id"].(string)
	createGroupHTTP(t, r, "Web", &prodID)

	w, env := doJSON(t, r, http.MethodDelete, "/api/target-groups/"+prodID, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "GROUP_NOT_EMPTY", env.Error.Code)

	w, _ = doJSON(t, r, http.MethodDelete, "/api/target-groups/"+prodID+"?cascade=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestTargetGroupMemberLifecycle(t *testing.T) {
	r, _, targetSvc := newGroupTestRouter(t)
	ctx := t.Context()

	target, err := targetSvc.Create(ctx, services.CreateTargetInput{Name: "web-01"})
	require.NoError(t, err)

	a := createGroupHTTP(t, r, "A", nil)
	b := createGroupHTTP(t, r, "B", nil)
	aID, bID := a["id"].(string), b["id"].(string)

	w, env := doJSON(t, r, http.MethodPost, "/api/target-groups/"+aID+"/members", map[string]any{"target_ids": []string{target.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, string(env.Data), target.ID)

	// Available targets for A no longer include the member.
	_, env = doJSON(t, r, http.MethodGet, "/api/target-groups/"+aID+"/available-targets", nil)
	require.NotContains(t, string(env.Data), target.ID)

	// Move the member from A to B.
	w, _ = doJSON(t, r, http.MethodPost, "/api/target-groups/"+aID+"/members/"+target.ID+"/move", map[string]any{"to_group_id": bID})
	require.Equal(t, http.StatusOK, w.Code)

	_, env = doJSON(t, r, http.MethodGet, "/api/target-groups/"+bID+"/members", nil)
	var members []struct {
		TargetID string `json:"target_id"`
		Known    bool   `json:"known"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &members))
	require.Len(t, members, 1)
	require.Equal(t, target.ID, members[0].TargetID)
	require.True(t, members[0].Known)

	w, _ = doJSON(t, r, http.MethodDelete, "/api/target-groups/"+bID+"/members/"+target.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, env = doJSON(t, r, http.MethodGet, "/api/target-groups/"+bID+"/members", nil)
	require.NoError(t, json.Unmarshal(env.Data, &members))
	require.Empty(t, members)
}

func TestTargetGroupAvailableParentsExcludesSubtree(t *testing.T) {
	r, _, _ := newGroupTestRouter(t)

	prod := createGroupHTTP(t, r, "Production", nil)
	prodID := prod["id"].(string)
	child := createGroupHTTP(t, r, "Web", &prodID)
	childID := child["id"].(string)
	other := createGroupHTTP(t, r, "Staging", nil)

	_, env := doJSON(t, r, http.MethodGet, "/api/target-groups/"+prodID+"/available-parents", nil)
	var parents []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &parents))
	require.Len(t, parents, 1)
	require.Equal(t, other["id"].(string), parents[0].ID)
	require.NotEqual(t, childID, parents[0].ID)
}
