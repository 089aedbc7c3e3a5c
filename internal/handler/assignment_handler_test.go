package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/pkg/ai"
)

func createAssignmentViaAPI(t *testing.T, env testEnv, title string) uint {
	t.Helper()

	payload := map[string]any{
		"title":        title,
		"instructions": "Compare approaches and justify your choice.",
		"due_date":     time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"teacher_id":   1,
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/assignments", bytes.NewReader(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	response := decodeResponse(t, resp)
	data, err := json.Marshal(response.Data)
	require.NoError(t, err)
	var created map[string]any
	require.NoError(t, json.Unmarshal(data, &created))
	return uint(created["id"].(float64))
}

func TestAssignmentCreateEndpoint(t *testing.T) {
	env := setupApp(t, &fakeEvaluator{})

	id := createAssignmentViaAPI(t, env, "Concurrency Patterns")
	require.NotZero(t, id)

	var stored models.Assignment
	require.NoError(t, env.db.First(&stored, id).Error)
	require.Equal(t, models.AssignmentStatusDraft, stored.Status)
	require.Equal(t, 100, stored.MaxPoints)
}

func TestAssignmentCreateValidation(t *testing.T) {
	env := setupApp(t, &fakeEvaluator{})

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/assignments", bytes.NewReader([]byte(`{"title":"x"}`)))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAssignmentPublishViaPatch(t *testing.T) {
	env := setupApp(t, &fakeEvaluator{})
	id := createAssignmentViaAPI(t, env, "To Publish")

	req := httptest.NewRequest(fiber.MethodPatch, fmt.Sprintf("/api/v1/assignments/%d", id), bytes.NewReader([]byte(`{"status":"published"}`)))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored models.Assignment
	require.NoError(t, env.db.First(&stored, id).Error)
	require.Equal(t, models.AssignmentStatusPublished, stored.Status)
}

func TestAssignmentListMetaTotal(t *testing.T) {
	env := setupApp(t, &fakeEvaluator{})
	createAssignmentViaAPI(t, env, "First Assignment")
	createAssignmentViaAPI(t, env, "Second Assignment")

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/assignments", nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	payload := decodeResponse(t, resp)
	meta, err := json.Marshal(payload.Meta)
	require.NoError(t, err)
	var metaMap map[string]any
	require.NoError(t, json.Unmarshal(meta, &metaMap))
	require.Equal(t, 2.0, metaMap["total"])
}

func TestAssignmentGetNotFoundEndpoint(t *testing.T) {
	env := setupApp(t, &fakeEvaluator{})

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/assignments/404", nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAssignmentDeleteCascadeEndpoint(t *testing.T) {
	grade := 85
	env := setupApp(t, &fakeEvaluator{result: ai.EvaluationResult{Grade: &grade}})
	id := createAssignmentViaAPI(t, env, "Doomed Assignment")

	req := httptest.NewRequest(fiber.MethodPatch, fmt.Sprintf("/api/v1/assignments/%d", id), bytes.NewReader([]byte(`{"status":"published"}`)))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = env.app.Test(multipartRequest(t, fiber.MethodPost, "/api/v1/submissions", map[string]string{
		"assignment_id": fmt.Sprint(id),
		"student_id":    "7",
	}, "essay.txt", []byte("to be cascaded")), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, env.storage.objects, 1)

	req = httptest.NewRequest(fiber.MethodDelete, fmt.Sprintf("/api/v1/assignments/%d", id), nil)
	resp, err = env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Empty(t, env.storage.objects)

	var submissions int64
	require.NoError(t, env.db.Model(&models.Submission{}).Count(&submissions).Error)
	require.Zero(t, submissions)

	var assignments int64
	require.NoError(t, env.db.Model(&models.Assignment{}).Count(&assignments).Error)
	require.Zero(t, assignments)
}
