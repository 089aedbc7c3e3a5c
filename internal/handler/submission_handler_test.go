package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/classmark/classmark-api/internal/config"
	"github.com/classmark/classmark-api/internal/handler"
	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/repository"
	"github.com/classmark/classmark-api/internal/router"
	"github.com/classmark/classmark-api/internal/service"
	"github.com/classmark/classmark-api/internal/utils"
	"github.com/classmark/classmark-api/pkg/ai"
)

type fakeStorage struct {
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) Upload(_ context.Context, path string, reader io.Reader) (string, string, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return "", "", err
	}
	s.objects[path] = content
	return "https://cdn.test/" + path, path, nil
}

func (s *fakeStorage) Delete(_ context.Context, ref string) error {
	delete(s.objects, ref)
	return nil
}

type fakeEvaluator struct {
	result ai.EvaluationResult
	err    error
}

func (e *fakeEvaluator) Evaluate(_ context.Context, _ ai.EvaluationInput) (ai.EvaluationResult, error) {
	if e.err != nil {
		return ai.EvaluationResult{}, e.err
	}
	return e.result, nil
}

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	storage *fakeStorage
}

func setupApp(t *testing.T, evaluator ai.Evaluator) testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Assignment{}, &models.Submission{}))

	storage := newFakeStorage()
	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	assignmentService := service.NewAssignmentService(assignmentRepo, submissionRepo, validate, storage, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, storage, evaluator, 10, logger)

	cfg := config.Config{AppName: "Classmark Test"}

	app := fiber.New()
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, validate, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, validate, logger),
	})

	return testEnv{app: app, db: db, storage: storage}
}

func seedPublishedAssignment(t *testing.T, db *gorm.DB) models.Assignment {
	t.Helper()
	assignment := models.Assignment{
		Title:        "Final Essay",
		Instructions: "Discuss error handling strategies.",
		MaxPoints:    100,
		DueDate:      time.Now().Add(48 * time.Hour),
		Status:       models.AssignmentStatusPublished,
		TeacherID:    1,
	}
	require.NoError(t, db.Create(&assignment).Error)
	return assignment
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeResponse(t *testing.T, resp *http.Response) utils.APIResponse {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload utils.APIResponse
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestSubmissionCreateEndpoint(t *testing.T) {
	grade := 87
	env := setupApp(t, &fakeEvaluator{result: ai.EvaluationResult{
		Grade:       &grade,
		Feedback:    "Solid argument overall.",
		Suggestions: []string{"Add a stronger conclusion"},
	}})
	assignment := seedPublishedAssignment(t, env.db)

	req := multipartRequest(t, fiber.MethodPost, "/api/v1/submissions", map[string]string{
		"assignment_id": "1",
		"student_id":    "7",
	}, "essay.txt", []byte("Errors are values."))

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	payload := decodeResponse(t, resp)
	require.True(t, payload.Success)

	data, err := json.Marshal(payload.Data)
	require.NoError(t, err)
	var submission map[string]any
	require.NoError(t, json.Unmarshal(data, &submission))
	require.Equal(t, "graded", submission["status"])
	require.Equal(t, 87.0, submission["grade"])
	require.Equal(t, float64(assignment.ID), submission["assignment_id"])
	require.Len(t, env.storage.objects, 1)
}

func TestSubmissionCreateEvaluatorOutage(t *testing.T) {
	env := setupApp(t, &fakeEvaluator{err: errors.New("upstream timeout")})
	seedPublishedAssignment(t, env.db)

	req := multipartRequest(t, fiber.MethodPost, "/api/v1/submissions", map[string]string{
		"assignment_id": "1",
		"student_id":    "7",
	}, "essay.txt", []byte("Errors are values."))

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	payload := decodeResponse(t, resp)
	require.True(t, payload.Success)
	require.Contains(t, payload.Message, "grading pending")
}

func TestSubmissionCreateDuplicateConflict(t *testing.T) {
	grade := 90
	env := setupApp(t, &fakeEvaluator{result: ai.EvaluationResult{Grade: &grade}})
	seedPublishedAssignment(t, env.db)

	fields := map[string]string{"assignment_id": "1", "student_id": "7"}

	resp, err := env.app.Test(multipartRequest(t, fiber.MethodPost, "/api/v1/submissions", fields, "one.txt", []byte("first")), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = env.app.Test(multipartRequest(t, fiber.MethodPost, "/api/v1/submissions", fields, "two.txt", []byte("second")), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	payload := decodeResponse(t, resp)
	require.False(t, payload.Success)
	require.Contains(t, payload.Message, "resubmit")
}

func TestSubmissionCreateMissingFile(t *testing.T) {
	env := setupApp(t, &fakeEvaluator{})
	seedPublishedAssignment(t, env.db)

	req := multipartRequest(t, fiber.MethodPost, "/api/v1/submissions", map[string]string{
		"assignment_id": "1",
		"student_id":    "7",
	}, "", nil)

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmissionCreateUnknownAssignment(t *testing.T) {
	env := setupApp(t, &fakeEvaluator{})

	req := multipartRequest(t, fiber.MethodPost, "/api/v1/submissions", map[string]string{
		"assignment_id": "42",
		"student_id":    "7",
	}, "essay.txt", []byte("text"))

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSubmissionCreateDisallowedType(t *testing.T) {
	env := setupApp(t, &fakeEvaluator{})
	seedPublishedAssignment(t, env.db)

	req := multipartRequest(t, fiber.MethodPost, "/api/v1/submissions", map[string]string{
		"assignment_id": "1",
		"student_id":    "7",
	}, "a.out", []byte{0x7F, 'E', 'L', 'F', 0x02, 0x01, 0x01, 0x00})

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestSubmissionResubmitConfirmFlow(t *testing.T) {
	grade := 88
	env := setupApp(t, &fakeEvaluator{result: ai.EvaluationResult{Grade: &grade}})
	seedPublishedAssignment(t, env.db)

	resp, err := env.app.Test(multipartRequest(t, fiber.MethodPost, "/api/v1/submissions", map[string]string{
		"assignment_id": "1",
		"student_id":    "7",
	}, "v1.txt", []byte("first attempt")), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = env.app.Test(multipartRequest(t, fiber.MethodPut, "/api/v1/submissions/1", map[string]string{
		"student_id": "7",
	}, "v2.txt", []byte("second attempt")), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	payload := decodeResponse(t, resp)
	require.Contains(t, payload.Message, "confirm=true")

	resp, err = env.app.Test(multipartRequest(t, fiber.MethodPut, "/api/v1/submissions/1", map[string]string{
		"student_id": "7",
		"confirm":    "true",
	}, "v2.txt", []byte("second attempt")), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, env.storage.objects, 1)
}

func TestSubmissionRemoveEndpoint(t *testing.T) {
	env := setupApp(t, &fakeEvaluator{err: errors.New("down")})
	seedPublishedAssignment(t, env.db)

	resp, err := env.app.Test(multipartRequest(t, fiber.MethodPost, "/api/v1/submissions", map[string]string{
		"assignment_id": "1",
		"student_id":    "7",
	}, "essay.txt", []byte("pending work")), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(fiber.MethodDelete, "/api/v1/submissions/1?student_id=7", nil)
	resp, err = env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Empty(t, env.storage.objects)

	var count int64
	require.NoError(t, env.db.Model(&models.Submission{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSubmissionRemoveGradedConflict(t *testing.T) {
	grade := 91
	env := setupApp(t, &fakeEvaluator{result: ai.EvaluationResult{Grade: &grade}})
	seedPublishedAssignment(t, env.db)

	resp, err := env.app.Test(multipartRequest(t, fiber.MethodPost, "/api/v1/submissions", map[string]string{
		"assignment_id": "1",
		"student_id":    "7",
	}, "essay.txt", []byte("graded work")), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(fiber.MethodDelete, "/api/v1/submissions/1?student_id=7", nil)
	resp, err = env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestSubmissionListFilters(t *testing.T) {
	env := setupApp(t, &fakeEvaluator{err: errors.New("down")})
	seedPublishedAssignment(t, env.db)

	for _, student := range []string{"7", "8"} {
		resp, err := env.app.Test(multipartRequest(t, fiber.MethodPost, "/api/v1/submissions", map[string]string{
			"assignment_id": "1",
			"student_id":    student,
		}, "essay.txt", []byte("work")), -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/submissions?student_id=7", nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	payload := decodeResponse(t, resp)
	data, err := json.Marshal(payload.Data)
	require.NoError(t, err)
	var submissions []map[string]any
	require.NoError(t, json.Unmarshal(data, &submissions))
	require.Len(t, submissions, 1)
	require.Equal(t, 7.0, submissions[0]["student_id"])
}
