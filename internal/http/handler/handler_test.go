package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"claimflow/internal/apperr"
	"claimflow/internal/model"
	"claimflow/internal/service"
	serviceMocks "claimflow/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func uploadRequest(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "ticket.pdf")
	require.NoError(t, err)
	part.Write([]byte("%PDF-1.4 boarding pass"))
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"invalid input", apperr.InvalidInput("unknown status filter"), http.StatusBadRequest, "INVALID_INPUT", "unknown status filter"},
		{"not found", apperr.NotFound("document not found"), http.StatusNotFound, "NOT_FOUND", "document not found"},
		{"conflict", apperr.Conflict("claim already approved"), http.StatusConflict, "CONFLICT", "claim already approved"},
		{"provider", apperr.Provider(errors.New("dial tcp: refused"), "upload to storage"), http.StatusBadGateway, "PROVIDER_ERROR", "upstream provider unavailable"},
		{"persistence", apperr.Persistence(errors.New("deadlock"), "save document"), http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return respondError(c, tc.err) })

			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tc.status, resp.StatusCode)
			body := decodeError(t, resp)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.Equal(t, tc.msg, body.Error.Message)
		})
	}
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents", ListDocuments(mockSvc))

	t.Run("success", func(t *testing.T) {
		expectedRes := &service.DocumentListResult{
			Items: []model.Document{{ID: uuid.New().String(), FileName: "ticket.pdf"}},
			Total: 1,
		}
		mockSvc.On("List", mock.Anything, "", 10, 0).Return(expectedRes, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents?limit=10&offset=0", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.DocumentListResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("status filter", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, "Error", 5, 10).
			Return(&service.DocumentListResult{Items: []model.Document{}}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents?status=Error&limit=5&offset=10", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents?limit=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, resp).Error.Code)
	})

	t.Run("invalid offset", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents?offset=-x", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_OFFSET", decodeError(t, resp).Error.Code)
	})

	t.Run("unknown status", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, "Lost", 10, 0).
			Return(nil, apperr.InvalidInput("unknown status filter: Lost")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents?status=Lost", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_INPUT", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, "", 10, 0).Return(nil, errors.New("service error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestUploadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Post("/documents", UploadDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		expectedDoc := &model.Document{ID: uuid.New().String(), FileName: "ticket.pdf", Status: model.StatusUploaded}
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.FileName == "ticket.pdf" &&
				in.PassengerName == "JOHN DOE" &&
				in.PassengerEmail == "john@example.com" &&
				in.FlightNumber == "LA3456" &&
				in.Reader != nil &&
				in.Size > 0
		})).Return(expectedDoc, nil).Once()

		req := uploadRequest(t, map[string]string{
			"passenger_name":  "JOHN DOE",
			"passenger_email": "john@example.com",
			"flight_number":   "LA3456",
		})
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expectedDoc.ID, result.ID)
		assert.Equal(t, model.StatusUploaded, result.Status)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/documents", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
	})

	t.Run("unsupported type", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything).Return(nil, service.ErrUnsupportedType).Once()

		resp, _ := app.Test(uploadRequest(t, nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_INPUT", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("storage unavailable", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything).
			Return(nil, apperr.Provider(errors.New("connection refused"), "upload to storage")).Once()

		resp, _ := app.Test(uploadRequest(t, nil))

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "PROVIDER_ERROR", body.Error.Code)
		assert.NotContains(t, body.Error.Message, "connection refused")
		mockSvc.AssertExpectations(t)
	})
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id", GetDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		expectedDoc := &model.Document{ID: id, FileName: "ticket.pdf"}
		mockSvc.On("Get", mock.Anything, id).Return(expectedDoc, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, apperr.NotFound("document not found")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents/invalid-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, errors.New("db error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetDocumentStatus(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id/status", GetDocumentStatus(mockSvc))

	id := uuid.New().String()
	mockSvc.On("Status", mock.Anything, id).Return(&model.DocumentStatusView{
		ID:     id,
		Status: model.StatusError,
		Reason: "ocr failed",
	}, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/status", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var view model.DocumentStatusView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, model.StatusError, view.Status)
	assert.Equal(t, "ocr failed", view.Reason)
	mockSvc.AssertExpectations(t)
}

func TestDownloadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id/download", DownloadDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("DownloadURL", mock.Anything, id).Return("https://minio.local/claims/documents/"+id+".pdf?sig=1", nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Contains(t, body["url"], id)
		assert.Equal(t, float64(900), body["expires_in"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("storage unavailable", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("DownloadURL", mock.Anything, id).Return("", apperr.Provider(errors.New("no creds"), "presign download")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil))

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Delete("/documents/:id", DeleteDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(apperr.NotFound("document not found")).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("storage error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(apperr.Provider(errors.New("timeout"), "delete storage")).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDecisionEndpoints(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Post("/documents/:id/approve", ApproveDocument(mockSvc))
	app.Post("/documents/:id/reject", RejectDocument(mockSvc))

	t.Run("approve with reason", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Decide", mock.Anything, id, service.DecisionApprove, "verified with airline").
			Return(&model.Document{ID: id, Status: model.StatusApproved, StatusReason: "verified with airline"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/"+id+"/approve", strings.NewReader(`{"reason":"verified with airline"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var doc model.Document
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
		assert.Equal(t, model.StatusApproved, doc.Status)
		mockSvc.AssertExpectations(t)
	})

	t.Run("reject without body", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Decide", mock.Anything, id, service.DecisionReject, "").
			Return(&model.Document{ID: id, Status: model.StatusRejected, StatusReason: "manually rejected"}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/documents/"+id+"/reject", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("reversal conflicts", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Decide", mock.Anything, id, service.DecisionReject, "").
			Return(nil, apperr.Conflict("claim is already Approved")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/documents/"+id+"/reject", nil))

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "CONFLICT", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		id := uuid.New().String()
		req := httptest.NewRequest(http.MethodPost, "/documents/"+id+"/approve", strings.NewReader(`{"reason":`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Error.Code)
	})
}

func TestListNotifications(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id/notifications", ListNotifications(mockSvc))

	id := uuid.New().String()
	mockSvc.On("Notifications", mock.Anything, id).Return([]model.Notification{
		{ID: "n-1", DocumentID: id, Type: model.NotificationApproval, Status: model.NotificationSent},
	}, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/notifications", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var items []model.Notification
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, model.NotificationApproval, items[0].Type)
	mockSvc.AssertExpectations(t)
}

func TestAnalyzeClaim(t *testing.T) {
	mockSvc := new(serviceMocks.MockClaimService)
	app := fiber.New()
	app.Post("/analysis", AnalyzeClaim(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Analyze", mock.Anything, mock.MatchedBy(func(in service.AnalyzeInput) bool {
			return in.DocumentID == "doc-1" && in.FlightData != nil && in.FlightData.FlightNumber == "LA3456"
		})).Return(&model.AnalysisResult{
			DocumentID:     "doc-1",
			IsEligible:     true,
			Recommendation: model.RecommendApprove,
			Confidence:     1,
		}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/analysis",
			strings.NewReader(`{"document_id":"doc-1","flight_data":{"flight_number":"LA3456"}}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var res model.AnalysisResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.True(t, res.IsEligible)
		assert.Equal(t, model.RecommendApprove, res.Recommendation)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing document id", func(t *testing.T) {
		mockSvc.On("Analyze", mock.Anything, service.AnalyzeInput{}).
			Return(nil, apperr.InvalidInput("document_id is required")).Once()

		req := httptest.NewRequest(http.MethodPost, "/analysis", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_INPUT", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/analysis", strings.NewReader(`not json`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Error.Code)
	})
}

func TestListAnalyses(t *testing.T) {
	mockSvc := new(serviceMocks.MockClaimService)
	app := fiber.New()
	app.Get("/documents/:id/analyses", ListAnalyses(mockSvc))

	id := uuid.New().String()
	mockSvc.On("AnalysisHistory", mock.Anything, id).Return([]model.AnalysisRecord{
		{ID: "a-2", DocumentID: id, Recommendation: model.RecommendReject},
		{ID: "a-1", DocumentID: id, Recommendation: model.RecommendApprove},
	}, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/analyses", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var items []model.AnalysisRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	assert.Len(t, items, 2)
	assert.Equal(t, "a-2", items[0].ID)
	mockSvc.AssertExpectations(t)
}

func TestRulesEndpoints(t *testing.T) {
	mockSvc := new(serviceMocks.MockClaimService)
	app := fiber.New()
	app.Get("/rules", ListRules(mockSvc))
	app.Post("/rules", CreateRule(mockSvc))

	t.Run("list active", func(t *testing.T) {
		mockSvc.On("ListRules", mock.Anything, false).Return([]model.BusinessRule{
			{ID: "r-1", Name: "delay_threshold", Priority: 1, IsActive: true},
		}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/rules", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("list all", func(t *testing.T) {
		mockSvc.On("ListRules", mock.Anything, true).Return([]model.BusinessRule{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/rules?all=true", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("create defaults to active", func(t *testing.T) {
		mockSvc.On("CreateRule", mock.Anything, mock.MatchedBy(func(r *model.BusinessRule) bool {
			return r.Name == "ticket_price_limit" && r.Priority == 4 && r.IsActive
		})).Return(&model.BusinessRule{ID: "r-4", Name: "ticket_price_limit", Priority: 4, IsActive: true}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/rules", strings.NewReader(
			`{"name":"ticket_price_limit","condition":"ticket_price <= 10000","action":"approve","priority":4}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var rule model.BusinessRule
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&rule))
		assert.Equal(t, "r-4", rule.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("create inactive", func(t *testing.T) {
		mockSvc.On("CreateRule", mock.Anything, mock.MatchedBy(func(r *model.BusinessRule) bool {
			return r.Name == "loyalty_bonus" && !r.IsActive
		})).Return(&model.BusinessRule{ID: "r-5", Name: "loyalty_bonus"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/rules", strings.NewReader(
			`{"name":"loyalty_bonus","condition":"tier == gold","action":"approve","is_active":false}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("create invalid", func(t *testing.T) {
		mockSvc.On("CreateRule", mock.Anything, mock.Anything).
			Return(nil, apperr.InvalidInput("rule name must not be empty")).Once()

		req := httptest.NewRequest(http.MethodPost, "/rules", strings.NewReader(`{"condition":"x","action":"y"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_INPUT", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	reg := prometheus.NewRegistry()
	probe := prometheus.NewCounter(prometheus.CounterOpts{Name: "routing_probe_total", Help: "test"})
	reg.MustRegister(probe)
	probe.Inc()

	RegisterRoutes(app, Services{
		Documents: new(serviceMocks.MockDocumentService),
		Claims:    new(serviceMocks.MockClaimService),
		Metrics:   reg,
	})

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})

	t.Run("health without database", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "routing_probe_total 1")
	})
}
