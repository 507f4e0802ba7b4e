package api

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"UD_referral_bot/internal/middleware"
	"UD_referral_bot/internal/model"
	"UD_referral_bot/internal/service"
	"UD_referral_bot/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	users  *MockUserService
	refs   *MockReferralService
	plans  *MockContentPlanService
	media  *MockMediaStore
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)

	s := &testServer{
		router: gin.New(),
		users:  &MockUserService{},
		refs:   &MockReferralService{},
		plans:  &MockContentPlanService{},
		media:  &MockMediaStore{},
	}

	a := auth.NewTelegramAuth("token", true)
	authz := middleware.NewAuthorization(s.users)
	g := s.router.Group("/api/v1")
	NewUserRoutes(g, s.users, s.refs, a, authz)
	NewContentPlanRoutes(g, s.plans, s.media, a, authz)
	return s
}

func (s *testServer) registered(id string) {
	s.users.On("UserExists", mock.Anything, id).Return(true, nil)
}

func (s *testServer) do(req *http.Request, asUser string) *httptest.ResponseRecorder {
	v := url.Values{}
	v.Set("auth_date", "1710000000")
	v.Set("user", `{"id":`+asUser+`,"username":"anna","first_name":"Anna","last_name":"K"}`)
	req.Header.Set("Authorization", "Telegram "+v.Encode())

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func strPtr(s string) *string {
	return &s
}

func TestRegisterUser(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		mockSetup  func(s *testServer)
		statusCode int
	}{
		{
			name: "With referrer",
			body: `{"referrer":"50","user_url":"https://t.me/anna"}`,
			mockSetup: func(s *testServer) {
				s.users.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.TelegramID == "100" &&
						u.Name == "Anna K" &&
						u.UserURL == "https://t.me/anna" &&
						u.IsReferral &&
						u.RegistrationDate.Equal(time.Unix(1710000000, 0))
				}), strPtr("50")).Return(nil)
			},
			statusCode: http.StatusCreated,
		},
		{
			name: "Empty referrer means none",
			body: `{"referrer":""}`,
			mockSetup: func(s *testServer) {
				s.users.On("RegisterUser", mock.Anything, mock.Anything, (*string)(nil)).Return(nil)
			},
			statusCode: http.StatusCreated,
		},
		{
			name: "Self referral",
			body: `{"referrer":"100"}`,
			mockSetup: func(s *testServer) {
				s.users.On("RegisterUser", mock.Anything, mock.Anything, strPtr("100")).Return(service.ErrInvalidUser)
			},
			statusCode: http.StatusBadRequest,
		},
		{
			name:       "Broken body",
			body:       `{"referrer":`,
			mockSetup:  func(s *testServer) {},
			statusCode: http.StatusBadRequest,
		},
		{
			name: "Store error",
			body: `{}`,
			mockSetup: func(s *testServer) {
				s.users.On("RegisterUser", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)
			},
			statusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			tt.mockSetup(s)

			w := s.do(jsonRequest(http.MethodPost, "/api/v1/users", tt.body), "100")
			assert.Equal(t, tt.statusCode, w.Code)
			s.users.AssertExpectations(t)
		})
	}
}

func TestOwnerOnly(t *testing.T) {
	t.Run("Another user's data", func(t *testing.T) {
		s := newTestServer()

		w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/200/referrals", nil), "100")
		assert.Equal(t, http.StatusForbidden, w.Code)
		s.refs.AssertNotCalled(t, "ResolveReferrals", mock.Anything, mock.Anything)
	})

	t.Run("Not registered", func(t *testing.T) {
		s := newTestServer()
		s.users.On("UserExists", mock.Anything, "100").Return(false, nil)

		w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/content-plan/100", nil), "100")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("No credentials", func(t *testing.T) {
		s := newTestServer()

		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/users/100", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetUserReferrals(t *testing.T) {
	s := newTestServer()
	s.registered("100")
	s.refs.On("ResolveReferrals", mock.Anything, "100").Return([]string{"B", "C"}, nil)
	s.refs.On("ReferralURLs", mock.Anything, "100").Return(nil, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/100/referrals", nil), "100")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.ElementsMatch(t, []interface{}{"B", "C"}, body["referrals"])
	assert.Equal(t, []interface{}{}, body["urls"])
}

func TestReferralInfo(t *testing.T) {
	t.Run("Get falls back for missing info", func(t *testing.T) {
		s := newTestServer()
		s.registered("100")
		s.refs.On("GetReferralInfo", mock.Anything, "100").Return(service.ReferralInfoView{
			RealName: service.UnknownReferrerName,
			URL:      service.UnknownReferrerURL,
			Status:   service.ReferralInfoMissing,
		})

		w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/100/referral-info", nil), "100")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "missing", body["status"])
		assert.Equal(t, service.UnknownReferrerName, body["real_name"])
	})

	t.Run("Update", func(t *testing.T) {
		s := newTestServer()
		s.registered("100")
		s.refs.On("UpdateWelcomeMessage", mock.Anything, "100", model.ReferralInfo{
			RealName:          "Anna",
			UserURLForMessage: "https://t.me/anna",
		}).Return(nil)

		w := s.do(jsonRequest(http.MethodPut, "/api/v1/users/100/referral-info",
			`{"real_name":"Anna","user_url_for_message":"https://t.me/anna"}`), "100")
		assert.Equal(t, http.StatusOK, w.Code)
		s.refs.AssertExpectations(t)
	})

	t.Run("Update requires both fields", func(t *testing.T) {
		s := newTestServer()
		s.registered("100")

		w := s.do(jsonRequest(http.MethodPut, "/api/v1/users/100/referral-info", `{"real_name":"Anna"}`), "100")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.refs.AssertNotCalled(t, "UpdateWelcomeMessage", mock.Anything, mock.Anything, mock.Anything)
	})
}

func scheduleRequest(t *testing.T, fields map[string]string, fileName string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("media", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte("image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/content-plan/100", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestScheduleEntry(t *testing.T) {
	publishDate := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		fields     map[string]string
		fileName   string
		mockSetup  func(s *testServer)
		statusCode int
		status     string
	}{
		{
			name:     "Created with media",
			fields:   map[string]string{"message": "hello", "publish_date": "10.03.2024"},
			fileName: "photo.jpg",
			mockSetup: func(s *testServer) {
				s.media.On("Save", "photo.jpg", mock.Anything).Return("media/x.jpg", nil)
				s.plans.On("Schedule", mock.Anything, "100", "hello", publishDate, strPtr("media/x.jpg")).
					Return(service.ScheduleCreated)
			},
			statusCode: http.StatusCreated,
			status:     "created",
		},
		{
			name:     "Duplicate removes uploaded media",
			fields:   map[string]string{"message": "hello", "publish_date": "10.03.2024"},
			fileName: "photo.jpg",
			mockSetup: func(s *testServer) {
				s.media.On("Save", "photo.jpg", mock.Anything).Return("media/x.jpg", nil)
				s.plans.On("Schedule", mock.Anything, "100", "hello", publishDate, strPtr("media/x.jpg")).
					Return(service.ScheduleDuplicateForDate)
				s.media.On("Delete", "media/x.jpg").Return(nil)
			},
			statusCode: http.StatusConflict,
			status:     "duplicate_for_date",
		},
		{
			name:   "Text only",
			fields: map[string]string{"message": "hello", "publish_date": "10.03.2024"},
			mockSetup: func(s *testServer) {
				s.plans.On("Schedule", mock.Anything, "100", "hello", publishDate, (*string)(nil)).
					Return(service.ScheduleCreated)
			},
			statusCode: http.StatusCreated,
			status:     "created",
		},
		{
			name:       "Wrong date format",
			fields:     map[string]string{"message": "hello", "publish_date": "2024-03-10"},
			mockSetup:  func(s *testServer) {},
			statusCode: http.StatusBadRequest,
		},
		{
			name:       "Missing message",
			fields:     map[string]string{"publish_date": "10.03.2024"},
			mockSetup:  func(s *testServer) {},
			statusCode: http.StatusBadRequest,
		},
		{
			name:     "Failed upload",
			fields:   map[string]string{"message": "hello", "publish_date": "10.03.2024"},
			fileName: "clip.mp4",
			mockSetup: func(s *testServer) {
				s.media.On("Save", "clip.mp4", mock.Anything).Return("", assert.AnError)
			},
			statusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			s.registered("100")
			tt.mockSetup(s)

			w := s.do(scheduleRequest(t, tt.fields, tt.fileName), "100")
			assert.Equal(t, tt.statusCode, w.Code)
			if tt.status != "" {
				assert.Equal(t, tt.status, decode(t, w)["status"])
			}
			s.plans.AssertExpectations(t)
			s.media.AssertExpectations(t)
		})
	}
}

func TestCancelEntry(t *testing.T) {
	publishDate := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		date       string
		mockSetup  func(s *testServer)
		statusCode int
	}{
		{
			name: "Deleted",
			date: "10.03.2024",
			mockSetup: func(s *testServer) {
				s.plans.On("Cancel", mock.Anything, "100", publishDate).Return(service.CancelDeleted)
			},
			statusCode: http.StatusOK,
		},
		{
			name: "Not found",
			date: "10.03.2024",
			mockSetup: func(s *testServer) {
				s.plans.On("Cancel", mock.Anything, "100", publishDate).Return(service.CancelNotFound)
			},
			statusCode: http.StatusNotFound,
		},
		{
			name:       "Unparseable date",
			date:       "2024-03-10",
			mockSetup:  func(s *testServer) {},
			statusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			s.registered("100")
			tt.mockSetup(s)

			w := s.do(httptest.NewRequest(http.MethodDelete, "/api/v1/content-plan/100/"+tt.date, nil), "100")
			assert.Equal(t, tt.statusCode, w.Code)
			s.plans.AssertExpectations(t)
		})
	}
}

func TestListContentPlan(t *testing.T) {
	s := newTestServer()
	s.registered("100")
	s.plans.On("ListForOwner", mock.Anything, "100").Return([]model.ContentPlanEntry{
		{OwnerID: "100", Message: "a", PublishDate: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)},
		{OwnerID: "100", Message: "b", MediaPath: strPtr("media/b.mp4"), PublishDate: time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)},
	}, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/content-plan/100", nil), "100")
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)

	var entries []contentPlanEntry
	require.NoError(t, json.Unmarshal(body, &entries))
	assert.Equal(t, []contentPlanEntry{
		{Message: "a", MediaKind: "none", PublishDate: "10.03.2024"},
		{Message: "b", MediaPath: "media/b.mp4", MediaKind: "video", PublishDate: "11.03.2024"},
	}, entries)
}
