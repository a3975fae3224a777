package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/specs-nexus-api/internal/dto"
	"github.com/noah-isme/specs-nexus-api/internal/middleware"
	"github.com/noah-isme/specs-nexus-api/internal/models"
	"github.com/noah-isme/specs-nexus-api/internal/service"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
)

type testEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func newContext(method, target string, body io.Reader, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, body)
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

var memberClaims = &models.JWTClaims{UserID: 7, Role: models.RoleUser}
var officerClaims = &models.JWTClaims{UserID: 1, Role: models.RoleOfficer}

type fakeEventSrv struct {
	joinedEvent int64
	joinedUser  int64
	form        dto.EventForm
	imageName   string
	imageBytes  []byte
	err         error
}

func (f *fakeEventSrv) ListForUser(context.Context, int64) ([]models.EventView, error) {
	return []models.EventView{{Event: models.Event{ID: 1, Title: "Hackathon"}, IsParticipant: true, RegistrationStatus: models.RegistrationOpen}}, nil
}

func (f *fakeEventSrv) List(context.Context, models.EventFilter) ([]models.Event, error) {
	return nil, nil
}

func (f *fakeEventSrv) Create(_ context.Context, form dto.EventForm, image *service.ImageUpload) (*models.Event, error) {
	f.form = form
	if image != nil {
		f.imageName = image.Filename
		f.imageBytes, _ = io.ReadAll(image.Reader)
	}
	return &models.Event{ID: 3, Title: *form.Title}, f.err
}

func (f *fakeEventSrv) Update(context.Context, int64, dto.EventForm, *service.ImageUpload) (*models.Event, error) {
	return nil, f.err
}

func (f *fakeEventSrv) Archive(context.Context, int64) error { return f.err }

func (f *fakeEventSrv) Join(_ context.Context, eventID, userID int64) (*dto.ParticipationResponse, error) {
	f.joinedEvent, f.joinedUser = eventID, userID
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ParticipationResponse{Message: "Joined event", EventID: eventID, IsParticipant: true, ParticipantCount: 1}, nil
}

func (f *fakeEventSrv) Leave(context.Context, int64, int64) (*dto.ParticipationResponse, error) {
	return nil, f.err
}

func (f *fakeEventSrv) Participants(context.Context, int64) ([]models.EventParticipant, error) {
	return nil, nil
}

func TestEventHandlerJoinUsesCallerAndPath(t *testing.T) {
	srv := &fakeEventSrv{}
	h := NewEventHandler(srv)
	c, rec := newContext(http.MethodPost, "/events/join/5", nil, memberClaims)
	c.Params = gin.Params{{Key: "id", Value: "5"}}

	h.Join(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), srv.joinedEvent)
	assert.Equal(t, int64(7), srv.joinedUser)
	var res dto.ParticipationResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &res))
	assert.True(t, res.IsParticipant)
}

func TestEventHandlerJoinErrors(t *testing.T) {
	srv := &fakeEventSrv{err: appErrors.Clone(appErrors.ErrRegistrationClosed, "Registration has ended")}
	h := NewEventHandler(srv)

	c, rec := newContext(http.MethodPost, "/events/join/abc", nil, memberClaims)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.Join(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newContext(http.MethodPost, "/events/join/5", nil, memberClaims)
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	h.Join(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Registration has ended", decodeEnvelope(t, rec).Error.Message)

	c, rec = newContext(http.MethodPost, "/events/join/5", nil, nil)
	h.Join(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEventHandlerCreateParsesMultipart(t *testing.T) {
	srv := &fakeEventSrv{}
	h := NewEventHandler(srv)
	body, contentType := multipartBody(t, map[string]string{"title": "Hackathon", "location": "Lab 3"}, "image", "poster.png", []byte("png-bytes"))
	c, rec := newContext(http.MethodPost, "/events/officer/create", body, officerClaims)
	c.Request.Header.Set("Content-Type", contentType)

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, srv.form.Title)
	assert.Equal(t, "Hackathon", *srv.form.Title)
	require.NotNil(t, srv.form.Location)
	assert.Equal(t, "Lab 3", *srv.form.Location)
	assert.Nil(t, srv.form.Date)
	assert.Equal(t, "poster.png", srv.imageName)
	assert.Equal(t, []byte("png-bytes"), srv.imageBytes)
}

func TestEventHandlerCreateWithoutImage(t *testing.T) {
	srv := &fakeEventSrv{}
	h := NewEventHandler(srv)
	body, contentType := multipartBody(t, map[string]string{"title": "Assembly"}, "", "", nil)
	c, rec := newContext(http.MethodPost, "/events/officer/create", body, officerClaims)
	c.Request.Header.Set("Content-Type", contentType)

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, srv.imageName)
}

type fakeMembershipSrv struct {
	membershipService
	receiptClaims *models.JWTClaims
	receiptID     int64
	filter        models.ClearanceFilter
	format        string
	uploadName    string
	uploadMethod  models.PaymentMethod
	verify        dto.VerifyClearanceRequest
	err           error
}

func (f *fakeMembershipSrv) QRCode(_ context.Context, method models.PaymentMethod) (*dto.QRCodeResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.QRCodeResponse{PaymentType: method, QRCodeURL: "https://cdn.example.com/qrcodes/gcash.png"}, nil
}

func (f *fakeMembershipSrv) UploadQRCode(_ context.Context, method models.PaymentMethod, image service.ImageUpload) (*dto.QRCodeResponse, error) {
	f.uploadMethod = method
	f.uploadName = image.Filename
	return &dto.QRCodeResponse{PaymentType: method, QRCodeURL: "u"}, f.err
}

func (f *fakeMembershipSrv) Receipt(_ context.Context, claims *models.JWTClaims, id int64) (*dto.ReceiptResponse, error) {
	f.receiptClaims, f.receiptID = claims, id
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ReceiptResponse{MembershipID: id, ReceiptURL: "https://cdn.example.com/receipts/r.png", PaymentStatus: models.PaymentVerifying}, nil
}

func (f *fakeMembershipSrv) List(_ context.Context, filter models.ClearanceFilter) ([]models.ClearanceWithUser, *models.Pagination, error) {
	f.filter = filter
	return []models.ClearanceWithUser{}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 0}, nil
}

func (f *fakeMembershipSrv) Verify(_ context.Context, id int64, req dto.VerifyClearanceRequest) (*models.Clearance, error) {
	f.verify = req
	return &models.Clearance{ID: id}, f.err
}

func (f *fakeMembershipSrv) Export(_ context.Context, format string, filter models.ClearanceFilter) (*service.ExportFile, error) {
	f.format, f.filter = format, filter
	return &service.ExportFile{Filename: "membership_clearances_20250310_120000.csv", ContentType: "text/csv", Data: []byte("ID\n1\n")}, nil
}

func TestMembershipHandlerQRCode(t *testing.T) {
	srv := &fakeMembershipSrv{}
	h := NewMembershipHandler(srv)
	c, rec := newContext(http.MethodGet, "/membership/qrcode?payment_type=gcash", nil, memberClaims)

	h.QRCode(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"qr_code_url":"https://cdn.example.com/qrcodes/gcash.png"`)

	srv.err = appErrors.Clone(appErrors.ErrNotFound, "No QR code uploaded for gcash")
	c, rec = newContext(http.MethodGet, "/membership/qrcode?payment_type=gcash", nil, memberClaims)
	h.QRCode(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMembershipHandlerUploadQRCodeRequiresFile(t *testing.T) {
	srv := &fakeMembershipSrv{}
	h := NewMembershipHandler(srv)

	body, contentType := multipartBody(t, nil, "", "", nil)
	c, rec := newContext(http.MethodPost, "/membership/officer/upload_qrcode?payment_type=paymaya", body, officerClaims)
	c.Request.Header.Set("Content-Type", contentType)
	h.UploadQRCode(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, contentType = multipartBody(t, nil, "file", "qr.png", []byte("img"))
	c, rec = newContext(http.MethodPost, "/membership/officer/upload_qrcode?payment_type=paymaya", body, officerClaims)
	c.Request.Header.Set("Content-Type", contentType)
	h.UploadQRCode(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PaymentMethodPayMaya, srv.uploadMethod)
	assert.Equal(t, "qr.png", srv.uploadName)
}

func TestMembershipHandlerReceiptPassesClaims(t *testing.T) {
	srv := &fakeMembershipSrv{}
	h := NewMembershipHandler(srv)
	c, rec := newContext(http.MethodGet, "/membership/receipt/12", nil, officerClaims)
	c.Params = gin.Params{{Key: "membership_id", Value: "12"}}

	h.Receipt(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, officerClaims, srv.receiptClaims)
	assert.Equal(t, int64(12), srv.receiptID)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"receipt_url"`)
}

func TestMembershipHandlerOfficerListFilter(t *testing.T) {
	srv := &fakeMembershipSrv{}
	h := NewMembershipHandler(srv)
	c, rec := newContext(http.MethodGet, "/membership/officer/list?requirement=1st+Semester+Membership&payment_status=Paid&include_archived=true&page=2", nil, officerClaims)

	h.OfficerList(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ClearanceFilter{Requirement: "1st Semester Membership", PaymentStatus: models.PaymentPaid, IncludeArchived: true, Page: 2}, srv.filter)
	assert.NotNil(t, decodeEnvelope(t, rec).Pagination)

	c, rec = newContext(http.MethodGet, "/membership/officer/list?include_archived=maybe", nil, officerClaims)
	h.OfficerList(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMembershipHandlerVerifyBindsBody(t *testing.T) {
	srv := &fakeMembershipSrv{}
	h := NewMembershipHandler(srv)
	reason := "blurry receipt"
	c, rec := newContext(http.MethodPut, "/membership/officer/verify/4", jsonBody(t, dto.VerifyClearanceRequest{Action: models.VerifyDeny, DenialReason: &reason}), officerClaims)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "membership_id", Value: "4"}}

	h.Verify(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.VerifyDeny, srv.verify.Action)
	require.NotNil(t, srv.verify.DenialReason)
	assert.Equal(t, reason, *srv.verify.DenialReason)
}

func TestMembershipHandlerExportStreamsFile(t *testing.T) {
	srv := &fakeMembershipSrv{}
	h := NewMembershipHandler(srv)
	c, rec := newContext(http.MethodGet, "/membership/officer/export?format=csv&payment_status=Verifying", nil, officerClaims)

	h.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", srv.format)
	assert.Equal(t, models.PaymentVerifying, srv.filter.PaymentStatus)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "membership_clearances_20250310_120000.csv")
	assert.Equal(t, "ID\n1\n", rec.Body.String())
}

type fakeAnalyticsSrv struct {
	req    dto.DashboardRequest
	hit    bool
	err    error
	format string
}

func (f *fakeAnalyticsSrv) Dashboard(_ context.Context, req dto.DashboardRequest) (*dto.DashboardResponse, bool, error) {
	f.req = req
	if f.err != nil {
		return nil, false, f.err
	}
	return &dto.DashboardResponse{MembershipInsights: dto.MembershipInsights{TotalStudents: 10}}, f.hit, nil
}

func (f *fakeAnalyticsSrv) Export(_ context.Context, format string, req dto.DashboardRequest) (*service.ExportFile, error) {
	f.format, f.req = format, req
	return &service.ExportFile{Filename: "dashboard.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}, nil
}

func TestAnalyticsHandlerDashboardQueryAndMeta(t *testing.T) {
	srv := &fakeAnalyticsSrv{hit: true}
	h := NewAnalyticsHandler(srv)
	c, rec := newContext(http.MethodGet, "/analytics/dashboard?start_date=2025-01-01&include_archived=true", nil, officerClaims)

	h.Dashboard(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.req.StartDate)
	assert.Equal(t, "2025-01-01", *srv.req.StartDate)
	assert.Nil(t, srv.req.EndDate)
	require.NotNil(t, srv.req.IncludeArchived)
	assert.True(t, *srv.req.IncludeArchived)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, string(env.Data), `"totalStudents":10`)
}

func TestAnalyticsHandlerDashboardJSONBodyOverridesQuery(t *testing.T) {
	srv := &fakeAnalyticsSrv{}
	h := NewAnalyticsHandler(srv)
	c, rec := newContext(http.MethodGet, "/analytics/dashboard?start_date=2024-01-01", jsonBody(t, map[string]string{"start_date": "2025-02-01", "end_date": "2025-02-28"}), officerClaims)
	c.Request.Header.Set("Content-Type", "application/json")

	h.Dashboard(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-02-01", *srv.req.StartDate)
	assert.Equal(t, "2025-02-28", *srv.req.EndDate)
}

func TestAnalyticsHandlerDashboardChunkedJSONBody(t *testing.T) {
	srv := &fakeAnalyticsSrv{}
	h := NewAnalyticsHandler(srv)
	body := io.MultiReader(jsonBody(t, map[string]interface{}{"end_date": "2025-02-28", "include_archived": true}))
	c, rec := newContext(http.MethodGet, "/analytics/dashboard?start_date=2024-01-01", body, officerClaims)
	c.Request.Header.Set("Content-Type", "application/json")
	require.EqualValues(t, -1, c.Request.ContentLength)

	h.Dashboard(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-01-01", *srv.req.StartDate)
	require.NotNil(t, srv.req.EndDate)
	assert.Equal(t, "2025-02-28", *srv.req.EndDate)
	require.NotNil(t, srv.req.IncludeArchived)
	assert.True(t, *srv.req.IncludeArchived)
}

func TestAnalyticsHandlerDashboardEmptyJSONBody(t *testing.T) {
	srv := &fakeAnalyticsSrv{}
	h := NewAnalyticsHandler(srv)
	c, rec := newContext(http.MethodGet, "/analytics/dashboard?start_date=2024-01-01", io.MultiReader(), officerClaims)
	c.Request.Header.Set("Content-Type", "application/json")

	h.Dashboard(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-01-01", *srv.req.StartDate)
	assert.Nil(t, srv.req.EndDate)
}

func TestAnalyticsHandlerDashboardError(t *testing.T) {
	srv := &fakeAnalyticsSrv{err: appErrors.Clone(appErrors.ErrValidation, "start_date must not be after end_date")}
	h := NewAnalyticsHandler(srv)
	c, rec := newContext(http.MethodGet, "/analytics/dashboard", nil, officerClaims)

	h.Dashboard(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsHandlerExport(t *testing.T) {
	srv := &fakeAnalyticsSrv{}
	h := NewAnalyticsHandler(srv)
	c, rec := newContext(http.MethodGet, "/analytics/dashboard/export?format=pdf", nil, officerClaims)

	h.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pdf", srv.format)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
}

type fakeChatSrv struct {
	caller int64
	req    dto.ChatRequest
	err    error
}

func (f *fakeChatSrv) Reply(_ context.Context, callerID int64, req dto.ChatRequest) (*dto.ChatResponse, error) {
	f.caller, f.req = callerID, req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ChatResponse{Response: "Hello!"}, nil
}

func TestChatHandler(t *testing.T) {
	srv := &fakeChatSrv{}
	h := NewChatHandler(srv)
	c, rec := newContext(http.MethodPost, "/chat", jsonBody(t, map[string]interface{}{"message": "hi", "userId": 7}), memberClaims)
	c.Request.Header.Set("Content-Type", "application/json")

	h.Chat(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), srv.caller)
	assert.Equal(t, dto.ChatRequest{Message: "hi", UserID: 7}, srv.req)

	srv.err = appErrors.Clone(appErrors.ErrUpstream, "failed to get chat response")
	c, rec = newContext(http.MethodPost, "/chat", jsonBody(t, map[string]interface{}{"message": "hi", "userId": 7}), memberClaims)
	c.Request.Header.Set("Content-Type", "application/json")
	h.Chat(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to get chat response", decodeEnvelope(t, rec).Error.Message)
}

func TestChatHandlerDisabled(t *testing.T) {
	h := NewChatHandler(nil)
	c, rec := newContext(http.MethodPost, "/chat", nil, memberClaims)
	h.Chat(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type fakeAuthSrv struct {
	login models.LoginRequest
}

func (f *fakeAuthSrv) Register(_ context.Context, req models.RegisterRequest) (*models.User, error) {
	return nil, appErrors.Clone(appErrors.ErrConflict, "email or student number already registered")
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.login = req
	return &models.LoginResponse{AccessToken: "t", TokenType: "bearer", ExpiresIn: 1800}, nil
}

func (f *fakeAuthSrv) Profile(_ context.Context, userID int64) (*models.UserProfile, error) {
	return &models.UserProfile{User: models.User{ID: userID}, ParticipatedEvents: []models.EventSummary{}}, nil
}

func (f *fakeAuthSrv) UpdateProfile(context.Context, int64, models.UpdateProfileRequest) (*models.User, error) {
	return nil, nil
}

func TestAuthHandlerLoginAddsClientMeta(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := NewAuthHandler(srv)
	c, rec := newContext(http.MethodPost, "/auth/login", jsonBody(t, map[string]string{"email_or_student_number": "2021-0001", "password": "secret123"}), nil)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("User-Agent", "test-agent")

	h.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2021-0001", srv.login.EmailOrStudentNumber)
	assert.Equal(t, "test-agent", srv.login.UserAgent)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"token_type":"bearer"`)
}

func TestAuthHandlerRegisterConflict(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{})
	c, rec := newContext(http.MethodPost, "/auth/register", jsonBody(t, map[string]string{"email": "a@b.c"}), nil)
	c.Request.Header.Set("Content-Type", "application/json")

	h.Register(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthHandlerProfileUsesClaims(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{})
	c, rec := newContext(http.MethodGet, "/auth/profile", nil, memberClaims)

	h.Profile(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"id":7`)
}

type stubPinger struct{ err error }

func (s stubPinger) PingContext(context.Context) error { return s.err }

func TestReadyReflectsDatabase(t *testing.T) {
	h := NewMetricsHandler(nil, stubPinger{})
	c, rec := newContext(http.MethodGet, "/ready", nil, nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	h = NewMetricsHandler(nil, stubPinger{err: context.DeadlineExceeded})
	c, rec = newContext(http.MethodGet, "/ready", nil, nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
