package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/specs-nexus-api/internal/dto"
	"github.com/noah-isme/specs-nexus-api/internal/models"
	"github.com/noah-isme/specs-nexus-api/internal/repository"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
)

type mockClearanceRepo struct {
	rows    map[int64]*models.Clearance
	userIDs []int64
	nextID  int64
	saves   int
}

func newMockClearanceRepo(userIDs ...int64) *mockClearanceRepo {
	return &mockClearanceRepo{rows: map[int64]*models.Clearance{}, userIDs: userIDs}
}

func (m *mockClearanceRepo) active(userID int64, requirement string) bool {
	for _, c := range m.rows {
		if c.UserID == userID && c.Requirement == requirement && !c.Archived {
			return true
		}
	}
	return false
}

func (m *mockClearanceRepo) FindByID(ctx context.Context, id int64) (*models.Clearance, error) {
	c, ok := m.rows[id]
	if !ok || c.Archived {
		return nil, sql.ErrNoRows
	}
	found := *c
	return &found, nil
}

func (m *mockClearanceRepo) ListByUser(ctx context.Context, userID int64) ([]models.Clearance, error) {
	out := make([]models.Clearance, 0)
	for _, c := range m.rows {
		if c.UserID == userID && !c.Archived {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockClearanceRepo) List(ctx context.Context, filter models.ClearanceFilter) ([]models.ClearanceWithUser, int, error) {
	rows, err := m.ListAll(ctx, filter)
	return rows, len(rows), err
}

func (m *mockClearanceRepo) ListAll(ctx context.Context, filter models.ClearanceFilter) ([]models.ClearanceWithUser, error) {
	out := make([]models.ClearanceWithUser, 0)
	for _, c := range m.rows {
		if c.Archived && !filter.IncludeArchived {
			continue
		}
		out = append(out, models.ClearanceWithUser{Clearance: *c, UserFullName: "Ana Cruz"})
	}
	return out, nil
}

func (m *mockClearanceRepo) Create(ctx context.Context, clearance *models.Clearance) error {
	if m.active(clearance.UserID, clearance.Requirement) {
		return repository.ErrDuplicate
	}
	m.nextID++
	clearance.ID = m.nextID
	stored := *clearance
	m.rows[clearance.ID] = &stored
	return nil
}

func (m *mockClearanceRepo) SaveState(ctx context.Context, clearance *models.Clearance) error {
	m.saves++
	stored := *clearance
	m.rows[clearance.ID] = &stored
	return nil
}

func (m *mockClearanceRepo) CreateRequirementForAll(ctx context.Context, requirement string, amount float64, at time.Time) (int, error) {
	created := 0
	for _, userID := range m.userIDs {
		if m.active(userID, requirement) {
			continue
		}
		if err := m.Create(ctx, models.NewClearance(userID, requirement, amount, at)); err != nil {
			return 0, err
		}
		created++
	}
	return created, nil
}

func (m *mockClearanceRepo) ListRequirements(ctx context.Context) ([]models.RequirementSummary, error) {
	return nil, nil
}

func (m *mockClearanceRepo) UpdateRequirementAmount(ctx context.Context, requirement string, amount float64, at time.Time) (int64, error) {
	var affected int64
	for _, c := range m.rows {
		if c.Requirement == requirement && !c.Archived {
			c.Amount = amount
			affected++
		}
	}
	return affected, nil
}

func (m *mockClearanceRepo) ArchiveRequirement(ctx context.Context, requirement string, at time.Time) (int64, error) {
	var affected int64
	for _, c := range m.rows {
		if c.Requirement == requirement && !c.Archived {
			c.Archived = true
			affected++
		}
	}
	return affected, nil
}

type mockQRCodeRepo struct {
	record *models.QRCode
}

func (m *mockQRCodeRepo) Get(ctx context.Context) (*models.QRCode, error) {
	if m.record == nil {
		return nil, sql.ErrNoRows
	}
	return m.record, nil
}

func (m *mockQRCodeRepo) SetURL(ctx context.Context, method models.PaymentMethod, url string, at time.Time) (*models.QRCode, error) {
	if m.record == nil {
		m.record = &models.QRCode{ID: 1}
	}
	switch method {
	case models.PaymentMethodGCash:
		m.record.GCash = &url
	case models.PaymentMethodPayMaya:
		m.record.PayMaya = &url
	}
	m.record.UpdatedAt = at
	return m.record, nil
}

type failingUploader struct{}

func (failingUploader) UploadImage(ctx context.Context, folder, filename string, r io.Reader, fit bool) (string, error) {
	return "", appErrors.Clone(appErrors.ErrUpstream, "failed to upload file")
}

type membershipFixture struct {
	svc        *MembershipService
	clearances *mockClearanceRepo
	qrcodes    *mockQRCodeRepo
	uploader   *mockUploader
	cache      *mockInvalidator
}

func newMembershipFixture(t *testing.T, userIDs ...int64) membershipFixture {
	t.Helper()
	users := newMockUserRepo()
	for _, id := range userIDs {
		users.users[id] = &models.User{ID: id, FullName: "Member"}
	}
	f := membershipFixture{
		clearances: newMockClearanceRepo(userIDs...),
		qrcodes:    &mockQRCodeRepo{},
		uploader:   &mockUploader{},
		cache:      &mockInvalidator{},
	}
	manila := time.FixedZone("Asia/Manila", 8*60*60)
	f.svc = NewMembershipService(MembershipDeps{
		Clearances: f.clearances,
		QRCodes:    f.qrcodes,
		Users:      users,
		Uploader:   f.uploader,
		Cache:      f.cache,
		Exporter:   NewExportService(nil, nil, nil),
	}, nil, nil, manila)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func assertConsistent(t *testing.T, rows map[int64]*models.Clearance) {
	t.Helper()
	for id, c := range rows {
		assert.Truef(t, c.Consistent(), "clearance %d has %q/%q", id, c.PaymentStatus, c.Status)
	}
}

func TestClearanceLifecycleScenario(t *testing.T) {
	f := newMembershipFixture(t, 7)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, dto.CreateClearanceRequest{UserID: 7, Requirement: models.RequirementFirstSemester, Amount: 500})
	require.NoError(t, err)
	assert.Equal(t, models.ClearanceNotYetCleared, created.Status)
	assert.Equal(t, models.PaymentNotPaid, created.PaymentStatus)

	submitted, err := f.svc.UpdateReceipt(ctx, 7, dto.UpdateReceiptRequest{
		MembershipID: created.ID,
		PaymentType:  "GCash",
		ReceiptPath:  "https://cdn.example.com/receipts/abc_r.png",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ClearanceProcessing, submitted.Status)
	assert.Equal(t, models.PaymentVerifying, submitted.PaymentStatus)
	require.NotNil(t, submitted.PaymentMethod)
	assert.Equal(t, models.PaymentMethodGCash, *submitted.PaymentMethod)
	require.NotNil(t, submitted.PaymentDate)
	assert.Equal(t, "Asia/Manila", submitted.PaymentDate.Location().String())
	assertConsistent(t, f.clearances.rows)

	approved, err := f.svc.Verify(ctx, created.ID, dto.VerifyClearanceRequest{Action: models.VerifyApprove})
	require.NoError(t, err)
	assert.Equal(t, models.ClearanceClear, approved.Status)
	assert.Equal(t, models.PaymentPaid, approved.PaymentStatus)
	assert.NotNil(t, approved.ApprovalDate)
	assert.Nil(t, approved.DenialReason)

	reason := "Receipt amount does not match"
	denied, err := f.svc.Verify(ctx, created.ID, dto.VerifyClearanceRequest{Action: models.VerifyDeny, DenialReason: &reason})
	require.NoError(t, err)
	assert.Equal(t, models.ClearanceNotYetCleared, denied.Status)
	assert.Equal(t, models.PaymentNotPaid, denied.PaymentStatus)
	assert.Nil(t, denied.ReceiptPath)
	assert.Nil(t, denied.PaymentMethod)
	assert.Nil(t, denied.PaymentDate)
	require.NotNil(t, denied.DenialReason)
	assert.Equal(t, reason, *denied.DenialReason)
	assertConsistent(t, f.clearances.rows)
	assert.Len(t, f.cache.patterns, 4)
}

func TestVerifyRejectsBadInput(t *testing.T) {
	f := newMembershipFixture(t, 7)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, dto.CreateClearanceRequest{UserID: 7, Requirement: "Lab Fee"})
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, created.ID, dto.VerifyClearanceRequest{Action: "cancel"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	blank := "  "
	_, err = f.svc.Verify(ctx, created.ID, dto.VerifyClearanceRequest{Action: models.VerifyDeny, DenialReason: &blank})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Verify(ctx, 404, dto.VerifyClearanceRequest{Action: models.VerifyApprove})
	assert.Equal(t, 404, appErrors.FromError(err).Status)

	f.clearances.rows[created.ID].Archived = true
	_, err = f.svc.Verify(ctx, created.ID, dto.VerifyClearanceRequest{Action: models.VerifyApprove})
	assert.Equal(t, 404, appErrors.FromError(err).Status)
	assert.Zero(t, f.clearances.saves)
}

func TestCreateClearance(t *testing.T) {
	f := newMembershipFixture(t, 7)
	ctx := context.Background()

	paid, err := f.svc.Create(ctx, dto.CreateClearanceRequest{UserID: 7, Requirement: "Lab Fee", Amount: 50, PaymentStatus: models.PaymentPaid})
	require.NoError(t, err)
	assert.Equal(t, models.ClearanceClear, paid.Status)

	_, err = f.svc.Create(ctx, dto.CreateClearanceRequest{UserID: 7, Requirement: "Lab Fee"})
	assert.Equal(t, 409, appErrors.FromError(err).Status)

	_, err = f.svc.Create(ctx, dto.CreateClearanceRequest{UserID: 8, Requirement: "Lab Fee"})
	assert.Equal(t, 404, appErrors.FromError(err).Status)

	_, err = f.svc.Create(ctx, dto.CreateClearanceRequest{UserID: 7, Requirement: "Shirt", PaymentStatus: "Refunded"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPaidWithoutReceiptIsDatedForAnalytics(t *testing.T) {
	f := newMembershipFixture(t, 7)
	ctx := context.Background()

	paid, err := f.svc.Create(ctx, dto.CreateClearanceRequest{UserID: 7, Requirement: models.RequirementFirstSemester, Amount: 500, PaymentStatus: models.PaymentPaid})
	require.NoError(t, err)
	require.NotNil(t, paid.PaymentDate)
	assert.True(t, paid.PaymentDate.Equal(fixedNow))
	assert.Equal(t, "Asia/Manila", paid.PaymentDate.Location().String())
	require.NotNil(t, f.clearances.rows[paid.ID].PaymentDate)

	pending, err := f.svc.Create(ctx, dto.CreateClearanceRequest{UserID: 7, Requirement: "Lab Fee", Amount: 100})
	require.NoError(t, err)
	assert.Nil(t, pending.PaymentDate)

	approved, err := f.svc.Verify(ctx, pending.ID, dto.VerifyClearanceRequest{Action: models.VerifyApprove})
	require.NoError(t, err)
	require.NotNil(t, approved.PaymentDate)
	assert.True(t, approved.PaymentDate.Equal(fixedNow))
	assertConsistent(t, f.clearances.rows)
}

func TestUpdateReceiptOwnership(t *testing.T) {
	f := newMembershipFixture(t, 7, 8)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, dto.CreateClearanceRequest{UserID: 7, Requirement: "Lab Fee"})
	require.NoError(t, err)

	req := dto.UpdateReceiptRequest{MembershipID: created.ID, PaymentType: "paymaya", ReceiptPath: "/static/receipts/r.png"}
	_, err = f.svc.UpdateReceipt(ctx, 8, req)
	assert.Equal(t, 403, appErrors.FromError(err).Status)

	req.PaymentType = "cash"
	_, err = f.svc.UpdateReceipt(ctx, 7, req)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req.PaymentType = "paymaya"
	req.MembershipID = 99
	_, err = f.svc.UpdateReceipt(ctx, 7, req)
	assert.Equal(t, 404, appErrors.FromError(err).Status)
	assert.Equal(t, models.PaymentNotPaid, f.clearances.rows[created.ID].PaymentStatus)
}

func TestReceiptAccess(t *testing.T) {
	f := newMembershipFixture(t, 7)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, dto.CreateClearanceRequest{UserID: 7, Requirement: "Lab Fee"})
	require.NoError(t, err)

	owner := &models.JWTClaims{UserID: 7, Role: models.RoleUser}
	_, err = f.svc.Receipt(ctx, owner, created.ID)
	assert.Equal(t, 404, appErrors.FromError(err).Status)

	_, err = f.svc.UpdateReceipt(ctx, 7, dto.UpdateReceiptRequest{MembershipID: created.ID, PaymentType: "gcash", ReceiptPath: "/static/receipts/r.png"})
	require.NoError(t, err)

	receipt, err := f.svc.Receipt(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "/static/receipts/r.png", receipt.ReceiptURL)
	assert.Equal(t, models.PaymentVerifying, receipt.PaymentStatus)
	require.NotNil(t, receipt.PaymentDate)
	assert.True(t, receipt.PaymentDate.Equal(fixedNow))
	assert.Nil(t, receipt.ApprovalDate)

	_, err = f.svc.Receipt(ctx, &models.JWTClaims{UserID: 8, Role: models.RoleUser}, created.ID)
	assert.Equal(t, 403, appErrors.FromError(err).Status)

	_, err = f.svc.Verify(ctx, created.ID, dto.VerifyClearanceRequest{Action: models.VerifyApprove})
	require.NoError(t, err)
	receipt, err = f.svc.Receipt(ctx, &models.JWTClaims{UserID: 1, Role: models.RoleOfficer}, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, receipt.PaymentStatus)
	require.NotNil(t, receipt.ApprovalDate)
	assert.True(t, receipt.ApprovalDate.Equal(fixedNow))
	assert.True(t, receipt.PaymentDate.Equal(fixedNow))
}

func TestListForUserIsSelfOnly(t *testing.T) {
	f := newMembershipFixture(t, 7)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, dto.CreateClearanceRequest{UserID: 7, Requirement: "Lab Fee"})
	require.NoError(t, err)

	rows, err := f.svc.ListForUser(ctx, 7, 7)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = f.svc.ListForUser(ctx, 8, 7)
	assert.Equal(t, 403, appErrors.FromError(err).Status)

	views, err := f.svc.ClearanceStatus(ctx, 7, 7)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, models.ClearanceNotYetCleared, views[0].Status)
}

func TestCreateRequirementForAllSkipsExisting(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	f := newMembershipFixture(t, ids...)
	ctx := context.Background()
	for _, id := range ids[:3] {
		_, err := f.svc.Create(ctx, dto.CreateClearanceRequest{UserID: id, Requirement: "Lab Fee", Amount: 100})
		require.NoError(t, err)
	}

	res, err := f.svc.CreateRequirement(ctx, dto.CreateRequirementRequest{Requirement: " Lab Fee ", Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Created)
	assert.Len(t, f.clearances.rows, 10)

	_, err = f.svc.CreateRequirement(ctx, dto.CreateRequirementRequest{Requirement: "Lab Fee", Amount: 100})
	require.Error(t, err)
	assert.Equal(t, 400, appErrors.FromError(err).Status)
	assert.Equal(t, "Requirement already exists for all users", err.Error())
}

func TestRequirementUpdateAndArchive(t *testing.T) {
	f := newMembershipFixture(t, 1, 2)
	ctx := context.Background()
	_, err := f.svc.CreateRequirement(ctx, dto.CreateRequirementRequest{Requirement: "Lab Fee", Amount: 100})
	require.NoError(t, err)

	changed, err := f.svc.UpdateRequirement(ctx, "Lab Fee", dto.UpdateRequirementRequest{Amount: 150})
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed.Affected)

	_, err = f.svc.UpdateRequirement(ctx, "Shirt", dto.UpdateRequirementRequest{Amount: 150})
	assert.Equal(t, 404, appErrors.FromError(err).Status)

	archived, err := f.svc.ArchiveRequirement(ctx, "Lab Fee")
	require.NoError(t, err)
	assert.Equal(t, int64(2), archived.Affected)

	_, err = f.svc.ArchiveRequirement(ctx, "Lab Fee")
	assert.Equal(t, 404, appErrors.FromError(err).Status)
}

func TestQRCodeUploadAndGet(t *testing.T) {
	f := newMembershipFixture(t)
	ctx := context.Background()

	_, err := f.svc.QRCode(ctx, "gcash")
	assert.Equal(t, 404, appErrors.FromError(err).Status)

	_, err = f.svc.QRCode(ctx, "bitcoin")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	uploaded, err := f.svc.UploadQRCode(ctx, "GCASH", ImageUpload{Filename: "qr.png", Reader: strings.NewReader("png")})
	require.NoError(t, err)
	assert.Equal(t, "qrcodes", f.uploader.folder)
	assert.True(t, f.uploader.fit)

	got, err := f.svc.QRCode(ctx, "gcash")
	require.NoError(t, err)
	assert.Equal(t, uploaded.QRCodeURL, got.QRCodeURL)

	_, err = f.svc.QRCode(ctx, "paymaya")
	assert.Equal(t, 404, appErrors.FromError(err).Status)
}

func TestUploadReceiptFile(t *testing.T) {
	f := newMembershipFixture(t)
	res, err := f.svc.UploadReceiptFile(context.Background(), ImageUpload{Filename: "r.jpg", Reader: strings.NewReader("jpg")})
	require.NoError(t, err)
	assert.Contains(t, res.FilePath, "receipts/")
	assert.False(t, f.uploader.fit)

	f.svc.uploader = failingUploader{}
	_, err = f.svc.UploadReceiptFile(context.Background(), ImageUpload{Filename: "r.jpg", Reader: strings.NewReader("jpg")})
	require.Error(t, err)
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, 500, typed.Status)
}

func TestMembershipExport(t *testing.T) {
	f := newMembershipFixture(t, 7)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, dto.CreateClearanceRequest{UserID: 7, Requirement: "Lab Fee", Amount: 75})
	require.NoError(t, err)

	file, err := f.svc.Export(ctx, "csv", models.ClearanceFilter{})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Contains(t, string(file.Data), "Ana Cruz")
	assert.Contains(t, string(file.Data), "75.00")

	_, err = f.svc.Export(ctx, "csv", models.ClearanceFilter{PaymentStatus: "Lost"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

var _ exportRenderer = (*ExportService)(nil)
