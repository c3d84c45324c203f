package http

import (
	"bytes"
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stockdash/internal/config"
	apierrors "stockdash/internal/errors"
	"stockdash/internal/services"
	"stockdash/internal/shared/testutil"
	api "stockdash/pkg/contracts/api/v1"
)

// mockDashboardService stubs the dashboard service for failure paths
type mockDashboardService struct {
	mock.Mock
}

func (m *mockDashboardService) Options(o *api.DashboardOptions) services.PassOptions {
	return services.PassOptions{PreviewRows: 10}
}

func (m *mockDashboardService) FromFiles(ctx context.Context, source string, files []services.FileInput, opts services.PassOptions) (*services.Pass, error) {
	args := m.Called(source, len(files))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Pass), args.Error(1)
}

func (m *mockDashboardService) FromDataURLs(ctx context.Context, files []api.UploadFile, opts services.PassOptions) (*services.Pass, error) {
	args := m.Called(len(files))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Pass), args.Error(1)
}

func (m *mockDashboardService) FromSnapshot(ctx context.Context, source string, req api.SnapshotRequest, opts services.PassOptions) (*services.Pass, error) {
	args := m.Called(source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Pass), args.Error(1)
}

func (m *mockDashboardService) Export(ctx context.Context, files []services.FileInput, format string, opts services.PassOptions) (*services.Export, error) {
	args := m.Called(format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Export), args.Error(1)
}

func newTestDashboardService(t *testing.T) (*services.DashboardService, *slog.Logger) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return services.NewDashboardService(config.Default(), nil, nil, logger), logger
}

func newTestErrorHandler(logger *slog.Logger) *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(logger, false)
}

type formFile struct {
	field string
	name  string
	data  []byte
}

// multipartRequest builds a multipart POST with the given files and form values
func multipartRequest(t *testing.T, target string, files []formFile, values map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func priceFormFiles(field string) []formFile {
	spx, tsla := testutil.SPX(), testutil.TSLA()
	return []formFile{
		{field: field, name: spx.FileName(), data: spx.CSV()},
		{field: field, name: tsla.FileName(), data: tsla.CSV()},
	}
}
