package deploy

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/AltairaLabs/armature/arm"
)

// fakeCredential hands out a fixed bearer token.
type fakeCredential struct{}

func (fakeCredential) GetToken(
	_ context.Context, _ policy.TokenRequestOptions,
) (azcore.AccessToken, error) {
	return azcore.AccessToken{
		Token:     "test-token",
		ExpiresOn: time.Now().Add(time.Hour),
	}, nil
}

// rewriteTransport records the host the client dialed, then redirects the
// request to the test server.
type rewriteTransport struct {
	target   *url.URL
	wantHost string
	gotHost  string
	gotPath  string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.gotHost = req.URL.Host
	t.gotPath = req.URL.Path
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func writeArchiveFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.zip")
	if err := os.WriteFile(path, []byte("zip-bytes"), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

func uploadTarget(t *testing.T, server *httptest.Server) (*ZipUploadTarget, *rewriteTransport) {
	t.Helper()
	serverURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	transport := &rewriteTransport{target: serverURL}
	return &ZipUploadTarget{
		cred:       fakeCredential{},
		httpClient: &http.Client{Transport: transport},
		log:        slog.New(slog.DiscardHandler),
	}, transport
}

func TestUploadZipRequestShape(t *testing.T) {
	var (
		gotMethod      string
		gotAuth        string
		gotContentType string
		gotBody        []byte
		calls          int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	target, transport := uploadTarget(t, server)
	archive := writeArchiveFile(t)

	err := target.UploadZip(context.Background(), arm.MustResourceName("my-site"), archive)
	if err != nil {
		t.Fatalf("UploadZip: %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected 1 request, got %d", calls)
	}
	if transport.gotHost != "my-site.scm.azurewebsites.net" {
		t.Errorf("host: got %q", transport.gotHost)
	}
	if transport.gotPath != "/api/zipdeploy" {
		t.Errorf("path: got %q", transport.gotPath)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method: got %q", gotMethod)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("authorization: got %q", gotAuth)
	}
	if gotContentType != "application/zip" {
		t.Errorf("content type: got %q", gotContentType)
	}
	if string(gotBody) != "zip-bytes" {
		t.Errorf("body: got %q", gotBody)
	}
}

func TestUploadZipSurfacesFailureResponse(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("deployment already in progress"))
	}))
	defer server.Close()

	target, _ := uploadTarget(t, server)
	archive := writeArchiveFile(t)

	err := target.UploadZip(context.Background(), arm.MustResourceName("my-site"), archive)
	if err == nil {
		t.Fatal("expected an error for a non-2xx response")
	}
	for _, want := range []string{"my-site", "409", "deployment already in progress"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should contain %q: %v", want, err)
		}
	}
	if calls != 1 {
		t.Errorf("a failed upload must not be retried: got %d requests", calls)
	}
}

func TestUploadZipMissingArchive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("no request may be sent when the archive cannot be opened")
	}))
	defer server.Close()

	target, _ := uploadTarget(t, server)
	err := target.UploadZip(
		context.Background(),
		arm.MustResourceName("my-site"),
		filepath.Join(t.TempDir(), "missing.zip"),
	)
	if err == nil {
		t.Fatal("expected an error for a missing archive")
	}
}
