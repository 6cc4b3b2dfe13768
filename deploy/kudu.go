package deploy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/AltairaLabs/armature/arm"
)

// scmHostSuffix is the Kudu (source control manager) host suffix for
// hosted sites.
const scmHostSuffix = ".scm.azurewebsites.net"

// zipDeployPath is the Kudu endpoint that accepts a zip package upload.
const zipDeployPath = "/api/zipdeploy"

// managementScope is the token scope used to authenticate against Kudu.
const managementScope = "https://management.azure.com/.default"

// errBodyLimit caps how much of a failed upload response is read back for
// the error message.
const errBodyLimit = 4 << 10

// ZipUploadTarget uploads zip packages to a site's Kudu endpoint. It
// implements arm.DeployTarget.
type ZipUploadTarget struct {
	cred       azcore.TokenCredential
	httpClient *http.Client
	log        *slog.Logger
}

var _ arm.DeployTarget = (*ZipUploadTarget)(nil)

// NewZipUploadTarget creates a ZipUploadTarget authenticating with cred.
func NewZipUploadTarget(cred azcore.TokenCredential, log *slog.Logger) *ZipUploadTarget {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ZipUploadTarget{
		cred:       cred,
		httpClient: http.DefaultClient,
		log:        log,
	}
}

// UploadZip streams the archive at archivePath to the named site's
// zipdeploy endpoint. A non-success response is returned as an error with
// the response body attached; the upload is never retried here.
func (t *ZipUploadTarget) UploadZip(
	ctx context.Context, resource arm.ResourceName, archivePath string,
) error {
	token, err := t.cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{managementScope},
	})
	if err != nil {
		return fmt.Errorf("acquire upload token: %w", err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive %q: %w", archivePath, err)
	}
	defer f.Close()

	url := fmt.Sprintf("https://%s%s%s", resource, scmHostSuffix, zipDeployPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, f)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)
	req.Header.Set("Content-Type", "application/zip")

	t.log.Info("uploading package", "site", resource, "archive", archivePath)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload to %q: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		return fmt.Errorf("upload to %q: %s: %s", resource, resp.Status, string(body))
	}
	return nil
}
