// Package update probes the latest published release so the version
// command can point at newer builds. The probe is best effort: any
// failure, timeout, or malformed response turns into "no update info",
// never into a CLI error.
package update

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// ReleasesURL is the release metadata endpoint. Overridden in tests.
var ReleasesURL = "https://api.github.com/repos/queryforge/queryforge-cli/releases/latest"

const checkTimeout = 5 * time.Second

type release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// CheckResult describes the outcome of a release probe.
type CheckResult struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateURL       string
	UpdateAvailable bool
}

// CheckForUpdate compares the running version against the latest release.
// It returns nil for dev builds, when QUERYFORGE_NO_UPDATE_CHECK is set,
// or when the probe fails for any reason.
func CheckForUpdate(ctx context.Context, currentVersion string) *CheckResult {
	if currentVersion == "dev" || currentVersion == "" {
		return nil
	}
	if os.Getenv("QUERYFORGE_NO_UPDATE_CHECK") != "" {
		return nil
	}

	rel := fetchLatest(ctx)
	if rel == nil {
		return nil
	}

	result := &CheckResult{
		CurrentVersion: currentVersion,
		LatestVersion:  strings.TrimPrefix(rel.TagName, "v"),
		UpdateURL:      rel.HTMLURL,
	}

	current := canonical(currentVersion)
	latest := canonical(rel.TagName)
	if semver.IsValid(current) && semver.IsValid(latest) {
		result.UpdateAvailable = semver.Compare(latest, current) > 0
	}
	return result
}

func fetchLatest(ctx context.Context) *release {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ReleasesURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil
	}
	return &rel
}

// canonical forces the leading "v" that x/mod/semver requires; release
// tags in the wild come both ways.
func canonical(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
