package version

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-version"
	"go.uber.org/zap"
)

// AppVersion is stamped at build time via -ldflags.
var AppVersion = "v0.0.0"

type githubRelease struct {
	TagName string `json:"tag_name"`
}

// CheckForUpdates compares the running version against the latest GitHub
// release. Failures are silent; an update check must never delay or break
// startup.
func CheckForUpdates(logger *zap.Logger) {
	url := "https://api.github.com/repos/nulzo/ai-bridge/releases/latest"

	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return
	}

	current, err := version.NewVersion(AppVersion)
	if err != nil {
		return
	}
	latest, err := version.NewVersion(release.TagName)
	if err != nil {
		return
	}

	if current.LessThan(latest) {
		logger.Warn(fmt.Sprintf("running outdated version %s, latest is %s", AppVersion, release.TagName),
			zap.String("current", AppVersion),
			zap.String("latest", release.TagName))
	}
}
