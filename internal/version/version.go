package version

import (
	"encoding/json"
	"os"

	"github.com/JustinTDCT/GuessTheMovie/internal/logging"
)

// Version is set at build time with -ldflags "-X .../internal/version.Version=1.2.3".
var Version = ""

const fallback = "0.0.0"

type Info struct {
	Version string `json:"version"`
}

// Load prefers the linked-in version, then version.json in the working directory.
func Load() Info {
	if Version != "" {
		return Info{Version: Version}
	}
	return loadFile("version.json")
}

func loadFile(path string) Info {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Warn("could not read version file", "path", path, "error", err)
		return Info{Version: fallback}
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil || info.Version == "" {
		logging.Warn("could not parse version file", "path", path, "error", err)
		return Info{Version: fallback}
	}
	return info
}
