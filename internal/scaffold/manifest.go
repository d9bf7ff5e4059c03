package scaffold

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/appforge-cli/internal/utils"
	"github.com/spf13/afero"
)

// ManifestDir is created under the output directory when manifests are enabled.
const ManifestDir = ".appforge"

// Manifest records one generation run next to the files it produced.
type Manifest struct {
	RunID       string          `json:"run_id"`
	Model       string          `json:"model"`
	Description string          `json:"description"`
	Structure   json.RawMessage `json:"structure,omitempty"`
	Written     []string        `json:"written"`
	Failed      []ManifestEntry `json:"failed,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ManifestEntry struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// NewManifest fills Written/Failed from rep.
func NewManifest(runID, model, description string, structure json.RawMessage, rep *Report) *Manifest {
	m := &Manifest{
		RunID:       runID,
		Model:       model,
		Description: description,
		Structure:   structure,
		Written:     []string{},
		CreatedAt:   time.Now().UTC(),
	}
	if rep != nil {
		m.Written = append(m.Written, rep.Written...)
		for _, f := range rep.Failed {
			m.Failed = append(m.Failed, ManifestEntry{Path: f.Path, Error: f.Err.Error()})
		}
	}
	return m
}

// SaveManifest writes m to <base>/.appforge/manifest-<run-id>.json and returns the path.
func SaveManifest(fs afero.Fs, base string, m *Manifest) (string, error) {
	if m.RunID == "" {
		return "", fmt.Errorf("manifest needs a run id")
	}
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return "", err
	}
	path := filepath.Join(base, ManifestDir, "manifest-"+m.RunID+".json")
	if err := utils.SafeWriteFile(fs, path, data); err != nil {
		return "", fmt.Errorf("save manifest: %w", err)
	}
	return path, nil
}
