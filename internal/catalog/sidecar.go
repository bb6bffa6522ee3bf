package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trailcut/trailcut/internal/interest"
	"github.com/trailcut/trailcut/internal/segments"
)

const SegmentsSuffix = ".segments.json"

// SegmentsFile is the per-video sidecar kept next to the MP4 so a project
// folder carries its edit decisions when copied elsewhere.
type SegmentsFile struct {
	Segments       segments.Set             `json:"segments"`
	InterestLevels []interest.InterestPoint `json:"interest_levels"`
}

func SegmentsSidecarPath(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + SegmentsSuffix
}

// ReadSegmentsSidecar returns (nil, nil) when the sidecar is missing or empty.
func ReadSegmentsSidecar(videoPath string) (*SegmentsFile, error) {
	data, err := os.ReadFile(SegmentsSidecarPath(videoPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var f SegmentsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(SegmentsSidecarPath(videoPath)), err)
	}
	return &f, nil
}

func WriteSegmentsSidecar(videoPath string, f *SegmentsFile) error {
	out := SegmentsFile{Segments: f.Segments, InterestLevels: f.InterestLevels}
	if out.Segments == nil {
		out.Segments = segments.Set{}
	}
	if out.InterestLevels == nil {
		out.InterestLevels = []interest.InterestPoint{}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	path := SegmentsSidecarPath(videoPath)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}
