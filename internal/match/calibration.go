package match

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// CalibrationConfig is the JSON structure of the weight calibration
// file. Weights are keyed by dimension name; unknown names are ignored
// with a warning, absent names keep their base weight.
type CalibrationConfig struct {
	Version string             `json:"version"`
	Weights map[string]float64 `json:"weights"`
}

// LoadCalibration loads base weights, optionally overridden by a JSON
// calibration file. Partial files are merged over the defaults.
//
// On any read or parse failure the default base vector is returned
// along with the error, so a bad calibration file degrades gracefully
// instead of taking matching down.
func LoadCalibration(filePath string) (WeightVector, error) {
	if filePath == "" {
		return BaseWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read weight calibration file, using defaults",
			"path", filePath,
			"error", err)
		return BaseWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse weight calibration file, using defaults",
			"path", filePath,
			"error", err)
		return BaseWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	merged := MergeCalibration(BaseWeights(), config.Weights)
	logCalibrationOverrides(merged)
	return merged, nil
}

// MergeCalibration applies override weights onto a base vector.
// Only positive overrides for known dimensions are applied, so a
// partial calibration file leaves the other dimensions at their base
// weight. The result is not renormalized here; the adaptive controller
// normalizes every run.
func MergeCalibration(base WeightVector, overrides map[string]float64) WeightVector {
	result := base.Clone()
	for dim, weight := range overrides {
		if _, known := result[dim]; !known {
			slog.Warn("ignoring calibration for unknown dimension", "dimension", dim)
			continue
		}
		if weight <= 0 {
			continue
		}
		result[dim] = weight
	}
	return result
}

// logCalibrationOverrides logs which weights differ from the defaults.
func logCalibrationOverrides(loaded WeightVector) {
	defaults := BaseWeights()
	var overrides []string
	for _, dim := range Dimensions {
		if loaded[dim] != defaults[dim] {
			overrides = append(overrides, fmt.Sprintf("%s: %.3f -> %.3f", dim, defaults[dim], loaded[dim]))
		}
	}
	if len(overrides) > 0 {
		slog.Info("loaded weight calibration with overrides", "overrides", overrides)
	} else {
		slog.Info("loaded weight calibration (using all defaults)")
	}
}
