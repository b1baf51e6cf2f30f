// Package config reads user-authored schedule configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	apperrors "github.com/julianstephens/autoblock/internal/errors"
	"github.com/julianstephens/autoblock/internal/models"
	"github.com/julianstephens/autoblock/internal/utils"
)

// Format is the encoding of a configuration file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the decoder from the file extension. Anything that is not
// .yaml or .yml is treated as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads every file in order and merges their top-level keys, later files
// overwriting earlier ones. The merged document is decoded into a ScheduleSet.
// It does not validate the result.
func Load(paths ...string) (models.ScheduleSet, error) {
	if len(paths) == 0 {
		return models.ScheduleSet{}, apperrors.Configf("no configuration file given")
	}

	merged := make(map[string]interface{})
	for _, p := range paths {
		path, err := utils.ExpandPath(p)
		if err != nil {
			return models.ScheduleSet{}, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return models.ScheduleSet{}, apperrors.Configf("config file %s does not exist", path)
			}
			return models.ScheduleSet{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		doc, err := decodeDocument(data, FormatFor(path))
		if err != nil {
			return models.ScheduleSet{}, apperrors.Configf("the config file %s is not correctly formatted: %v", path, err)
		}
		for k, v := range doc {
			merged[k] = v
		}
	}

	return fromDocument(merged)
}

// Decode parses a single configuration document.
func Decode(data []byte, format Format) (models.ScheduleSet, error) {
	doc, err := decodeDocument(data, format)
	if err != nil {
		return models.ScheduleSet{}, apperrors.Configf("config is not correctly formatted: %v", err)
	}
	return fromDocument(doc)
}

func decodeDocument(data []byte, format Format) (map[string]interface{}, error) {
	doc := make(map[string]interface{})
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// fromDocument round-trips the merged map through JSON so both source formats
// share the struct tags on models.ScheduleSet.
func fromDocument(doc map[string]interface{}) (models.ScheduleSet, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return models.ScheduleSet{}, fmt.Errorf("failed to re-encode config: %w", err)
	}

	var set models.ScheduleSet
	if err := json.Unmarshal(data, &set); err != nil {
		return models.ScheduleSet{}, apperrors.Configf("config has an invalid structure: %v", err)
	}
	return set, nil
}
