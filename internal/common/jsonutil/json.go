package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-cicd-forge/internal/common/errors"
	"github.com/deploymenttheory/go-cicd-forge/internal/common/fsutil"
)

// ReadJSONFile reads a JSON file and unmarshals its contents into a map
func ReadJSONFile(path string) (map[string]interface{}, error) {
	if !fsutil.FileExists(path) {
		return nil, fmt.Errorf("%w: %s", errors.ErrFileNotFound, path)
	}

	data, err := fsutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrFileReadError, err.Error())
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedFile, err.Error())
	}

	return result, nil
}

// ReadJSONFileWithComments reads a JSON file that may contain //-prefixed
// comment lines, as written to devcontainer environment files, and
// unmarshals the remaining content into a map.
func ReadJSONFileWithComments(path string) (map[string]interface{}, error) {
	if !fsutil.FileExists(path) {
		return nil, fmt.Errorf("%w: %s", errors.ErrFileNotFound, path)
	}

	data, err := fsutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrFileReadError, err.Error())
	}

	cleaned := StripLineComments(string(data))

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedFile, err.Error())
	}

	return result, nil
}

// StripLineComments removes lines whose first non-blank characters are "//"
func StripLineComments(content string) string {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// GetValue retrieves a value from JSON using a dot-notation path
func GetValue(data map[string]interface{}, path string) (interface{}, bool) {
	keys := strings.Split(path, ".")
	current := data

	for i, key := range keys {
		if i == len(keys)-1 {
			val, ok := current[key]
			return val, ok
		}

		next, ok := current[key].(map[string]interface{})
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// GetString retrieves a string value from JSON using a dot-notation path.
// The fallback is returned when the path is absent or not a string.
func GetString(data map[string]interface{}, path, fallback string) string {
	val, ok := GetValue(data, path)
	if !ok {
		return fallback
	}
	s, ok := val.(string)
	if !ok {
		return fallback
	}
	return s
}

// GetBool retrieves a boolean value from JSON using a dot-notation path.
func GetBool(data map[string]interface{}, path string, fallback bool) bool {
	val, ok := GetValue(data, path)
	if !ok {
		return fallback
	}
	b, ok := val.(bool)
	if !ok {
		return fallback
	}
	return b
}

// GetInt retrieves an integer value from JSON using a dot-notation path.
// JSON numbers decode as float64; fractional values fall back.
func GetInt(data map[string]interface{}, path string, fallback int) int {
	val, ok := GetValue(data, path)
	if !ok {
		return fallback
	}
	f, ok := val.(float64)
	if !ok || f != float64(int(f)) {
		return fallback
	}
	return int(f)
}

// GetStringSlice retrieves a list of strings from JSON using a dot-notation
// path. Non-string elements are skipped.
func GetStringSlice(data map[string]interface{}, path string) ([]string, bool) {
	val, ok := GetValue(data, path)
	if !ok {
		return nil, false
	}
	raw, ok := val.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}
