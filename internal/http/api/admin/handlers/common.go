package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// defaultListLimit caps list responses when no limit is supplied.
const defaultListLimit = 100

// parsePagination reads skip/limit query parameters with defaults.
func parsePagination(c *gin.Context) (skip int, limit int) {
	skip = 0
	limit = defaultListLimit
	if raw := strings.TrimSpace(c.Query("skip")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed >= 0 {
			skip = parsed
		}
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 {
			limit = parsed
		}
	}
	return skip, limit
}

// boolQuery reads a boolean query flag ("1" or "true").
func boolQuery(c *gin.Context, name string) bool {
	raw := strings.TrimSpace(c.Query(name))
	return raw == "1" || strings.EqualFold(raw, "true")
}

// isDuplicate reports whether err is a storage uniqueness violation. The
// unique index is the source of truth under concurrent writers, so create
// and update paths map this to a conflict even after a passing pre-check.
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// derefString returns the value or an empty string when nil.
func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// marshalJSON encodes a value into a JSON column, returning nil for empty
// inputs.
func marshalJSON(value interface{}) (datatypes.JSON, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return datatypes.JSON(data), nil
}

// decodeStringList decodes a JSON column into a string slice.
func decodeStringList(value datatypes.JSON) []string {
	if len(value) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(value, &out); err != nil {
		return nil
	}
	return out
}

// decodeMap decodes a JSON column into a generic map.
func decodeMap(value datatypes.JSON) map[string]any {
	if len(value) == 0 {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(value, &out); err != nil {
		return map[string]any{}
	}
	return out
}
