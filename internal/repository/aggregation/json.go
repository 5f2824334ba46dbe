package aggregation

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/kailas-cloud/aggflat/internal/domain"
)

var errNotNumeric = errors.New("value is not numeric")

func parseObject(raw []byte, path string) (*object, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, domain.NewMalformedResult(path, "expected a JSON object")
	}
	obj := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(raw, obj); err != nil {
		return nil, domain.NewMalformedResult(path, "invalid JSON object: "+err.Error())
	}
	return obj, nil
}

// splitTypedKey splits "sterms#by_sex" into its kind and name.
// Keys without a kind prefix return an empty kind.
func splitTypedKey(key string) (kind, name string) {
	i := strings.IndexByte(key, '#')
	if i <= 0 {
		return "", key
	}
	return key[:i], key[i+1:]
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func isNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isNumeric(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9') || isNull(raw)
}

func hasAll(obj *object, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj.Get(k); !ok {
			return false
		}
	}
	return true
}

func stringField(obj *object, key string) (string, bool) {
	raw, ok := obj.Get(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// parseDouble reads a JSON number. null yields ifNull; quoted values such as
// "NaN" or "Infinity" are accepted.
func parseDouble(raw []byte, ifNull float64) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return ifNull, nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, errNotNumeric
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errNotNumeric
		}
		return f, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, errNotNumeric
	}
	return f, nil
}

func parseCount(raw []byte) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return 0, nil
	}
	if n, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		return n, nil
	}
	f, err := parseDouble(raw, 0)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotNumeric
	}
	return int64(f), nil
}

// formatDouble renders f the way the JVM prints a double: plain decimal with
// at least one fractional digit inside [1e-3, 1e7), scientific "1.0E7" outside.
func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	if abs := math.Abs(f); abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}

	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'E', -1, 64), "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	neg := strings.HasPrefix(exp, "-")
	exp = strings.TrimLeft(strings.TrimLeft(exp, "+-"), "0")
	if exp == "" {
		exp = "0"
	}
	if neg {
		exp = "-" + exp
	}
	return mant + "E" + exp
}
