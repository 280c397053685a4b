package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// MarshalNoEscape encodes v into JSON without HTML-escaping <, > and &.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// StripFence removes a surrounding markdown code fence (```json ... ```)
// that text models sometimes add around structured output.
func StripFence(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return []byte(s)
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}

// UnmarshalFlex decodes model output with best effort:
// 1) strip a code fence and decode directly
// 2) unwrap a JSON-encoded string and unescape doubled unicode escapes, then decode
func UnmarshalFlex(raw []byte, v any) error {
	body := StripFence(raw)
	if len(body) == 0 {
		return errors.New("jsonutil: empty payload")
	}
	err := json.Unmarshal(body, v)
	if err == nil {
		return nil
	}
	norm, nerr := NormalizeJSONUnicode(body)
	if nerr != nil {
		return err
	}
	return json.Unmarshal(norm, v)
}

// NormalizeJSONUnicode parses JSON bytes (optionally wrapped in one or two
// levels of string encoding) and unescapes "\\u003e"-style sequences inside
// string values.
func NormalizeJSONUnicode(raw []byte) ([]byte, error) {
	var val any
	if err := json.Unmarshal(raw, &val); err != nil {
		return nil, err
	}
	for i := 0; i < 2; i++ {
		s, ok := val.(string)
		if !ok {
			break
		}
		var inner any
		if err := json.Unmarshal(StripFence([]byte(s)), &inner); err != nil {
			return nil, errors.New("jsonutil: cannot parse JSON payload")
		}
		val = inner
	}
	return MarshalNoEscape(deepUnescape(val))
}

func unescapeUnicodeString(s string) (string, error) {
	if !strings.Contains(s, `\u`) {
		return s, nil
	}
	esc := strings.ReplaceAll(s, `"`, `\"`)
	var out string
	if err := json.Unmarshal([]byte(`"`+esc+`"`), &out); err != nil {
		return "", err
	}
	return out, nil
}

func deepUnescape(v any) any {
	switch x := v.(type) {
	case string:
		if s, err := unescapeUnicodeString(x); err == nil {
			return s
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = deepUnescape(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = deepUnescape(vv)
		}
		return out
	default:
		return v
	}
}
