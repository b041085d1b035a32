package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexBool accepts JSON booleans as well as the "true"/"false" strings older
// clients wrote. It always marshals as a boolean.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = FlexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n float64
		if err := json.Unmarshal(data, &n); err == nil {
			*b = n != 0
			return nil
		}
		return fmt.Errorf("invalid boolean %s", data)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "on":
		*b = true
	case "false", "no", "0", "off", "":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	return nil
}

func (b FlexBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}
