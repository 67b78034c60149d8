package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON-typed columns persist as jsonb (text on sqlite).

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column source %T", src)
	}
}

// Attributes keeps arbitrary caller-supplied fields.
type Attributes map[string]any

func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	return jsonValue(map[string]any(a))
}

func (a *Attributes) Scan(src any) error {
	*a = Attributes{}
	return jsonScan(src, (*map[string]any)(a))
}
