package runtime

import (
	"encoding/base64"
	"encoding/json"
	"math"

	"github.com/merchantmoh-debug/ArkLang/errors"
)

// ToJSON serializes a value for the host JSON bridge. Unit maps to
// null, buffers to base64 strings, linear objects to their identity
// triple. Functions do not cross the boundary.
func ToJSON(v Value) ([]byte, error) {
	enc, err := encodeJSON(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(enc)
}

func encodeJSON(v Value) (any, error) {
	switch v.Kind() {
	case KindUnit:
		return nil, nil
	case KindInt:
		return v.i, nil
	case KindStr:
		return v.s, nil
	case KindBool:
		return v.b, nil
	case KindBuffer:
		return base64.StdEncoding.EncodeToString(v.buf), nil
	case KindLinear:
		return map[string]any{"id": v.id, "type": v.typename, "payload": v.payload}, nil
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			enc, err := encodeJSON(e)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case KindStruct:
		out := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			enc, err := encodeJSON(f)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	case KindReturn:
		return encodeJSON(*v.inner)
	}
	return nil, errors.Unsupported(errors.PhaseHost, "function value in JSON")
}

// FromJSON decodes JSON into a value. Objects become structs, arrays
// lists, null Unit. Numbers must be integral.
func FromJSON(data []byte) (Value, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Unit, errors.Wrap(errors.PhaseHost, errors.KindInvalidData, err, "decode JSON")
	}
	return decodeJSON(v)
}

func decodeJSON(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Unit, nil
	case bool:
		return Bool(x), nil
	case string:
		return Str(x), nil
	case float64:
		if x != math.Trunc(x) {
			return Unit, errors.InvalidData(errors.PhaseHost, "non-integral number in JSON")
		}
		return Int(int64(x)), nil
	case []any:
		out := make([]Value, len(x))
		for i, e := range x {
			dv, err := decodeJSON(e)
			if err != nil {
				return Unit, err
			}
			out[i] = dv
		}
		return List(out), nil
	case map[string]any:
		out := make(map[string]Value, len(x))
		for k, e := range x {
			dv, err := decodeJSON(e)
			if err != nil {
				return Unit, err
			}
			out[k] = dv
		}
		return Struct(out), nil
	}
	return Unit, errors.InvalidData(errors.PhaseHost, "unsupported JSON value")
}
