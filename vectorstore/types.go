package vectorstore

import (
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// Point is a corpus entry as the rest of the service sees it: the
// Qdrant id flattened to a string and the payload as plain Go values.
type Point struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Name returns the payload name field, empty when absent.
func (p Point) Name() string {
	if v, ok := p.Payload["name"].(string); ok {
		return v
	}
	return ""
}

// pointID builds a wire id. Numeric strings become integer ids, the
// rest are treated as UUIDs; the corpus uses both.
func pointID(id string) *qdrant.PointId {
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Num{Num: n}}
	}
	return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: id}}
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	switch v := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return strconv.FormatUint(v.Num, 10)
	default:
		return ""
	}
}

// payloadToMap converts a wire payload to plain Go values. Lists and
// nested structs recurse; enrichment image entries arrive as structs
// inside lists.
func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = valueToAny(value)
	}
	return out
}

func valueToAny(value *qdrant.Value) any {
	if value == nil {
		return nil
	}
	switch v := value.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return v.StringValue
	case *qdrant.Value_IntegerValue:
		return v.IntegerValue
	case *qdrant.Value_DoubleValue:
		return v.DoubleValue
	case *qdrant.Value_BoolValue:
		return v.BoolValue
	case *qdrant.Value_ListValue:
		if v.ListValue == nil {
			return nil
		}
		list := make([]any, len(v.ListValue.Values))
		for i, item := range v.ListValue.Values {
			list[i] = valueToAny(item)
		}
		return list
	case *qdrant.Value_StructValue:
		if v.StructValue == nil {
			return nil
		}
		return payloadToMap(v.StructValue.Fields)
	default:
		return nil
	}
}

// toQdrantPayload converts plain Go values to the wire form.
func toQdrantPayload(payload map[string]any) (map[string]*qdrant.Value, error) {
	out := make(map[string]*qdrant.Value, len(payload))
	for key, value := range payload {
		val, err := qdrant.NewValue(value)
		if err != nil {
			return nil, fmt.Errorf("failed to convert payload value for key %s: %w", key, err)
		}
		out[key] = val
	}
	return out, nil
}
