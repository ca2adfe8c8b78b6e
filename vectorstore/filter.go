package vectorstore

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"
)

// Condition is one field constraint. Exactly one of Match, MatchAny,
// the range bounds or IDs is set; the zero value matches nothing and is
// skipped when building the wire filter.
type Condition struct {
	Field    string
	Match    any
	MatchAny []string
	GTE      *float64
	LTE      *float64
	IDs      []string
}

// MatchValue matches a field against one keyword, integer or boolean.
func MatchValue(field string, value any) Condition {
	return Condition{Field: field, Match: value}
}

// MatchAnyOf matches a field against any of the given keywords.
func MatchAnyOf(field string, values ...string) Condition {
	return Condition{Field: field, MatchAny: values}
}

// RangeBetween constrains a numeric field; either bound may be nil.
func RangeBetween(field string, gte, lte *float64) Condition {
	return Condition{Field: field, GTE: gte, LTE: lte}
}

// HasIDs restricts matching to the given point ids.
func HasIDs(ids ...string) Condition {
	return Condition{IDs: ids}
}

// Filter combines conditions the Qdrant way: every Must clause is
// required, Should clauses raise eligibility when any holds.
type Filter struct {
	Must   []Condition
	Should []Condition
}

// IsEmpty reports whether the filter constrains anything.
func (f *Filter) IsEmpty() bool {
	return f == nil || (len(f.Must) == 0 && len(f.Should) == 0)
}

// ToQdrant converts the filter to its wire form, nil when empty.
func (f *Filter) ToQdrant() *qdrant.Filter {
	if f.IsEmpty() {
		return nil
	}

	out := &qdrant.Filter{}
	for _, c := range f.Must {
		if qc := c.toQdrant(); qc != nil {
			out.Must = append(out.Must, qc)
		}
	}
	for _, c := range f.Should {
		if qc := c.toQdrant(); qc != nil {
			out.Should = append(out.Should, qc)
		}
	}
	if len(out.Must) == 0 && len(out.Should) == 0 {
		return nil
	}
	return out
}

func (c Condition) toQdrant() *qdrant.Condition {
	switch {
	case len(c.IDs) > 0:
		ids := make([]*qdrant.PointId, 0, len(c.IDs))
		for _, id := range c.IDs {
			ids = append(ids, pointID(id))
		}
		return &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_HasId{
				HasId: &qdrant.HasIdCondition{HasId: ids},
			},
		}

	case len(c.MatchAny) > 0:
		return fieldCondition(c.Field, &qdrant.Match{
			MatchValue: &qdrant.Match_Keywords{
				Keywords: &qdrant.RepeatedStrings{Strings: c.MatchAny},
			},
		})

	case c.GTE != nil || c.LTE != nil:
		return &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key:   c.Field,
					Range: &qdrant.Range{Gte: c.GTE, Lte: c.LTE},
				},
			},
		}

	case c.Match != nil:
		switch v := c.Match.(type) {
		case bool:
			return fieldCondition(c.Field, &qdrant.Match{
				MatchValue: &qdrant.Match_Boolean{Boolean: v},
			})
		case int:
			return fieldCondition(c.Field, &qdrant.Match{
				MatchValue: &qdrant.Match_Integer{Integer: int64(v)},
			})
		case int64:
			return fieldCondition(c.Field, &qdrant.Match{
				MatchValue: &qdrant.Match_Integer{Integer: v},
			})
		case string:
			return fieldCondition(c.Field, &qdrant.Match{
				MatchValue: &qdrant.Match_Keyword{Keyword: v},
			})
		default:
			return fieldCondition(c.Field, &qdrant.Match{
				MatchValue: &qdrant.Match_Keyword{Keyword: fmt.Sprintf("%v", v)},
			})
		}
	}
	return nil
}

func fieldCondition(key string, match *qdrant.Match) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{Key: key, Match: match},
		},
	}
}

// CacheKey renders the filter deterministically for use as cache key
// material. Conditions are sorted within each clause so logically equal
// filters produce equal keys.
func (f *Filter) CacheKey() string {
	if f.IsEmpty() {
		return "no_filter"
	}

	describe := func(conds []Condition) string {
		parts := make([]string, 0, len(conds))
		for _, c := range conds {
			parts = append(parts, c.describe())
		}
		sort.Strings(parts)
		return strings.Join(parts, ",")
	}

	var b strings.Builder
	if len(f.Must) > 0 {
		b.WriteString("must{")
		b.WriteString(describe(f.Must))
		b.WriteString("}")
	}
	if len(f.Should) > 0 {
		b.WriteString("should{")
		b.WriteString(describe(f.Should))
		b.WriteString("}")
	}
	return b.String()
}

func (c Condition) describe() string {
	switch {
	case len(c.IDs) > 0:
		ids := append([]string(nil), c.IDs...)
		sort.Strings(ids)
		return "id in[" + strings.Join(ids, " ") + "]"
	case len(c.MatchAny) > 0:
		vals := append([]string(nil), c.MatchAny...)
		sort.Strings(vals)
		return c.Field + " any[" + strings.Join(vals, " ") + "]"
	case c.GTE != nil || c.LTE != nil:
		low, high := "", ""
		if c.GTE != nil {
			low = strconv.FormatFloat(*c.GTE, 'f', -1, 64)
		}
		if c.LTE != nil {
			high = strconv.FormatFloat(*c.LTE, 'f', -1, 64)
		}
		return c.Field + " range[" + low + ":" + high + "]"
	default:
		return c.Field + "=" + fmt.Sprintf("%v", c.Match)
	}
}
