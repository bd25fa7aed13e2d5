// Copyright 2026 Meridian Networks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package netpol

import (
	"encoding/json"
	"fmt"
	"math"
	"net/netip"

	"github.com/meridian-sdn/meridian/pkg/packet"
	"github.com/meridian-sdn/meridian/pkg/private/serrors"
)

// Typer is implemented by every serializable predicate and policy.
type Typer interface {
	Type() string
}

// This package makes extensive use of serialized interfaces. This requires
// special handling during marshaling and unmarshaling to take concrete types
// into account. During marshaling, an object of type T that implements
// Predicate or Policy is encoded as {"T": JSON(T)}, where JSON(T) is the
// normal encoding of type T.
//
// Unmarshaling uses a map of type map[string]*json.RawMessage which delays
// the unmarshaling of the object itself. After unmarshaling to this map, it
// contains a single entry with key "T". Depending on T, the correct concrete
// type is unmarshaled.
//
// Stateful nodes, the mutable policies and the query buckets, have no
// serialized form.

const (
	TypeAllPackets     = "AllPackets"
	TypeNoPackets      = "NoPackets"
	TypeMatch          = "Match"
	TypeIngressNetwork = "IngressNetwork"
	TypeEgressNetwork  = "EgressNetwork"
	TypeUnion          = "Union"
	TypeIntersect      = "Intersect"
	TypeNegate         = "Negate"
	TypeDifference     = "Difference"

	TypePassthrough = "Passthrough"
	TypeDrop        = "Drop"
	TypePush        = "Push"
	TypePop         = "Pop"
	TypeModify      = "Modify"
	TypeCopy        = "Copy"
	TypeMove        = "Move"
	TypeFwd         = "Fwd"
	TypeFlood       = "Flood"
	TypeRestrict    = "Restrict"
	TypeRemove      = "Remove"
	TypeIf          = "If"
	TypeParallel    = "Parallel"
	TypeSequential  = "Sequential"
	TypeRecurse     = "Recurse"
)

// generic container for marshaling custom data
type jsonContainer map[string]interface{}

// MarshalPredicate encodes a predicate as a type-tagged JSON object.
func MarshalPredicate(p Predicate) ([]byte, error) {
	return marshalInterface(p)
}

// UnmarshalPredicate decodes a type-tagged JSON object into a predicate.
func UnmarshalPredicate(b []byte) (Predicate, error) {
	t, err := unmarshalInterface(b)
	if err != nil {
		return nil, err
	}
	p, ok := t.(Predicate)
	if !ok {
		return nil, serrors.New("encoded object is not a predicate",
			"type", t.Type())
	}
	return p, nil
}

// MarshalPolicy encodes a policy as a type-tagged JSON object.
func MarshalPolicy(p Policy) ([]byte, error) {
	return marshalInterface(p)
}

// UnmarshalPolicy decodes a type-tagged JSON object into a policy.
func UnmarshalPolicy(b []byte) (Policy, error) {
	t, err := unmarshalInterface(b)
	if err != nil {
		return nil, err
	}
	p, ok := t.(Policy)
	if !ok {
		return nil, serrors.New("encoded object is not a policy",
			"type", t.Type())
	}
	return p, nil
}

func marshalInterface(v any) ([]byte, error) {
	t, ok := v.(Typer)
	if !ok {
		return nil, serrors.New("object is not serializable",
			"object", fmt.Sprintf("%v", v))
	}
	return json.Marshal(jsonContainer{t.Type(): t})
}

// unmarshalInterface receives a JSON encoded object with a single field
// whose key is a type and value is the JSON encoding of an object of that
// type, and returns an interface containing that concrete type.
func unmarshalInterface(b []byte) (Typer, error) {
	var container map[string]*json.RawMessage
	if err := json.Unmarshal(b, &container); err != nil {
		return nil, err
	}
	for k, v := range container {
		raw := []byte("null")
		if v != nil {
			raw = *v
		}
		switch k {
		case TypeAllPackets:
			return AllPackets.(constPredicate), nil
		case TypeNoPackets:
			return NoPackets.(constPredicate), nil
		case TypeMatch:
			var p Match
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypeIngressNetwork:
			return NewIngressNetwork(), nil
		case TypeEgressNetwork:
			return NewEgressNetwork(), nil
		case TypeUnion:
			var p Union
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypeIntersect:
			var p Intersect
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypeNegate:
			var p Negate
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypeDifference:
			var p Difference
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypePassthrough:
			return Passthrough.(passthroughPolicy), nil
		case TypeDrop:
			return Drop.(dropPolicy), nil
		case TypePush:
			var p Push
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypePop:
			var p Pop
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypeModify:
			var p Modify
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypeCopy:
			var p Copy
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypeMove:
			var p Move
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypeFwd:
			var p Fwd
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypeFlood:
			return NewFlood(), nil
		case TypeRestrict:
			var p Restrict
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypeRemove:
			var p Remove
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypeIf:
			var p If
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypeParallel:
			var p Parallel
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypeSequential:
			var p Sequential
			err := json.Unmarshal(raw, &p)
			return &p, err
		case TypeRecurse:
			var p Recurse
			err := json.Unmarshal(raw, &p)
			return &p, err
		default:
			return nil, serrors.New("unknown type", "type", k)
		}
	}
	return nil, serrors.New("empty type container")
}

func marshalPredicateSlice(preds []Predicate) ([]byte, error) {
	var jsons []*json.RawMessage
	for _, p := range preds {
		b, err := marshalInterface(p)
		if err != nil {
			return nil, err
		}
		jsons = append(jsons, (*json.RawMessage)(&b))
	}
	return json.Marshal(jsons)
}

func unmarshalPredicateSlice(b []byte) ([]Predicate, error) {
	var jsons []*json.RawMessage
	if err := json.Unmarshal(b, &jsons); err != nil {
		return nil, err
	}
	var preds []Predicate
	for _, v := range jsons {
		p, err := UnmarshalPredicate(*v)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func marshalPolicySlice(policies []Policy) ([]byte, error) {
	var jsons []*json.RawMessage
	for _, p := range policies {
		b, err := marshalInterface(p)
		if err != nil {
			return nil, err
		}
		jsons = append(jsons, (*json.RawMessage)(&b))
	}
	return json.Marshal(jsons)
}

func unmarshalPolicySlice(b []byte) ([]Policy, error) {
	var jsons []*json.RawMessage
	if err := json.Unmarshal(b, &jsons); err != nil {
		return nil, err
	}
	var policies []Policy
	for _, v := range jsons {
		p, err := UnmarshalPolicy(*v)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}

// Field literal encoding. Plain JSON types map to themselves; address
// values are wrapped in a single-key object naming the kind, so that the
// decoder can restore the concrete Go type. A JSON null encodes the
// absent-field requirement.

func encodeValue(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case int:
		return v, nil
	case string:
		return v, nil
	case netip.Addr:
		return jsonContainer{"ip": v.String()}, nil
	case netip.Prefix:
		return jsonContainer{"prefix": v.String()}, nil
	case packet.MAC:
		return jsonContainer{"mac": v.String()}, nil
	default:
		return nil, serrors.New("unsupported field literal",
			"type", fmt.Sprintf("%T", v))
	}
}

func decodeValue(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if v != math.Trunc(v) {
			return nil, serrors.New("non-integral numeric literal", "value", v)
		}
		return int(v), nil
	case string:
		return v, nil
	case map[string]any:
		if len(v) != 1 {
			return nil, serrors.New("malformed literal object", "keys", len(v))
		}
		for kind, inner := range v {
			s, ok := inner.(string)
			if !ok {
				return nil, serrors.New("non-string literal object value", "kind", kind)
			}
			switch kind {
			case "ip":
				addr, err := netip.ParseAddr(s)
				if err != nil {
					return nil, serrors.Wrap("parsing ip literal", err, "literal", s)
				}
				return addr, nil
			case "prefix":
				prefix, err := netip.ParsePrefix(s)
				if err != nil {
					return nil, serrors.Wrap("parsing prefix literal", err, "literal", s)
				}
				return prefix, nil
			case "mac":
				mac, err := packet.ParseMAC(s)
				if err != nil {
					return nil, serrors.Wrap("parsing mac literal", err, "literal", s)
				}
				return mac, nil
			default:
				return nil, serrors.New("unknown literal kind", "kind", kind)
			}
		}
	}
	return nil, serrors.New("unsupported literal", "value", fmt.Sprintf("%v", v))
}

func encodeValues(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for f, v := range values {
		ev, err := encodeValue(v)
		if err != nil {
			return nil, serrors.Wrap("encoding field literal", err, "field", f)
		}
		out[f] = ev
	}
	return out, nil
}

func decodeValues(raw map[string]json.RawMessage) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for f, rv := range raw {
		v, err := decodeValue(rv)
		if err != nil {
			return nil, serrors.Wrap("decoding field literal", err, "field", f)
		}
		out[f] = v
	}
	return out, nil
}

func (constPredicate) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonContainer{})
}

func (p constPredicate) Type() string {
	if p {
		return TypeAllPackets
	}
	return TypeNoPackets
}

func (m *Match) Type() string { return TypeMatch }

func (m *Match) MarshalJSON() ([]byte, error) {
	encoded, err := encodeValues(m.literals)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonContainer{"fields": encoded})
}

func (m *Match) UnmarshalJSON(b []byte) error {
	var payload struct {
		Fields map[string]json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return err
	}
	literals, err := decodeValues(payload.Fields)
	if err != nil {
		return err
	}
	decoded, err := NewMatch(literals)
	if err != nil {
		return err
	}
	m.fields, m.literals = decoded.fields, decoded.literals
	return nil
}

func (p *IngressNetwork) Type() string { return TypeIngressNetwork }

func (p *IngressNetwork) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonContainer{})
}

func (p *EgressNetwork) Type() string { return TypeEgressNetwork }

func (p *EgressNetwork) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonContainer{})
}

func (p *Union) Type() string { return TypeUnion }

func (p *Union) MarshalJSON() ([]byte, error) {
	preds, err := marshalPredicateSlice(p.preds)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonContainer{"preds": json.RawMessage(preds)})
}

func (p *Union) UnmarshalJSON(b []byte) error {
	var payload struct {
		Preds json.RawMessage `json:"preds"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return err
	}
	preds, err := unmarshalPredicateSlice(payload.Preds)
	if err != nil {
		return err
	}
	p.preds = preds
	return nil
}

func (p *Intersect) Type() string { return TypeIntersect }

func (p *Intersect) MarshalJSON() ([]byte, error) {
	preds, err := marshalPredicateSlice(p.preds)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonContainer{"preds": json.RawMessage(preds)})
}

func (p *Intersect) UnmarshalJSON(b []byte) error {
	var payload struct {
		Preds json.RawMessage `json:"preds"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return err
	}
	preds, err := unmarshalPredicateSlice(payload.Preds)
	if err != nil {
		return err
	}
	p.preds = preds
	return nil
}

func (p *Negate) Type() string { return TypeNegate }

func (p *Negate) MarshalJSON() ([]byte, error) {
	pred, err := marshalInterface(p.pred)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonContainer{"pred": json.RawMessage(pred)})
}

func (p *Negate) UnmarshalJSON(b []byte) error {
	var payload struct {
		Pred json.RawMessage `json:"pred"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return err
	}
	pred, err := UnmarshalPredicate(payload.Pred)
	if err != nil {
		return err
	}
	p.pred = pred
	return nil
}

func (p *Difference) Type() string { return TypeDifference }

func (p *Difference) MarshalJSON() ([]byte, error) {
	a, err := marshalInterface(p.a)
	if err != nil {
		return nil, err
	}
	b, err := marshalInterface(p.b)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonContainer{
		"a": json.RawMessage(a),
		"b": json.RawMessage(b),
	})
}

func (p *Difference) UnmarshalJSON(b []byte) error {
	var payload struct {
		A json.RawMessage `json:"a"`
		B json.RawMessage `json:"b"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return err
	}
	a, err := UnmarshalPredicate(payload.A)
	if err != nil {
		return err
	}
	sub, err := UnmarshalPredicate(payload.B)
	if err != nil {
		return err
	}
	decoded := NewDifference(a, sub)
	p.a, p.b, p.derived = decoded.a, decoded.b, decoded.derived
	return nil
}

func (passthroughPolicy) Type() string { return TypePassthrough }

func (passthroughPolicy) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonContainer{})
}

func (dropPolicy) Type() string { return TypeDrop }

func (dropPolicy) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonContainer{})
}

func (p *Push) Type() string { return TypePush }

func (p *Push) MarshalJSON() ([]byte, error) {
	encoded, err := encodeValues(p.values)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonContainer{"values": encoded})
}

func (p *Push) UnmarshalJSON(b []byte) error {
	values, err := unmarshalEditValues(b)
	if err != nil {
		return err
	}
	p.values = values
	return nil
}

func (p *Pop) Type() string { return TypePop }

func (p *Pop) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonContainer{"fields": p.fields})
}

func (p *Pop) UnmarshalJSON(b []byte) error {
	var payload struct {
		Fields []string `json:"fields"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return err
	}
	p.fields = payload.Fields
	return nil
}

func (p *Modify) Type() string { return TypeModify }

func (p *Modify) MarshalJSON() ([]byte, error) {
	encoded, err := encodeValues(p.values)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonContainer{"values": encoded})
}

func (p *Modify) UnmarshalJSON(b []byte) error {
	values, err := unmarshalEditValues(b)
	if err != nil {
		return err
	}
	p.values = values
	return nil
}

func unmarshalEditValues(b []byte) (map[string]any, error) {
	var payload struct {
		Values map[string]json.RawMessage `json:"values"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, err
	}
	return decodeValues(payload.Values)
}

func (p *Copy) Type() string { return TypeCopy }

func (p *Copy) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonContainer{"mapping": p.mapping})
}

func (p *Copy) UnmarshalJSON(b []byte) error {
	mapping, err := unmarshalMapping(b)
	if err != nil {
		return err
	}
	p.mapping = mapping
	return nil
}

func (p *Move) Type() string { return TypeMove }

func (p *Move) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonContainer{"mapping": p.mapping})
}

func (p *Move) UnmarshalJSON(b []byte) error {
	mapping, err := unmarshalMapping(b)
	if err != nil {
		return err
	}
	p.mapping = mapping
	return nil
}

func unmarshalMapping(b []byte) (map[string]string, error) {
	var payload struct {
		Mapping map[string]string `json:"mapping"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, err
	}
	return payload.Mapping, nil
}

func (p *Fwd) Type() string { return TypeFwd }

func (p *Fwd) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonContainer{"port": p.port})
}

func (p *Fwd) UnmarshalJSON(b []byte) error {
	var payload struct {
		Port int `json:"port"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return err
	}
	decoded := NewFwd(payload.Port)
	p.port, p.derived = decoded.port, decoded.derived
	return nil
}

func (p *Flood) Type() string { return TypeFlood }

func (p *Flood) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonContainer{})
}

func (p *Restrict) Type() string { return TypeRestrict }

func (p *Restrict) MarshalJSON() ([]byte, error) {
	return marshalGated(p.policy, p.pred)
}

func (p *Restrict) UnmarshalJSON(b []byte) error {
	policy, pred, err := unmarshalGated(b)
	if err != nil {
		return err
	}
	p.policy, p.pred = policy, pred
	return nil
}

func (p *Remove) Type() string { return TypeRemove }

func (p *Remove) MarshalJSON() ([]byte, error) {
	return marshalGated(p.policy, p.pred)
}

func (p *Remove) UnmarshalJSON(b []byte) error {
	policy, pred, err := unmarshalGated(b)
	if err != nil {
		return err
	}
	p.policy, p.pred = policy, pred
	return nil
}

func marshalGated(policy Policy, pred Predicate) ([]byte, error) {
	pol, err := marshalInterface(policy)
	if err != nil {
		return nil, err
	}
	pr, err := marshalInterface(pred)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonContainer{
		"policy": json.RawMessage(pol),
		"pred":   json.RawMessage(pr),
	})
}

func unmarshalGated(b []byte) (Policy, Predicate, error) {
	var payload struct {
		Policy json.RawMessage `json:"policy"`
		Pred   json.RawMessage `json:"pred"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, nil, err
	}
	policy, err := UnmarshalPolicy(payload.Policy)
	if err != nil {
		return nil, nil, err
	}
	pred, err := UnmarshalPredicate(payload.Pred)
	if err != nil {
		return nil, nil, err
	}
	return policy, pred, nil
}

func (p *If) Type() string { return TypeIf }

func (p *If) MarshalJSON() ([]byte, error) {
	pred, err := marshalInterface(p.pred)
	if err != nil {
		return nil, err
	}
	then, err := marshalInterface(p.then)
	if err != nil {
		return nil, err
	}
	els, err := marshalInterface(p.els)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonContainer{
		"pred": json.RawMessage(pred),
		"then": json.RawMessage(then),
		"else": json.RawMessage(els),
	})
}

func (p *If) UnmarshalJSON(b []byte) error {
	var payload struct {
		Pred json.RawMessage `json:"pred"`
		Then json.RawMessage `json:"then"`
		Else json.RawMessage `json:"else"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return err
	}
	pred, err := UnmarshalPredicate(payload.Pred)
	if err != nil {
		return err
	}
	then, err := UnmarshalPolicy(payload.Then)
	if err != nil {
		return err
	}
	var els Policy
	if len(payload.Else) > 0 {
		if els, err = UnmarshalPolicy(payload.Else); err != nil {
			return err
		}
	}
	decoded := NewIf(pred, then, els)
	p.pred, p.then, p.els, p.derived = decoded.pred, decoded.then, decoded.els, decoded.derived
	return nil
}

func (p *Parallel) Type() string { return TypeParallel }

func (p *Parallel) MarshalJSON() ([]byte, error) {
	policies, err := marshalPolicySlice(p.policies)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonContainer{"policies": json.RawMessage(policies)})
}

func (p *Parallel) UnmarshalJSON(b []byte) error {
	policies, err := unmarshalComposite(b)
	if err != nil {
		return err
	}
	p.policies = policies
	return nil
}

func (p *Sequential) Type() string { return TypeSequential }

func (p *Sequential) MarshalJSON() ([]byte, error) {
	policies, err := marshalPolicySlice(p.policies)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonContainer{"policies": json.RawMessage(policies)})
}

func (p *Sequential) UnmarshalJSON(b []byte) error {
	policies, err := unmarshalComposite(b)
	if err != nil {
		return err
	}
	p.policies = policies
	return nil
}

func unmarshalComposite(b []byte) ([]Policy, error) {
	var payload struct {
		Policies json.RawMessage `json:"policies"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, err
	}
	return unmarshalPolicySlice(payload.Policies)
}

func (p *Recurse) Type() string { return TypeRecurse }

func (p *Recurse) MarshalJSON() ([]byte, error) {
	policy, err := marshalInterface(p.policy)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonContainer{"policy": json.RawMessage(policy)})
}

func (p *Recurse) UnmarshalJSON(b []byte) error {
	var payload struct {
		Policy json.RawMessage `json:"policy"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return err
	}
	policy, err := UnmarshalPolicy(payload.Policy)
	if err != nil {
		return err
	}
	p.policy = policy
	return nil
}
