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

import "encoding/json"

// PredicateMap is a container for named traffic classes. It can be used to
// marshal a set of predicates to JSON; unmarshaling back is guaranteed to
// yield an equivalent map.
type PredicateMap map[string]Predicate

func (pm PredicateMap) MarshalJSON() ([]byte, error) {
	m := make(map[string]*json.RawMessage)
	for k, v := range pm {
		b, err := MarshalPredicate(v)
		if err != nil {
			return nil, err
		}
		m[k] = (*json.RawMessage)(&b)
	}
	if len(m) == 0 {
		m = nil
	}
	return json.Marshal(m)
}

func (pm *PredicateMap) UnmarshalJSON(b []byte) error {
	var m map[string]*json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*pm = make(map[string]Predicate)
	for k, v := range m {
		pred, err := UnmarshalPredicate(*v)
		if err != nil {
			return err
		}
		(*pm)[k] = pred
	}
	if len(*pm) == 0 {
		*pm = nil
	}
	return nil
}

// PolicyMap is a container for named policies, the policy-side analogue of
// PredicateMap.
type PolicyMap map[string]Policy

func (pm PolicyMap) MarshalJSON() ([]byte, error) {
	m := make(map[string]*json.RawMessage)
	for k, v := range pm {
		b, err := MarshalPolicy(v)
		if err != nil {
			return nil, err
		}
		m[k] = (*json.RawMessage)(&b)
	}
	if len(m) == 0 {
		m = nil
	}
	return json.Marshal(m)
}

func (pm *PolicyMap) UnmarshalJSON(b []byte) error {
	var m map[string]*json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*pm = make(map[string]Policy)
	for k, v := range m {
		policy, err := UnmarshalPolicy(*v)
		if err != nil {
			return err
		}
		(*pm)[k] = policy
	}
	if len(*pm) == 0 {
		*pm = nil
	}
	return nil
}
