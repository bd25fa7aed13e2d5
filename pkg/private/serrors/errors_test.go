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

package serrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-sdn/meridian/pkg/private/serrors"
)

func TestWrapPreservesCause(t *testing.T) {
	sentinel := errors.New("boom")
	err := serrors.Wrap("loading topology", sentinel, "path", "/tmp/topo.toml")
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "loading topology")
	assert.Contains(t, err.Error(), "path=/tmp/topo.toml")
	assert.Contains(t, err.Error(), "boom")
}

func TestNewSortsContext(t *testing.T) {
	err := serrors.New("bad pattern", "mask", 40, "field", "srcip")
	assert.Equal(t, "bad pattern {field=srcip; mask=40}", err.Error())
}

func TestJoin(t *testing.T) {
	sentinel := errors.New("not marshalable")
	cause := errors.New("inner")
	err := serrors.Join(sentinel, cause, "type", "bucket")
	assert.ErrorIs(t, err, sentinel)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, serrors.Join(nil, nil))
}

func TestList(t *testing.T) {
	var errs serrors.List
	assert.NoError(t, errs.ToError())
	errs = append(errs, errors.New("a"), errors.New("b"))
	assert.Equal(t, "[ a; b ]", errs.ToError().Error())
}
