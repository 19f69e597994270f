// Copyright 2025 tempo Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package model

import (
	"bytes"
	"testing"

	"github.com/gorse-io/tempo/base/encoding"
	"github.com/stretchr/testify/assert"
)

func TestParams_Copy(t *testing.T) {
	// Create parameters
	a := Params{
		AlphabetSize: 4,
		Threshold:    0.92,
		RandomState:  0,
	}
	// Create copy
	b := a.Copy()
	b[AlphabetSize] = 8
	b[Threshold] = 0.8
	b[RandomState] = 1
	// Check original parameters
	assert.Equal(t, 4, a.GetInt(AlphabetSize, -1))
	assert.Equal(t, 0.92, a.GetFloat64(Threshold, -0.1))
	assert.Equal(t, int64(0), a.GetInt64(RandomState, -1))
	// Check copy parameters
	assert.Equal(t, 8, b.GetInt(AlphabetSize, -1))
	assert.Equal(t, 0.8, b.GetFloat64(Threshold, -0.1))
	assert.Equal(t, int64(1), b.GetInt64(RandomState, -1))
}

func TestParams_GetFloat64(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, 0.1, p.GetFloat64(Threshold, 0.1))
	// Normal case
	p[Threshold] = 1.0
	assert.Equal(t, 1.0, p.GetFloat64(Threshold, 0.1))
	// Wrong type case
	p[Threshold] = 1
	assert.Equal(t, 1.0, p.GetFloat64(Threshold, 0.1))
	p[Threshold] = "hello"
	assert.Equal(t, 0.1, p.GetFloat64(Threshold, 0.1))
}

func TestParams_GetInt(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, -1, p.GetInt(AlphabetSize, -1))
	// Normal case
	p[AlphabetSize] = 0
	assert.Equal(t, 0, p.GetInt(AlphabetSize, -1))
	// Wrong type case
	p[AlphabetSize] = "hello"
	assert.Equal(t, -1, p.GetInt(AlphabetSize, -1))
}

func TestParams_GetInt64(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, int64(-1), p.GetInt64(RandomState, -1))
	// Normal case
	p[RandomState] = int64(0)
	assert.Equal(t, int64(0), p.GetInt64(RandomState, -1))
	// Wrong type case
	p[RandomState] = 0
	assert.Equal(t, int64(0), p.GetInt64(RandomState, -1))
	p[RandomState] = "hello"
	assert.Equal(t, int64(-1), p.GetInt64(RandomState, -1))
}

func TestParams_GetBool(t *testing.T) {
	p := Params{}
	// Empty case
	assert.True(t, p.GetBool(Randomized, true))
	// Normal case
	p[Randomized] = false
	assert.False(t, p.GetBool(Randomized, true))
	// Wrong type case
	p[Randomized] = "hello"
	assert.True(t, p.GetBool(Randomized, true))
}

func TestParams_GetInts(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, []int{16, 14}, p.GetInts(WordLengths, []int{16, 14}))
	// Normal case
	p[WordLengths] = []int{8, 6}
	assert.Equal(t, []int{8, 6}, p.GetInts(WordLengths, []int{16, 14}))
	// Wrong type case
	p[WordLengths] = "hello"
	assert.Equal(t, []int{16, 14}, p.GetInts(WordLengths, []int{16, 14}))
}

func TestParams_GetBools(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, []bool{true, false}, p.GetBools(NormOptions, []bool{true, false}))
	// Normal case
	p[NormOptions] = []bool{false}
	assert.Equal(t, []bool{false}, p.GetBools(NormOptions, []bool{true, false}))
	// Wrong type case
	p[NormOptions] = 1
	assert.Equal(t, []bool{true, false}, p.GetBools(NormOptions, []bool{true, false}))
}

func TestParams_Overwrite(t *testing.T) {
	a := Params{
		AlphabetSize: 4,
		Threshold:    0.92,
	}
	b := a.Overwrite(Params{
		Threshold:     0.8,
		MinWindowSize: 12,
	})
	assert.Equal(t, 4, b.GetInt(AlphabetSize, -1))
	assert.Equal(t, 0.8, b.GetFloat64(Threshold, -0.1))
	assert.Equal(t, 12, b.GetInt(MinWindowSize, -1))
	// original is untouched
	assert.Equal(t, 0.92, a.GetFloat64(Threshold, -0.1))
	assert.Equal(t, -1, a.GetInt(MinWindowSize, -1))
}

func TestParams_Gob(t *testing.T) {
	a := Params{
		Randomized:   false,
		AlphabetSize: 4,
		Threshold:    0.92,
		RandomState:  int64(42),
		WordLengths:  []int{16, 14, 12},
		NormOptions:  []bool{true, false},
	}
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, encoding.WriteGob(buf, a))
	var b Params
	assert.NoError(t, encoding.ReadGob(buf, &b))
	assert.Equal(t, a, b)
}

func TestParamsGrid(t *testing.T) {
	grid := ParamsGrid{
		AlphabetSize:  []interface{}{2, 4, 8},
		MinWindowSize: []interface{}{8, 10},
	}
	assert.Equal(t, 2, grid.Len())
	assert.Equal(t, 6, grid.NumCombinations())
	grid.Fill(ParamsGrid{
		AlphabetSize: []interface{}{16},
		Threshold:    []interface{}{0.92, 0.95},
	})
	assert.Equal(t, []interface{}{2, 4, 8}, grid[AlphabetSize])
	assert.Equal(t, []interface{}{0.92, 0.95}, grid[Threshold])
	assert.Equal(t, 12, grid.NumCombinations())
}
