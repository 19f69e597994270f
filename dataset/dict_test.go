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

package dataset

import (
	"math/rand"
	"testing"

	"github.com/jaswdr/faker"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestFreqDict(t *testing.T) {
	dict := NewFreqDict()
	assert.Equal(t, 0, dict.Id("a"))
	assert.Equal(t, 1, dict.Id("b"))
	assert.Equal(t, 1, dict.Id("b"))
	assert.Equal(t, 2, dict.Id("c"))
	assert.Equal(t, 2, dict.Id("c"))
	assert.Equal(t, 2, dict.Id("c"))
	assert.Equal(t, 3, dict.Count())
	assert.Equal(t, 1, dict.Freq(0))
	assert.Equal(t, 2, dict.Freq(1))
	assert.Equal(t, 3, dict.Freq(2))
	assert.Equal(t, []string{"a", "b", "c"}, dict.Strings())

	s, ok := dict.String(1)
	assert.True(t, ok)
	assert.Equal(t, "b", s)
	_, ok = dict.String(3)
	assert.False(t, ok)
}

func TestFreqDict_Words(t *testing.T) {
	f := faker.NewWithSeed(rand.NewSource(42))
	dict := NewFreqDict()
	words := make([]string, 1000)
	for i := range words {
		words[i] = f.Lorem().Word()
		dict.Id(words[i])
	}
	assert.Equal(t, len(lo.Uniq(words)), dict.Count())
	total := 0
	for id := 0; id < dict.Count(); id++ {
		total += dict.Freq(id)
	}
	assert.Equal(t, len(words), total)
	// ids and strings stay consistent across lookups
	for _, word := range words {
		s, ok := dict.String(dict.Id(word))
		assert.True(t, ok)
		assert.Equal(t, word, s)
	}
	assert.Equal(t, len(lo.Uniq(words)), dict.Count())
}

func TestFreqDict_NotCount(t *testing.T) {
	dict := NewFreqDict()
	assert.Equal(t, 0, dict.NotCount("a"))
	assert.Equal(t, 0, dict.NotCount("a"))
	assert.Equal(t, 0, dict.Freq(0))
	assert.Equal(t, 0, dict.Id("a"))
	assert.Equal(t, 1, dict.Freq(0))
}
