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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataset_AddSeries(t *testing.T) {
	d := NewDataset(4)
	assert.NoError(t, d.AddSeries("up", []float32{1, 2, 3}))
	assert.NoError(t, d.AddSeries("down", []float32{3, 2, 1}))
	assert.NoError(t, d.AddSeries("up", []float32{2, 3, 4}))
	assert.Equal(t, 3, d.Count())
	assert.Equal(t, 3, d.SeriesLength())
	assert.Equal(t, 2, d.CountClasses())
	assert.Equal(t, []string{"up", "down", "up"}, d.GetLabels())
	assert.Equal(t, []string{"up", "down"}, d.GetLabelDict().Strings())
	assert.Equal(t, 2, d.GetLabelDict().Freq(0))
	assert.Equal(t, 1, d.GetLabelDict().Freq(1))

	// length mismatch
	assert.Error(t, d.AddSeries("up", []float32{1, 2}))
	// empty series
	assert.Error(t, d.AddSeries("up", nil))
	assert.Equal(t, 3, d.Count())
}

func TestDataset_Split(t *testing.T) {
	d := NewDataset(10)
	for i := 0; i < 10; i++ {
		label := "a"
		if i%2 == 1 {
			label = "b"
		}
		assert.NoError(t, d.AddSeries(label, []float32{float32(i), float32(i + 1)}))
	}
	trainSet, testSet := d.Split(0.3, 0)
	assert.Equal(t, 7, trainSet.Count())
	assert.Equal(t, 3, testSet.Count())
	assert.Equal(t, 2, trainSet.SeriesLength())
	assert.Equal(t, 2, testSet.SeriesLength())
	// deterministic under a fixed seed
	train2, test2 := d.Split(0.3, 0)
	assert.Equal(t, trainSet.GetSeries(), train2.GetSeries())
	assert.Equal(t, testSet.GetLabels(), test2.GetLabels())
}
