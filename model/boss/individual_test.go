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

package boss

import (
	"bytes"
	"context"
	"testing"

	"github.com/gorse-io/tempo/dataset"
	"github.com/gorse-io/tempo/sfa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndividual(t *testing.T) {
	_, err := NewIndividual(8, 16, 4, true)
	assert.Error(t, err)
	_, err = NewIndividual(16, 8, 1, true)
	assert.Error(t, err)
	_, err = NewIndividual(16, 0, 4, true)
	assert.Error(t, err)

	individual, err := NewIndividual(16, 8, 4, true)
	require.NoError(t, err)
	assert.Equal(t, 16, individual.Window())
	assert.Equal(t, 8, individual.WordLength())
	assert.Equal(t, 4, individual.Alphabet())
	assert.True(t, individual.Norm())
	assert.Equal(t, -1.0, individual.Accuracy())
}

func TestIndividual_Fit(t *testing.T) {
	individual, err := NewIndividual(16, 8, 4, true)
	require.NoError(t, err)
	assert.Error(t, individual.Fit(nil))
	assert.Error(t, individual.Fit(dataset.NewDataset(0)))
	_, err = individual.Predict([][]float32{make([]float32, 40)}, 1)
	assert.Error(t, err)

	// window wider than the series
	wide, err := NewIndividual(50, 8, 4, true)
	require.NoError(t, err)
	train := newTwoClassDataset(t, 12, 40, 1)
	assert.Error(t, wide.Fit(train))

	require.NoError(t, individual.Fit(train))
}

func TestIndividual_Predict(t *testing.T) {
	train := newTwoClassDataset(t, 20, 40, 0)
	individual, err := NewIndividual(16, 8, 4, true)
	require.NoError(t, err)
	require.NoError(t, individual.Fit(train))

	// a training series is its own nearest neighbor
	predictions, err := individual.Predict(train.GetSeries(), 1)
	require.NoError(t, err)
	assert.Equal(t, train.GetLabels(), predictions)

	// worker count does not change predictions
	parallelPredictions, err := individual.Predict(train.GetSeries(), 4)
	require.NoError(t, err)
	assert.Equal(t, predictions, parallelPredictions)
}

func TestIndividual_TrainPredict(t *testing.T) {
	train := newTwoClassDataset(t, 20, 40, 0)
	individual, err := NewIndividual(16, 8, 4, true)
	require.NoError(t, err)
	require.NoError(t, individual.Fit(train))
	for i := 0; i < train.Count(); i++ {
		assert.Contains(t, []string{"fast", "slow"}, individual.TrainPredict(i))
	}
	accuracy, err := Evaluate(context.Background(), individual, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, accuracy, 0.8)
}

func TestIndividual_Shorten(t *testing.T) {
	train := newTwoClassDataset(t, 12, 40, 2)
	individual, err := NewIndividual(16, 8, 4, false)
	require.NoError(t, err)
	require.NoError(t, individual.Fit(train))

	// shortening to the current length reproduces the bags
	same, err := individual.Shorten(8)
	require.NoError(t, err)
	assert.Equal(t, individual.bags, same.bags)
	assert.Equal(t, -1.0, same.accuracy)

	// a shortened individual equals one rebuilt from scratch at that length
	shortened, err := individual.Shorten(4)
	require.NoError(t, err)
	rebuilt, err := NewIndividual(16, 4, 4, false)
	require.NoError(t, err)
	require.NoError(t, rebuilt.Fit(train))
	assert.Equal(t, rebuilt.bags, shortened.bags)

	_, err = individual.Shorten(10)
	assert.Error(t, err)
}

func TestIndividual_Clean(t *testing.T) {
	train := newTwoClassDataset(t, 12, 40, 2)
	individual, err := NewIndividual(16, 8, 4, true)
	require.NoError(t, err)
	require.NoError(t, individual.Fit(train))

	derived, err := individual.Shorten(6)
	require.NoError(t, err)
	individual.Clean()
	_, err = individual.Shorten(6)
	assert.Error(t, err)
	// derived individuals keep their own word reference
	_, err = derived.Shorten(4)
	assert.NoError(t, err)
	// prediction only needs the bags
	predictions, err := individual.Predict(train.GetSeries(), 1)
	require.NoError(t, err)
	assert.Len(t, predictions, train.Count())
}

func TestIndividual_WithDistance(t *testing.T) {
	train := newTwoClassDataset(t, 12, 40, 5)
	calls := 0
	individual, err := NewIndividual(16, 8, 4, true, WithDistance(func(a, b sfa.Bag, cutoff float64) float64 {
		calls++
		return BOSSDistance(a, b, cutoff)
	}))
	require.NoError(t, err)
	require.NoError(t, individual.Fit(train))
	individual.TrainPredict(0)
	assert.Equal(t, train.Count()-1, calls)
}

func TestIndividual_Marshal(t *testing.T) {
	train := newTwoClassDataset(t, 12, 40, 4)
	individual, err := NewIndividual(16, 8, 4, true)
	require.NoError(t, err)
	require.NoError(t, individual.Fit(train))
	individual.accuracy = 0.875

	buf := bytes.NewBuffer(nil)
	require.NoError(t, individual.Marshal(buf))
	loaded := new(Individual)
	require.NoError(t, loaded.Unmarshal(buf))

	assert.Equal(t, individual.Window(), loaded.Window())
	assert.Equal(t, individual.WordLength(), loaded.WordLength())
	assert.Equal(t, individual.Alphabet(), loaded.Alphabet())
	assert.Equal(t, individual.Norm(), loaded.Norm())
	assert.Equal(t, individual.Accuracy(), loaded.Accuracy())
	assert.Equal(t, individual.bags, loaded.bags)

	expected, err := individual.Predict(train.GetSeries(), 1)
	require.NoError(t, err)
	actual, err := loaded.Predict(train.GetSeries(), 1)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)

	// word sequences are not persisted
	_, err = loaded.Shorten(4)
	assert.Error(t, err)
}
