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
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"

	"github.com/gorse-io/tempo/base"
)

// Dataset is an in-memory panel of fixed-length series with one class label
// per series. All series share the length of the first series added.
type Dataset struct {
	series    [][]float32
	labels    []string
	labelDict *FreqDict
	seriesLen int
}

func NewDataset(capacity int) *Dataset {
	return &Dataset{
		series:    make([][]float32, 0, capacity),
		labels:    make([]string, 0, capacity),
		labelDict: NewFreqDict(),
	}
}

// AddSeries appends a labeled series. The first series fixes the length every
// later series must match.
func (d *Dataset) AddSeries(label string, series []float32) error {
	if len(series) == 0 {
		return errors.New("empty series")
	}
	if d.seriesLen == 0 {
		d.seriesLen = len(series)
	} else if len(series) != d.seriesLen {
		return errors.Errorf("series length mismatch: expect %d, got %d", d.seriesLen, len(series))
	}
	d.series = append(d.series, series)
	d.labels = append(d.labels, label)
	d.labelDict.Id(label)
	return nil
}

// Count returns the number of series.
func (d *Dataset) Count() int {
	return len(d.series)
}

// SeriesLength returns the shared series length, 0 for an empty dataset.
func (d *Dataset) SeriesLength() int {
	return d.seriesLen
}

func (d *Dataset) GetSeries() [][]float32 {
	return d.series
}

func (d *Dataset) GetLabels() []string {
	return d.labels
}

// GetLabelDict returns the class dictionary in first-seen order. Frequencies
// are per-class instance counts.
func (d *Dataset) GetLabelDict() *FreqDict {
	return d.labelDict
}

// CountClasses returns the number of distinct labels.
func (d *Dataset) CountClasses() int {
	return d.labelDict.Count()
}

// Split splits the dataset into a training set and a test set. testRatio of
// the series are sampled into the test set without replacement.
func (d *Dataset) Split(testRatio float64, seed int64) (*Dataset, *Dataset) {
	testSize := int(float64(d.Count()) * testRatio)
	rng := base.NewRandomGenerator(seed)
	testIndices := mapset.NewSet(rng.Sample(0, d.Count(), testSize)...)
	trainSet := NewDataset(d.Count() - testSize)
	testSet := NewDataset(testSize)
	for i := range d.series {
		if testIndices.Contains(i) {
			testSet.series = append(testSet.series, d.series[i])
			testSet.labels = append(testSet.labels, d.labels[i])
			testSet.labelDict.Id(d.labels[i])
			testSet.seriesLen = d.seriesLen
		} else {
			trainSet.series = append(trainSet.series, d.series[i])
			trainSet.labels = append(trainSet.labels, d.labels[i])
			trainSet.labelDict.Id(d.labels[i])
			trainSet.seriesLen = d.seriesLen
		}
	}
	return trainSet, testSet
}
