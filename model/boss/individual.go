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
	"context"
	"encoding/binary"
	"io"
	"math"

	"github.com/gorse-io/tempo/base/encoding"
	"github.com/gorse-io/tempo/common/parallel"
	"github.com/gorse-io/tempo/dataset"
	"github.com/gorse-io/tempo/sfa"
	"github.com/juju/errors"
)

// Individual is a single 1-nearest-neighbor classifier over bags encoded
// with one (window, wordLength, alphabet, norm) configuration.
type Individual struct {
	transform *sfa.SFA
	bags      []sfa.Bag
	labels    []string
	accuracy  float64
	distance  Distance
	noShorten bool
}

// Option configures an individual classifier.
type Option func(*Individual)

// WithDistance substitutes the bag distance.
func WithDistance(distance Distance) Option {
	return func(ind *Individual) {
		ind.distance = distance
	}
}

// WithoutShortening builds the transform without word saving. Fitting is
// cheaper on memory, but Shorten is unavailable.
func WithoutShortening() Option {
	return func(ind *Individual) {
		ind.noShorten = true
	}
}

// NewIndividual creates an unfitted classifier. Configuration errors are
// reported at construction.
func NewIndividual(window, wordLength, alphabet int, norm bool, opts ...Option) (*Individual, error) {
	ind := &Individual{
		accuracy: -1,
		distance: BOSSDistance,
	}
	for _, opt := range opts {
		opt(ind)
	}
	var sfaOpts []sfa.Option
	if ind.noShorten {
		sfaOpts = append(sfaOpts, sfa.WithoutWordSaving())
	}
	transform, err := sfa.New(window, wordLength, alphabet, norm, sfaOpts...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ind.transform = transform
	return ind, nil
}

// Fit encodes every training series into a bag. Accuracy is not computed.
func (ind *Individual) Fit(trainSet *dataset.Dataset) error {
	if trainSet == nil || trainSet.Count() == 0 {
		return errors.New("empty training set")
	}
	if ind.transform.Window() > trainSet.SeriesLength() {
		return errors.Errorf("window %d exceeds series length %d",
			ind.transform.Window(), trainSet.SeriesLength())
	}
	bags, err := ind.transform.FitTransform(trainSet.GetSeries())
	if err != nil {
		return errors.Trace(err)
	}
	ind.bags = bags
	ind.labels = trainSet.GetLabels()
	return nil
}

// nearest returns the label of the training bag closest to query, skipping
// the excluded training index. Ties keep the lowest training index.
func (ind *Individual) nearest(query sfa.Bag, exclude int) string {
	bestDist := math.MaxFloat64
	var label string
	for n, bag := range ind.bags {
		if n == exclude {
			continue
		}
		dist := ind.distance(query, bag, bestDist)
		if dist < bestDist {
			bestDist = dist
			label = ind.labels[n]
		}
	}
	return label
}

// Predict returns the nearest neighbor label of each series.
func (ind *Individual) Predict(series [][]float32, jobs int) ([]string, error) {
	if len(ind.bags) == 0 {
		return nil, errors.New("individual is not fitted")
	}
	bags, err := ind.transform.Transform(series)
	if err != nil {
		return nil, errors.Trace(err)
	}
	predictions := make([]string, len(bags))
	if err = parallel.For(context.Background(), len(bags), jobs, func(i int) {
		predictions[i] = ind.nearest(bags[i], -1)
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return predictions, nil
}

// TrainPredict classifies training instance i against all other training
// instances, reusing the stored bag of i as the query.
func (ind *Individual) TrainPredict(i int) string {
	return ind.nearest(ind.bags[i], i)
}

// Shorten derives an individual with a smaller word length. Bags are rebuilt
// from the saved word sequences, the window is not re-slid.
func (ind *Individual) Shorten(wordLength int) (*Individual, error) {
	transform, bags, err := ind.transform.Shorten(wordLength)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Individual{
		transform: transform,
		bags:      bags,
		labels:    ind.labels,
		accuracy:  -1,
		distance:  ind.distance,
	}, nil
}

// Clean drops the saved word sequences once the individual is confirmed for
// retention. Individuals derived through Shorten keep their own reference.
func (ind *Individual) Clean() {
	ind.transform.DropWords()
}

// Accuracy returns the cached leave-one-out accuracy, -1 until evaluated.
func (ind *Individual) Accuracy() float64 {
	return ind.accuracy
}

// Window returns the sliding window size.
func (ind *Individual) Window() int {
	return ind.transform.Window()
}

// WordLength returns the number of letters per word.
func (ind *Individual) WordLength() int {
	return ind.transform.WordLength()
}

// Alphabet returns the alphabet size.
func (ind *Individual) Alphabet() int {
	return ind.transform.Alphabet()
}

// Norm reports whether windows are z-normalized.
func (ind *Individual) Norm() bool {
	return ind.transform.Norm()
}

// Marshal writes a predict-capable snapshot of the individual.
func (ind *Individual) Marshal(w io.Writer) error {
	if err := ind.transform.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, ind.labels); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, ind.accuracy); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(ind.bags))); err != nil {
		return errors.Trace(err)
	}
	for _, bag := range ind.bags {
		words := make([]uint64, 0, len(bag))
		counts := make([]uint64, 0, len(bag))
		for word, count := range bag {
			words = append(words, uint64(word))
			counts = append(counts, uint64(count))
		}
		if err := encoding.WriteUint64s(w, words); err != nil {
			return errors.Trace(err)
		}
		if err := encoding.WriteUint64s(w, counts); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// Unmarshal reads an individual written by Marshal.
func (ind *Individual) Unmarshal(r io.Reader) error {
	ind.transform = &sfa.SFA{}
	if err := ind.transform.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &ind.labels); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &ind.accuracy); err != nil {
		return errors.Trace(err)
	}
	var numBags int32
	if err := binary.Read(r, binary.LittleEndian, &numBags); err != nil {
		return errors.Trace(err)
	}
	ind.bags = make([]sfa.Bag, numBags)
	for i := range ind.bags {
		words, err := encoding.ReadUint64s(r)
		if err != nil {
			return errors.Trace(err)
		}
		counts, err := encoding.ReadUint64s(r)
		if err != nil {
			return errors.Trace(err)
		}
		if len(words) != len(counts) {
			return errors.New("corrupted bag")
		}
		bag := make(sfa.Bag, len(words))
		for j, word := range words {
			bag[sfa.Word(word)] = int(counts[j])
		}
		ind.bags[i] = bag
	}
	if ind.distance == nil {
		ind.distance = BOSSDistance
	}
	return nil
}
