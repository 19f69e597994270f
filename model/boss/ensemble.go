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
	"fmt"
	"io"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/c-bata/goptuna"
	"github.com/gorse-io/tempo/base"
	"github.com/gorse-io/tempo/base/encoding"
	"github.com/gorse-io/tempo/base/log"
	"github.com/gorse-io/tempo/base/progress"
	"github.com/gorse-io/tempo/common/parallel"
	"github.com/gorse-io/tempo/dataset"
	"github.com/gorse-io/tempo/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ErrNotFitted is returned when an ensemble without members is asked to
// predict.
var ErrNotFitted = errors.New("ensemble is not fitted")

// Ensemble is the BOSS classifier: a collection of individuals selected by a
// grid search over (window, word length, normalization) with leave-one-out
// retention, voting on the class of a series.
type Ensemble struct {
	model.BaseModel
	members     []*Individual
	classes     []string
	classIndex  map[string]int
	trainLabels []string

	// Hyperparameters
	randomized      bool
	ensembleSize    int
	threshold       float64
	maxEnsembleSize int
	wordLengths     []int
	alphabetSize    int
	minWindowSize   int
	normOptions     []bool
}

// NewEnsemble creates a BOSS ensemble classifier.
func NewEnsemble(params model.Params) *Ensemble {
	e := new(Ensemble)
	e.SetParams(params)
	return e
}

// SetParams sets hyperparameters for the ensemble.
func (e *Ensemble) SetParams(params model.Params) {
	e.BaseModel.SetParams(params)
	e.randomized = e.Params.GetBool(model.Randomized, false)
	e.ensembleSize = e.Params.GetInt(model.EnsembleSize, 100)
	e.threshold = e.Params.GetFloat64(model.Threshold, 0.92)
	e.maxEnsembleSize = e.Params.GetInt(model.MaxEnsembleSize, 250)
	e.wordLengths = e.Params.GetInts(model.WordLengths, []int{16, 14, 12, 10, 8})
	e.alphabetSize = e.Params.GetInt(model.AlphabetSize, 4)
	e.minWindowSize = e.Params.GetInt(model.MinWindowSize, 10)
	e.normOptions = e.Params.GetBools(model.NormOptions, []bool{true, false})
}

func (e *Ensemble) GetParamsGrid() model.ParamsGrid {
	return model.ParamsGrid{
		model.Threshold:     []interface{}{0.8, 0.85, 0.9, 0.92, 0.95},
		model.AlphabetSize:  []interface{}{2, 3, 4, 6, 8},
		model.MinWindowSize: []interface{}{6, 8, 10, 12},
	}
}

func (e *Ensemble) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.Threshold:     lo.Must(trial.SuggestDiscreteFloat(string(model.Threshold), 0.8, 0.98, 0.02)),
		model.AlphabetSize:  lo.Must(trial.SuggestInt(string(model.AlphabetSize), 2, 8)),
		model.MinWindowSize: lo.Must(trial.SuggestInt(string(model.MinWindowSize), 6, 12)),
	}
}

// Clear resets the fitted state.
func (e *Ensemble) Clear() {
	e.members = nil
	e.classes = nil
	e.classIndex = nil
	e.trainLabels = nil
}

// Invalid reports whether the ensemble has not been fitted.
func (e *Ensemble) Invalid() bool {
	return e == nil || e.members == nil
}

// Size returns the number of retained members.
func (e *Ensemble) Size() int {
	return len(e.members)
}

// Classes returns the class labels in first-seen order, the order used by
// probability vectors.
func (e *Ensemble) Classes() []string {
	return e.classes
}

// MemberInfo describes one retained member for diagnostics.
type MemberInfo struct {
	Window     int
	WordLength int
	Alphabet   int
	Norm       bool
	Accuracy   float64
}

// Members returns the configuration of every retained member.
func (e *Ensemble) Members() []MemberInfo {
	infos := make([]MemberInfo, len(e.members))
	for i, member := range e.members {
		infos[i] = MemberInfo{
			Window:     member.Window(),
			WordLength: member.WordLength(),
			Alphabet:   member.Alphabet(),
			Norm:       member.Norm(),
			Accuracy:   member.Accuracy(),
		}
	}
	return infos
}

// windowGrid derives the window candidates: minWindow up to seriesLength
// inclusive, stepped so that about a quarter of the series length is
// searched.
func windowGrid(seriesLength, minWindow int) []int {
	winInc := (seriesLength - minWindow) * 4 / seriesLength
	if winInc < 1 {
		winInc = 1
	}
	var windows []int
	for w := minWindow; w <= seriesLength; w += winInc {
		windows = append(windows, w)
	}
	return windows
}

// worstOfBest returns the lowest accuracy among members and its earliest
// index, or -1 if there are no members.
func worstOfBest(members []*Individual) (float64, int) {
	minAcc, minIndex := -1.0, 0
	for i, member := range members {
		if minAcc < 0 || member.accuracy < minAcc {
			minAcc = member.accuracy
			minIndex = i
		}
	}
	return minAcc, minIndex
}

func buildClassIndex(classes []string) map[string]int {
	index := make(map[string]int, len(classes))
	for i, class := range classes {
		index[class] = i
	}
	return index
}

// Fit builds the ensemble from a training set, either by grid search with
// leave-one-out retention or by randomized sampling of configurations.
func (e *Ensemble) Fit(ctx context.Context, trainSet *dataset.Dataset, config *FitConfig) error {
	config = config.LoadDefaultIfNil()
	if trainSet == nil || trainSet.Count() == 0 {
		return errors.New("empty training set")
	}
	if trainSet.CountClasses() < 2 {
		return errors.Errorf("training set must contain at least 2 classes, got %d", trainSet.CountClasses())
	}
	if len(e.wordLengths) == 0 {
		return errors.New("no word length candidates")
	}
	if e.alphabetSize < 2 || e.alphabetSize > 16 {
		return errors.Errorf("alphabet size must be in [2,16], got %d", e.alphabetSize)
	}
	if e.minWindowSize < 1 || e.minWindowSize > trainSet.SeriesLength() {
		return errors.Errorf("minimum window %d is out of range for series length %d",
			e.minWindowSize, trainSet.SeriesLength())
	}
	log.Logger().Info("fit boss",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Int("series_length", trainSet.SeriesLength()),
		zap.Int("classes", trainSet.CountClasses()),
		zap.Any("params", e.GetParams()),
		zap.Any("config", config))
	windows := windowGrid(trainSet.SeriesLength(), e.minWindowSize)
	var members []*Individual
	var err error
	if e.randomized {
		members, err = e.fitRandomized(ctx, trainSet, windows, config)
	} else {
		members, err = e.fitGrid(ctx, trainSet, windows, config)
	}
	if err != nil {
		return errors.Trace(err)
	}
	if len(members) == 0 {
		return errors.New("no ensemble member retained")
	}
	e.members = members
	e.classes = trainSet.GetLabelDict().Strings()
	e.classIndex = buildClassIndex(e.classes)
	e.trainLabels = trainSet.GetLabels()
	log.Logger().Info("fit boss complete",
		zap.Int("ensemble_size", len(e.members)),
		zap.Int("classes", len(e.classes)))
	return nil
}

// fitGrid evaluates every (norm, window) cell concurrently, then applies
// threshold and size retention sequentially in cell order so the outcome is
// independent of worker scheduling.
func (e *Ensemble) fitGrid(ctx context.Context, trainSet *dataset.Dataset, windows []int, config *FitConfig) ([]*Individual, error) {
	wordLengths := make([]int, len(e.wordLengths))
	copy(wordLengths, e.wordLengths)
	sort.Sort(sort.Reverse(sort.IntSlice(wordLengths)))

	type cell struct {
		norm   bool
		window int
	}
	cells := make([]cell, 0, len(e.normOptions)*len(windows))
	for _, norm := range e.normOptions {
		for _, window := range windows {
			cells = append(cells, cell{norm: norm, window: window})
		}
	}
	candidates := make([]*Individual, len(cells))
	newCtx, span := progress.Start(ctx, "Ensemble.Fit", len(cells))
	if err := parallel.Parallel(newCtx, len(cells), config.Jobs, func(_, c int) error {
		candidate, err := e.fitCell(newCtx, trainSet, cells[c].window, cells[c].norm, wordLengths)
		if err != nil {
			return errors.Trace(err)
		}
		candidates[c] = candidate
		span.Add(1)
		return nil
	}); err != nil {
		span.Fail(err)
		return nil, errors.Trace(err)
	}
	span.End()

	var members []*Individual
	maxAcc, minMaxAcc := -1.0, -1.0
	for c, candidate := range candidates {
		if candidate == nil {
			// no usable word length for this window
			continue
		}
		accuracy := candidate.accuracy
		if accuracy < maxAcc*e.threshold {
			continue
		}
		if len(members) >= e.maxEnsembleSize && accuracy <= minMaxAcc {
			continue
		}
		members = append(members, candidate)
		if accuracy > maxAcc {
			maxAcc = accuracy
			// The best accuracy moved, so members may have fallen below the
			// threshold. Mark first, then rebuild, never remove while
			// iterating.
			evicted := bitset.New(uint(len(members)))
			for i, member := range members {
				if member.accuracy < maxAcc*e.threshold {
					evicted.Set(uint(i))
				}
			}
			if evicted.Any() {
				kept := make([]*Individual, 0, len(members))
				for i, member := range members {
					if !evicted.Test(uint(i)) {
						kept = append(kept, member)
					}
				}
				members = kept
			}
		}
		var worst int
		minMaxAcc, worst = worstOfBest(members)
		if len(members) > e.maxEnsembleSize {
			members = append(members[:worst], members[worst+1:]...)
			minMaxAcc, _ = worstOfBest(members)
		}
		if config.Verbose > 0 && (c+1)%config.Verbose == 0 {
			log.Logger().Debug(fmt.Sprintf("fit boss %v/%v", c+1, len(cells)),
				zap.Int("ensemble_size", len(members)),
				zap.Float64("max_accuracy", maxAcc))
		}
	}
	return members, nil
}

// fitCell selects the best word length for one (window, norm) cell: fit at
// the largest usable length, derive shorter ones via Shorten, keep the
// highest leave-one-out accuracy with ties favoring the shorter word.
func (e *Ensemble) fitCell(ctx context.Context, trainSet *dataset.Dataset, window int, norm bool, wordLengths []int) (*Individual, error) {
	usable := lo.Filter(wordLengths, func(wordLength, _ int) bool {
		return wordLength <= window
	})
	if len(usable) == 0 {
		return nil, nil
	}
	individual, err := NewIndividual(window, usable[0], e.alphabetSize, norm)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = individual.Fit(trainSet); err != nil {
		return nil, errors.Trace(err)
	}
	var best *Individual
	bestAccuracy := -1.0
	for n, wordLength := range usable {
		if n > 0 {
			if individual, err = individual.Shorten(wordLength); err != nil {
				return nil, errors.Trace(err)
			}
		}
		accuracy, err := Evaluate(ctx, individual, 1)
		if err != nil {
			return nil, errors.Trace(err)
		}
		individual.accuracy = accuracy
		if accuracy >= bestAccuracy {
			bestAccuracy = accuracy
			best = individual
		}
	}
	best.Clean()
	return best, nil
}

// fitRandomized samples member configurations with replacement from the
// seeded generator, then fits them concurrently. Sampling is sequential so
// the member sequence is reproducible under a fixed seed.
func (e *Ensemble) fitRandomized(ctx context.Context, trainSet *dataset.Dataset, windows []int, config *FitConfig) ([]*Individual, error) {
	type memberConfig struct {
		window     int
		wordLength int
		norm       bool
	}
	rng := e.GetRandomGenerator()
	configs := make([]memberConfig, e.ensembleSize)
	for i := range configs {
		wordLength := e.wordLengths[rng.Intn(len(e.wordLengths))]
		window := windows[rng.Intn(len(windows))]
		if wordLength > window {
			wordLength = window
		}
		configs[i] = memberConfig{
			window:     window,
			wordLength: wordLength,
			norm:       rng.Float64() > 0.5,
		}
	}
	members := make([]*Individual, len(configs))
	newCtx, span := progress.Start(ctx, "Ensemble.Fit", len(configs))
	if err := parallel.Parallel(newCtx, len(configs), config.Jobs, func(_, i int) error {
		individual, err := NewIndividual(configs[i].window, configs[i].wordLength, e.alphabetSize, configs[i].norm, WithoutShortening())
		if err != nil {
			return errors.Trace(err)
		}
		if err = individual.Fit(trainSet); err != nil {
			return errors.Trace(err)
		}
		individual.Clean()
		members[i] = individual
		span.Add(1)
		return nil
	}); err != nil {
		span.Fail(err)
		return nil, errors.Trace(err)
	}
	span.End()
	return members, nil
}

// PredictProba returns one probability vector per series: each member votes
// for a class and counts are divided by the member count. Class order
// follows Classes.
func (e *Ensemble) PredictProba(series [][]float32, jobs int) ([][]float64, error) {
	if e.Invalid() {
		return nil, ErrNotFitted
	}
	counts := base.NewMatrixInt(len(series), len(e.classes))
	for _, member := range e.members {
		predictions, err := member.Predict(series, jobs)
		if err != nil {
			return nil, errors.Trace(err)
		}
		for i, label := range predictions {
			counts[i][e.classIndex[label]]++
		}
	}
	proba := base.NewMatrix64(len(series), len(e.classes))
	for i := range proba {
		for j := range proba[i] {
			proba[i][j] = float64(counts[i][j]) / float64(len(e.members))
		}
	}
	return proba, nil
}

// Predict returns the most probable class of each series, ties broken by
// the lowest class index.
func (e *Ensemble) Predict(series [][]float32, jobs int) ([]string, error) {
	proba, err := e.PredictProba(series, jobs)
	if err != nil {
		return nil, errors.Trace(err)
	}
	predictions := make([]string, len(proba))
	for i, row := range proba {
		predictions[i] = e.classes[argmax(row)]
	}
	return predictions, nil
}

// TrainProba returns leave-one-out ensemble probabilities over the training
// set, reusing the encoded training bags of every member.
func (e *Ensemble) TrainProba(jobs int) ([][]float64, error) {
	if e.Invalid() {
		return nil, ErrNotFitted
	}
	counts := base.NewMatrixInt(len(e.trainLabels), len(e.classes))
	if err := parallel.For(context.Background(), len(e.trainLabels), jobs, func(i int) {
		for _, member := range e.members {
			counts[i][e.classIndex[member.TrainPredict(i)]]++
		}
	}); err != nil {
		return nil, errors.Trace(err)
	}
	proba := base.NewMatrix64(len(e.trainLabels), len(e.classes))
	for i := range proba {
		for j := range proba[i] {
			proba[i][j] = float64(counts[i][j]) / float64(len(e.members))
		}
	}
	return proba, nil
}

// TrainScore returns the leave-one-out accuracy of the whole ensemble over
// the training set.
func (e *Ensemble) TrainScore(jobs int) (Score, error) {
	proba, err := e.TrainProba(jobs)
	if err != nil {
		return Score{}, errors.Trace(err)
	}
	correct := 0
	for i, row := range proba {
		if e.classes[argmax(row)] == e.trainLabels[i] {
			correct++
		}
	}
	return Score{Accuracy: float64(correct) / float64(len(proba))}, nil
}

func argmax(row []float64) int {
	best := 0
	for j, p := range row {
		if p > row[best] {
			best = j
		}
	}
	return best
}

// Marshal writes the fitted ensemble into a byte stream.
func (e *Ensemble) Marshal(w io.Writer) error {
	if err := encoding.WriteGob(w, e.Params); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, e.classes); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, e.trainLabels); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(e.members))); err != nil {
		return errors.Trace(err)
	}
	for _, member := range e.members {
		if err := member.Marshal(w); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// Unmarshal reads an ensemble written by Marshal.
func (e *Ensemble) Unmarshal(r io.Reader) error {
	if err := encoding.ReadGob(r, &e.Params); err != nil {
		return errors.Trace(err)
	}
	e.SetParams(e.Params)
	if err := encoding.ReadGob(r, &e.classes); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &e.trainLabels); err != nil {
		return errors.Trace(err)
	}
	var size int32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return errors.Trace(err)
	}
	e.members = make([]*Individual, size)
	for i := range e.members {
		e.members[i] = new(Individual)
		if err := e.members[i].Unmarshal(r); err != nil {
			return errors.Trace(err)
		}
	}
	e.classIndex = buildClassIndex(e.classes)
	return nil
}
