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

	"github.com/c-bata/goptuna"
	"github.com/gorse-io/tempo/dataset"
	"github.com/gorse-io/tempo/model"
	"github.com/juju/errors"
	"golang.org/x/exp/maps"
)

type ModelCreator func() Classifier

// SearchResult is the best configuration found by a model search.
type SearchResult struct {
	Type   string
	Params model.Params
	Score  Score
}

// ModelSearch is a goptuna objective that tunes classifier hyperparameters
// against the leave-one-out training score.
type ModelSearch struct {
	modelCreators map[string]ModelCreator
	modelTypes    []string
	trainSet      *dataset.Dataset
	config        *FitConfig
	result        SearchResult
}

func NewModelSearch(models map[string]ModelCreator, trainSet *dataset.Dataset, config *FitConfig) *ModelSearch {
	return &ModelSearch{
		modelCreators: models,
		modelTypes:    maps.Keys(models),
		trainSet:      trainSet,
		config:        config.LoadDefaultIfNil(),
	}
}

func (ms *ModelSearch) Objective(trial goptuna.Trial) (float64, error) {
	if len(ms.modelCreators) == 0 {
		return 0, errors.New("no model to search")
	}
	modelType, err := trial.SuggestCategorical("Model", ms.modelTypes)
	if err != nil {
		return 0, errors.Trace(err)
	}
	m := ms.modelCreators[modelType]()
	m.SetParams(m.SuggestParams(trial))
	if err := m.Fit(context.Background(), ms.trainSet, ms.config); err != nil {
		return 0, errors.Trace(err)
	}
	score, err := m.TrainScore(ms.config.Jobs)
	if err != nil {
		return 0, errors.Trace(err)
	}
	if score.BetterThan(ms.result.Score) {
		ms.result = SearchResult{
			Type:   modelType,
			Params: m.GetParams(),
			Score:  score,
		}
	}
	return score.GetValue(), nil
}

func (ms *ModelSearch) Result() SearchResult {
	return ms.result
}
