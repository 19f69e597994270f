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
	"fmt"
	"io"
	"reflect"

	"github.com/gorse-io/tempo/base/copier"
	"github.com/gorse-io/tempo/base/encoding"
	"github.com/gorse-io/tempo/dataset"
	"github.com/gorse-io/tempo/model"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

type Score struct {
	Accuracy float64
}

func (score Score) ZapFields() []zap.Field {
	return []zap.Field{
		zap.Float64("Accuracy", score.Accuracy),
	}
}

func (score Score) GetValue() float64 {
	return score.Accuracy
}

func (score Score) BetterThan(s Score) bool {
	return score.Accuracy > s.Accuracy
}

type FitConfig struct {
	Jobs    int
	Verbose int
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Jobs:    1,
		Verbose: 10,
	}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetJobs(jobs int) *FitConfig {
	config.Jobs = jobs
	return config
}

func (config *FitConfig) LoadDefaultIfNil() *FitConfig {
	if config == nil {
		return NewFitConfig()
	}
	return config
}

type Classifier interface {
	model.Model
	// Fit builds the classifier from a training set.
	Fit(ctx context.Context, trainSet *dataset.Dataset, config *FitConfig) error
	// Predict returns the class label of each series.
	Predict(series [][]float32, jobs int) ([]string, error)
	// PredictProba returns the per-class probabilities of each series.
	PredictProba(series [][]float32, jobs int) ([][]float64, error)
	// TrainScore returns the leave-one-out score over the training set.
	TrainScore(jobs int) (Score, error)
	// Marshal model into byte stream.
	Marshal(w io.Writer) error
	// Unmarshal model from byte stream.
	Unmarshal(r io.Reader) error
}

// Clone a model with deep copy.
func Clone(m Classifier) Classifier {
	var copied Classifier
	if err := copier.Copy(&copied, m); err != nil {
		panic(err)
	} else {
		copied.SetParams(copied.GetParams())
		return copied
	}
}

func GetModelName(m model.Model) string {
	switch m.(type) {
	case *Ensemble:
		return "boss"
	default:
		return reflect.TypeOf(m).String()
	}
}

func MarshalModel(w io.Writer, m Classifier) error {
	if err := encoding.WriteString(w, GetModelName(m)); err != nil {
		return errors.Trace(err)
	}
	if err := m.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func UnmarshalModel(r io.Reader) (Classifier, error) {
	name, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	switch name {
	case "boss":
		var ensemble Ensemble
		if err := ensemble.Unmarshal(r); err != nil {
			return nil, errors.Trace(err)
		}
		return &ensemble, nil
	}
	return nil, fmt.Errorf("unknown model %v", name)
}
