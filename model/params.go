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
	"encoding/gob"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/gorse-io/tempo/base/log"
	"go.uber.org/zap"
)

/* ParamName */

// ParamName is the type of hyper-parameter names.
type ParamName string

// Predefined hyper-parameter names
const (
	Randomized      ParamName = "randomized"        // sample member configurations instead of sweeping the grid
	EnsembleSize    ParamName = "ensemble_size"     // member count in randomized mode
	RandomState     ParamName = "random_state"      // random seed
	Threshold       ParamName = "threshold"         // retention threshold relative to the best accuracy
	MaxEnsembleSize ParamName = "max_ensemble_size" // hard cap on retained members
	WordLengths     ParamName = "word_lengths"      // candidate word lengths, descending
	AlphabetSize    ParamName = "alphabet_size"     // symbols per letter position
	MinWindowSize   ParamName = "min_window_size"   // smallest window in the search grid
	NormOptions     ParamName = "norm_options"      // window normalization options to try
)

func init() {
	// Concrete types stored in Params must be registered so that
	// encoding.WriteGob can round-trip a Params map.
	gob.Register(0)
	gob.Register(int64(0))
	gob.Register(0.0)
	gob.Register(false)
	gob.Register("")
	gob.Register([]int(nil))
	gob.Register([]bool(nil))
}

// Params stores hyper-parameters for a model. It is a map between strings
// (names) and interface{}s (values). For example, hyper-parameters for the
// ensemble are given by:
//
//	model.Params{
//		model.Threshold:     0.92,
//		model.AlphabetSize:  4,
//		model.WordLengths:   []int{16, 14, 12, 10, 8},
//	}
type Params map[ParamName]interface{}

// Copy hyper-parameters.
func (parameters Params) Copy() Params {
	newParams := make(Params)
	for k, v := range parameters {
		newParams[k] = v
	}
	return newParams
}

// GetInt gets a integer parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetInt(name ParamName, _default int) int {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int:
			return val
		default:
			log.Logger().Error(fmt.Sprintf("expect %v to be int, but get %v", name, reflect.TypeOf(val)))
		}
	}
	return _default
}

// GetInt64 gets a int64 parameter by name. Returns _default if not exists or type doesn't match. The
// type will be converted if given int.
func (parameters Params) GetInt64(name ParamName, _default int64) int64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int64:
			return val
		case int:
			return int64(val)
		default:
			log.Logger().Error(fmt.Sprintf("expect %v to be int64, but get %v", name, reflect.TypeOf(val)))
		}
	}
	return _default
}

// GetBool gets a bool parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetBool(name ParamName, _default bool) bool {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case bool:
			return val
		default:
			log.Logger().Error(fmt.Sprintf("expect %v to be bool, but get %v", name, reflect.TypeOf(val)))
		}
	}
	return _default
}

// GetFloat64 gets a float parameter by name. Returns _default if not exists or type doesn't match. The
// type will be converted if given int.
func (parameters Params) GetFloat64(name ParamName, _default float64) float64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case float64:
			return val
		case int:
			return float64(val)
		default:
			log.Logger().Error(fmt.Sprintf("expect %v to be float64, but get %v", name, reflect.TypeOf(val)))
		}
	}
	return _default
}

// GetString gets a string parameter. Returns _default if not exists or type doesn't match.
func (parameters Params) GetString(name ParamName, _default string) string {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case string:
			return val
		default:
			log.Logger().Error(fmt.Sprintf("expect %v to be string, but get %v", name, reflect.TypeOf(val)))
		}
	}
	return _default
}

// GetInts gets a integer slice parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetInts(name ParamName, _default []int) []int {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case []int:
			return val
		default:
			log.Logger().Error(fmt.Sprintf("expect %v to be []int, but get %v", name, reflect.TypeOf(val)))
		}
	}
	return _default
}

// GetBools gets a bool slice parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetBools(name ParamName, _default []bool) []bool {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case []bool:
			return val
		default:
			log.Logger().Error(fmt.Sprintf("expect %v to be []bool, but get %v", name, reflect.TypeOf(val)))
		}
	}
	return _default
}

// Overwrite returns a new Params with values overwritten by params.
func (parameters Params) Overwrite(params Params) Params {
	merged := make(Params)
	for k, v := range parameters {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

func (parameters Params) ToString() string {
	b, err := json.Marshal(parameters)
	if err != nil {
		log.Logger().Error("failed to format parameters", zap.Error(err))
	}
	return string(b)
}

// ParamsGrid contains candidates for grid search.
type ParamsGrid map[ParamName][]interface{}

func (grid ParamsGrid) Len() int {
	return len(grid)
}

// NumCombinations returns the number of combinations in the grid.
func (grid ParamsGrid) NumCombinations() int {
	count := 1
	for _, values := range grid {
		count *= len(values)
	}
	return count
}

// Fill inserts default candidates for parameters missing from the grid.
func (grid ParamsGrid) Fill(_default ParamsGrid) {
	for param, values := range _default {
		if _, exist := grid[param]; !exist {
			grid[param] = values
		}
	}
}
