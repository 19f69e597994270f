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

	"github.com/gorse-io/tempo/common/parallel"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Evaluate computes the leave-one-out accuracy of an individual over its
// training set: each training instance is classified against all others and
// compared to its true label.
func Evaluate(ctx context.Context, individual *Individual, jobs int) (float64, error) {
	if len(individual.bags) == 0 {
		return 0, errors.New("individual is not fitted")
	}
	correct := make([]bool, len(individual.bags))
	if err := parallel.For(ctx, len(correct), jobs, func(i int) {
		correct[i] = individual.TrainPredict(i) == individual.labels[i]
	}); err != nil {
		return 0, errors.Trace(err)
	}
	return float64(lo.Count(correct, true)) / float64(len(correct)), nil
}
