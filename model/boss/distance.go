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

import "github.com/gorse-io/tempo/sfa"

// Distance measures dissimilarity between two bags. An implementation may
// return any value not less than cutoff as soon as the result provably
// reaches it, which lets nearest neighbor search prune candidates.
type Distance func(a, b sfa.Bag, cutoff float64) float64

// BOSSDistance is the truncated squared word-count distance: only words
// present in the first bag contribute, so the distance is not symmetric.
func BOSSDistance(a, b sfa.Bag, cutoff float64) float64 {
	var dist float64
	for word, count := range a {
		diff := float64(count - b[word])
		dist += diff * diff
		if dist >= cutoff {
			return dist
		}
	}
	return dist
}
