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

package sfa

// Word is a fixed-length letter sequence packed into 64 bits. The first
// letter occupies the lowest bits, so truncating a word to a prefix is a
// bit mask.
type Word uint64

// Bag counts word occurrences in one series. Zero counts are never stored.
type Bag map[Word]int

// Truncate keeps the first wordLength letters of the word.
func (w Word) Truncate(bitsPerLetter, wordLength int) Word {
	shift := uint(bitsPerLetter * wordLength)
	if shift >= 64 {
		return w
	}
	return w & (1<<shift - 1)
}

// Letter returns the letter at position i.
func (w Word) Letter(bitsPerLetter, i int) int {
	return int(w >> uint(bitsPerLetter*i) & (1<<uint(bitsPerLetter) - 1))
}

// bagWords builds a bag from a word sequence, counting a word only when it
// differs from the preceding one (numerosity reduction).
func bagWords(words []Word) Bag {
	bag := make(Bag)
	var prev Word
	for i, w := range words {
		if i == 0 || w != prev {
			bag[w]++
			prev = w
		}
	}
	return bag
}

// bagTruncated builds a bag from a word sequence truncated to wordLength
// letters. Numerosity reduction runs on the truncated words, so neighbors
// that collapse to the same prefix are counted once.
func bagTruncated(words []Word, bitsPerLetter, wordLength int) Bag {
	bag := make(Bag)
	var prev Word
	for i, w := range words {
		t := w.Truncate(bitsPerLetter, wordLength)
		if i == 0 || t != prev {
			bag[t]++
			prev = t
		}
	}
	return bag
}
