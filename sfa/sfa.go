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

// Package sfa implements the symbolic Fourier approximation: sliding windows
// are projected onto their lowest Fourier coefficients, the coefficients are
// discretized into letters by equi-depth binning, and each series becomes a
// bag of words.
package sfa

import (
	"io"
	"math"
	"math/bits"
	"sort"

	"github.com/chewxy/math32"
	"github.com/gorse-io/tempo/base"
	"github.com/gorse-io/tempo/base/encoding"
	"github.com/gorse-io/tempo/common/floats"
	"github.com/juju/errors"
)

// ErrNotFitted is returned when a transform is used before FitTransform.
var ErrNotFitted = errors.New("transform is not fitted")

// SFA discretizes sliding windows of a series into words. Breakpoints are
// learned once by FitTransform and shared read-only by transforms derived
// through Shorten.
type SFA struct {
	window        int
	wordLength    int
	alphabet      int
	norm          bool
	bitsPerLetter int
	saveWords     bool

	// breakpoints[p] holds alphabet-1 ascending thresholds for letter
	// position p. Shared by derived transforms, never mutated after fit.
	breakpoints [][]float32
	// words[i] is the full-length word sequence of training series i, kept
	// only while saveWords is set so that Shorten can rebuild bags.
	words [][]Word

	cosTable [][]float32
	sinTable [][]float32
}

// Option configures an SFA transform.
type Option func(*SFA)

// WithoutWordSaving discards training word sequences as soon as bags are
// built. Shorten is unavailable on such a transform.
func WithoutWordSaving() Option {
	return func(s *SFA) {
		s.saveWords = false
	}
}

// New creates an unfitted transform. The word is packed into 64 bits, so
// wordLength*bits(alphabet-1) must fit; alphabet must be in [2,16] and the
// word must not be longer than the window.
func New(window, wordLength, alphabet int, norm bool, opts ...Option) (*SFA, error) {
	if window < 1 {
		return nil, errors.Errorf("window must be positive, got %d", window)
	}
	if wordLength < 1 {
		return nil, errors.Errorf("word length must be positive, got %d", wordLength)
	}
	if wordLength > window {
		return nil, errors.Errorf("word length %d exceeds window %d", wordLength, window)
	}
	if alphabet < 2 || alphabet > 16 {
		return nil, errors.Errorf("alphabet size must be in [2,16], got %d", alphabet)
	}
	bitsPerLetter := bits.Len(uint(alphabet - 1))
	if bitsPerLetter*wordLength > 64 {
		return nil, errors.Errorf("%d letters of %d bits exceed a 64-bit word", wordLength, bitsPerLetter)
	}
	s := &SFA{
		window:        window,
		wordLength:    wordLength,
		alphabet:      alphabet,
		norm:          norm,
		bitsPerLetter: bitsPerLetter,
		saveWords:     true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.buildTables()
	return s, nil
}

// Window returns the sliding window size.
func (s *SFA) Window() int {
	return s.window
}

// WordLength returns the number of letters per word.
func (s *SFA) WordLength() int {
	return s.wordLength
}

// Alphabet returns the alphabet size.
func (s *SFA) Alphabet() int {
	return s.alphabet
}

// Norm reports whether windows are z-normalized before projection.
func (s *SFA) Norm() bool {
	return s.norm
}

// startCoeff returns the first Fourier coefficient kept. Normalization
// zeroes the mean, so the DC coefficient carries no information and is
// skipped.
func (s *SFA) startCoeff() int {
	if s.norm {
		return 1
	}
	return 0
}

func (s *SFA) buildTables() {
	numCoeffs := (s.wordLength + 1) / 2
	start := s.startCoeff()
	s.cosTable = make([][]float32, numCoeffs)
	s.sinTable = make([][]float32, numCoeffs)
	for j := 0; j < numCoeffs; j++ {
		s.cosTable[j] = make([]float32, s.window)
		s.sinTable[j] = make([]float32, s.window)
		for t := 0; t < s.window; t++ {
			angle := 2 * math.Pi * float64(start+j) * float64(t) / float64(s.window)
			s.cosTable[j][t] = float32(math.Cos(angle))
			s.sinTable[j][t] = float32(math.Sin(angle))
		}
	}
}

// windowValues writes the wordLength projection values of one window into
// out. Even positions hold real parts, odd positions imaginary parts of
// successive coefficients. scratch must be window long.
func (s *SFA) windowValues(window, out, scratch []float32) {
	copy(scratch, window)
	if s.norm {
		var sum float32
		for _, v := range window {
			sum += v
		}
		mean := sum / float32(len(window))
		floats.AddConst(scratch, -mean)
		variance := floats.Dot(scratch, scratch) / float32(len(window))
		if variance <= 0 {
			// Constant window, all values map to zero.
			floats.Zero(scratch)
		} else {
			floats.MulConst(scratch, 1/math32.Sqrt(variance))
		}
	}
	for p := 0; p < s.wordLength; p++ {
		if p%2 == 0 {
			out[p] = floats.Dot(scratch, s.cosTable[p/2])
		} else {
			out[p] = -floats.Dot(scratch, s.sinTable[p/2])
		}
	}
}

// letter maps a value to its bin given ascending breakpoints.
func letter(value float32, breakpoints []float32) int {
	l := 0
	for l < len(breakpoints) && value >= breakpoints[l] {
		l++
	}
	return l
}

func (s *SFA) packWord(values []float32) Word {
	var word Word
	for p, v := range values {
		word |= Word(letter(v, s.breakpoints[p])) << uint(p*s.bitsPerLetter)
	}
	return word
}

// FitTransform learns per-position equi-depth breakpoints from all windows
// of the training series, then returns one bag per series. Word sequences
// are kept for Shorten unless word saving is disabled.
func (s *SFA) FitTransform(series [][]float32) ([]Bag, error) {
	if len(series) == 0 {
		return nil, errors.New("empty training set")
	}
	for i, x := range series {
		if len(x) < s.window {
			return nil, errors.Errorf("series %d is shorter than window %d", i, s.window)
		}
	}
	// First pass collects the projection values of every window.
	numWindows := make([]int, len(series))
	total := 0
	for i, x := range series {
		numWindows[i] = len(x) - s.window + 1
		total += numWindows[i]
	}
	rows := make([][]float32, 0, total)
	scratch := make([]float32, s.window)
	for _, x := range series {
		for k := 0; k+s.window <= len(x); k++ {
			out := make([]float32, s.wordLength)
			s.windowValues(x[k:k+s.window], out, scratch)
			rows = append(rows, out)
		}
	}
	// Equi-depth binning: position p splits the sorted column at quantiles
	// k/alphabet.
	s.breakpoints = make([][]float32, s.wordLength)
	column := make([]float32, len(rows))
	for p := 0; p < s.wordLength; p++ {
		for r, row := range rows {
			column[r] = row[p]
		}
		sort.Slice(column, func(i, j int) bool { return column[i] < column[j] })
		s.breakpoints[p] = make([]float32, s.alphabet-1)
		for k := 1; k < s.alphabet; k++ {
			s.breakpoints[p][k-1] = column[len(column)*k/s.alphabet]
		}
	}
	// Second pass packs words against the learned breakpoints.
	bags := make([]Bag, len(series))
	if s.saveWords {
		s.words = make([][]Word, len(series))
	}
	offset := 0
	for i := range series {
		words := make([]Word, numWindows[i])
		for k := 0; k < numWindows[i]; k++ {
			words[k] = s.packWord(rows[offset+k])
		}
		offset += numWindows[i]
		if s.saveWords {
			s.words[i] = words
		}
		bags[i] = bagWords(words)
	}
	return bags, nil
}

// Transform builds bags for unseen series using the learned breakpoints.
func (s *SFA) Transform(series [][]float32) ([]Bag, error) {
	if s.breakpoints == nil {
		return nil, ErrNotFitted
	}
	bags := make([]Bag, len(series))
	scratch := make([]float32, s.window)
	values := make([]float32, s.wordLength)
	for i, x := range series {
		if len(x) < s.window {
			return nil, errors.Errorf("series %d is shorter than window %d", i, s.window)
		}
		words := make([]Word, 0, len(x)-s.window+1)
		for k := 0; k+s.window <= len(x); k++ {
			s.windowValues(x[k:k+s.window], values, scratch)
			words = append(words, s.packWord(values))
		}
		bags[i] = bagWords(words)
	}
	return bags, nil
}

// Shorten derives a transform of a smaller word length without refitting.
// The derived transform shares breakpoints and saved word sequences with the
// receiver, and the returned bags are rebuilt from truncated words with
// numerosity reduction applied again.
func (s *SFA) Shorten(wordLength int) (*SFA, []Bag, error) {
	if s.words == nil {
		return nil, nil, errors.New("word sequences are unavailable, shorten before cleaning")
	}
	if wordLength < 1 {
		return nil, nil, errors.Errorf("word length must be positive, got %d", wordLength)
	}
	if wordLength > s.wordLength {
		return nil, nil, errors.Errorf("cannot shorten word length %d to %d", s.wordLength, wordLength)
	}
	derived := &SFA{
		window:        s.window,
		wordLength:    wordLength,
		alphabet:      s.alphabet,
		norm:          s.norm,
		bitsPerLetter: s.bitsPerLetter,
		saveWords:     s.saveWords,
		breakpoints:   s.breakpoints,
		words:         s.words,
		cosTable:      s.cosTable,
		sinTable:      s.sinTable,
	}
	bags := make([]Bag, len(s.words))
	for i, words := range s.words {
		bags[i] = bagTruncated(words, s.bitsPerLetter, wordLength)
	}
	return derived, bags, nil
}

// DropWords releases the saved training word sequences of this transform.
// Transforms derived through Shorten keep their own reference.
func (s *SFA) DropWords() {
	s.words = nil
	s.saveWords = false
}

// Marshal writes the fitted transform. Saved word sequences are not
// persisted, so an unmarshaled transform can predict but not shorten.
func (s *SFA) Marshal(w io.Writer) error {
	if err := encoding.WriteGob(w, s.window); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, s.wordLength); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, s.alphabet); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, s.norm); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, s.breakpoints); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal reads a transform written by Marshal.
func (s *SFA) Unmarshal(r io.Reader) error {
	if err := encoding.ReadGob(r, &s.window); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &s.wordLength); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &s.alphabet); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &s.norm); err != nil {
		return errors.Trace(err)
	}
	s.bitsPerLetter = bits.Len(uint(s.alphabet - 1))
	s.breakpoints = base.NewMatrix32(s.wordLength, s.alphabet-1)
	if err := encoding.ReadMatrix(r, s.breakpoints); err != nil {
		return errors.Trace(err)
	}
	s.buildTables()
	return nil
}
