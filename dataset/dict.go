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

// FreqDict maps strings to dense ids in first-seen order and tracks how often
// each string was added.
type FreqDict struct {
	si  map[string]int
	is  []string
	cnt []int
}

func NewFreqDict() (d *FreqDict) {
	d = &FreqDict{map[string]int{}, []string{}, []int{}}
	return
}

func (d *FreqDict) Count() int {
	return len(d.is)
}

// Id returns the id of a string and increases its frequency. A string absent
// from the dictionary is added.
func (d *FreqDict) Id(s string) (y int) {
	if y, ok := d.si[s]; ok {
		d.cnt[y]++
		return y
	}

	y = len(d.is)
	d.si[s] = y
	d.is = append(d.is, s)
	d.cnt = append(d.cnt, 1)
	return
}

// NotCount returns the id of a string without increasing its frequency.
func (d *FreqDict) NotCount(s string) (y int) {
	if y, ok := d.si[s]; ok {
		return y
	}

	y = len(d.is)
	d.si[s] = y
	d.is = append(d.is, s)
	d.cnt = append(d.cnt, 0)
	return
}

func (d *FreqDict) String(id int) (s string, ok bool) {
	if id >= len(d.is) {
		return "", false
	}
	return d.is[id], true
}

func (d *FreqDict) Freq(id int) int {
	if id >= len(d.cnt) {
		return 0
	}
	return d.cnt[id]
}

// Strings returns all strings in id order.
func (d *FreqDict) Strings() []string {
	s := make([]string, len(d.is))
	copy(s, d.is)
	return s
}
