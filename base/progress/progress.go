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

package progress

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type spanKeyType string

var spanKeyName = spanKeyType(uuid.New().String())

type Status string

const (
	StatusPending   Status = "Pending"
	StatusComplete  Status = "Complete"
	StatusRunning   Status = "Running"
	StatusSuspended Status = "Suspended"
	StatusFailed    Status = "Failed"
)

type Tracer struct {
	name  string
	spans sync.Map
}

func NewTracer(name string) *Tracer {
	return &Tracer{name: name}
}

// Start creates a root span.
func (t *Tracer) Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	span := &Span{
		name:   name,
		status: StatusRunning,
		total:  total,
		start:  time.Now(),
	}
	t.spans.Store(name, span)
	return context.WithValue(ctx, spanKeyName, span), span
}

// List returns the progress of all root spans, oldest first.
func (t *Tracer) List() []Progress {
	var progress []Progress
	t.spans.Range(func(_, value interface{}) bool {
		span := value.(*Span)
		p := span.Progress()
		p.Tracer = t.name
		progress = append(progress, p)
		return true
	})
	sort.Slice(progress, func(i, j int) bool {
		return progress[i].StartTime.Before(progress[j].StartTime)
	})
	return progress
}

type Span struct {
	mu       sync.Mutex
	name     string
	status   Status
	total    int
	count    int
	err      error
	start    time.Time
	finish   time.Time
	children sync.Map
}

func (s *Span) Add(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = min(s.count+n, s.total)
}

func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = s.total
	s.status = StatusComplete
	s.finish = time.Now()
}

func (s *Span) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusFailed
	s.err = err
}

func (s *Span) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Progress reports the span and its descendants as a single progress entry.
// A running child refines granularity: the parent total is multiplied by the
// child total and the child count is folded in. A failed descendant marks the
// whole entry as failed.
func (s *Span) Progress() Progress {
	s.mu.Lock()
	progress := Progress{
		Name:       s.name,
		Status:     s.status,
		Count:      s.count,
		Total:      s.total,
		StartTime:  s.start,
		FinishTime: s.finish,
	}
	if s.err != nil {
		progress.Error = s.err.Error()
	}
	parentCount, parentTotal := s.count, s.total
	s.mu.Unlock()
	s.children.Range(func(_, value interface{}) bool {
		child := value.(*Span).Progress()
		switch child.Status {
		case StatusFailed:
			progress.Status = StatusFailed
			progress.Error = child.Error
			return false
		case StatusRunning:
			progress.Total = parentTotal * child.Total
			progress.Count = parentCount*child.Total + child.Count
		}
		return true
	})
	return progress
}

// Start creates a child span of the span carried by ctx. When ctx carries no
// span, the returned span is detached and tracked by no tracer.
func Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	childSpan := &Span{
		name:   name,
		status: StatusRunning,
		total:  total,
		start:  time.Now(),
	}
	if ctx == nil {
		return nil, childSpan
	}
	span, ok := ctx.Value(spanKeyName).(*Span)
	if !ok {
		return ctx, childSpan
	}
	span.children.Store(name, childSpan)
	return context.WithValue(ctx, spanKeyName, childSpan), childSpan
}

// Fail marks the span carried by ctx as failed.
func Fail(ctx context.Context, err error) {
	if ctx == nil {
		return
	}
	if span, ok := ctx.Value(spanKeyName).(*Span); ok {
		span.Fail(err)
	}
}

type Progress struct {
	Tracer     string
	Name       string
	Status     Status
	Error      string
	Count      int
	Total      int
	StartTime  time.Time
	FinishTime time.Time
}
