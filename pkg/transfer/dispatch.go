// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transfer

import (
	"context"
	"sync"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// ⚙️ WorkerFunc performs one task and reports its Outcome.
type WorkerFunc func(ctx context.Context, task Task) Outcome

// 🏃 RunAll submits every task to a pool of at most workers concurrent
// slots and blocks until all of them have finished. It is the directory
// level's barrier: when RunAll returns, no transfer at this level is still
// in flight.
//
// A failing task does not cancel tasks that are already running or queued;
// every task runs to completion and the first failure is reported
// afterward. The returned error is nil only if every outcome succeeded.
func RunAll(ctx context.Context, tasks []Task, workers int, fn WorkerFunc) ([]Outcome, error) {
	if workers < 1 {
		workers = 1
	}

	// A plain errgroup.Group, not WithContext: a failure must not cancel
	// work already dispatched at this level.
	var g errgroup.Group
	g.SetLimit(workers)

	var mu sync.Mutex
	outcomes := make([]Outcome, 0, len(tasks))

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			outcome := fn(ctx, task)

			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()

			if !outcome.Success {
				return errors.Errorf("transferring %s: %s", task.RelativePath, outcome.Detail)
			}
			return nil
		})
	}

	err := g.Wait()
	return outcomes, err
}
