/**
 * Copyright 2025-present Guildmint Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow limits events to at most limit per trailing window. Outbound
// partner calls Wait on it; the inbound global throttle uses Allow and turns
// a refusal into an advisory error instead of blocking.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	events []time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{limit: limit, window: window}
}

// Allow records an event if a slot is free. When the window is full it
// reports how long until the oldest event slides out.
func (s *SlidingWindow) Allow() (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.prune(now)

	if len(s.events) < s.limit {
		s.events = append(s.events, now)
		return true, 0
	}
	return false, s.events[0].Add(s.window).Sub(now)
}

// Wait blocks until a slot frees or the context is done. Used on the
// outbound path where delaying a partner call beats failing it.
func (s *SlidingWindow) Wait(ctx context.Context) error {
	for {
		ok, retryIn := s.Allow()
		if ok {
			return nil
		}

		timer := time.NewTimer(retryIn)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.events) && !s.events[i].After(cutoff) {
		i++
	}
	if i > 0 {
		s.events = append(s.events[:0], s.events[i:]...)
	}
}

// Cooldown enforces a minimum interval between repeats of the same key.
// Keys are caller-defined, typically "operation:actor".
type Cooldown struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
}

func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{interval: interval, last: make(map[string]time.Time)}
}

// Acquire claims the key. It reports the remaining cooldown when the key was
// used too recently; a zero remaining means the claim succeeded.
func (c *Cooldown) Acquire(key string) (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if last, seen := c.last[key]; seen {
		if elapsed := now.Sub(last); elapsed < c.interval {
			return false, c.interval - elapsed
		}
	}
	c.last[key] = now
	return true, 0
}
