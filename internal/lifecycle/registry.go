// Package lifecycle tracks outstanding timers and cancelable requests so they
// can be torn down deterministically when the application exits.
package lifecycle

import (
	"context"
	"sync"
	"time"
)

type repeatingTimer struct {
	stopChannel chan struct{}
	stopOnce    sync.Once
}

func (timer *repeatingTimer) stop() {
	timer.stopOnce.Do(func() { close(timer.stopChannel) })
}

// trackedRequest wraps a cancel function behind a comparable handle so a
// stale release can be told apart from the current registration.
type trackedRequest struct {
	cancel context.CancelFunc
}

// Registry tracks keyed repeating timers, keyed one-shot timers, and keyed
// cancelable request handles. Registering a key a second time cancels the
// previous registration, preventing duplicate concurrent work for the same
// logical operation.
type Registry struct {
	mutex           sync.Mutex
	repeatingTimers map[string]*repeatingTimer
	oneShotTimers   map[string]*time.Timer
	trackedRequests map[string]*trackedRequest
	shutdownHooks   []func()
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		repeatingTimers: map[string]*repeatingTimer{},
		oneShotTimers:   map[string]*time.Timer{},
		trackedRequests: map[string]*trackedRequest{},
	}
}

// StartRepeating arms a repeating timer under key that invokes callback every
// interval until stopped. An existing timer under the same key is stopped
// first.
func (registry *Registry) StartRepeating(key string, interval time.Duration, callback func()) {
	timer := &repeatingTimer{stopChannel: make(chan struct{})}

	registry.mutex.Lock()
	if existingTimer, timerExists := registry.repeatingTimers[key]; timerExists {
		existingTimer.stop()
	}
	registry.repeatingTimers[key] = timer
	registry.mutex.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-timer.stopChannel:
				return
			case <-ticker.C:
				callback()
			}
		}
	}()
}

// StopRepeating stops the repeating timer under key. Idempotent.
func (registry *Registry) StopRepeating(key string) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if timer, timerExists := registry.repeatingTimers[key]; timerExists {
		timer.stop()
		delete(registry.repeatingTimers, key)
	}
}

// ScheduleOnce arms a one-shot timer under key. The registration is released
// before callback runs. An existing timer under the same key is canceled
// first.
func (registry *Registry) ScheduleOnce(key string, delay time.Duration, callback func()) {
	registry.mutex.Lock()
	if existingTimer, timerExists := registry.oneShotTimers[key]; timerExists {
		existingTimer.Stop()
		delete(registry.oneShotTimers, key)
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		registry.mutex.Lock()
		if registry.oneShotTimers[key] == timer {
			delete(registry.oneShotTimers, key)
		}
		registry.mutex.Unlock()

		callback()
	})
	registry.oneShotTimers[key] = timer
	registry.mutex.Unlock()
}

// CancelScheduled cancels the one-shot timer under key. Idempotent.
func (registry *Registry) CancelScheduled(key string) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if timer, timerExists := registry.oneShotTimers[key]; timerExists {
		timer.Stop()
		delete(registry.oneShotTimers, key)
	}
}

// TrackRequest derives a cancelable context under key. A previous request
// under the same key is canceled. The returned cancel releases the
// registration, is safe to call more than once, and never unregisters a
// successor tracked under the same key.
func (registry *Registry) TrackRequest(parentContext context.Context, key string) (context.Context, context.CancelFunc) {
	if parentContext == nil {
		parentContext = context.Background()
	}

	requestContext, cancelRequest := context.WithCancel(parentContext)
	request := &trackedRequest{cancel: cancelRequest}

	registry.mutex.Lock()
	if existingRequest, requestExists := registry.trackedRequests[key]; requestExists {
		existingRequest.cancel()
	}
	registry.trackedRequests[key] = request
	registry.mutex.Unlock()

	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			cancelRequest()
			registry.mutex.Lock()
			if registry.trackedRequests[key] == request {
				delete(registry.trackedRequests, key)
			}
			registry.mutex.Unlock()
		})
	}

	return requestContext, release
}

// CancelRequest aborts the tracked request under key. Idempotent.
func (registry *Registry) CancelRequest(key string) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if request, requestExists := registry.trackedRequests[key]; requestExists {
		request.cancel()
		delete(registry.trackedRequests, key)
	}
}

// RegisterShutdown records hook to run during ClearAll after every timer is
// stopped and every request canceled. Hooks run in registration order,
// outside the registry lock, and at most once.
func (registry *Registry) RegisterShutdown(hook func()) {
	if hook == nil {
		return
	}

	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	registry.shutdownHooks = append(registry.shutdownHooks, hook)
}

// ClearAll stops every tracked timer, aborts every tracked request, then runs
// and discards the registered shutdown hooks.
func (registry *Registry) ClearAll() {
	registry.mutex.Lock()
	for key, timer := range registry.repeatingTimers {
		timer.stop()
		delete(registry.repeatingTimers, key)
	}
	for key, timer := range registry.oneShotTimers {
		timer.Stop()
		delete(registry.oneShotTimers, key)
	}
	for key, request := range registry.trackedRequests {
		request.cancel()
		delete(registry.trackedRequests, key)
	}
	shutdownHooks := registry.shutdownHooks
	registry.shutdownHooks = nil
	registry.mutex.Unlock()

	for _, shutdownHook := range shutdownHooks {
		shutdownHook()
	}
}

// ActiveTimerCount reports tracked repeating plus one-shot timers. Intended
// for leak detection, not business logic.
func (registry *Registry) ActiveTimerCount() int {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	return len(registry.repeatingTimers) + len(registry.oneShotTimers)
}

// ActiveRequestCount reports tracked in-flight requests.
func (registry *Registry) ActiveRequestCount() int {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	return len(registry.trackedRequests)
}
