// Package polling repeatedly invokes an operation on a fixed interval until
// explicitly stopped. The driving terminal condition lives with the caller:
// the callback observes the polled resource and calls Stop when done.
package polling

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/temirov/sfaudit/internal/lifecycle"
)

const (
	callbackMissingMessageConstant = "polling callback not configured"
	intervalMissingMessageConstant = "polling interval must be positive"
	registryMissingMessageConstant = "lifecycle registry not configured"
	registrationKeyTemplate        = "polling_controller_%d"
)

var (
	errCallbackMissing = errors.New(callbackMissingMessageConstant)
	errIntervalMissing = errors.New(intervalMissingMessageConstant)
	errRegistryMissing = errors.New(registryMissingMessageConstant)

	controllerSequence atomic.Uint64
)

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Callback        func()
	Interval        time.Duration
	Immediate       bool
	Registry        *lifecycle.Registry
	RegistrationKey string
}

// Controller owns at most one active repeating timer. Start and Stop are
// idempotent; a second Start while running is a no-op rather than a second
// timer.
type Controller struct {
	callback        func()
	interval        time.Duration
	immediate       bool
	registry        *lifecycle.Registry
	registrationKey string
	mutex           sync.Mutex
	polling         bool
}

// NewController constructs a Controller. A registration key is generated when
// none is supplied.
func NewController(options ControllerOptions) (*Controller, error) {
	if options.Callback == nil {
		return nil, errCallbackMissing
	}
	if options.Interval <= 0 {
		return nil, errIntervalMissing
	}
	if options.Registry == nil {
		return nil, errRegistryMissing
	}

	registrationKey := options.RegistrationKey
	if len(registrationKey) == 0 {
		registrationKey = fmt.Sprintf(registrationKeyTemplate, controllerSequence.Add(1))
	}

	return &Controller{
		callback:        options.Callback,
		interval:        options.Interval,
		immediate:       options.Immediate,
		registry:        options.Registry,
		registrationKey: registrationKey,
	}, nil
}

// Start begins polling. No-op when already running. When configured as
// immediate, the callback runs once before the interval timer is armed; a
// Stop issued from inside that first invocation prevents the timer from
// arming at all.
func (controller *Controller) Start() {
	controller.mutex.Lock()
	if controller.polling {
		controller.mutex.Unlock()
		return
	}
	controller.polling = true
	controller.mutex.Unlock()

	if controller.immediate {
		controller.callback()
	}

	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	if !controller.polling {
		return
	}
	controller.registry.StartRepeating(controller.registrationKey, controller.interval, controller.callback)
}

// Stop cancels the active timer and its registration. Idempotent.
func (controller *Controller) Stop() {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()

	if !controller.polling {
		return
	}
	controller.polling = false
	controller.registry.StopRepeating(controller.registrationKey)
}

// IsPolling reports whether the controller currently owns an active timer.
func (controller *Controller) IsPolling() bool {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()

	return controller.polling
}
