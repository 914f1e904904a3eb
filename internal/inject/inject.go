// Package inject builds the dependency containers the HTTP handlers resolve
// their collaborators from.
package inject

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectoinject/loglevel"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
)

// Registration adds one dependency to a container
type Registration func(container ectocontainer.DIContainer) error

// Instance registers v as the singleton for T. A nil v registers nothing,
// so resolving T fails.
func Instance[T any](v T) Registration {
	return func(container ectocontainer.DIContainer) error {
		if any(v) == nil {
			return nil
		}
		if err := ectoinject.RegisterInstance[T](container, v); err != nil {
			return fmt.Errorf("failed to register %T: %w", v, err)
		}
		return nil
	}
}

// NewContainer creates a container with a unique id so several servers can
// live in one process. The container logs through logger.
func NewContainer(logger ectologger.Logger, registrations ...Registration) (ectocontainer.DIContainer, error) {
	container, err := ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:                       "nettle-" + uuid.NewString(),
		AllowCaptiveDependencies: true,
		AllowMissingDependencies: true,
		ConstructorFuncName:      "Constructor",
		InjectTagName:            "inject",
		LoggerConfig: &ectocontainer.DIContainerLoggerConfig{
			Prefix:   "ectoinject",
			LogLevel: loglevel.WARN,
			Enabled:  true,
			LogFunc: func(ctx context.Context, level, msg string) {
				if level == loglevel.WARN {
					logger.WithContext(ctx).Warn(msg)
					return
				}
				logger.WithContext(ctx).Debug(msg)
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dependency container: %w", err)
	}

	for _, register := range registrations {
		if err := register(container); err != nil {
			return nil, err
		}
	}
	return container, nil
}
