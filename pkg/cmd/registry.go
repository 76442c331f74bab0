// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"log/slog"

	"github.com/mundotango/compas/pkg/registry"
	"github.com/mundotango/compas/pkg/steps/action"
	"github.com/mundotango/compas/pkg/steps/approval"
	"github.com/mundotango/compas/pkg/steps/condition"
	"github.com/mundotango/compas/pkg/steps/delay"
	"github.com/mundotango/compas/pkg/steps/integration"
	"github.com/mundotango/compas/pkg/steps/notification"
)

// NewRegistry builds a registry with every native step interpreter and the
// built-in platform action handlers.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	registerNativeInterpreters(reg)
	registerBuiltinActions(reg)

	return reg
}

func registerNativeInterpreters(reg *registry.Registry) {
	reg.RegisterInterpreter(condition.NewFactory(nil))
	reg.RegisterInterpreter(action.NewFactory(reg))
	reg.RegisterInterpreter(delay.NewFactory(delay.DefaultMaxDelay))
	reg.RegisterInterpreter(approval.NewFactory(nil))
	reg.RegisterInterpreter(notification.NewFactory(nil))
	reg.RegisterInterpreter(integration.NewFactory(nil))
}

func registerBuiltinActions(reg *registry.Registry) {
	for name, handler := range action.Builtin(nil) {
		reg.RegisterAction(name, handler)
	}
}
