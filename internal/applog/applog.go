// Copyright 2026 The Recordcore Authors
// This file is part of recordcore.
//
// Recordcore is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Recordcore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with recordcore. If not, see <http://www.gnu.org/licenses/>.

// Package applog is the module's single logging entry point: a lazily
// constructed zap.SugaredLogger shared by every component, named per
// subsystem the way Erigon names its stage loggers.
package applog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once sync.Once
	base *zap.SugaredLogger
)

func root() *zap.SugaredLogger {
	once.Do(func() {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		base = l.Sugar()
	})
	return base
}

// Named returns a component-scoped logger, e.g. applog.Named("onlineindexer").
func Named(component string) *zap.SugaredLogger {
	return root().Named(component)
}

// SetLogger overrides the process-wide base logger; used by tests that want
// an observed/no-op logger instead of the production JSON encoder.
func SetLogger(l *zap.Logger) {
	once.Do(func() {})
	base = l.Sugar()
}
