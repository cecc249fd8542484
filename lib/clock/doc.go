// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts wall-clock time behind a small interface so
// that timeout behavior is testable.
//
// [Real] returns the production implementation backed by the time
// package. [Fake] returns a manually-advanced clock for tests: a
// session timeout test advances the fake clock from inside a
// participant callback instead of sleeping.
package clock
