// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with a time.After fallback) used by the
// concurrent coordination tests, so individual tests do not hang
// forever when a goroutine fails to deliver. These are the only place
// in the test suite where real wall-clock timeouts appear; everything
// time-dependent in production code runs against lib/clock's fake.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
