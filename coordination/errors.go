// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package coordination

import (
	"errors"
)

// ErrUnknownSession reports a session ID with no entry in the session
// table.
var ErrUnknownSession = errors.New("unknown session")

// ErrDuplicateParticipant reports a registration under a name that is
// already taken.
var ErrDuplicateParticipant = errors.New("participant already registered")
