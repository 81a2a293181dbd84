// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"

	ferrors "freetron/cli/internal/errors"
)

// PresentError formats an error for user display with masking.
// Typed errors show their human message; the cause is appended for
// transport failures only.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	switch ferrors.KindOf(err) {
	case ferrors.Validation, ferrors.Application, ferrors.Canceled:
		return fmt.Sprintf("%s: %s", context, Mask(ferrors.Message(err)))
	}
	return fmt.Sprintf("%s: %s", context, Mask(err.Error()))
}
