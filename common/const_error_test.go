// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"errors"
	"fmt"
	"testing"
)

const errTarget = ConstError("target")

func TestConstError_CanBeTestedForWithErrorsIs(t *testing.T) {
	tests := []struct {
		err            error
		containsTarget bool
	}{
		{nil, false},
		{errTarget, true},
		{fmt.Errorf("unrelated"), false},
		{fmt.Errorf("%w: detail", errTarget), true},
		{fmt.Errorf("%w: more detail", fmt.Errorf("%w: detail", errTarget)), true},
		{errors.Join(errTarget, fmt.Errorf("unrelated")), true},
		{errors.Join(fmt.Errorf("unrelated")), false},
	}

	for _, test := range tests {
		if want, got := test.containsTarget, errors.Is(test.err, errTarget); want != got {
			t.Errorf("unexpected result for %v, wanted %t, got %t", test.err, want, got)
		}
	}
}
