// Copyright (c) 2026 Candela Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lifecycle

import (
	"context"
	"errors"
	"fmt"
)

func ExampleMultiHook() {
	flush := HookFunc(func(ctx context.Context) error {
		fmt.Println("flush")
		return nil
	})

	shutdown := HookFunc(func(ctx context.Context) error {
		fmt.Println("shutdown")
		return nil
	})

	err := MultiHook(flush, shutdown).Run(context.Background())
	if err != nil {
		fmt.Println(err)
		return
	}

	// Output: flush
	// shutdown
}

func ExampleMultiHook_failedHook() {
	flushErr := errors.New("failed to flush")
	flush := HookFunc(func(ctx context.Context) error {
		return flushErr
	})

	shutdown := HookFunc(func(ctx context.Context) error {
		fmt.Println("shutdown")
		return nil
	})

	err := MultiHook(flush, shutdown).Run(context.Background())

	fmt.Println(errors.Is(err, flushErr))
	// Output: shutdown
	// true
}
