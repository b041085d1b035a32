//go:build !windows

package app

import "errors"

func boostPriority() error {
	return errors.New("priority boost is only applied on Windows")
}
