//go:build !linux

package devcheck

import "errors"

func queryV4L2Device(path string) (*V4L2Info, error) {
	return nil, errors.New("v4l2 is only available on linux")
}
