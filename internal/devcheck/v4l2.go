//go:build linux

package devcheck

import (
	"fmt"
	"syscall"

	"github.com/vladimirvivien/go4vl/v4l2"
)

// queryV4L2Device asks the driver for its capabilities (VIDIOC_QUERYCAP).
//
// The node is opened read-only and non-blocking and only QUERYCAP is issued,
// so crop, format and frame rate are left as the camera has them.
func queryV4L2Device(path string) (*V4L2Info, error) {
	fd, err := v4l2.OpenDevice(path, syscall.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	defer v4l2.CloseDevice(fd)

	caps, err := v4l2.GetCapability(fd)
	if err != nil {
		return nil, fmt.Errorf("not a v4l2 device: %w", err)
	}

	return &V4L2Info{
		Driver:  caps.Driver,
		Card:    caps.Card,
		BusInfo: caps.BusInfo,
		Capture: caps.GetCapabilities()&v4l2.CapVideoCapture != 0,
	}, nil
}
