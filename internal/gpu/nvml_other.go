//go:build !linux || !cgo

package gpu

// NVML returns a library whose Init always fails: NVIDIA telemetry needs
// Linux and cgo.
func NVML() Library { return unsupported{} }

type unsupported struct{}

func (unsupported) Init() error                        { return ErrUnavailable }
func (unsupported) DriverVersion() (string, error)     { return "", ErrUnavailable }
func (unsupported) Device(int) (Device, string, error) { return nil, "", ErrUnavailable }
func (unsupported) Shutdown() error                    { return nil }
