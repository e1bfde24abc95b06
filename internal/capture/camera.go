package capture

// Camera models the device a capture session holds while waiting for a
// shot. Acquire and Release must tolerate being called when already in
// the requested state.
type Camera interface {
	Acquire() error
	Release()
}

// NopCamera is a Camera for sessions fed from files instead of a live
// device.
type NopCamera struct{}

func (NopCamera) Acquire() error { return nil }
func (NopCamera) Release()       {}
