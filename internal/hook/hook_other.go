//go:build !windows

package hook

type unsupportedInstaller struct{}

// NewInstaller returns an installer whose every call fails with
// ErrUnsupported.
func NewInstaller() Installer {
	return unsupportedInstaller{}
}

func (unsupportedInstaller) InstallKeyboard(KeyboardProc) (Hook, error) {
	return nil, ErrUnsupported
}

func (unsupportedInstaller) InstallMouse(MouseProc) (Hook, error) {
	return nil, ErrUnsupported
}
