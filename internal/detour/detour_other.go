//go:build !amd64

package detour

func (p *Patcher) Install(target, replacement uintptr) (uintptr, error) {
	return 0, ErrUnsupported
}

func (p *Patcher) Remove(trampoline uintptr) error {
	return ErrUnsupported
}
