//go:build !windows

package interpose

// There is no module loader to speak of off Windows; Register requires
// one to be injected.
func defaultLoader() ModuleLoader {
	return nil
}

func defaultProtector() MemoryProtector {
	return unixProtector{}
}
