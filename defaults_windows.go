//go:build windows

package interpose

func defaultLoader() ModuleLoader {
	return winLoader{}
}

func defaultProtector() MemoryProtector {
	return winProtector{}
}
