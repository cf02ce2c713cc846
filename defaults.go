package interpose

import "github.com/hexellate/interpose/internal/detour"

func defaultPatcher() TrampolinePatcher {
	return detour.New()
}
