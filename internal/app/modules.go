package app

import (
	"github.com/specialistvlad/linen/internal/registry"
	"github.com/specialistvlad/linen/modules/eventlog"
	"github.com/specialistvlad/linen/modules/heartbeat"
)

// coreModules is the definitive list of all modules that are compiled into
// the linen binary.
var coreModules = []registry.Factory{
	heartbeat.Factory,
	eventlog.Factory,
}
