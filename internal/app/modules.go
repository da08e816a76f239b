package app

import (
	"github.com/specialistvlad/cookgraph/internal/registry"
	"github.com/specialistvlad/cookgraph/modules/env_vars"
	"github.com/specialistvlad/cookgraph/modules/http_request"
	"github.com/specialistvlad/cookgraph/modules/points"
	"github.com/specialistvlad/cookgraph/modules/print"
	"github.com/specialistvlad/cookgraph/modules/sum"
	"github.com/specialistvlad/cookgraph/modules/transform"
	"github.com/specialistvlad/cookgraph/modules/value"
)

// coreModules is the definitive list of all node kinds that are compiled into
// the cookgraph binary.
var coreModules = []registry.Module{
	&value.Module{},
	&sum.Module{},
	&transform.Module{},
	&points.Module{},
	&env_vars.Module{},
	&print.Module{},
	&http_request.Module{},
}
