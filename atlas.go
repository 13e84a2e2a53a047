package fabpack

import (
	"github.com/polydawn/refmt/obj/atlas"
)

// Atlas covers the serializable result types; the CLI hands it to refmt
// for --format=json output.
var Atlas = atlas.MustBuild(
	atlas.BuildEntry(Event_Result{}).StructMap().Autogenerate().Complete(),
	atlas.BuildEntry(ArchiveResult{}).StructMap().Autogenerate().Complete(),
	atlas.BuildEntry(ExtractResult{}).StructMap().Autogenerate().Complete(),
	atlas.BuildEntry(ErrorValue{}).StructMap().Autogenerate().Complete(),
)
