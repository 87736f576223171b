// Package nix implements the semantic layer of the NIX scientific data model.
//
// A [File] owns Blocks and a global tree of metadata Sections. A [Block] owns
// Sources, DataArrays, Tags, MultiTags and Groups. Entities are created through
// factory methods on their owner, which assign an id and a creation time, and
// are deleted through their owner, which cascades to owned children and removes
// the deleted ids from every weak reference in the file.
//
// DataArrays carry one [Dimension] descriptor per axis. Dimensions convert
// physical positions into indices:
//
//	dim, err := array.Dimension(2)
//	...
//	idx, err := nix.PositionToIndex(2.5, "ms", dim)
//
// Tags and MultiTags select regions of the arrays they reference:
//
//	view, err := nix.RetrieveData(tag, 0)
//	values, err := view.Read()
//
// The graph lives in memory. [File.Flush] persists it through a
// [store.Backend] and [Load] rebuilds it:
//
//	f := nix.NewFile(nix.WithBackend(backend))
//	...
//	if err := f.Flush(ctx); err != nil {
//	    return err
//	}
//	g, err := nix.Load(ctx, backend, f.ID())
//
// Graph operations are not safe for concurrent use.
package nix
