package nix

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/jacentio/nixcore/store"
)

// Flush writes the changes made since the last flush to the backend. Deleted
// subtrees are removed first, then new records are created parent-first and
// modified ones updated with their last known version.
func (f *File) Flush(ctx context.Context) error {
	for len(f.pendingDeletes) > 0 {
		id := f.pendingDeletes[0]
		if err := f.backend.Delete(ctx, id); err != nil {
			return errors.Wrapf(err, "flush delete %s", id)
		}
		f.pendingDeletes = f.pendingDeletes[1:]
	}

	var created, updated int
	queue := []record{f}
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]

		e := r.base()
		if e.version == 0 || e.dirty {
			rec, err := toRecord(r)
			if err != nil {
				return errors.Wrapf(err, "flush %s %s", e.kind, e.id)
			}
			if e.version == 0 {
				err = f.backend.Create(ctx, rec)
				created++
			} else {
				err = f.backend.Update(ctx, rec)
				updated++
			}
			if err != nil {
				return errors.Wrapf(err, "flush %s %s", e.kind, e.id)
			}
			e.version = rec.Version
			e.dirty = false
		}
		queue = append(queue, r.ownedRecords()...)
	}

	f.logger.Infow("file flushed",
		"id", f.id,
		"created", created,
		"updated", updated,
	)
	return nil
}

func toRecord(r record) (*store.Record, error) {
	body, err := r.encodeBody()
	if err != nil {
		return nil, err
	}
	e := r.base()
	return &store.Record{
		ID:        e.id,
		Kind:      e.kind,
		ParentID:  e.parentID,
		Name:      r.recordName(),
		Type:      r.recordType(),
		Seq:       e.seq,
		Version:   e.version,
		CreatedAt: e.createdAt,
		UpdatedAt: e.updatedAt,
		Body:      body,
	}, nil
}

// Load rebuilds the file fileID from backend. The returned file flushes back
// to the same backend.
func Load(ctx context.Context, backend store.Backend, fileID string, opts ...Option) (*File, error) {
	rec, err := backend.Get(ctx, fileID)
	if err != nil {
		return nil, errors.Wrapf(err, "load file %s", fileID)
	}
	if rec.Kind != store.KindFile {
		return nil, errors.Wrapf(ErrInvalidArgument, "record %s is a %s, not a file", fileID, rec.Kind)
	}

	f := newFileShell(append(opts, WithBackend(backend)))
	f.loadRecord(rec)
	if err := f.decodeBody(rec.Body); err != nil {
		return nil, errors.Wrapf(err, "load file %s", fileID)
	}
	f.index[f.id] = f

	queue := []record{f}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		children, err := backend.Children(ctx, parent.base().id)
		if err != nil {
			return nil, errors.Wrapf(err, "load children of %s", parent.base().id)
		}
		for _, child := range children {
			r, err := f.attach(parent, child)
			if err != nil {
				return nil, errors.Wrapf(err, "load %s %s", child.Kind, child.ID)
			}
			f.index[child.ID] = r
			queue = append(queue, r)
		}
	}

	f.logger.Infow("file loaded",
		"id", f.id,
		"records", len(f.index),
	)
	return f, nil
}

// attach decodes rec and links it below parent.
func (f *File) attach(parent record, rec *store.Record) (record, error) {
	ne := namedEntity{entity: entity{file: f}, name: rec.Name, typ: rec.Type}
	ne.loadRecord(rec)
	em := entityWithMetadata{namedEntity: ne}

	switch p := parent.(type) {
	case *File:
		switch rec.Kind {
		case store.KindBlock:
			b := &Block{entityWithMetadata: em}
			p.blocks = append(p.blocks, b)
			return b, b.decodeBody(rec.Body)
		case store.KindSection:
			s := &Section{namedEntity: ne}
			p.sections = append(p.sections, s)
			return s, s.decodeBody(rec.Body)
		}
	case *Section:
		switch rec.Kind {
		case store.KindSection:
			s := &Section{namedEntity: ne, parent: p}
			p.sections = append(p.sections, s)
			return s, s.decodeBody(rec.Body)
		case store.KindProperty:
			pr := &Property{namedEntity: ne, section: p}
			p.properties = append(p.properties, pr)
			return pr, pr.decodeBody(rec.Body)
		}
	case *Source:
		if rec.Kind == store.KindSource {
			s := &Source{entityWithMetadata: em, block: p.block, parent: p}
			p.sources = append(p.sources, s)
			return s, s.decodeBody(rec.Body)
		}
	case *Block:
		ews := entityWithSources{entityWithMetadata: em, block: p}
		switch rec.Kind {
		case store.KindSource:
			s := &Source{entityWithMetadata: em, block: p}
			p.sources = append(p.sources, s)
			return s, s.decodeBody(rec.Body)
		case store.KindDataArray:
			da := &DataArray{entityWithSources: ews}
			p.dataArrays = append(p.dataArrays, da)
			return da, da.decodeBody(rec.Body)
		case store.KindTag:
			t := &Tag{baseTag: baseTag{entityWithSources: ews}}
			p.tags = append(p.tags, t)
			return t, t.decodeBody(rec.Body)
		case store.KindMultiTag:
			mt := &MultiTag{baseTag: baseTag{entityWithSources: ews}}
			p.multiTags = append(p.multiTags, mt)
			return mt, mt.decodeBody(rec.Body)
		case store.KindGroup:
			g := &Group{entityWithSources: ews}
			p.groups = append(p.groups, g)
			return g, g.decodeBody(rec.Body)
		}
	}
	return nil, errors.Wrapf(ErrInvalidArgument, "%s cannot own %s", parent.base().kind, rec.Kind)
}
