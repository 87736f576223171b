package nix

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fxamacker/cbor/v2"
)

// Record bodies are CBOR maps, one layout per kind. Dimensions, features and
// values travel inside their owner's body.

type fileBody struct {
	Format  string `cbor:"format"`
	Version []int  `cbor:"version"`
}

type commonBody struct {
	Definition string   `cbor:"definition,omitempty"`
	Metadata   string   `cbor:"metadata,omitempty"`
	Sources    []string `cbor:"sources,omitempty"`
}

type sectionBody struct {
	Definition string `cbor:"definition,omitempty"`
	Repository string `cbor:"repository,omitempty"`
	Mapping    string `cbor:"mapping,omitempty"`
	Link       string `cbor:"link,omitempty"`
}

type valueBody struct {
	Type        DataType `cbor:"t"`
	Bool        bool     `cbor:"b,omitempty"`
	Int         int64    `cbor:"i,omitempty"`
	Double      float64  `cbor:"d,omitempty"`
	String      string   `cbor:"s,omitempty"`
	Uncertainty float64  `cbor:"u,omitempty"`
	Reference   string   `cbor:"r,omitempty"`
}

type propertyBody struct {
	Definition string      `cbor:"definition,omitempty"`
	DataType   DataType    `cbor:"data_type"`
	Unit       string      `cbor:"unit,omitempty"`
	Mapping    string      `cbor:"mapping,omitempty"`
	Values     []valueBody `cbor:"values,omitempty"`
}

type dimensionBody struct {
	Type     DimensionType `cbor:"type"`
	Interval float64       `cbor:"interval,omitempty"`
	Offset   float64       `cbor:"offset,omitempty"`
	Unit     string        `cbor:"unit,omitempty"`
	Label    string        `cbor:"label,omitempty"`
	Ticks    []float64     `cbor:"ticks,omitempty"`
	Alias    bool          `cbor:"alias,omitempty"`
	Labels   []string      `cbor:"labels,omitempty"`
}

type dataArrayBody struct {
	commonBody
	DataType        DataType        `cbor:"data_type"`
	Extent          []int           `cbor:"extent"`
	Data            []float64       `cbor:"data,omitempty"`
	Label           string          `cbor:"label,omitempty"`
	Unit            string          `cbor:"unit,omitempty"`
	ExpansionOrigin *float64        `cbor:"expansion_origin,omitempty"`
	Coefficients    []float64       `cbor:"coefficients,omitempty"`
	Dimensions      []dimensionBody `cbor:"dimensions,omitempty"`
}

type featureBody struct {
	ID        string   `cbor:"id"`
	Data      string   `cbor:"data,omitempty"`
	LinkType  LinkType `cbor:"link_type"`
	CreatedAt int64    `cbor:"created_at"`
	UpdatedAt int64    `cbor:"updated_at"`
	Seq       int64    `cbor:"seq"`
}

type tagBody struct {
	commonBody
	Units      []string      `cbor:"units,omitempty"`
	References []string      `cbor:"references,omitempty"`
	Features   []featureBody `cbor:"features,omitempty"`

	Position  []float64 `cbor:"position,omitempty"`
	Extent    []float64 `cbor:"extent,omitempty"`
	Positions string    `cbor:"positions,omitempty"`
	Extents   string    `cbor:"extents,omitempty"`
}

type groupBody struct {
	commonBody
	DataArrays []string `cbor:"data_arrays,omitempty"`
	Tags       []string `cbor:"tags,omitempty"`
	MultiTags  []string `cbor:"multi_tags,omitempty"`
}

func encode(v any) ([]byte, error) {
	b, err := cbor.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode body")
	}
	return b, nil
}

func decode(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := cbor.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return nil
}

func (e *entityWithMetadata) common() commonBody {
	return commonBody{Definition: e.definition, Metadata: e.metadata}
}

func (e *entityWithMetadata) loadCommon(c commonBody) {
	e.definition = c.Definition
	e.metadata = c.Metadata
}

func (e *entityWithSources) common() commonBody {
	c := e.entityWithMetadata.common()
	c.Sources = append([]string(nil), e.sources...)
	return c
}

func (e *entityWithSources) loadCommon(c commonBody) {
	e.entityWithMetadata.loadCommon(c)
	e.sources = refSet(c.Sources)
}

func (f *File) encodeBody() ([]byte, error) {
	return encode(fileBody{Format: f.format, Version: f.version})
}

func (f *File) decodeBody(data []byte) error {
	var body fileBody
	if err := decode(data, &body); err != nil {
		return err
	}
	if body.Format != "" && body.Format != Format {
		return errors.Wrapf(ErrInvalidArgument, "unknown format %q", body.Format)
	}
	if body.Format != "" {
		f.format = body.Format
		f.version = body.Version
	}
	return nil
}

func (b *Block) encodeBody() ([]byte, error) {
	return encode(b.common())
}

func (b *Block) decodeBody(data []byte) error {
	var body commonBody
	if err := decode(data, &body); err != nil {
		return err
	}
	b.loadCommon(body)
	return nil
}

func (s *Source) encodeBody() ([]byte, error) {
	return encode(s.common())
}

func (s *Source) decodeBody(data []byte) error {
	var body commonBody
	if err := decode(data, &body); err != nil {
		return err
	}
	s.loadCommon(body)
	return nil
}

func (s *Section) encodeBody() ([]byte, error) {
	return encode(sectionBody{
		Definition: s.definition,
		Repository: s.repository,
		Mapping:    s.mapping,
		Link:       s.link,
	})
}

func (s *Section) decodeBody(data []byte) error {
	var body sectionBody
	if err := decode(data, &body); err != nil {
		return err
	}
	s.definition = body.Definition
	s.repository = body.Repository
	s.mapping = body.Mapping
	s.link = body.Link
	return nil
}

func (p *Property) encodeBody() ([]byte, error) {
	body := propertyBody{
		Definition: p.definition,
		DataType:   p.dataType,
		Unit:       p.unit,
		Mapping:    p.mapping,
	}
	for _, v := range p.values {
		body.Values = append(body.Values, valueBody{
			Type:        v.dtype,
			Bool:        v.b,
			Int:         v.i,
			Double:      v.d,
			String:      v.s,
			Uncertainty: v.uncertainty,
			Reference:   v.reference,
		})
	}
	return encode(body)
}

func (p *Property) decodeBody(data []byte) error {
	var body propertyBody
	if err := decode(data, &body); err != nil {
		return err
	}
	p.definition = body.Definition
	p.dataType = body.DataType
	p.unit = body.Unit
	p.mapping = body.Mapping
	p.values = nil
	for _, v := range body.Values {
		p.values = append(p.values, Value{
			dtype:       v.Type,
			b:           v.Bool,
			i:           v.Int,
			d:           v.Double,
			s:           v.String,
			uncertainty: v.Uncertainty,
			reference:   v.Reference,
		})
	}
	return nil
}

func (da *DataArray) encodeBody() ([]byte, error) {
	body := dataArrayBody{
		commonBody:      da.common(),
		DataType:        da.dataType,
		Extent:          []int(da.extent),
		Data:            da.data,
		Label:           da.label,
		Unit:            da.unit,
		ExpansionOrigin: da.expansionOrigin,
		Coefficients:    da.coefficients,
	}
	for _, dim := range da.dims {
		body.Dimensions = append(body.Dimensions, encodeDimension(dim))
	}
	return encode(body)
}

func encodeDimension(dim Dimension) dimensionBody {
	switch d := dim.(type) {
	case *SampledDimension:
		return dimensionBody{
			Type:     DimensionTypeSample,
			Interval: d.interval,
			Offset:   d.offset,
			Unit:     d.unit,
			Label:    d.label,
		}
	case *RangeDimension:
		if d.alias {
			return dimensionBody{Type: DimensionTypeRange, Alias: true}
		}
		return dimensionBody{
			Type:  DimensionTypeRange,
			Ticks: d.ticks,
			Unit:  d.unit,
			Label: d.label,
		}
	case *SetDimension:
		return dimensionBody{Type: DimensionTypeSet, Labels: d.labels}
	}
	return dimensionBody{}
}

func (da *DataArray) decodeBody(data []byte) error {
	var body dataArrayBody
	if err := decode(data, &body); err != nil {
		return err
	}
	da.loadCommon(body.commonBody)
	da.dataType = body.DataType
	da.extent = NDSize(body.Extent)
	da.data = body.Data
	if len(da.data) != da.extent.Size() {
		return errors.Wrapf(ErrInvalidArgument, "%d values for extent %v", len(da.data), da.extent)
	}
	da.label = body.Label
	da.unit = body.Unit
	da.expansionOrigin = body.ExpansionOrigin
	da.coefficients = body.Coefficients

	da.dims = nil
	for i, db := range body.Dimensions {
		base := dimensionBase{array: da}
		switch db.Type {
		case DimensionTypeSample:
			da.dims = append(da.dims, &SampledDimension{
				dimensionBase: base,
				interval:      db.Interval,
				offset:        db.Offset,
				unit:          db.Unit,
				label:         db.Label,
			})
		case DimensionTypeRange:
			da.dims = append(da.dims, &RangeDimension{
				dimensionBase: base,
				ticks:         db.Ticks,
				unit:          db.Unit,
				label:         db.Label,
				alias:         db.Alias,
			})
		case DimensionTypeSet:
			da.dims = append(da.dims, &SetDimension{dimensionBase: base, labels: db.Labels})
		default:
			return errors.Wrapf(ErrInvalidArgument, "dimension %d has unknown type %d", i+1, db.Type)
		}
	}
	return nil
}

func (t *baseTag) tagBody() tagBody {
	body := tagBody{
		commonBody: t.common(),
		Units:      t.units,
		References: t.references,
	}
	for _, ft := range t.features {
		body.Features = append(body.Features, featureBody{
			ID:        ft.id,
			Data:      ft.data,
			LinkType:  ft.linkType,
			CreatedAt: ft.createdAt.Unix(),
			UpdatedAt: ft.updatedAt.Unix(),
			Seq:       ft.seq,
		})
	}
	return body
}

func (t *baseTag) loadTagBody(body tagBody) {
	t.loadCommon(body.commonBody)
	t.units = body.Units
	t.references = refSet(body.References)
	t.features = nil
	for _, fb := range body.Features {
		ft := &Feature{
			entity: entity{
				file:      t.file,
				id:        fb.ID,
				parentID:  t.id,
				createdAt: time.Unix(fb.CreatedAt, 0).UTC(),
				updatedAt: time.Unix(fb.UpdatedAt, 0).UTC(),
				seq:       fb.Seq,
				holder:    &t.entity,
			},
			data:     fb.Data,
			linkType: fb.LinkType,
		}
		if fb.Seq > t.file.seq {
			t.file.seq = fb.Seq
		}
		t.features = append(t.features, ft)
	}
}

func (t *Tag) encodeBody() ([]byte, error) {
	body := t.tagBody()
	body.Position = t.position
	body.Extent = t.extent
	return encode(body)
}

func (t *Tag) decodeBody(data []byte) error {
	var body tagBody
	if err := decode(data, &body); err != nil {
		return err
	}
	t.loadTagBody(body)
	t.position = body.Position
	t.extent = body.Extent
	return nil
}

func (mt *MultiTag) encodeBody() ([]byte, error) {
	body := mt.tagBody()
	body.Positions = mt.positions
	body.Extents = mt.extents
	return encode(body)
}

func (mt *MultiTag) decodeBody(data []byte) error {
	var body tagBody
	if err := decode(data, &body); err != nil {
		return err
	}
	mt.loadTagBody(body)
	mt.positions = body.Positions
	mt.extents = body.Extents
	return nil
}

func (g *Group) encodeBody() ([]byte, error) {
	return encode(groupBody{
		commonBody: g.common(),
		DataArrays: g.dataArrays,
		Tags:       g.tags,
		MultiTags:  g.multiTags,
	})
}

func (g *Group) decodeBody(data []byte) error {
	var body groupBody
	if err := decode(data, &body); err != nil {
		return err
	}
	g.loadCommon(body.commonBody)
	g.dataArrays = refSet(body.DataArrays)
	g.tags = refSet(body.Tags)
	g.multiTags = refSet(body.MultiTags)
	return nil
}
