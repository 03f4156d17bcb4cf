// Package registry creates crate entities. Every registration validates its
// attributes, assigns an id, checks the content file, resolves relationship
// references, then commits the new entity to the manifest. A registration
// either lands completely or leaves the manifest untouched.
package registry

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/crates/internal/doi"
	"github.com/mesh-intelligence/crates/internal/guid"
	"github.com/mesh-intelligence/crates/internal/linker"
	"github.com/mesh-intelligence/crates/internal/manifest"
	"github.com/mesh-intelligence/crates/internal/validate"
	"github.com/mesh-intelligence/crates/pkg/types"
)

// Store loads and saves a crate manifest. *manifest.Store implements it.
type Store interface {
	Load(cratePath string) (*types.Graph, error)
	Save(cratePath string, g *types.Graph) error
}

// Registry registers entities in one crate. Operations are serialized; each
// one rereads the manifest so edits made by other tools are not lost.
type Registry struct {
	mu     sync.Mutex
	root   string
	store  Store
	minter *guid.Minter
	logger zerolog.Logger
	graph  *types.Graph
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore replaces the manifest store.
func WithStore(s Store) Option {
	return func(r *Registry) {
		r.store = s
	}
}

// WithMinter sets the id minter.
func WithMinter(m *guid.Minter) Option {
	return func(r *Registry) {
		r.minter = m
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// Open loads the crate at cratePath. It fails with a NotInitializedError
// when the crate has no manifest.
func Open(cratePath string, options ...Option) (*Registry, error) {
	root, err := filepath.Abs(cratePath)
	if err != nil {
		return nil, fmt.Errorf("resolving crate path: %w", err)
	}

	r := &Registry{root: root, logger: zerolog.Nop()}
	for _, option := range options {
		option(r)
	}
	if r.minter == nil {
		if r.minter, err = guid.New(); err != nil {
			return nil, err
		}
	}
	if r.store == nil {
		r.store = manifest.New(manifest.WithMinter(r.minter), manifest.WithLogger(r.logger))
	}

	if r.graph, err = r.store.Load(root); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the absolute crate directory.
func (r *Registry) Path() string {
	return r.root
}

// Graph returns a copy of the last committed graph.
func (r *Registry) Graph() *types.Graph {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.graph.Clone()
}

// RegisterDataset registers a dataset whose file is already in the crate.
// A NewSchema in attrs is registered in the same commit.
func (r *Registry) RegisterDataset(attrs types.DatasetAttrs) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerDataset(attrs)
}

func (r *Registry) registerDataset(attrs types.DatasetAttrs) (string, error) {
	if err := attrs.Validate(); err != nil {
		return "", err
	}
	contentURL := ""
	if attrs.DOI == "" || attrs.SourceFilepath != "" {
		var err error
		if contentURL, err = r.contentPath(attrs.SourceFilepath); err != nil {
			return "", err
		}
	}
	cs, err := datasetCandidates(attrs, contentURL)
	if err != nil {
		return "", err
	}
	return r.commit(cs...)
}

// datasetCandidates returns the dataset candidate, preceded by its new
// schema when attrs carries one.
func datasetCandidates(attrs types.DatasetAttrs, contentURL string) ([]candidate, error) {
	dataset := candidate{
		kind:       types.KindDataset,
		id:         attrs.GUID,
		entity:     datasetEntity(attrs, contentURL),
		refs:       attrs.Refs(),
		contentURL: contentURL,
	}
	if attrs.NewSchema == nil {
		return []candidate{dataset}, nil
	}
	s, err := schemaCandidate(*attrs.NewSchema)
	if err != nil {
		return nil, err
	}
	dataset.schemaFromPrevious = true
	return []candidate{s, dataset}, nil
}

// RegisterSoftware registers a software entity whose file is already in
// the crate.
func (r *Registry) RegisterSoftware(attrs types.SoftwareAttrs) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := attrs.Validate(); err != nil {
		return "", err
	}
	contentURL, err := r.contentPath(attrs.SourceFilepath)
	if err != nil {
		return "", err
	}
	return r.commit(softwareCandidate(attrs, contentURL))
}

func softwareCandidate(attrs types.SoftwareAttrs, contentURL string) candidate {
	return candidate{
		kind:       types.KindSoftware,
		id:         attrs.GUID,
		entity:     softwareEntity(attrs, contentURL),
		refs:       attrs.Refs(),
		contentURL: contentURL,
	}
}

// RegisterComputation registers a computation. Computations have no file.
func (r *Registry) RegisterComputation(attrs types.ComputationAttrs) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := attrs.Validate(); err != nil {
		return "", err
	}
	return r.commit(candidate{
		kind:   types.KindComputation,
		id:     attrs.GUID,
		entity: computationEntity(attrs),
		refs:   attrs.Refs(),
	})
}

// RegisterSchema registers a schema entity.
func (r *Registry) RegisterSchema(attrs types.SchemaAttrs) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := attrs.Validate(); err != nil {
		return "", err
	}
	c, err := schemaCandidate(attrs)
	if err != nil {
		return "", err
	}
	return r.commit(c)
}

func schemaCandidate(attrs types.SchemaAttrs) (candidate, error) {
	e, err := schemaEntity(attrs)
	if err != nil {
		return candidate{}, err
	}
	return candidate{kind: types.KindSchema, id: attrs.GUID, entity: e}, nil
}

// RegisterDatasetFromDOI resolves doiName and registers a dataset described
// by the provider record. Non-empty fields in attrs take precedence over the
// record; format defaults to "DOI" and no local file is required.
func (r *Registry) RegisterDatasetFromDOI(ctx context.Context, resolver doi.Resolver, doiName string, attrs types.DatasetAttrs) (string, error) {
	rec, err := resolver.Resolve(ctx, doiName)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	merged := MergeDOI(attrs, rec)
	r.logger.Debug().Str("doi", rec.DOI).Str("source", rec.Source).Msg("doi metadata resolved")
	return r.registerDataset(merged)
}

// MergeDOI fills the empty fields of attrs from rec.
func MergeDOI(attrs types.DatasetAttrs, rec *doi.Record) types.DatasetAttrs {
	m := rec.Metadata
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&attrs.Name, m.Name)
	fill(&attrs.Author, m.Author)
	fill(&attrs.Version, m.Version)
	fill(&attrs.DatePublished, m.DatePublished)
	fill(&attrs.Description, m.Description)
	fill(&attrs.URL, m.URL)
	fill(&attrs.DataFormat, "DOI")
	if len(attrs.Keywords) == 0 {
		attrs.Keywords = append([]string(nil), m.Keywords...)
	}
	attrs.DOI = rec.DOI
	return attrs
}

// AddDataset copies sourcePath (any local file) to destination inside the
// crate, then registers it. The registration is checked before anything is
// copied, and the copy is removed if the commit still fails.
func (r *Registry) AddDataset(sourcePath, destination string, attrs types.DatasetAttrs) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rel, err := destinationPath(destination)
	if err != nil {
		return "", err
	}
	attrs.SourceFilepath = rel
	if err := attrs.Validate(); err != nil {
		return "", err
	}
	cs, err := datasetCandidates(attrs, rel)
	if err != nil {
		return "", err
	}
	return r.withCopy(sourcePath, rel, cs)
}

// AddSoftware copies sourcePath to destination inside the crate, then
// registers it, with the same checks as AddDataset.
func (r *Registry) AddSoftware(sourcePath, destination string, attrs types.SoftwareAttrs) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rel, err := destinationPath(destination)
	if err != nil {
		return "", err
	}
	attrs.SourceFilepath = rel
	if err := attrs.Validate(); err != nil {
		return "", err
	}
	return r.withCopy(sourcePath, rel, []candidate{softwareCandidate(attrs, rel)})
}

// candidate is an entity waiting to be committed. id is the supplied guid,
// or empty to mint one. schemaFromPrevious binds the schema edge to the id
// of the candidate committed just before this one.
type candidate struct {
	kind               types.Kind
	id                 string
	entity             *types.Entity
	refs               types.Refs
	contentURL         string
	schemaFromPrevious bool
}

// commit stages cs and saves the result. It returns the id of the last
// candidate. The caller holds mu.
func (r *Registry) commit(cs ...candidate) (string, error) {
	g, ids, err := r.stage(cs)
	if err != nil {
		return "", err
	}
	if err := r.store.Save(r.root, g); err != nil {
		return "", err
	}

	r.graph = g
	for i, c := range cs {
		r.logger.Info().Str("kind", c.kind.String()).Str("id", ids[i]).Msg("entity registered")
	}
	return ids[len(ids)-1], nil
}

// stage places cs, in order, into a freshly loaded graph and validates the
// result without saving it. Candidate entities are copied, so staging the
// same candidates twice yields the same graph.
func (r *Registry) stage(cs []candidate) (*types.Graph, []string, error) {
	g, err := r.store.Load(r.root)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		id, err := r.place(g, c, ids)
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
	}
	if err := validate.Validate(g); err != nil {
		return nil, nil, err
	}
	return g, ids, nil
}

// place adds one candidate to g. prior holds the ids placed before it.
//
// An existing entity with the same contentUrl is replaced in place. The
// replaced entry is ignored by the id checks; if other entities still point
// at its id the validation gate rejects the candidate graph.
func (r *Registry) place(g *types.Graph, c candidate, prior []string) (string, error) {
	replace := -1
	if c.contentURL != "" {
		replace = g.IndexByContentURL(c.contentURL)
	}
	others := g
	if replace >= 0 {
		others = &types.Graph{Entities: make([]*types.Entity, 0, g.Len()-1)}
		others.Entities = append(others.Entities, g.Entities[:replace]...)
		others.Entities = append(others.Entities, g.Entities[replace+1:]...)
	}

	e := c.entity.Clone()
	id := c.id
	if id == "" {
		var err error
		if id, err = r.minter.Mint(c.kind, e.Name, others); err != nil {
			return "", err
		}
	} else if others.Has(id) {
		return "", &types.DuplicateIDError{ID: id}
	}
	e.ID = id

	refs := c.refs
	if c.schemaFromPrevious && len(prior) > 0 {
		refs = maps.Clone(refs)
		if refs == nil {
			refs = types.Refs{}
		}
		refs[types.RelSchema] = []string{prior[len(prior)-1]}
	}
	edges, err := linker.Resolve(c.kind, refs, others)
	if err != nil {
		return "", err
	}
	edges.Apply(e)

	if replace >= 0 {
		r.logger.Info().
			Str("id", id).
			Str("replaced", g.Entities[replace].ID).
			Str("contentUrl", c.contentURL).
			Msg("replacing entity registered for the same file")
		g.Entities[replace] = e
	} else {
		g.Append(e)
	}
	return id, nil
}
