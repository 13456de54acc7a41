package xlcore

import "sync"

const rootRelsPath = partPath("/_rels/.rels")
const contentTypesPath = partPath("/[Content_Types].xml")
const workbookPath = partPath("/xl/workbook.xml")

// Package hides the ZIP container and presents parts by path, maintaining
// content-type and relationship indices. Parsed relationship files are
// cached in a mutex-guarded map; ReadPart does not cache and reads the ZIP
// codec on every call.
type Package struct {
	codec zipCodec

	mu           sync.RWMutex
	relsCache    map[partPath]*Relationships
	contentTypes *ContentTypes

	vbaOnce sync.Once
	vba     *VBAProject

	coreOnce sync.Once
	core     *CoreProperties
	appOnce  sync.Once
	app      *AppProperties
}

// openPackage validates the archive and returns a Package positioned at the
// single officeDocument relationship's target.
func openPackage(data []byte) (*Package, error) {
	codec, err := openZipCodec(data)
	if err != nil {
		return nil, err
	}
	pkg := &Package{codec: codec, relsCache: make(map[partPath]*Relationships)}

	if !pkg.exists(contentTypesPath) {
		return nil, newPackageError(ErrInvalidPackageStruct, string(contentTypesPath), "missing [Content_Types].xml")
	}
	if !pkg.exists(rootRelsPath) {
		return nil, newPackageError(ErrInvalidPackageStruct, string(rootRelsPath), "missing package relationships")
	}

	ctBytes, err := pkg.ReadPart(contentTypesPath)
	if err != nil {
		return nil, err
	}
	ct, err := parseContentTypes(ctBytes)
	if err != nil {
		return nil, err
	}
	pkg.contentTypes = ct

	rootRels, err := pkg.RelationshipsFor("/")
	if err != nil {
		return nil, err
	}
	officeDocs := rootRels.ByType(RelTypeOfficeDocument)
	if len(officeDocs) != 1 {
		return nil, newPackageError(ErrNotAnXlsxFile, string(rootRelsPath),
			"expected exactly one officeDocument relationship")
	}
	target := resolveTarget(partPath("/"), officeDocs[0].Target)
	if target != workbookPath {
		return nil, newPackageError(ErrNotAnXlsxFile, string(target), "officeDocument relationship must resolve to /xl/workbook.xml")
	}
	return pkg, nil
}

// ReadPart resolves path against the underlying archive, stripping the
// leading slash for entry lookup.
func (p *Package) ReadPart(path partPath) ([]byte, error) {
	data, err := p.codec.read(path.entryName())
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Exists reports whether the part is present in the package.
func (p *Package) Exists(path partPath) bool {
	return p.exists(path)
}

func (p *Package) exists(path partPath) bool {
	return p.codec.exists(path.entryName())
}

// RelationshipsFor lazily parses the relationships file associated with
// source, caching the result; an absent .rels file yields an empty
// collection rather than an error.
func (p *Package) RelationshipsFor(source string) (*Relationships, error) {
	sp := normalizePartPath(source)

	p.mu.RLock()
	if cached, ok := p.relsCache[sp]; ok {
		p.mu.RUnlock()
		return cached, nil
	}
	p.mu.RUnlock()

	var rels *Relationships
	relsPath := sp.relsPath()
	if sp == "/" {
		relsPath = rootRelsPath
	}
	if p.exists(relsPath) {
		data, err := p.ReadPart(relsPath)
		if err != nil {
			return nil, err
		}
		rels, err = parseRelationships(data)
		if err != nil {
			return nil, err
		}
	} else {
		rels = newRelationships()
	}

	p.mu.Lock()
	p.relsCache[sp] = rels
	p.mu.Unlock()
	return rels, nil
}

// Resolve returns the absolute part path of rel's target, treated as
// relative to from.
func (p *Package) Resolve(from string, rel Relationship) partPath {
	return resolveTarget(normalizePartPath(from), rel.Target)
}

// ContentType looks up the content type for path, override winning over
// extension default.
func (p *Package) ContentType(path partPath) (string, bool) {
	return p.contentTypes.Lookup(path)
}

// vbaProject lazily opens /xl/vbaProject.bin through the OLE2 CFB reader;
// absence is not an error.
func (p *Package) vbaProject() (*VBAProject, error) {
	const path = partPath("/xl/vbaProject.bin")
	if !p.exists(path) {
		return nil, nil
	}
	var loadErr error
	p.vbaOnce.Do(func() {
		data, err := p.ReadPart(path)
		if err != nil {
			loadErr = err
			return
		}
		p.vba, loadErr = parseVBAProject(data)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return p.vba, nil
}

// coreProperties lazily reads /docProps/core.xml; absence is not an error.
func (p *Package) coreProperties() (*CoreProperties, error) {
	const path = partPath("/docProps/core.xml")
	if !p.exists(path) {
		return nil, nil
	}
	var loadErr error
	p.coreOnce.Do(func() {
		data, err := p.ReadPart(path)
		if err != nil {
			loadErr = err
			return
		}
		p.core, loadErr = parseCoreProperties(data)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return p.core, nil
}

// appProperties lazily reads /docProps/app.xml; absence is not an error.
func (p *Package) appProperties() (*AppProperties, error) {
	const path = partPath("/docProps/app.xml")
	if !p.exists(path) {
		return nil, nil
	}
	var loadErr error
	p.appOnce.Do(func() {
		data, err := p.ReadPart(path)
		if err != nil {
			loadErr = err
			return
		}
		p.app, loadErr = parseAppProperties(data)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return p.app, nil
}
